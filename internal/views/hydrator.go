package views

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wuwenbin0122/lrblog/internal/models"
	"github.com/wuwenbin0122/lrblog/internal/session"
	"github.com/wuwenbin0122/lrblog/internal/userdata"
)

type HydrationState int

const (
	Idle HydrationState = iota
	Fetching
	Settled
)

type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

// Hydrator loads the profile fields a view needs on top of the session.
//
// A fetch starts once per observed change of session status and only while
// the status is authenticated. A failure is logged and leaves the model as it
// was; a success replaces it. After Close no result is written.
type Hydrator struct {
	cache  *userdata.Cache
	logger *zap.SugaredLogger

	mu         sync.Mutex
	state      HydrationState
	outcome    Outcome
	model      models.Profile
	observed   bool
	lastStatus session.Status
	generation int
	cancel     context.CancelFunc
	closed     bool
}

func NewHydrator(cache *userdata.Cache, logger *zap.SugaredLogger) *Hydrator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Hydrator{cache: cache, logger: logger}
}

// Sync observes sess and, when that starts a fetch, blocks until it settles,
// ctx is done or the hydrator is closed.
func (h *Hydrator) Sync(ctx context.Context, sess session.Session) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}

	changed := !h.observed || sess.Status != h.lastStatus
	h.observed = true
	h.lastStatus = sess.Status
	if !changed || !sess.IsAuthenticated() || h.cache == nil {
		h.mu.Unlock()
		return
	}

	if h.cancel != nil {
		h.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.generation++
	gen := h.generation
	h.state = Fetching
	h.mu.Unlock()

	email := sess.Email()
	sub := h.cache.Subscribe(email)
	profile, err := sub.Wait(fetchCtx)
	sub.Release()
	cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || gen != h.generation {
		return
	}

	h.cancel = nil
	h.state = Settled
	if err != nil {
		h.outcome = OutcomeFailure
		h.logger.Warnw("Error in getUserData", "email", email, "error", err)
		return
	}

	h.outcome = OutcomeSuccess
	h.model = *profile
}

func (h *Hydrator) State() (HydrationState, Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state, h.outcome
}

func (h *Hydrator) Model() models.Profile {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.model
}

// Close tears the hydrator down and cancels a fetch in progress.
func (h *Hydrator) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}
