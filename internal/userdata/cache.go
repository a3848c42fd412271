// Package userdata shares user profile fetches between the views of a page.
package userdata

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/wuwenbin0122/lrblog/internal/models"
	"github.com/wuwenbin0122/lrblog/internal/session"
)

var ErrNoData = errors.New("userdata: empty profile")

// Fetcher loads the profile fields of the user registered under email.
type Fetcher interface {
	GetUserData(ctx context.Context, email string) (*models.Profile, error)
}

type FetcherFunc func(ctx context.Context, email string) (*models.Profile, error)

func (f FetcherFunc) GetUserData(ctx context.Context, email string) (*models.Profile, error) {
	return f(ctx, email)
}

// Cache coalesces fetches by email. Every Subscribe must be paired with a
// Release; when the last subscriber of an unsettled entry releases, its fetch
// is cancelled. Settled successes are kept for ttl after the last release,
// failures are dropped as soon as they settle.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time

	mu        sync.Mutex
	entries   map[string]*entry
	lastSweep time.Time
}

type entry struct {
	key    string
	cancel context.CancelFunc
	done   chan struct{}

	// guarded by Cache.mu
	refs       int
	settled    bool
	releasedAt time.Time

	// written once before done is closed
	profile *models.Profile
	err     error
}

func NewCache(fetcher Fetcher, ttl time.Duration) *Cache {
	return &Cache{
		fetcher: fetcher,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Subscribe joins the fetch for email, starting one if none is live.
func (c *Cache) Subscribe(email string) *Subscription {
	key := cacheKey(email)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ttl > 0 && !c.now().Before(c.lastSweep.Add(c.ttl)) {
		c.sweepLocked()
	}

	e, ok := c.entries[key]
	if ok && c.expiredLocked(e) {
		delete(c.entries, key)
		ok = false
	}
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		e = &entry{key: key, cancel: cancel, done: make(chan struct{})}
		c.entries[key] = e
		go c.run(ctx, e, strings.TrimSpace(email))
	}
	e.refs++

	return &Subscription{cache: c, entry: e}
}

// Get subscribes, waits for the result and releases.
func (c *Cache) Get(ctx context.Context, email string) (*models.Profile, error) {
	sub := c.Subscribe(email)
	defer sub.Release()
	return sub.Wait(ctx)
}

// Invalidate detaches the entry for email. Subscribers already waiting on it
// still receive its result; later subscribers trigger a new fetch.
func (c *Cache) Invalidate(email string) {
	key := cacheKey(email)

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		delete(c.entries, key)
		if e.refs == 0 {
			e.cancel()
		}
	}
}

// Watch invalidates entries whenever the session of their email changes and
// evicts expired entries every ttl. It returns when ctx is done.
func (c *Cache) Watch(ctx context.Context, hub *session.Hub) {
	cancel := hub.Handle(func(ev session.Event) {
		if ev.Email != "" {
			c.Invalidate(ev.Email)
		}
	})
	defer cancel()

	if c.ttl <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			c.sweepLocked()
			c.mu.Unlock()
		}
	}
}

// sweepLocked drops every settled entry without subscribers whose ttl ran out.
func (c *Cache) sweepLocked() {
	c.lastSweep = c.now()
	for key, e := range c.entries {
		if c.expiredLocked(e) {
			delete(c.entries, key)
		}
	}
}

func (c *Cache) run(ctx context.Context, e *entry, email string) {
	profile, err := c.fetcher.GetUserData(ctx, email)
	if err == nil && profile == nil {
		err = ErrNoData
	}

	c.mu.Lock()
	e.profile = profile
	e.err = err
	e.settled = true
	e.releasedAt = c.now()
	if err != nil && c.entries[e.key] == e {
		delete(c.entries, e.key)
	}
	close(e.done)
	c.mu.Unlock()

	e.cancel()
}

func (c *Cache) release(e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e.refs--
	if e.refs > 0 {
		return
	}

	current := c.entries[e.key] == e
	if !e.settled {
		e.cancel()
		if current {
			delete(c.entries, e.key)
		}
		return
	}

	e.releasedAt = c.now()
	if c.ttl <= 0 && current {
		delete(c.entries, e.key)
	}
}

func (c *Cache) expiredLocked(e *entry) bool {
	if !e.settled || e.refs > 0 {
		return false
	}
	return !c.now().Before(e.releasedAt.Add(c.ttl))
}

func cacheKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Subscription is one view's interest in a cache entry.
type Subscription struct {
	cache *Cache
	entry *entry
	once  sync.Once
}

// Wait blocks until the shared fetch settles or ctx is done. The returned
// profile is a copy owned by the caller.
func (s *Subscription) Wait(ctx context.Context) (*models.Profile, error) {
	select {
	case <-s.entry.done:
		if s.entry.err != nil {
			return nil, s.entry.err
		}
		profile := *s.entry.profile
		return &profile, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release drops the subscription. Calling it more than once is a no-op.
func (s *Subscription) Release() {
	s.once.Do(func() {
		s.cache.release(s.entry)
	})
}
