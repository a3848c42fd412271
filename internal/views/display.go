package views

import (
	"net/url"
	"strings"

	"github.com/wuwenbin0122/lrblog/internal/models"
	"github.com/wuwenbin0122/lrblog/internal/session"
)

const AvatarBaseURL = "https://ui-avatars.com/api/?name="

// ProfileDisplay is what the profile card shows.
type ProfileDisplay struct {
	Name      string
	Email     string
	Image     string
	CreatedAt string
}

// DisplayProfile merges the session identity with fetched profile fields.
// Every field prefers the session value when the session carries one and
// falls back to the fetched value otherwise.
func DisplayProfile(sess session.Session, model models.Profile) ProfileDisplay {
	var identity session.Identity
	if sess.User != nil {
		identity = *sess.User
	}

	name := firstNonEmpty(identity.Name, joinName(model.FirstName, model.LastName))

	return ProfileDisplay{
		Name:      name,
		Email:     firstNonEmpty(identity.Email, model.Email),
		Image:     firstNonEmpty(identity.Image, model.Avatar, AvatarURL(name)),
		CreatedAt: model.CreatedAt,
	}
}

// AvatarURL returns a generated initials avatar for name.
func AvatarURL(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return AvatarBaseURL + "%20+"
	}
	return AvatarBaseURL + url.QueryEscape(name)
}

func joinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
