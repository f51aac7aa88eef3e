// Package session keeps signed in users in a fiber storage backend keyed by
// a random cookie value.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ExtMailer/ExtMailer/internal/db/models"
	"github.com/ExtMailer/ExtMailer/internal/uniuri"
)

// CookieName is the name of the session cookie.
const CookieName = "session"

var (
	// ErrNoSession is returned when the request carries no session cookie.
	ErrNoSession = errors.New("no session")
	// ErrSessionExpired is returned when the cookie names no stored session.
	ErrSessionExpired = errors.New("session expired or unknown")
)

// Data is what a session remembers about the user.
type Data struct {
	UserID      uint64            `json:"userId"`
	Username    string            `json:"username"`
	DisplayName string            `json:"displayName"`
	AuthSource  models.AuthSource `json:"authSource"`
	// IDToken is kept for OIDC logout.
	IDToken string `json:"idToken,omitempty"`
}

// NewData returns session data for user.
func NewData(user *models.User) Data {
	return Data{
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName(),
		AuthSource:  user.AuthSource,
	}
}

// Manager writes and reads sessions.
type Manager struct {
	storage fiber.Storage
	expiry  time.Duration
	secure  bool
}

// NewManager creates a manager. Cookies are marked Secure unless insecure is set.
func NewManager(storage fiber.Storage, expiry time.Duration, insecure bool) *Manager {
	if storage == nil {
		panic("storage is nil")
	}

	return &Manager{storage: storage, expiry: expiry, secure: !insecure}
}

// Storage returns the backend.
func (m *Manager) Storage() fiber.Storage {
	return m.storage
}

// Create stores data under a new id and sets the cookie.
func (m *Manager) Create(c *fiber.Ctx, data Data) error {
	id, err := uniuri.NewLen(uniuri.SessionIDLen)
	if err != nil {
		return err
	}

	out, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err = m.storage.Set(id, out, m.expiry); err != nil {
		return fmt.Errorf("write session: %w", err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(m.expiry.Seconds()),
		Secure:   m.secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return nil
}

// Read returns the session of the request.
func (m *Manager) Read(c *fiber.Ctx) (*Data, error) {
	id := c.Cookies(CookieName)
	if id == "" {
		return nil, ErrNoSession
	}

	raw, err := m.storage.Get(id)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	// storages return nil for missing or expired keys
	if len(raw) == 0 {
		return nil, ErrSessionExpired
	}

	data := new(Data)
	if err = json.Unmarshal(raw, data); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	if data.UserID == 0 {
		return nil, ErrSessionExpired
	}

	return data, nil
}

// Destroy deletes the stored session and expires the cookie.
// It returns the data that was stored, if any.
func (m *Manager) Destroy(c *fiber.Ctx) *Data {
	data, _ := m.Read(c)

	if id := c.Cookies(CookieName); id != "" {
		if err := m.storage.Delete(id); err != nil {
			event := log.Warn().Err(err)
			if data != nil {
				event = event.Str("username", data.Username)
			}

			event.Msg("failed to delete session from storage")
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   m.secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return data
}
