package session

import (
	"errors"
	"fmt"
	"time"

	"auction-site/internal/auctionerrors"
	"auction-site/internal/clock"
	"auction-site/internal/credentials"
	model "auction-site/internal/models"
	"auction-site/internal/repository"
	"auction-site/utils"
)

// Manager issues, renews and revokes sessions. A user holds at most one
// live session per site: the session key is derived from (site, username),
// so concurrent logins collapse onto a single record.
type Manager struct {
	store  repository.Store
	clock  clock.AlarmClock
	hasher credentials.Hasher
}

// NewManager creates a new session Manager instance
func NewManager(store repository.Store, clk clock.AlarmClock, hasher credentials.Hasher) *Manager {
	return &Manager{
		store:  store,
		clock:  clk,
		hasher: hasher,
	}
}

// Login verifies the credentials against the stored hash and returns a live
// session. Unknown user and wrong password both yield (nil, nil), not an
// error. An existing session is renewed rather than duplicated.
func (m *Manager) Login(site model.Site, username, password string) (*model.Session, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("login: username and password must be non-empty: %w", auctionerrors.ErrInvalidArgument)
	}

	user, err := m.store.GetUser(site.Name, username)
	if errors.Is(err, auctionerrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("login %s on site %s: %w", username, site.Name, err)
	}

	if !m.hasher.Verify(user.PasswordHash, password) {
		return nil, nil
	}

	now := m.clock.Now(site.Timezone)
	session := model.Session{
		Key:        model.SessionKey{Site: site.Name, Username: username},
		ValidUntil: now.Add(site.SessionLifetime()),
	}
	// PutSession is an atomic upsert, so a concurrent login for the same
	// user renews the same record instead of creating a second session.
	if err := m.store.PutSession(session); err != nil {
		return nil, fmt.Errorf("login %s on site %s: %w", username, site.Name, err)
	}

	utils.Info("session opened", map[string]any{
		"site":        site.Name,
		"username":    username,
		"valid_until": session.ValidUntil,
	})
	return &session, nil
}

// Logout terminates the session with the given id. A session that is
// already logically expired cannot be logged out, and a missing record
// means the session was already closed.
func (m *Manager) Logout(sessionID string) error {
	key, err := model.ParseSessionID(sessionID)
	if err != nil {
		return fmt.Errorf("logout: %w: %s", auctionerrors.ErrInvalidArgument, err)
	}

	session, err := m.store.GetSession(key)
	if errors.Is(err, auctionerrors.ErrNotFound) {
		return fmt.Errorf("logout %s: session already closed: %w", sessionID, auctionerrors.ErrInvalidArgument)
	}
	if err != nil {
		return fmt.Errorf("logout %s: %w", sessionID, err)
	}

	site, err := m.store.GetSite(key.Site)
	if err != nil {
		return fmt.Errorf("logout %s: %w", sessionID, err)
	}

	if session.Expired(m.clock.Now(site.Timezone)) {
		return fmt.Errorf("logout %s: session expired: %w", sessionID, auctionerrors.ErrInvalidState)
	}

	deleted, err := m.store.DeleteSessionIf(key, func(model.Session) bool { return true })
	if err != nil {
		return fmt.Errorf("logout %s: %w", sessionID, err)
	}
	if !deleted {
		return fmt.Errorf("logout %s: session already closed: %w", sessionID, auctionerrors.ErrInvalidArgument)
	}

	utils.Info("session closed", map[string]any{"site": key.Site, "username": key.Username})
	return nil
}

// Renew extends a session after a state-changing action (bid, auction
// creation). Missing sessions are reported as NotFound.
func (m *Manager) Renew(key model.SessionKey, until time.Time) error {
	session, err := m.store.GetSession(key)
	if err != nil {
		return fmt.Errorf("renew session %s: %w", key.ID(), err)
	}
	session.ValidUntil = until
	if err := m.store.PutSession(session); err != nil {
		return fmt.Errorf("renew session %s: %w", key.ID(), err)
	}
	return nil
}
