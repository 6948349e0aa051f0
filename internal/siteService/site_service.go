package site

import (
	"errors"
	"fmt"
	"time"

	auction "auction-site/internal/auctionService"
	"auction-site/internal/auctionerrors"
	"auction-site/internal/clock"
	"auction-site/internal/credentials"
	model "auction-site/internal/models"
	"auction-site/internal/repository"
	session "auction-site/internal/sessionService"
	user "auction-site/internal/userService"
	"auction-site/utils"
)

// SweepPeriod is the nominal interval between expired-session sweeps.
const SweepPeriod = 5 * time.Minute

// Service is the tenant boundary: every operation is scoped to one site.
type Service struct {
	site     model.Site
	store    repository.Store
	clock    clock.AlarmClock
	hasher   credentials.Hasher
	sessions *session.Manager
	engine   *auction.Engine
	users    *user.Service
	alarm    clock.Alarm
}

// NewService creates a new site Service instance
func NewService(site model.Site, store repository.Store, clk clock.AlarmClock,
	hasher credentials.Hasher, sessions *session.Manager, engine *auction.Engine,
	users *user.Service) *Service {
	return &Service{
		site:     site,
		store:    store,
		clock:    clk,
		hasher:   hasher,
		sessions: sessions,
		engine:   engine,
		users:    users,
	}
}

// Site returns the site record this service is bound to.
func (s *Service) Site() model.Site { return s.site }

// Engine returns the auction engine scoped to this site's store.
func (s *Service) Engine() *auction.Engine { return s.engine }

// Users returns the user service.
func (s *Service) Users() *user.Service { return s.users }

// Now returns the current time in the site's timezone.
func (s *Service) Now() time.Time { return s.clock.Now(s.site.Timezone) }

// StartSweeper registers the recurring expired-session sweep.
func (s *Service) StartSweeper(period time.Duration) {
	if s.alarm != nil {
		return
	}
	if period <= 0 {
		period = SweepPeriod
	}
	s.alarm = s.clock.NewRecurringAlarm(period, func() {
		if err := s.SweepExpiredSessions(); err != nil {
			utils.Error("session sweep failed", map[string]any{"site": s.site.Name, "error": err.Error()})
		}
	})
}

// StopSweeper cancels the recurring sweep.
func (s *Service) StopSweeper() {
	if s.alarm != nil {
		s.alarm.Stop()
		s.alarm = nil
	}
}

// CreateUser registers a new user on this site.
func (s *Service) CreateUser(username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("create user: username and password must be non-empty: %w", auctionerrors.ErrInvalidArgument)
	}
	if len(username) < model.MinUsername || len(username) > model.MaxUsername {
		return fmt.Errorf("create user: username length must be within %d and %d: %w",
			model.MinUsername, model.MaxUsername, auctionerrors.ErrInvalidArgument)
	}
	if len(password) < model.MinPassword {
		return fmt.Errorf("create user: password must be at least %d characters: %w",
			model.MinPassword, auctionerrors.ErrInvalidArgument)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("create user %s: %w", username, err)
	}

	if err := s.store.CreateUser(model.User{
		Username:     username,
		PasswordHash: hash,
		Site:         s.site.Name,
	}); err != nil {
		return fmt.Errorf("create user %s on site %s: %w", username, s.site.Name, err)
	}

	utils.Info("user created", map[string]any{"site": s.site.Name, "username": username})
	return nil
}

// Login delegates to the session manager with this site's rules.
func (s *Service) Login(username, password string) (*model.Session, error) {
	return s.sessions.Login(s.site, username, password)
}

// ListUsers returns every user registered on this site.
func (s *Service) ListUsers() ([]model.User, error) {
	users, err := s.store.ListUsers(s.site.Name)
	if err != nil {
		return nil, fmt.Errorf("list users of site %s: %w", s.site.Name, err)
	}
	return users, nil
}

// ListSessions returns the live sessions of this site. Expired records
// awaiting the next sweep are filtered out.
func (s *Service) ListSessions() ([]model.Session, error) {
	sessions, err := s.store.ListSessions(s.site.Name)
	if err != nil {
		return nil, fmt.Errorf("list sessions of site %s: %w", s.site.Name, err)
	}
	now := s.Now()
	live := sessions[:0]
	for _, sess := range sessions {
		if !sess.Expired(now) {
			live = append(live, sess)
		}
	}
	return live, nil
}

// ListAuctions returns this site's auctions, optionally only those that
// have not ended yet.
func (s *Service) ListAuctions(onlyNotEnded bool) ([]model.Auction, error) {
	auctions, err := s.store.ListAuctions(s.site.Name)
	if err != nil {
		return nil, fmt.Errorf("list auctions of site %s: %w", s.site.Name, err)
	}
	if !onlyNotEnded {
		return auctions, nil
	}
	now := s.Now()
	open := auctions[:0]
	for _, a := range auctions {
		if !a.Ended(now) {
			open = append(open, a)
		}
	}
	return open, nil
}

// SweepExpiredSessions logs out every session of this site whose validity
// has lapsed. Expiry is re-checked atomically right before each delete, so
// a session renewed after the listing snapshot survives the sweep.
func (s *Service) SweepExpiredSessions() error {
	sessions, err := s.store.ListSessions(s.site.Name)
	if err != nil {
		return fmt.Errorf("sweep sessions of site %s: %w", s.site.Name, err)
	}

	now := s.Now()
	swept := 0
	for _, sess := range sessions {
		if !sess.Expired(now) {
			continue
		}
		deleted, err := s.store.DeleteSessionIf(sess.Key, func(current model.Session) bool {
			return current.Expired(s.Now())
		})
		if err != nil {
			return fmt.Errorf("sweep sessions of site %s: %w", s.site.Name, err)
		}
		if deleted {
			swept++
		}
	}

	if swept > 0 {
		utils.Info("expired sessions swept", map[string]any{"site": s.site.Name, "count": swept})
	}
	return nil
}

// Delete cascades: first every not-ended auction, then every user (which
// removes their ended auctions), then the site record itself. The cascade
// stops on the first unreachable-storage failure; already-deleted children
// report NotFound and are treated as nothing to do, so a retry of the whole
// cascade is safe.
func (s *Service) Delete() error {
	openAuctions, err := s.ListAuctions(true)
	if err != nil {
		return fmt.Errorf("delete site %s: %w", s.site.Name, err)
	}
	for _, a := range openAuctions {
		err := s.engine.Delete(a.ID)
		if err != nil && !errors.Is(err, auctionerrors.ErrNotFound) {
			return fmt.Errorf("delete site %s: %w", s.site.Name, err)
		}
	}

	users, err := s.store.ListUsers(s.site.Name)
	if err != nil {
		return fmt.Errorf("delete site %s: %w", s.site.Name, err)
	}
	for _, u := range users {
		err := s.users.Delete(s.site, u.Username)
		if err != nil && !errors.Is(err, auctionerrors.ErrInvalidState) {
			return fmt.Errorf("delete site %s: %w", s.site.Name, err)
		}
	}

	if err := s.store.DeleteSite(s.site.Name); err != nil && !errors.Is(err, auctionerrors.ErrNotFound) {
		return fmt.Errorf("delete site %s: %w", s.site.Name, err)
	}

	s.StopSweeper()
	utils.Info("site deleted", map[string]any{"site": s.site.Name})
	return nil
}
