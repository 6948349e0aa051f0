package repository

import (
	"fmt"
	"sync"

	"auction-site/internal/auctionerrors"
	model "auction-site/internal/models"
)

// MemoryStore is a concurrency-safe in-memory implementation of Store
type MemoryStore struct {
	mu       sync.RWMutex
	sites    map[string]model.Site            // key: site name
	users    map[model.SessionKey]model.User  // key: (site, username)
	sessions map[model.SessionKey]model.Session
	auctions map[string]model.Auction // key: auction id
}

// NewMemoryStore creates a new in-memory store instance
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sites:    make(map[string]model.Site),
		users:    make(map[model.SessionKey]model.User),
		sessions: make(map[model.SessionKey]model.Session),
		auctions: make(map[string]model.Auction),
	}
}

func (s *MemoryStore) CreateSite(site model.Site) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sites[site.Name]; ok {
		return fmt.Errorf("create site %s: %w", site.Name, auctionerrors.ErrAlreadyExists)
	}
	s.sites[site.Name] = site
	return nil
}

func (s *MemoryStore) GetSite(name string) (model.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	site, ok := s.sites[name]
	if !ok {
		return model.Site{}, fmt.Errorf("get site %s: %w", name, auctionerrors.ErrNotFound)
	}
	return site, nil
}

func (s *MemoryStore) ListSites() ([]model.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sites := make([]model.Site, 0, len(s.sites))
	for _, site := range s.sites {
		sites = append(sites, site)
	}
	return sites, nil
}

func (s *MemoryStore) DeleteSite(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sites[name]; !ok {
		return fmt.Errorf("delete site %s: %w", name, auctionerrors.ErrNotFound)
	}
	delete(s.sites, name)
	return nil
}

func (s *MemoryStore) CreateUser(user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := model.SessionKey{Site: user.Site, Username: user.Username}
	if _, ok := s.users[key]; ok {
		return fmt.Errorf("create user %s on site %s: %w", user.Username, user.Site, auctionerrors.ErrAlreadyExists)
	}
	s.users[key] = user
	return nil
}

func (s *MemoryStore) GetUser(site, username string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[model.SessionKey{Site: site, Username: username}]
	if !ok {
		return model.User{}, fmt.Errorf("get user %s on site %s: %w", username, site, auctionerrors.ErrNotFound)
	}
	return user, nil
}

func (s *MemoryStore) ListUsers(site string) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []model.User
	for key, user := range s.users {
		if key.Site == site {
			users = append(users, user)
		}
	}
	return users, nil
}

func (s *MemoryStore) DeleteUser(site, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := model.SessionKey{Site: site, Username: username}
	if _, ok := s.users[key]; !ok {
		return fmt.Errorf("delete user %s on site %s: %w", username, site, auctionerrors.ErrNotFound)
	}
	delete(s.users, key)
	return nil
}

func (s *MemoryStore) PutSession(session model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.Key] = session
	return nil
}

func (s *MemoryStore) GetSession(key model.SessionKey) (model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[key]
	if !ok {
		return model.Session{}, fmt.Errorf("get session %s: %w", key.ID(), auctionerrors.ErrNotFound)
	}
	return session, nil
}

func (s *MemoryStore) ListSessions(site string) ([]model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []model.Session
	for key, session := range s.sessions {
		if key.Site == site {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

func (s *MemoryStore) DeleteSessionIf(key model.SessionKey, cond func(model.Session) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[key]
	if !ok || !cond(session) {
		return false, nil
	}
	delete(s.sessions, key)
	return true, nil
}

func (s *MemoryStore) CreateAuction(auction model.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.auctions[auction.ID]; ok {
		return fmt.Errorf("create auction %s: %w", auction.ID, auctionerrors.ErrAlreadyExists)
	}
	s.auctions[auction.ID] = auction
	return nil
}

func (s *MemoryStore) GetAuction(id string) (model.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auction, ok := s.auctions[id]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", id, auctionerrors.ErrNotFound)
	}
	return auction, nil
}

func (s *MemoryStore) ListAuctions(site string) ([]model.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var auctions []model.Auction
	for _, auction := range s.auctions {
		if auction.Site == site {
			auctions = append(auctions, auction)
		}
	}
	return auctions, nil
}

func (s *MemoryStore) UpdateAuction(id string, fn func(a *model.Auction) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	auction, ok := s.auctions[id]
	if !ok {
		return fmt.Errorf("update auction %s: %w", id, auctionerrors.ErrNotFound)
	}
	commit, err := fn(&auction)
	if err != nil {
		return err
	}
	if commit {
		s.auctions[id] = auction
	}
	return nil
}

func (s *MemoryStore) DeleteAuction(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.auctions[id]; !ok {
		return fmt.Errorf("delete auction %s: %w", id, auctionerrors.ErrNotFound)
	}
	delete(s.auctions, id)
	return nil
}
