package host

import (
	"fmt"
	"sync"
	"time"

	auction "auction-site/internal/auctionService"
	"auction-site/internal/auctionerrors"
	"auction-site/internal/clock"
	"auction-site/internal/credentials"
	model "auction-site/internal/models"
	"auction-site/internal/repository"
	session "auction-site/internal/sessionService"
	site "auction-site/internal/siteService"
	user "auction-site/internal/userService"
)

// SiteInfo is the host-level listing entry for one site.
type SiteInfo struct {
	Name     string `json:"name"`
	Timezone int    `json:"timezone"`
}

// Host is the top-level factory over one store. It creates and loads
// sites, wiring each one with the shared clock and hasher.
type Host struct {
	store       repository.Store
	clock       clock.AlarmClock
	hasher      credentials.Hasher
	sweepPeriod time.Duration

	sessions *session.Manager
	engine   *auction.Engine
	users    *user.Service

	mu     sync.Mutex
	loaded map[string]*site.Service
}

// CreateHost prepares the store for first use. Stores that support
// explicit (re)initialization, like the sqlite one, are reset to an empty
// schema; for others creation is a no-op.
func CreateHost(store repository.Store) error {
	type resetter interface{ Reset() error }
	if r, ok := store.(resetter); ok {
		if err := r.Reset(); err != nil {
			return fmt.Errorf("create host: %w", err)
		}
	}
	return nil
}

// LoadHost returns a host over an existing store, verifying the store is
// reachable.
func LoadHost(store repository.Store, clk clock.AlarmClock, hasher credentials.Hasher, sweepPeriod time.Duration) (*Host, error) {
	if store == nil || clk == nil || hasher == nil {
		return nil, fmt.Errorf("load host: store, clock and hasher are required: %w", auctionerrors.ErrInvalidArgument)
	}
	if _, err := store.ListSites(); err != nil {
		return nil, fmt.Errorf("load host: %w", err)
	}
	sessions := session.NewManager(store, clk, hasher)
	engine := auction.NewEngine(store, clk, sessions)
	users := user.NewService(store, clk, engine)
	return &Host{
		store:       store,
		clock:       clk,
		hasher:      hasher,
		sweepPeriod: sweepPeriod,
		sessions:    sessions,
		engine:      engine,
		users:       users,
		loaded:      make(map[string]*site.Service),
	}, nil
}

// Sessions returns the session manager shared by every site on this host.
func (h *Host) Sessions() *session.Manager { return h.sessions }

// Engine returns the auction engine shared by every site on this host.
func (h *Host) Engine() *auction.Engine { return h.engine }

// CreateSite registers a new site after validating its parameters.
func (h *Host) CreateSite(name string, timezone, sessionExpirationSeconds int, minimumBidIncrement float64) error {
	if err := validateSiteName(name); err != nil {
		return err
	}
	if timezone < model.MinTimezone || timezone > model.MaxTimezone {
		return fmt.Errorf("create site: timezone %d must be within %d and %d: %w",
			timezone, model.MinTimezone, model.MaxTimezone, auctionerrors.ErrInvalidArgument)
	}
	if sessionExpirationSeconds < 0 {
		return fmt.Errorf("create site: session expiration must not be negative: %w", auctionerrors.ErrInvalidArgument)
	}
	if minimumBidIncrement < 0 {
		return fmt.Errorf("create site: minimum bid increment must not be negative: %w", auctionerrors.ErrInvalidArgument)
	}

	if err := h.store.CreateSite(model.Site{
		Name:                     name,
		Timezone:                 timezone,
		SessionExpirationSeconds: sessionExpirationSeconds,
		MinimumBidIncrement:      minimumBidIncrement,
	}); err != nil {
		return fmt.Errorf("create site %s: %w", name, err)
	}
	return nil
}

// LoadSite returns the service for an existing site, starting its session
// sweeper. Loading the same site twice yields the same service so the
// sweep alarm is registered once.
func (h *Host) LoadSite(name string) (*site.Service, error) {
	if err := validateSiteName(name); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if svc, ok := h.loaded[name]; ok {
		return svc, nil
	}

	record, err := h.store.GetSite(name)
	if err != nil {
		return nil, fmt.Errorf("load site %s: %w", name, err)
	}

	svc := site.NewService(record, h.store, h.clock, h.hasher, h.sessions, h.engine, h.users)
	svc.StartSweeper(h.sweepPeriod)

	h.loaded[name] = svc
	return svc, nil
}

// DropSite forgets a loaded site after deletion so a recreated site with
// the same name gets a fresh service.
func (h *Host) DropSite(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.loaded, name)
}

// GetSiteInfos lists the name and timezone of every site on this host.
func (h *Host) GetSiteInfos() ([]SiteInfo, error) {
	sites, err := h.store.ListSites()
	if err != nil {
		return nil, fmt.Errorf("get site infos: %w", err)
	}
	infos := make([]SiteInfo, 0, len(sites))
	for _, s := range sites {
		infos = append(infos, SiteInfo{Name: s.Name, Timezone: s.Timezone})
	}
	return infos, nil
}

func validateSiteName(name string) error {
	if len(name) < model.MinSiteName || len(name) > model.MaxSiteName {
		return fmt.Errorf("site name length must be within %d and %d: %w",
			model.MinSiteName, model.MaxSiteName, auctionerrors.ErrInvalidArgument)
	}
	return nil
}
