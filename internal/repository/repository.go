package repository

import (
	model "auction-site/internal/models"
)

// Store defines the record storage interface for the auction site.
// Single-record reads and writes are atomic; UpdateAuction and
// DeleteSessionIf additionally give callers an atomic check-then-act so
// concurrent bids on one auction serialize and the session sweep cannot
// delete a session renewed after it was listed.
type Store interface {
	// Sites
	CreateSite(site model.Site) error
	GetSite(name string) (model.Site, error)
	ListSites() ([]model.Site, error)
	DeleteSite(name string) error

	// Users
	CreateUser(user model.User) error
	GetUser(site, username string) (model.User, error)
	ListUsers(site string) ([]model.User, error)
	DeleteUser(site, username string) error

	// Sessions
	PutSession(session model.Session) error
	GetSession(key model.SessionKey) (model.Session, error)
	ListSessions(site string) ([]model.Session, error)
	// DeleteSessionIf removes the session only when cond holds for the
	// currently stored record, atomically. It reports whether a record
	// was removed; a missing record is (false, nil).
	DeleteSessionIf(key model.SessionKey, cond func(model.Session) bool) (bool, error)

	// Auctions
	CreateAuction(auction model.Auction) error
	GetAuction(id string) (model.Auction, error)
	ListAuctions(site string) ([]model.Auction, error)
	// UpdateAuction applies fn to the stored record under the auction's
	// write lock. The record is persisted only when fn returns commit=true;
	// an error from fn aborts without writing and is returned verbatim.
	UpdateAuction(id string, fn func(a *model.Auction) (commit bool, err error)) error
	DeleteAuction(id string) error
}
