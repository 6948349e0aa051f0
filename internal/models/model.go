package models

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Domain bounds shared by validation in the host and site services.
const (
	MinSiteName = 1
	MaxSiteName = 128
	MinUsername = 3
	MaxUsername = 64
	MinPassword = 4
	MinTimezone = -12
	MaxTimezone = 12
)

// Site is a tenant boundary grouping its own users, sessions and auctions
type Site struct {
	Name                     string  `json:"name"`
	Timezone                 int     `json:"timezone"`
	SessionExpirationSeconds int     `json:"session_expiration_seconds"`
	MinimumBidIncrement      float64 `json:"minimum_bid_increment"`
}

// SessionLifetime is the duration a login or renewal keeps a session valid.
func (s Site) SessionLifetime() time.Duration {
	return time.Duration(s.SessionExpirationSeconds) * time.Second
}

// User represents an account registered on one site
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Site         string `json:"site"`
}

// SessionKey identifies the single live session a user may hold on a site.
// Repeated logins for the same (site, user) pair collapse onto this key.
type SessionKey struct {
	Site     string
	Username string
}

// ID renders the key as an opaque, reversible session id. Both parts are
// base64url-encoded so usernames containing the separator stay unambiguous.
func (k SessionKey) ID() string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(k.Site)) + "." + enc.EncodeToString([]byte(k.Username))
}

// ParseSessionID decodes an id produced by SessionKey.ID.
func ParseSessionID(id string) (SessionKey, error) {
	parts := strings.Split(id, ".")
	if len(parts) != 2 {
		return SessionKey{}, fmt.Errorf("malformed session id %q", id)
	}
	enc := base64.RawURLEncoding
	site, err := enc.DecodeString(parts[0])
	if err != nil {
		return SessionKey{}, fmt.Errorf("malformed session id %q: %w", id, err)
	}
	username, err := enc.DecodeString(parts[1])
	if err != nil {
		return SessionKey{}, fmt.Errorf("malformed session id %q: %w", id, err)
	}
	return SessionKey{Site: string(site), Username: string(username)}, nil
}

// Session is the live login of one user on one site
type Session struct {
	Key        SessionKey `json:"-"`
	ValidUntil time.Time  `json:"valid_until"`
}

// ID returns the opaque session id handed to clients.
func (s Session) ID() string { return s.Key.ID() }

// Expired reports whether the session is logically dead at the given instant.
func (s Session) Expired(now time.Time) bool {
	return !s.ValidUntil.After(now)
}

// Auction is a single listing under proxy-bidding rules. HighestBid is the
// current winner's hidden maximum offer; CurrentPrice is the displayed price.
type Auction struct {
	ID            string    `json:"id"`
	Site          string    `json:"site"`
	Seller        string    `json:"seller"`
	CurrentWinner string    `json:"current_winner,omitempty"` // empty until the first valid bid
	CurrentPrice  float64   `json:"current_price"`
	HighestBid    float64   `json:"-"`
	StartingPrice float64   `json:"starting_price"`
	Description   string    `json:"description"`
	EndsOn        time.Time `json:"ends_on"`
}

// Ended reports whether the auction has closed at the given instant.
func (a Auction) Ended(now time.Time) bool {
	return !a.EndsOn.After(now)
}
