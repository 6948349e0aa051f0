package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"auction-site/internal/auctionerrors"
	model "auction-site/internal/models"
	"auction-site/internal/repository"
)

const schema = `
CREATE TABLE IF NOT EXISTS sites (
	name TEXT PRIMARY KEY,
	timezone INTEGER NOT NULL,
	session_expiration_seconds INTEGER NOT NULL,
	minimum_bid_increment REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS users (
	site TEXT NOT NULL,
	username TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	PRIMARY KEY (site, username)
);
CREATE TABLE IF NOT EXISTS sessions (
	site TEXT NOT NULL,
	username TEXT NOT NULL,
	valid_until INTEGER NOT NULL,
	PRIMARY KEY (site, username)
);
CREATE TABLE IF NOT EXISTS auctions (
	id TEXT PRIMARY KEY,
	site TEXT NOT NULL,
	seller TEXT NOT NULL,
	current_winner TEXT NOT NULL DEFAULT '',
	current_price REAL NOT NULL,
	highest_bid REAL NOT NULL,
	starting_price REAL NOT NULL,
	description TEXT NOT NULL,
	ends_on INTEGER NOT NULL
);
`

// Store is a durable repository.Store backed by sqlite.
type Store struct {
	db *sql.DB
}

var _ repository.Store = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Init creates the tables when they do not exist yet.
func (s *Store) Init() error {
	if _, err := s.db.Exec(schema); err != nil {
		return unavailable("create tables", err)
	}
	return nil
}

// Reset drops and recreates all tables. Used by host creation.
func (s *Store) Reset() error {
	drop := `
DROP TABLE IF EXISTS auctions;
DROP TABLE IF EXISTS sessions;
DROP TABLE IF EXISTS users;
DROP TABLE IF EXISTS sites;
`
	if _, err := s.db.Exec(drop); err != nil {
		return unavailable("drop tables", err)
	}
	return s.Init()
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %s", op, auctionerrors.ErrUnavailable, err)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}

func (s *Store) CreateSite(site model.Site) error {
	_, err := s.db.Exec(`
INSERT INTO sites (name, timezone, session_expiration_seconds, minimum_bid_increment)
VALUES (?, ?, ?, ?)`,
		site.Name, site.Timezone, site.SessionExpirationSeconds, site.MinimumBidIncrement)
	if isUniqueViolation(err) {
		return fmt.Errorf("create site %s: %w", site.Name, auctionerrors.ErrAlreadyExists)
	}
	if err != nil {
		return unavailable("insert site", err)
	}
	return nil
}

func (s *Store) GetSite(name string) (model.Site, error) {
	var site model.Site
	err := s.db.QueryRow(`
SELECT name, timezone, session_expiration_seconds, minimum_bid_increment
FROM sites WHERE name = ?`, name).
		Scan(&site.Name, &site.Timezone, &site.SessionExpirationSeconds, &site.MinimumBidIncrement)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Site{}, fmt.Errorf("get site %s: %w", name, auctionerrors.ErrNotFound)
	}
	if err != nil {
		return model.Site{}, unavailable("select site", err)
	}
	return site, nil
}

func (s *Store) ListSites() ([]model.Site, error) {
	rows, err := s.db.Query(`
SELECT name, timezone, session_expiration_seconds, minimum_bid_increment FROM sites`)
	if err != nil {
		return nil, unavailable("select sites", err)
	}
	defer rows.Close()

	var sites []model.Site
	for rows.Next() {
		var site model.Site
		if err := rows.Scan(&site.Name, &site.Timezone, &site.SessionExpirationSeconds, &site.MinimumBidIncrement); err != nil {
			return nil, unavailable("scan site", err)
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate sites", err)
	}
	return sites, nil
}

func (s *Store) DeleteSite(name string) error {
	res, err := s.db.Exec(`DELETE FROM sites WHERE name = ?`, name)
	if err != nil {
		return unavailable("delete site", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete site %s: %w", name, auctionerrors.ErrNotFound)
	}
	return nil
}

func (s *Store) CreateUser(user model.User) error {
	_, err := s.db.Exec(`
INSERT INTO users (site, username, password_hash) VALUES (?, ?, ?)`,
		user.Site, user.Username, user.PasswordHash)
	if isUniqueViolation(err) {
		return fmt.Errorf("create user %s on site %s: %w", user.Username, user.Site, auctionerrors.ErrAlreadyExists)
	}
	if err != nil {
		return unavailable("insert user", err)
	}
	return nil
}

func (s *Store) GetUser(site, username string) (model.User, error) {
	var user model.User
	err := s.db.QueryRow(`
SELECT site, username, password_hash FROM users WHERE site = ? AND username = ?`,
		site, username).
		Scan(&user.Site, &user.Username, &user.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("get user %s on site %s: %w", username, site, auctionerrors.ErrNotFound)
	}
	if err != nil {
		return model.User{}, unavailable("select user", err)
	}
	return user, nil
}

func (s *Store) ListUsers(site string) ([]model.User, error) {
	rows, err := s.db.Query(`
SELECT site, username, password_hash FROM users WHERE site = ?`, site)
	if err != nil {
		return nil, unavailable("select users", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var user model.User
		if err := rows.Scan(&user.Site, &user.Username, &user.PasswordHash); err != nil {
			return nil, unavailable("scan user", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate users", err)
	}
	return users, nil
}

func (s *Store) DeleteUser(site, username string) error {
	res, err := s.db.Exec(`DELETE FROM users WHERE site = ? AND username = ?`, site, username)
	if err != nil {
		return unavailable("delete user", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete user %s on site %s: %w", username, site, auctionerrors.ErrNotFound)
	}
	return nil
}

func (s *Store) PutSession(session model.Session) error {
	_, err := s.db.Exec(`
INSERT INTO sessions (site, username, valid_until) VALUES (?, ?, ?)
ON CONFLICT (site, username) DO UPDATE SET valid_until = excluded.valid_until`,
		session.Key.Site, session.Key.Username, session.ValidUntil.UnixNano())
	if err != nil {
		return unavailable("upsert session", err)
	}
	return nil
}

func (s *Store) GetSession(key model.SessionKey) (model.Session, error) {
	var validUntil int64
	err := s.db.QueryRow(`
SELECT valid_until FROM sessions WHERE site = ? AND username = ?`,
		key.Site, key.Username).Scan(&validUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, fmt.Errorf("get session %s: %w", key.ID(), auctionerrors.ErrNotFound)
	}
	if err != nil {
		return model.Session{}, unavailable("select session", err)
	}
	return model.Session{Key: key, ValidUntil: time.Unix(0, validUntil).UTC()}, nil
}

func (s *Store) ListSessions(site string) ([]model.Session, error) {
	rows, err := s.db.Query(`
SELECT site, username, valid_until FROM sessions WHERE site = ?`, site)
	if err != nil {
		return nil, unavailable("select sessions", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var key model.SessionKey
		var validUntil int64
		if err := rows.Scan(&key.Site, &key.Username, &validUntil); err != nil {
			return nil, unavailable("scan session", err)
		}
		sessions = append(sessions, model.Session{Key: key, ValidUntil: time.Unix(0, validUntil).UTC()})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate sessions", err)
	}
	return sessions, nil
}

func (s *Store) DeleteSessionIf(key model.SessionKey, cond func(model.Session) bool) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, unavailable("begin delete session", err)
	}
	defer tx.Rollback()

	var validUntil int64
	err = tx.QueryRow(`
SELECT valid_until FROM sessions WHERE site = ? AND username = ?`,
		key.Site, key.Username).Scan(&validUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, unavailable("select session", err)
	}

	session := model.Session{Key: key, ValidUntil: time.Unix(0, validUntil).UTC()}
	if !cond(session) {
		return false, nil
	}

	if _, err := tx.Exec(`DELETE FROM sessions WHERE site = ? AND username = ?`, key.Site, key.Username); err != nil {
		return false, unavailable("delete session", err)
	}
	if err := tx.Commit(); err != nil {
		return false, unavailable("commit delete session", err)
	}
	return true, nil
}

func (s *Store) CreateAuction(auction model.Auction) error {
	_, err := s.db.Exec(`
INSERT INTO auctions (id, site, seller, current_winner, current_price, highest_bid, starting_price, description, ends_on)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		auction.ID, auction.Site, auction.Seller, auction.CurrentWinner,
		auction.CurrentPrice, auction.HighestBid, auction.StartingPrice,
		auction.Description, auction.EndsOn.UnixNano())
	if isUniqueViolation(err) {
		return fmt.Errorf("create auction %s: %w", auction.ID, auctionerrors.ErrAlreadyExists)
	}
	if err != nil {
		return unavailable("insert auction", err)
	}
	return nil
}

func scanAuction(row interface{ Scan(...any) error }) (model.Auction, error) {
	var auction model.Auction
	var endsOn int64
	err := row.Scan(&auction.ID, &auction.Site, &auction.Seller, &auction.CurrentWinner,
		&auction.CurrentPrice, &auction.HighestBid, &auction.StartingPrice,
		&auction.Description, &endsOn)
	if err != nil {
		return model.Auction{}, err
	}
	auction.EndsOn = time.Unix(0, endsOn).UTC()
	return auction, nil
}

const auctionColumns = `id, site, seller, current_winner, current_price, highest_bid, starting_price, description, ends_on`

func (s *Store) GetAuction(id string) (model.Auction, error) {
	row := s.db.QueryRow(`SELECT `+auctionColumns+` FROM auctions WHERE id = ?`, id)
	auction, err := scanAuction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", id, auctionerrors.ErrNotFound)
	}
	if err != nil {
		return model.Auction{}, unavailable("select auction", err)
	}
	return auction, nil
}

func (s *Store) ListAuctions(site string) ([]model.Auction, error) {
	rows, err := s.db.Query(`SELECT `+auctionColumns+` FROM auctions WHERE site = ?`, site)
	if err != nil {
		return nil, unavailable("select auctions", err)
	}
	defer rows.Close()

	var auctions []model.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, unavailable("scan auction", err)
		}
		auctions = append(auctions, auction)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate auctions", err)
	}
	return auctions, nil
}

func (s *Store) UpdateAuction(id string, fn func(a *model.Auction) (bool, error)) error {
	tx, err := s.db.Begin()
	if err != nil {
		return unavailable("begin update auction", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+auctionColumns+` FROM auctions WHERE id = ?`, id)
	auction, err := scanAuction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update auction %s: %w", id, auctionerrors.ErrNotFound)
	}
	if err != nil {
		return unavailable("select auction", err)
	}

	commit, err := fn(&auction)
	if err != nil {
		return err
	}
	if !commit {
		return nil
	}

	if _, err := tx.Exec(`
UPDATE auctions SET current_winner = ?, current_price = ?, highest_bid = ? WHERE id = ?`,
		auction.CurrentWinner, auction.CurrentPrice, auction.HighestBid, id); err != nil {
		return unavailable("update auction", err)
	}
	if err := tx.Commit(); err != nil {
		return unavailable("commit update auction", err)
	}
	return nil
}

func (s *Store) DeleteAuction(id string) error {
	res, err := s.db.Exec(`DELETE FROM auctions WHERE id = ?`, id)
	if err != nil {
		return unavailable("delete auction", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete auction %s: %w", id, auctionerrors.ErrNotFound)
	}
	return nil
}
