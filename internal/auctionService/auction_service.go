package auction

import (
	"errors"
	"fmt"
	"math"
	"time"

	"auction-site/internal/auctionerrors"
	"auction-site/internal/clock"
	model "auction-site/internal/models"
	"auction-site/internal/repository"
	session "auction-site/internal/sessionService"
	"auction-site/utils"
)

// Engine implements the auction lifecycle and the proxy-bidding algorithm:
// an English auction with hidden maximum bids, where the displayed price is
// the second-highest ceiling plus the site's minimum increment.
type Engine struct {
	store    repository.Store
	clock    clock.AlarmClock
	sessions *session.Manager
}

// NewEngine creates a new auction Engine instance
func NewEngine(store repository.Store, clk clock.AlarmClock, sessions *session.Manager) *Engine {
	return &Engine{
		store:    store,
		clock:    clk,
		sessions: sessions,
	}
}

// Create opens a new auction on behalf of the session's user. The new
// auction starts with no winner and currentPrice = highestBid = the
// starting price; the creating session is renewed.
func (e *Engine) Create(sessionID, description string, endsOn time.Time, startingPrice float64) (model.Auction, error) {
	key, err := model.ParseSessionID(sessionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("create auction: %w: %s", auctionerrors.ErrInvalidArgument, err)
	}

	sess, err := e.store.GetSession(key)
	if errors.Is(err, auctionerrors.ErrNotFound) {
		return model.Auction{}, fmt.Errorf("create auction: no such session: %w", auctionerrors.ErrInvalidState)
	}
	if err != nil {
		return model.Auction{}, fmt.Errorf("create auction: %w", err)
	}

	site, err := e.store.GetSite(key.Site)
	if err != nil {
		return model.Auction{}, fmt.Errorf("create auction: %w", err)
	}
	now := e.clock.Now(site.Timezone)

	if sess.Expired(now) {
		return model.Auction{}, fmt.Errorf("create auction: session expired: %w", auctionerrors.ErrInvalidState)
	}
	if description == "" {
		return model.Auction{}, fmt.Errorf("create auction: description must be non-empty: %w", auctionerrors.ErrInvalidArgument)
	}
	if startingPrice <= 0 {
		return model.Auction{}, fmt.Errorf("create auction: starting price %v must be positive: %w", startingPrice, auctionerrors.ErrInvalidArgument)
	}
	if !endsOn.After(now) {
		return model.Auction{}, fmt.Errorf("create auction: end time %v is in the past: %w", endsOn, auctionerrors.ErrInvalidState)
	}
	if _, err := e.store.GetUser(key.Site, key.Username); err != nil {
		return model.Auction{}, fmt.Errorf("create auction: seller: %w", err)
	}

	auc := model.Auction{
		ID:            utils.GenerateID(),
		Site:          key.Site,
		Seller:        key.Username,
		CurrentPrice:  startingPrice,
		HighestBid:    startingPrice,
		StartingPrice: startingPrice,
		Description:   description,
		EndsOn:        endsOn,
	}
	if err := e.store.CreateAuction(auc); err != nil {
		return model.Auction{}, fmt.Errorf("create auction: %w", err)
	}

	if err := e.sessions.Renew(key, now.Add(site.SessionLifetime())); err != nil {
		utils.Warn("session renewal after auction creation failed", map[string]any{
			"site": key.Site, "username": key.Username, "error": err.Error(),
		})
	}

	utils.Info("auction created", map[string]any{
		"auction_id": auc.ID,
		"site":       auc.Site,
		"seller":     auc.Seller,
		"ends_on":    auc.EndsOn,
	})
	return auc, nil
}

// CurrentPrice returns the amount a new bidder must at least reach to take
// the lead.
func (e *Engine) CurrentPrice(auctionID string) (float64, error) {
	auc, err := e.store.GetAuction(auctionID)
	if err != nil {
		return 0, fmt.Errorf("current price: %w", err)
	}
	return auc.CurrentPrice, nil
}

// CurrentWinner returns the leading bidder's username, or "" before the
// first valid bid.
func (e *Engine) CurrentWinner(auctionID string) (string, error) {
	auc, err := e.store.GetAuction(auctionID)
	if err != nil {
		return "", fmt.Errorf("current winner: %w", err)
	}
	return auc.CurrentWinner, nil
}

// Delete removes the auction.
func (e *Engine) Delete(auctionID string) error {
	if err := e.store.DeleteAuction(auctionID); err != nil {
		return fmt.Errorf("delete auction: %w", err)
	}
	utils.Info("auction deleted", map[string]any{"auction_id": auctionID})
	return nil
}

// Bid places a proxy bid. A syntactically valid but insufficient offer
// returns (false, nil) and leaves every record untouched; invalid
// preconditions return an error. On acceptance the bidder's session is
// renewed. The whole decision runs inside the store's atomic
// read-modify-write, so concurrent bids on one auction serialize.
func (e *Engine) Bid(sessionID, auctionID string, offer float64) (bool, error) {
	if offer < 0 {
		return false, fmt.Errorf("bid: offer %v must not be negative: %w", offer, auctionerrors.ErrInvalidArgument)
	}

	key, err := model.ParseSessionID(sessionID)
	if err != nil {
		return false, fmt.Errorf("bid: %w: %s", auctionerrors.ErrInvalidArgument, err)
	}
	sess, err := e.store.GetSession(key)
	if errors.Is(err, auctionerrors.ErrNotFound) {
		return false, fmt.Errorf("bid: no such session: %w", auctionerrors.ErrInvalidArgument)
	}
	if err != nil {
		return false, fmt.Errorf("bid: %w", err)
	}

	probe, err := e.store.GetAuction(auctionID)
	if errors.Is(err, auctionerrors.ErrNotFound) {
		return false, fmt.Errorf("bid: auction deleted: %w", auctionerrors.ErrInvalidState)
	}
	if err != nil {
		return false, fmt.Errorf("bid: %w", err)
	}

	site, err := e.store.GetSite(probe.Site)
	if err != nil {
		return false, fmt.Errorf("bid: %w", err)
	}
	now := e.clock.Now(site.Timezone)

	if sess.Expired(now) {
		return false, fmt.Errorf("bid: session expired: %w", auctionerrors.ErrInvalidArgument)
	}
	if key.Site != probe.Site {
		return false, fmt.Errorf("bid: bidder from a different site: %w", auctionerrors.ErrUnauthorized)
	}
	if key.Username == probe.Seller {
		return false, fmt.Errorf("bid: seller cannot bid on own auction: %w", auctionerrors.ErrUnauthorized)
	}
	if probe.Ended(now) {
		return false, fmt.Errorf("bid: auction ended: %w", auctionerrors.ErrInvalidState)
	}

	bidder := key.Username
	increment := site.MinimumBidIncrement
	accepted := false

	err = e.store.UpdateAuction(auctionID, func(a *model.Auction) (bool, error) {
		switch {
		case a.CurrentWinner == "":
			// first bid: the starting price stands until a competitor arrives
			if offer < a.CurrentPrice {
				return false, nil
			}
			a.CurrentWinner = bidder
			a.HighestBid = offer
		case a.CurrentWinner == bidder:
			// raising one's own ceiling
			if a.HighestBid >= offer+increment {
				return false, nil
			}
			a.HighestBid = offer
		default:
			if offer < a.CurrentPrice+increment {
				return false, nil
			}
			if offer > a.HighestBid {
				// challenger takes the lead at the old ceiling plus increment
				a.CurrentPrice = math.Min(offer, a.HighestBid+increment)
				a.CurrentWinner = bidder
				a.HighestBid = offer
			} else {
				// failed outbid still pushes the displayed price up
				a.CurrentPrice = math.Min(a.HighestBid, offer+increment)
			}
		}
		accepted = true
		return true, nil
	})
	if errors.Is(err, auctionerrors.ErrNotFound) {
		return false, fmt.Errorf("bid: auction deleted: %w", auctionerrors.ErrInvalidState)
	}
	if err != nil {
		return false, fmt.Errorf("bid: %w", err)
	}
	if !accepted {
		return false, nil
	}

	if err := e.sessions.Renew(key, now.Add(site.SessionLifetime())); err != nil {
		utils.Warn("session renewal after bid failed", map[string]any{
			"site": key.Site, "username": bidder, "error": err.Error(),
		})
	}

	utils.Info("bid accepted", map[string]any{
		"auction_id": auctionID,
		"site":       key.Site,
		"bidder":     bidder,
		"offer":      offer,
	})
	return true, nil
}
