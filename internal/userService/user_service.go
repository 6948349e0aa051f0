package user

import (
	"errors"
	"fmt"

	auction "auction-site/internal/auctionService"
	"auction-site/internal/auctionerrors"
	"auction-site/internal/clock"
	model "auction-site/internal/models"
	"auction-site/internal/repository"
	"auction-site/utils"
)

// Service implements user lifecycle operations that depend on the auction
// engine: guarded deletion and won-auction history.
type Service struct {
	store  repository.Store
	clock  clock.AlarmClock
	engine *auction.Engine
}

// NewService creates a new user Service instance
func NewService(store repository.Store, clk clock.AlarmClock, engine *auction.Engine) *Service {
	return &Service{
		store:  store,
		clock:  clk,
		engine: engine,
	}
}

// Delete removes the user. It fails while any not-ended auction has the
// user as seller or current winner. For ended participation: auctions the
// user sold are removed entirely, auctions the user merely won keep their
// record with the winner reference cleared. The user's live session, if
// any, is closed last before the record itself goes.
func (s *Service) Delete(site model.Site, username string) error {
	if _, err := s.store.GetUser(site.Name, username); err != nil {
		if errors.Is(err, auctionerrors.ErrNotFound) {
			return fmt.Errorf("delete user %s: user deleted: %w", username, auctionerrors.ErrInvalidState)
		}
		return fmt.Errorf("delete user %s: %w", username, err)
	}

	now := s.clock.Now(site.Timezone)
	auctions, err := s.store.ListAuctions(site.Name)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", username, err)
	}

	var involved []model.Auction
	for _, a := range auctions {
		if a.Seller != username && a.CurrentWinner != username {
			continue
		}
		if !a.Ended(now) {
			return fmt.Errorf("delete user %s: user participates in a not-ended auction: %w", username, auctionerrors.ErrInvalidState)
		}
		involved = append(involved, a)
	}

	for _, a := range involved {
		if a.Seller == username {
			err := s.engine.Delete(a.ID)
			if err != nil && !errors.Is(err, auctionerrors.ErrNotFound) {
				return fmt.Errorf("delete user %s: %w", username, err)
			}
			continue
		}
		// winner only: keep the record, clear the winner reference.
		// Price fields stay as committed by the last bid.
		err := s.store.UpdateAuction(a.ID, func(a *model.Auction) (bool, error) {
			a.CurrentWinner = ""
			return true, nil
		})
		if err != nil && !errors.Is(err, auctionerrors.ErrNotFound) {
			return fmt.Errorf("delete user %s: %w", username, err)
		}
	}

	key := model.SessionKey{Site: site.Name, Username: username}
	if _, err := s.store.DeleteSessionIf(key, func(model.Session) bool { return true }); err != nil {
		return fmt.Errorf("delete user %s: %w", username, err)
	}

	if err := s.store.DeleteUser(site.Name, username); err != nil {
		if errors.Is(err, auctionerrors.ErrNotFound) {
			return fmt.Errorf("delete user %s: user deleted: %w", username, auctionerrors.ErrInvalidState)
		}
		return fmt.Errorf("delete user %s: %w", username, err)
	}

	utils.Info("user deleted", map[string]any{"site": site.Name, "username": username})
	return nil
}

// WonAuctions returns every ended auction on the site where the user is the
// recorded winner.
func (s *Service) WonAuctions(site model.Site, username string) ([]model.Auction, error) {
	if _, err := s.store.GetUser(site.Name, username); err != nil {
		if errors.Is(err, auctionerrors.ErrNotFound) {
			return nil, fmt.Errorf("won auctions of %s: user deleted: %w", username, auctionerrors.ErrInvalidState)
		}
		return nil, fmt.Errorf("won auctions of %s: %w", username, err)
	}

	now := s.clock.Now(site.Timezone)
	auctions, err := s.store.ListAuctions(site.Name)
	if err != nil {
		return nil, fmt.Errorf("won auctions of %s: %w", username, err)
	}

	var won []model.Auction
	for _, a := range auctions {
		if a.Ended(now) && a.CurrentWinner == username {
			won = append(won, a)
		}
	}
	return won, nil
}
