package auction

import (
	"testing"
	"time"

	"auction-site/internal/auctionerrors"
	"auction-site/internal/clock"
	model "auction-site/internal/models"
	"auction-site/internal/repository"
	session "auction-site/internal/sessionService"

	"github.com/stretchr/testify/require"
)

var testBase = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }
func (fakeHasher) Verify(hash, password string) bool    { return hash == "hashed:"+password }

type engineEnv struct {
	store  *repository.MemoryStore
	clock  *clock.ManualClock
	engine *Engine
	site   model.Site
}

func newEngineEnv(t *testing.T) *engineEnv {
	t.Helper()

	store := repository.NewMemoryStore()
	clk := clock.NewManualClock(testBase)
	sessions := session.NewManager(store, clk, fakeHasher{})
	engine := NewEngine(store, clk, sessions)

	site := model.Site{
		Name:                     "marketplace",
		Timezone:                 0,
		SessionExpirationSeconds: 3600,
		MinimumBidIncrement:      7,
	}
	require.NoError(t, store.CreateSite(site))

	for _, username := range []string{"alice", "bob", "carol"} {
		require.NoError(t, store.CreateUser(model.User{
			Username:     username,
			PasswordHash: "hashed:pw",
			Site:         site.Name,
		}))
	}

	return &engineEnv{store: store, clock: clk, engine: engine, site: site}
}

// openSession stores a live session for the user and returns its id.
func (e *engineEnv) openSession(t *testing.T, username string) string {
	t.Helper()
	sess := model.Session{
		Key:        model.SessionKey{Site: e.site.Name, Username: username},
		ValidUntil: testBase.Add(time.Hour),
	}
	require.NoError(t, e.store.PutSession(sess))
	return sess.ID()
}

// openAuction stores an auction with no bids yet and returns its id.
func (e *engineEnv) openAuction(t *testing.T, seller string, startingPrice float64) string {
	t.Helper()
	auc := model.Auction{
		ID:            "auction-" + seller,
		Site:          e.site.Name,
		Seller:        seller,
		CurrentPrice:  startingPrice,
		HighestBid:    startingPrice,
		StartingPrice: startingPrice,
		Description:   "vintage clock",
		EndsOn:        testBase.Add(24 * time.Hour),
	}
	require.NoError(t, e.store.CreateAuction(auc))
	return auc.ID
}

func (e *engineEnv) auction(t *testing.T, id string) model.Auction {
	t.Helper()
	auc, err := e.store.GetAuction(id)
	require.NoError(t, err)
	return auc
}

// Tests the proxy-bidding walkthrough: increment 7, starting price 5.
func TestBid_ProxyBiddingScenario(t *testing.T) {
	env := newEngineEnv(t)
	aucID := env.openAuction(t, "alice", 5)
	bob := env.openSession(t, "bob")
	carol := env.openSession(t, "carol")

	// first bid: winner set, displayed price stays at the starting price
	accepted, err := env.engine.Bid(bob, aucID, 10)
	require.NoError(t, err)
	require.True(t, accepted)
	auc := env.auction(t, aucID)
	require.Equal(t, "bob", auc.CurrentWinner)
	require.Equal(t, 5.0, auc.CurrentPrice)
	require.Equal(t, 10.0, auc.HighestBid)

	// challenger below price+increment is rejected without any change
	accepted, err = env.engine.Bid(carol, aucID, 8)
	require.NoError(t, err)
	require.False(t, accepted)
	require.Equal(t, auc, env.auction(t, aucID))

	// challenger above the hidden maximum takes the lead
	accepted, err = env.engine.Bid(carol, aucID, 12)
	require.NoError(t, err)
	require.True(t, accepted)
	auc = env.auction(t, aucID)
	require.Equal(t, "carol", auc.CurrentWinner)
	require.Equal(t, 12.0, auc.CurrentPrice) // min(12, 10+7)
	require.Equal(t, 12.0, auc.HighestBid)

	// former winner re-enters as challenger
	accepted, err = env.engine.Bid(bob, aucID, 25)
	require.NoError(t, err)
	require.True(t, accepted)
	auc = env.auction(t, aucID)
	require.Equal(t, "bob", auc.CurrentWinner)
	require.Equal(t, 19.0, auc.CurrentPrice) // min(25, 12+7)
	require.Equal(t, 25.0, auc.HighestBid)
}

func TestBid_FailedOutbidPushesPriceUp(t *testing.T) {
	env := newEngineEnv(t)
	aucID := env.openAuction(t, "alice", 5)
	bob := env.openSession(t, "bob")
	carol := env.openSession(t, "carol")

	accepted, err := env.engine.Bid(bob, aucID, 100)
	require.NoError(t, err)
	require.True(t, accepted)

	// carol reaches the threshold but stays below bob's hidden maximum:
	// bob keeps the lead, the displayed price rises to carol's offer plus
	// the increment
	accepted, err = env.engine.Bid(carol, aucID, 40)
	require.NoError(t, err)
	require.True(t, accepted)
	auc := env.auction(t, aucID)
	require.Equal(t, "bob", auc.CurrentWinner)
	require.Equal(t, 47.0, auc.CurrentPrice) // min(100, 40+7)
	require.Equal(t, 100.0, auc.HighestBid)
}

func TestBid_WinnerRaisingOwnCeiling(t *testing.T) {
	env := newEngineEnv(t)
	aucID := env.openAuction(t, "alice", 5)
	bob := env.openSession(t, "bob")

	accepted, err := env.engine.Bid(bob, aucID, 20)
	require.NoError(t, err)
	require.True(t, accepted)

	// raising by less than the increment over the own ceiling is rejected
	accepted, err = env.engine.Bid(bob, aucID, 24)
	require.NoError(t, err)
	require.False(t, accepted)
	require.Equal(t, 20.0, env.auction(t, aucID).HighestBid)

	// a sufficient raise only moves the hidden maximum
	accepted, err = env.engine.Bid(bob, aucID, 30)
	require.NoError(t, err)
	require.True(t, accepted)
	auc := env.auction(t, aucID)
	require.Equal(t, 30.0, auc.HighestBid)
	require.Equal(t, 5.0, auc.CurrentPrice)
	require.Equal(t, "bob", auc.CurrentWinner)
}

func TestBid_FirstBidBelowStartingPriceRejected(t *testing.T) {
	env := newEngineEnv(t)
	aucID := env.openAuction(t, "alice", 50)
	bob := env.openSession(t, "bob")

	accepted, err := env.engine.Bid(bob, aucID, 49)
	require.NoError(t, err)
	require.False(t, accepted)
	auc := env.auction(t, aucID)
	require.Empty(t, auc.CurrentWinner)
	require.Equal(t, 50.0, auc.CurrentPrice)
	require.Equal(t, 50.0, auc.HighestBid)
}

func TestBid_Preconditions(t *testing.T) {
	env := newEngineEnv(t)
	aucID := env.openAuction(t, "alice", 5)
	alice := env.openSession(t, "alice")
	bob := env.openSession(t, "bob")

	tests := []struct {
		name      string
		setup     func(t *testing.T)
		sessionID string
		auctionID string
		offer     float64
		wantErr   error
	}{
		{
			name:      "negative_offer",
			sessionID: bob,
			auctionID: aucID,
			offer:     -1,
			wantErr:   auctionerrors.ErrInvalidArgument,
		},
		{
			name:      "malformed_session_id",
			sessionID: "not a session id",
			auctionID: aucID,
			offer:     10,
			wantErr:   auctionerrors.ErrInvalidArgument,
		},
		{
			name: "unknown_session",
			sessionID: model.SessionKey{
				Site: env.site.Name, Username: "ghost",
			}.ID(),
			auctionID: aucID,
			offer:     10,
			wantErr:   auctionerrors.ErrInvalidArgument,
		},
		{
			name:      "deleted_auction",
			sessionID: bob,
			auctionID: "no-such-auction",
			offer:     10,
			wantErr:   auctionerrors.ErrInvalidState,
		},
		{
			name: "expired_session",
			setup: func(t *testing.T) {
				env.clock.Set(testBase.Add(2 * time.Hour))
			},
			sessionID: bob,
			auctionID: aucID,
			offer:     10,
			wantErr:   auctionerrors.ErrInvalidArgument,
		},
		{
			name: "seller_bids_on_own_auction",
			setup: func(t *testing.T) {
				env.clock.Set(testBase)
			},
			sessionID: alice,
			auctionID: aucID,
			offer:     10,
			wantErr:   auctionerrors.ErrUnauthorized,
		},
		{
			name: "auction_ended",
			setup: func(t *testing.T) {
				env.clock.Set(testBase.Add(25 * time.Hour))
				// keep the session alive past the auction end
				require.NoError(t, env.store.PutSession(model.Session{
					Key:        model.SessionKey{Site: env.site.Name, Username: "bob"},
					ValidUntil: testBase.Add(26 * time.Hour),
				}))
			},
			sessionID: bob,
			auctionID: aucID,
			offer:     10,
			wantErr:   auctionerrors.ErrInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup(t)
			}
			before := env.auction(t, aucID)
			accepted, err := env.engine.Bid(tt.sessionID, tt.auctionID, tt.offer)
			require.ErrorIs(t, err, tt.wantErr)
			require.False(t, accepted)
			require.Equal(t, before, env.auction(t, aucID), "failed bid must not mutate the auction")
		})
	}
}

func TestBid_TenantMismatch(t *testing.T) {
	env := newEngineEnv(t)
	aucID := env.openAuction(t, "alice", 5)

	other := model.Site{Name: "other", SessionExpirationSeconds: 3600, MinimumBidIncrement: 1}
	require.NoError(t, env.store.CreateSite(other))
	require.NoError(t, env.store.CreateUser(model.User{Username: "mallory", PasswordHash: "hashed:pw", Site: "other"}))
	sess := model.Session{
		Key:        model.SessionKey{Site: "other", Username: "mallory"},
		ValidUntil: testBase.Add(time.Hour),
	}
	require.NoError(t, env.store.PutSession(sess))

	accepted, err := env.engine.Bid(sess.ID(), aucID, 10)
	require.ErrorIs(t, err, auctionerrors.ErrUnauthorized)
	require.False(t, accepted)
}

func TestBid_AcceptedBidRenewsSession(t *testing.T) {
	env := newEngineEnv(t)
	aucID := env.openAuction(t, "alice", 5)
	bob := env.openSession(t, "bob")

	env.clock.Set(testBase.Add(30 * time.Minute))
	accepted, err := env.engine.Bid(bob, aucID, 10)
	require.NoError(t, err)
	require.True(t, accepted)

	sess, err := env.store.GetSession(model.SessionKey{Site: env.site.Name, Username: "bob"})
	require.NoError(t, err)
	require.Equal(t, testBase.Add(30*time.Minute).Add(time.Hour).Unix(), sess.ValidUntil.Unix())
}

func TestBid_RejectedBidDoesNotRenewSession(t *testing.T) {
	env := newEngineEnv(t)
	aucID := env.openAuction(t, "alice", 50)
	bob := env.openSession(t, "bob")

	accepted, err := env.engine.Bid(bob, aucID, 1)
	require.NoError(t, err)
	require.False(t, accepted)

	sess, err := env.store.GetSession(model.SessionKey{Site: env.site.Name, Username: "bob"})
	require.NoError(t, err)
	require.Equal(t, testBase.Add(time.Hour), sess.ValidUntil)
}

func TestCreate(t *testing.T) {
	env := newEngineEnv(t)
	alice := env.openSession(t, "alice")

	tests := []struct {
		name          string
		sessionID     string
		description   string
		endsOn        time.Time
		startingPrice float64
		wantErr       error
	}{
		{
			name:          "valid",
			sessionID:     alice,
			description:   "antique chair",
			endsOn:        testBase.Add(48 * time.Hour),
			startingPrice: 30,
		},
		{
			name:          "empty_description",
			sessionID:     alice,
			description:   "",
			endsOn:        testBase.Add(48 * time.Hour),
			startingPrice: 30,
			wantErr:       auctionerrors.ErrInvalidArgument,
		},
		{
			name:          "non_positive_starting_price",
			sessionID:     alice,
			description:   "antique chair",
			endsOn:        testBase.Add(48 * time.Hour),
			startingPrice: 0,
			wantErr:       auctionerrors.ErrInvalidArgument,
		},
		{
			name:          "ends_in_the_past",
			sessionID:     alice,
			description:   "antique chair",
			endsOn:        testBase.Add(-time.Hour),
			startingPrice: 30,
			wantErr:       auctionerrors.ErrInvalidState,
		},
		{
			name: "unknown_session",
			sessionID: model.SessionKey{
				Site: env.site.Name, Username: "ghost",
			}.ID(),
			description:   "antique chair",
			endsOn:        testBase.Add(48 * time.Hour),
			startingPrice: 30,
			wantErr:       auctionerrors.ErrInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auc, err := env.engine.Create(tt.sessionID, tt.description, tt.endsOn, tt.startingPrice)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "alice", auc.Seller)
			require.Equal(t, env.site.Name, auc.Site)
			require.Empty(t, auc.CurrentWinner)
			require.Equal(t, tt.startingPrice, auc.CurrentPrice)
			require.Equal(t, tt.startingPrice, auc.HighestBid)

			stored, err := env.store.GetAuction(auc.ID)
			require.NoError(t, err)
			require.Equal(t, auc, stored)
		})
	}
}

func TestCreate_ExpiredSession(t *testing.T) {
	env := newEngineEnv(t)
	alice := env.openSession(t, "alice")
	env.clock.Set(testBase.Add(2 * time.Hour))

	_, err := env.engine.Create(alice, "antique chair", testBase.Add(48*time.Hour), 30)
	require.ErrorIs(t, err, auctionerrors.ErrInvalidState)
}

func TestCurrentPriceAndWinner(t *testing.T) {
	env := newEngineEnv(t)
	aucID := env.openAuction(t, "alice", 5)
	bob := env.openSession(t, "bob")

	price, err := env.engine.CurrentPrice(aucID)
	require.NoError(t, err)
	require.Equal(t, 5.0, price)

	winner, err := env.engine.CurrentWinner(aucID)
	require.NoError(t, err)
	require.Empty(t, winner)

	accepted, err := env.engine.Bid(bob, aucID, 10)
	require.NoError(t, err)
	require.True(t, accepted)

	winner, err = env.engine.CurrentWinner(aucID)
	require.NoError(t, err)
	require.Equal(t, "bob", winner)

	_, err = env.engine.CurrentPrice("no-such-auction")
	require.ErrorIs(t, err, auctionerrors.ErrNotFound)
	_, err = env.engine.CurrentWinner("no-such-auction")
	require.ErrorIs(t, err, auctionerrors.ErrNotFound)
}

func TestDelete(t *testing.T) {
	env := newEngineEnv(t)
	aucID := env.openAuction(t, "alice", 5)

	require.NoError(t, env.engine.Delete(aucID))
	require.ErrorIs(t, env.engine.Delete(aucID), auctionerrors.ErrNotFound)
}

// Concurrent bids on the same auction must serialize so the invariant
// highestBid >= currentPrice holds at every commit.
func TestBid_ConcurrentBidsKeepInvariant(t *testing.T) {
	env := newEngineEnv(t)
	aucID := env.openAuction(t, "alice", 1)
	bob := env.openSession(t, "bob")
	carol := env.openSession(t, "carol")

	done := make(chan struct{})
	for i := 0; i < 2; i++ {
		sessionID := bob
		if i == 1 {
			sessionID = carol
		}
		go func(id string, base float64) {
			defer func() { done <- struct{}{} }()
			for offer := base; offer < base+200; offer += 10 {
				_, err := env.engine.Bid(id, aucID, offer)
				require.NoError(t, err)
			}
		}(sessionID, float64(10+i))
	}
	<-done
	<-done

	auc := env.auction(t, aucID)
	require.GreaterOrEqual(t, auc.HighestBid, auc.CurrentPrice)
	require.NotEmpty(t, auc.CurrentWinner)
}
