package user

import (
	"testing"
	"time"

	auction "auction-site/internal/auctionService"
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

type userEnv struct {
	store   *repository.MemoryStore
	clock   *clock.ManualClock
	service *Service
	site    model.Site
}

func newUserEnv(t *testing.T) *userEnv {
	t.Helper()

	store := repository.NewMemoryStore()
	clk := clock.NewManualClock(testBase)
	sessions := session.NewManager(store, clk, fakeHasher{})
	engine := auction.NewEngine(store, clk, sessions)
	service := NewService(store, clk, engine)

	site := model.Site{Name: "marketplace", Timezone: 0, SessionExpirationSeconds: 600, MinimumBidIncrement: 1}
	require.NoError(t, store.CreateSite(site))
	for _, username := range []string{"seller", "winner", "loser"} {
		require.NoError(t, store.CreateUser(model.User{Username: username, PasswordHash: "hashed:pw", Site: site.Name}))
	}

	return &userEnv{store: store, clock: clk, service: service, site: site}
}

func (e *userEnv) addAuction(t *testing.T, id, seller, winner string, endsOn time.Time) {
	t.Helper()
	require.NoError(t, e.store.CreateAuction(model.Auction{
		ID:            id,
		Site:          e.site.Name,
		Seller:        seller,
		CurrentWinner: winner,
		CurrentPrice:  20,
		HighestBid:    35,
		StartingPrice: 10,
		Description:   "lot " + id,
		EndsOn:        endsOn,
	}))
}

func TestDelete_GuardedByOpenAuctions(t *testing.T) {
	tests := []struct {
		name string
		role string // how the user participates in the open auction
	}{
		{name: "open_auction_as_seller", role: "seller"},
		{name: "open_auction_as_winner", role: "winner"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newUserEnv(t)
			if tt.role == "seller" {
				env.addAuction(t, "a1", "seller", "", testBase.Add(time.Hour))
				err := env.service.Delete(env.site, "seller")
				require.ErrorIs(t, err, auctionerrors.ErrInvalidState)
			} else {
				env.addAuction(t, "a1", "seller", "winner", testBase.Add(time.Hour))
				err := env.service.Delete(env.site, "winner")
				require.ErrorIs(t, err, auctionerrors.ErrInvalidState)
			}

			// the guard rejected before any mutation
			_, err := env.store.GetAuction("a1")
			require.NoError(t, err)
		})
	}
}

func TestDelete_AfterAuctionEnds(t *testing.T) {
	env := newUserEnv(t)
	env.addAuction(t, "a1", "seller", "winner", testBase.Add(time.Hour))

	require.ErrorIs(t, env.service.Delete(env.site, "seller"), auctionerrors.ErrInvalidState)

	env.clock.Advance(2 * time.Hour)
	require.NoError(t, env.service.Delete(env.site, "seller"))

	// the sold auction goes with its seller
	_, err := env.store.GetAuction("a1")
	require.ErrorIs(t, err, auctionerrors.ErrNotFound)
	_, err = env.store.GetUser(env.site.Name, "seller")
	require.ErrorIs(t, err, auctionerrors.ErrNotFound)

	// deleting again reports the user as gone
	require.ErrorIs(t, env.service.Delete(env.site, "seller"), auctionerrors.ErrInvalidState)
}

func TestDelete_WinnerOnly_KeepsPriceFields(t *testing.T) {
	env := newUserEnv(t)
	env.addAuction(t, "a1", "seller", "winner", testBase.Add(time.Hour))
	env.clock.Advance(2 * time.Hour)

	require.NoError(t, env.service.Delete(env.site, "winner"))

	// the auction record survives with the winner cleared; the price
	// fields stay as the last bid committed them
	auc, err := env.store.GetAuction("a1")
	require.NoError(t, err)
	require.Empty(t, auc.CurrentWinner)
	require.Equal(t, 20.0, auc.CurrentPrice)
	require.Equal(t, 35.0, auc.HighestBid)

	_, err = env.store.GetUser(env.site.Name, "winner")
	require.ErrorIs(t, err, auctionerrors.ErrNotFound)
}

func TestDelete_RemovesActiveSession(t *testing.T) {
	env := newUserEnv(t)
	key := model.SessionKey{Site: env.site.Name, Username: "loser"}
	require.NoError(t, env.store.PutSession(model.Session{Key: key, ValidUntil: testBase.Add(time.Hour)}))

	require.NoError(t, env.service.Delete(env.site, "loser"))

	_, err := env.store.GetSession(key)
	require.ErrorIs(t, err, auctionerrors.ErrNotFound)
}

func TestWonAuctions(t *testing.T) {
	env := newUserEnv(t)
	env.addAuction(t, "ended-won", "seller", "winner", testBase.Add(-time.Hour))
	env.addAuction(t, "open-winning", "seller", "winner", testBase.Add(time.Hour))
	env.addAuction(t, "ended-other", "seller", "loser", testBase.Add(-time.Hour))

	won, err := env.service.WonAuctions(env.site, "winner")
	require.NoError(t, err)
	require.Len(t, won, 1)
	require.Equal(t, "ended-won", won[0].ID)

	_, err = env.service.WonAuctions(env.site, "ghost")
	require.ErrorIs(t, err, auctionerrors.ErrInvalidState)
}
