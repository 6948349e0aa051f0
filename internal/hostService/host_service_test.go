package host

import (
	"strings"
	"testing"
	"time"

	"auction-site/internal/auctionerrors"
	"auction-site/internal/clock"
	"auction-site/internal/repository"

	"github.com/stretchr/testify/require"
)

var testBase = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }
func (fakeHasher) Verify(hash, password string) bool    { return hash == "hashed:"+password }

func newTestHost(t *testing.T) (*Host, *repository.MemoryStore, *clock.ManualClock) {
	t.Helper()
	store := repository.NewMemoryStore()
	clk := clock.NewManualClock(testBase)
	h, err := LoadHost(store, clk, fakeHasher{}, time.Minute)
	require.NoError(t, err)
	return h, store, clk
}

func TestLoadHost_MissingCollaborators(t *testing.T) {
	_, err := LoadHost(nil, clock.NewManualClock(testBase), fakeHasher{}, time.Minute)
	require.ErrorIs(t, err, auctionerrors.ErrInvalidArgument)
}

func TestCreateSite(t *testing.T) {
	h, _, _ := newTestHost(t)

	tests := []struct {
		name       string
		siteName   string
		timezone   int
		expiration int
		increment  float64
		wantErr    error
	}{
		{name: "valid", siteName: "marketplace", timezone: 2, expiration: 600, increment: 1},
		{name: "duplicate", siteName: "marketplace", timezone: 2, expiration: 600, increment: 1, wantErr: auctionerrors.ErrAlreadyExists},
		{name: "empty_name", siteName: "", timezone: 0, expiration: 600, increment: 1, wantErr: auctionerrors.ErrInvalidArgument},
		{name: "name_too_long", siteName: strings.Repeat("x", 129), timezone: 0, expiration: 600, increment: 1, wantErr: auctionerrors.ErrInvalidArgument},
		{name: "timezone_too_low", siteName: "west", timezone: -13, expiration: 600, increment: 1, wantErr: auctionerrors.ErrInvalidArgument},
		{name: "timezone_too_high", siteName: "east", timezone: 13, expiration: 600, increment: 1, wantErr: auctionerrors.ErrInvalidArgument},
		{name: "negative_expiration", siteName: "fleeting", timezone: 0, expiration: -1, increment: 1, wantErr: auctionerrors.ErrInvalidArgument},
		{name: "negative_increment", siteName: "cheap", timezone: 0, expiration: 600, increment: -0.5, wantErr: auctionerrors.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.CreateSite(tt.siteName, tt.timezone, tt.expiration, tt.increment)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLoadSite(t *testing.T) {
	h, _, _ := newTestHost(t)
	require.NoError(t, h.CreateSite("marketplace", 0, 600, 1))

	svc, err := h.LoadSite("marketplace")
	require.NoError(t, err)
	require.Equal(t, "marketplace", svc.Site().Name)

	// the same service instance is reused so the sweeper runs once
	again, err := h.LoadSite("marketplace")
	require.NoError(t, err)
	require.Same(t, svc, again)

	_, err = h.LoadSite("no-such-site")
	require.ErrorIs(t, err, auctionerrors.ErrNotFound)
}

func TestGetSiteInfos(t *testing.T) {
	h, _, _ := newTestHost(t)
	require.NoError(t, h.CreateSite("marketplace", 2, 600, 1))
	require.NoError(t, h.CreateSite("flea-market", -3, 600, 1))

	infos, err := h.GetSiteInfos()
	require.NoError(t, err)
	require.Len(t, infos, 2)

	byName := map[string]int{}
	for _, info := range infos {
		byName[info.Name] = info.Timezone
	}
	require.Equal(t, map[string]int{"marketplace": 2, "flea-market": -3}, byName)
}

func TestCreateHost_ResetsResettableStores(t *testing.T) {
	// the memory store has no Reset; creation is a no-op
	require.NoError(t, CreateHost(repository.NewMemoryStore()))
}

func TestSiteLifecycleThroughHost(t *testing.T) {
	h, store, clk := newTestHost(t)
	require.NoError(t, h.CreateSite("marketplace", 0, 600, 1))

	svc, err := h.LoadSite("marketplace")
	require.NoError(t, err)
	require.NoError(t, svc.CreateUser("alice", "secret"))

	sess, err := svc.Login("alice", "secret")
	require.NoError(t, err)
	require.NotNil(t, sess)

	auc, err := h.Engine().Create(sess.ID(), "old radio", clk.Now(0).Add(time.Hour), 12)
	require.NoError(t, err)

	_, err = store.GetAuction(auc.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete())
	h.DropSite("marketplace")

	_, err = h.LoadSite("marketplace")
	require.ErrorIs(t, err, auctionerrors.ErrNotFound)

	// the cascade removed the session and the open auction
	_, err = store.GetSession(sess.Key)
	require.ErrorIs(t, err, auctionerrors.ErrNotFound)
	_, err = store.GetAuction(auc.ID)
	require.ErrorIs(t, err, auctionerrors.ErrNotFound)
}
