package shop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kassa/internal/ids"
	"github.com/roach88/kassa/internal/model"
	"github.com/roach88/kassa/internal/store"
	"github.com/roach88/kassa/internal/testutil"
)

func newService(t *testing.T) (*Service, *store.Store, *testutil.Recorder) {
	t.Helper()
	st := testutil.OpenStore(t)
	rec := &testutil.Recorder{}
	svc := New(st,
		WithClock(testutil.NewFixedClock(testutil.Now)),
		WithIDs(ids.NewSequence("shop")),
		WithSink(rec),
	)
	return svc, st, rec
}

func TestOnboard(t *testing.T) {
	svc, _, rec := newService(t)
	ctx := context.Background()

	shop, err := svc.Onboard(ctx, Input{OwnerID: "owner-1", Name: "  Cafe ", Currency: "uzs", Language: "uz"})
	require.NoError(t, err)
	assert.Equal(t, "shop-1", shop.ID)
	assert.Equal(t, "Cafe", shop.Name)
	assert.Equal(t, "UZS", shop.Currency)
	assert.Equal(t, "uz", shop.Language)
	assert.True(t, shop.CreatedAt.Equal(testutil.Now))

	active, err := svc.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, shop.ID, active.ID)
	assert.False(t, active.Synced)

	forwarded := rec.Entities()
	require.Len(t, forwarded, 1)
	assert.Equal(t, model.CollectionShops, forwarded[0].Collection())
}

func TestOnboard_Twice(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Onboard(ctx, Input{Name: "Cafe", Currency: "UZS", Language: "uz"})
	require.NoError(t, err)

	_, err = svc.Onboard(ctx, Input{Name: "Bakery", Currency: "USD", Language: "en"})
	assert.ErrorIs(t, err, ErrAlreadyOnboarded)

	shops, err := st.Shops(ctx)
	require.NoError(t, err)
	assert.Len(t, shops, 1)
}

func TestOnboard_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{"blank name", Input{Name: "  ", Currency: "UZS", Language: "uz"}},
		{"unknown currency", Input{Name: "Cafe", Currency: "XYZW", Language: "uz"}},
		{"empty currency", Input{Name: "Cafe", Currency: "", Language: "uz"}},
		{"bad language", Input{Name: "Cafe", Currency: "UZS", Language: "not a tag"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st, rec := newService(t)
			_, err := svc.Onboard(context.Background(), tt.in)
			assert.ErrorIs(t, err, ErrInvalidShop)

			shops, err := st.Shops(context.Background())
			require.NoError(t, err)
			assert.Empty(t, shops)
			assert.Empty(t, rec.Entities())
		})
	}
}

func TestActive_NotOnboarded(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Active(context.Background())
	assert.ErrorIs(t, err, ErrNotOnboarded)
}

func TestUpdateSettings(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	shop, err := svc.Onboard(ctx, Input{Name: "Cafe", Currency: "UZS", Language: "uz"})
	require.NoError(t, err)

	name, lang := "Cafe Central", "ru"
	updated, err := svc.UpdateSettings(ctx, shop, Settings{Name: &name, Language: &lang})
	require.NoError(t, err)
	assert.Equal(t, "Cafe Central", updated.Name)
	assert.Equal(t, "ru", updated.Language)
	assert.Equal(t, "UZS", updated.Currency)

	bad := "NOPE1"
	_, err = svc.UpdateSettings(ctx, updated, Settings{Currency: &bad})
	assert.ErrorIs(t, err, ErrInvalidShop)

	active, err := svc.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, "UZS", active.Currency, "rejected edit leaves the shop alone")

	unchanged, err := svc.UpdateSettings(ctx, active, Settings{})
	require.NoError(t, err)
	assert.Equal(t, "Cafe Central", unchanged.Name)
}

func TestUpdateSettings_NoShop(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.UpdateSettings(context.Background(), nil, Settings{})
	assert.ErrorIs(t, err, ErrNotOnboarded)
}
