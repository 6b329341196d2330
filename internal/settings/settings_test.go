package settings

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathom/ledgerdesk/internal/identity"
	"github.com/fathom/ledgerdesk/internal/model"
	"github.com/fathom/ledgerdesk/internal/store/local"
	"github.com/fathom/ledgerdesk/internal/syncer"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	quiet := log.New(io.Discard, "", 0)
	localA := local.New(local.NewMemoryKV(), quiet)
	sc := syncer.New(localA, nil, quiet)

	s, err := NewStore(sc, identity.Fallback(), quiet)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestUpdateMergesOverStoredSettings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, model.Fields{"businessName": "Acme Consulting", "currency": "EUR"}))
	assert.Equal(t, "Acme Consulting", s.Get().BusinessName)
	assert.Equal(t, "EUR", s.Get().Currency)

	// Partial update keeps the unmentioned fields.
	require.NoError(t, s.Update(ctx, model.Fields{"invoicePrefix": "INV-"}))
	got := s.Get()
	assert.Equal(t, "Acme Consulting", got.BusinessName)
	assert.Equal(t, "EUR", got.Currency)
	assert.Equal(t, "INV-", got.InvoicePrefix)
}

func TestGetOnEmptyStoreIsZeroValue(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, model.Settings{}, s.Get())
}
