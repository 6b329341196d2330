package remote

import (
	"context"
	"errors"
	"testing"

	"github.com/fathom/ledgerdesk/internal/model"
	"github.com/fathom/ledgerdesk/internal/store"
)

func TestClosedStoreReturnsErrClosed(t *testing.T) {
	ctx := context.Background()
	s := &LibsqlStore{}

	if err := s.Ping(ctx); !errors.Is(err, store.ErrClosed) {
		t.Errorf("Ping error = %v, want ErrClosed", err)
	}
	if _, err := s.List(ctx, "u", "clients"); !errors.Is(err, store.ErrClosed) {
		t.Errorf("List error = %v, want ErrClosed", err)
	}
	if err := s.UpsertMerge(ctx, "u", "clients", "c-1", model.Fields{"id": "c-1"}); !errors.Is(err, store.ErrClosed) {
		t.Errorf("UpsertMerge error = %v, want ErrClosed", err)
	}
	if err := s.Delete(ctx, "u", "clients", "c-1"); !errors.Is(err, store.ErrClosed) {
		t.Errorf("Delete error = %v, want ErrClosed", err)
	}
	if _, err := s.Watch(ctx, "u", "clients"); !errors.Is(err, store.ErrClosed) {
		t.Errorf("Watch error = %v, want ErrClosed", err)
	}
}
