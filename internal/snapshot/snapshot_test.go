package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/flicklist/backend/internal/models"
	"github.com/flicklist/backend/internal/repositories"
	"github.com/flicklist/backend/internal/repositories/memory"
)

type fakeStore struct {
	key  string
	body []byte
	err  error
}

func (f *fakeStore) Save(_ context.Context, key string, body []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.key = key
	f.body = body
	return "mem://" + key, nil
}

type failingUsers struct {
	repositories.UserRepository
}

func (failingUsers) List(context.Context) ([]models.User, error) {
	return nil, errors.New("boom")
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, time.June, 1, 8, 30, 0, 0, time.UTC)

	users := memory.New()
	alice := models.NewUser("u1", "a@x.com", "alice", now)
	alice.LikedMedia = []models.LikedEntry{{MediaID: 42, MediaType: models.MediaTypeMovie, AddedAt: now}}
	if err := users.Create(ctx, alice); err != nil {
		t.Fatalf("create user: %v", err)
	}

	store := &fakeStore{}
	exporter := &Exporter{Users: users, Store: store, Prefix: "/backups/", NowFunc: func() time.Time { return now }}

	location, err := exporter.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if location != "mem://backups/users-20240601T083000Z.json" {
		t.Fatalf("unexpected location %q", location)
	}

	var doc Document
	if err := json.Unmarshal(store.body, &doc); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	want := Document{TakenAt: now, Users: []models.User{alice}}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Fatalf("unexpected snapshot (-want +got):\n%s", diff)
	}
}

func TestExportErrors(t *testing.T) {
	ctx := context.Background()

	exporter := &Exporter{Users: failingUsers{}, Store: &fakeStore{}}
	if _, err := exporter.Export(ctx); err == nil {
		t.Fatal("expected list failure to surface")
	}

	exporter = &Exporter{Users: memory.New(), Store: &fakeStore{err: errors.New("denied")}}
	if _, err := exporter.Export(ctx); err == nil {
		t.Fatal("expected save failure to surface")
	}
}

func TestKeyWithoutPrefix(t *testing.T) {
	got := Key("", time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC))
	if got != "users-20240102T030405Z.json" {
		t.Fatalf("unexpected key %q", got)
	}
}
