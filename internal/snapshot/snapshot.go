package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/flicklist/backend/internal/logging"
	"github.com/flicklist/backend/internal/models"
	"github.com/flicklist/backend/internal/repositories"
)

// ObjectStore persists an exported document under a key.
type ObjectStore interface {
	Save(ctx context.Context, key string, body []byte) (string, error)
}

// Document is the exported form of the user store.
type Document struct {
	TakenAt time.Time     `json:"takenAt"`
	Users   []models.User `json:"users"`
}

// Exporter copies every user document to an object store.
type Exporter struct {
	Users   repositories.UserRepository
	Store   ObjectStore
	Prefix  string
	NowFunc func() time.Time
}

// Export writes one snapshot and returns its location.
func (e *Exporter) Export(ctx context.Context) (string, error) {
	ctx, span := logging.StartSpan(ctx, "snapshot.Export")
	defer span.End()

	users, err := e.Users.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list users: %w", err)
	}

	now := time.Now().UTC()
	if e.NowFunc != nil {
		now = e.NowFunc().UTC()
	}

	body, err := json.Marshal(Document{TakenAt: now, Users: users})
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	key := Key(e.Prefix, now)
	location, err := e.Store.Save(ctx, key, body)
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}

	logging.FromContext(ctx).Info("snapshot exported", "users", len(users), "location", location)
	return location, nil
}

// Key names the object for a snapshot taken at now.
func Key(prefix string, now time.Time) string {
	name := fmt.Sprintf("users-%s.json", now.UTC().Format("20060102T150405Z"))
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
