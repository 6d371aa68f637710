package repositories

import (
	"context"
	"errors"
	"fmt"

	crdbpgxv5 "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/flicklist/backend/internal/db"
	"github.com/flicklist/backend/internal/models"
)

// querier is satisfied by both pooled connections and transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresUserRepository provides PostgreSQL-backed persistence for users and
// their media lists. List entries live in child tables keyed on
// (user_id, media_id), so duplicate appends are rejected by the database.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record together with any initial list entries.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	err = crdbpgxv5.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
            INSERT INTO users (id, email, username, created_at)
            VALUES ($1, $2, NULLIF($3, ''), $4)
        `, user.ID, user.Email, user.Username, user.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}

		for _, entry := range user.LikedMedia {
			if _, err := insertLiked(ctx, tx, user.ID, entry); err != nil {
				return err
			}
		}
		for _, entry := range user.WantToWatch {
			if _, err := insertShared(ctx, tx, user.ID, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}

	return nil
}

// FindByEmail fetches a user and both of their lists.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return loadUser(ctx, conn, email)
}

// SetUsername assigns a username to an account that does not have one yet.
func (r *PostgresUserRepository) SetUsername(ctx context.Context, email, username string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET username = $2
        WHERE email = $1 AND username IS NULL
    `, email, username)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("update username: %w", err)
	}

	if tag.RowsAffected() == 0 {
		if _, err := lookupUserID(ctx, conn, email); err != nil {
			return err
		}
		return ErrConflict
	}

	return nil
}

// List returns every user in creation order.
func (r *PostgresUserRepository) List(ctx context.Context) ([]models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, email, COALESCE(username, ''), created_at
        FROM users
        ORDER BY created_at, id
    `)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}

	var users []models.User
	index := make(map[string]int)
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Email, &user.Username, &user.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan user: %w", err)
		}
		user.CreatedAt = user.CreatedAt.UTC()
		user.LikedMedia = []models.LikedEntry{}
		user.WantToWatch = []models.SharedEntry{}
		index[user.ID] = len(users)
		users = append(users, user)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	liked, err := conn.Query(ctx, `
        SELECT user_id, media_id, media_type, added_at
        FROM liked_media
        ORDER BY added_at, seq
    `)
	if err != nil {
		return nil, fmt.Errorf("query liked media: %w", err)
	}
	for liked.Next() {
		var userID string
		entry, err := scanLiked(liked, &userID)
		if err != nil {
			liked.Close()
			return nil, err
		}
		if i, ok := index[userID]; ok {
			users[i].LikedMedia = append(users[i].LikedMedia, entry)
		}
	}
	liked.Close()
	if err := liked.Err(); err != nil {
		return nil, fmt.Errorf("iterate liked media: %w", err)
	}

	shared, err := conn.Query(ctx, `
        SELECT user_id, media_id, media_type, marked_by, added_at
        FROM want_to_watch
        ORDER BY added_at, seq
    `)
	if err != nil {
		return nil, fmt.Errorf("query want to watch: %w", err)
	}
	for shared.Next() {
		var userID string
		entry, err := scanShared(shared, &userID)
		if err != nil {
			shared.Close()
			return nil, err
		}
		if i, ok := index[userID]; ok {
			users[i].WantToWatch = append(users[i].WantToWatch, entry)
		}
	}
	shared.Close()
	if err := shared.Err(); err != nil {
		return nil, fmt.Errorf("iterate want to watch: %w", err)
	}

	return users, nil
}

// AppendLiked adds entry to the user's liked list unless the media id is
// already present. It reports whether a row was written.
func (r *PostgresUserRepository) AppendLiked(ctx context.Context, email string, entry models.LikedEntry) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var added bool
	err = crdbpgxv5.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		userID, err := lookupUserID(ctx, tx, email)
		if err != nil {
			return err
		}
		added, err = insertLiked(ctx, tx, userID, entry)
		return err
	})
	if err != nil {
		return false, err
	}

	return added, nil
}

// RemoveLiked deletes the entry for mediaID and returns the remaining list.
func (r *PostgresUserRepository) RemoveLiked(ctx context.Context, email string, mediaID int64) ([]models.LikedEntry, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var remaining []models.LikedEntry
	err = crdbpgxv5.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		userID, err := lookupUserID(ctx, tx, email)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
            DELETE FROM liked_media
            WHERE user_id = $1 AND media_id = $2
        `, userID, mediaID)
		if err != nil {
			return fmt.Errorf("delete liked media: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrEntryNotFound
		}

		remaining, err = loadLiked(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return remaining, nil
}

// AppendShared adds entry to the user's want-to-watch list unless the media
// id is already present. It reports whether a row was written.
func (r *PostgresUserRepository) AppendShared(ctx context.Context, email string, entry models.SharedEntry) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var added bool
	err = crdbpgxv5.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		userID, err := lookupUserID(ctx, tx, email)
		if err != nil {
			return err
		}
		added, err = insertShared(ctx, tx, userID, entry)
		return err
	})
	if err != nil {
		return false, err
	}

	return added, nil
}

// RemoveShared deletes every want-to-watch entry for mediaID and returns the
// updated user.
func (r *PostgresUserRepository) RemoveShared(ctx context.Context, email string, mediaID int64) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var user models.User
	err = crdbpgxv5.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		userID, err := lookupUserID(ctx, tx, email)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
            DELETE FROM want_to_watch
            WHERE user_id = $1 AND media_id = $2
        `, userID, mediaID); err != nil {
			return fmt.Errorf("delete want to watch: %w", err)
		}

		user, err = loadUser(ctx, tx, email)
		return err
	})
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

func lookupUserID(ctx context.Context, q querier, email string) (string, error) {
	var userID string
	err := q.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("select user id: %w", err)
	}
	return userID, nil
}

func loadUser(ctx context.Context, q querier, email string) (models.User, error) {
	row := q.QueryRow(ctx, `
        SELECT id, email, COALESCE(username, ''), created_at
        FROM users
        WHERE email = $1
    `, email)

	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.Username, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by email: %w", err)
	}
	user.CreatedAt = user.CreatedAt.UTC()

	liked, err := loadLiked(ctx, q, user.ID)
	if err != nil {
		return models.User{}, err
	}
	shared, err := loadShared(ctx, q, user.ID)
	if err != nil {
		return models.User{}, err
	}

	user.LikedMedia = liked
	user.WantToWatch = shared
	return user, nil
}

func loadLiked(ctx context.Context, q querier, userID string) ([]models.LikedEntry, error) {
	rows, err := q.Query(ctx, `
        SELECT user_id, media_id, media_type, added_at
        FROM liked_media
        WHERE user_id = $1
        ORDER BY added_at, seq
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query liked media: %w", err)
	}
	defer rows.Close()

	entries := []models.LikedEntry{}
	for rows.Next() {
		var owner string
		entry, err := scanLiked(rows, &owner)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate liked media: %w", err)
	}
	return entries, nil
}

func loadShared(ctx context.Context, q querier, userID string) ([]models.SharedEntry, error) {
	rows, err := q.Query(ctx, `
        SELECT user_id, media_id, media_type, marked_by, added_at
        FROM want_to_watch
        WHERE user_id = $1
        ORDER BY added_at, seq
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query want to watch: %w", err)
	}
	defer rows.Close()

	entries := []models.SharedEntry{}
	for rows.Next() {
		var owner string
		entry, err := scanShared(rows, &owner)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate want to watch: %w", err)
	}
	return entries, nil
}

func scanLiked(rows pgx.Rows, userID *string) (models.LikedEntry, error) {
	var (
		entry     models.LikedEntry
		mediaType string
	)
	if err := rows.Scan(userID, &entry.MediaID, &mediaType, &entry.AddedAt); err != nil {
		return models.LikedEntry{}, fmt.Errorf("scan liked media: %w", err)
	}
	entry.MediaType = models.MediaType(mediaType)
	entry.AddedAt = entry.AddedAt.UTC()
	return entry, nil
}

func scanShared(rows pgx.Rows, userID *string) (models.SharedEntry, error) {
	var (
		entry     models.SharedEntry
		mediaType string
	)
	if err := rows.Scan(userID, &entry.MediaID, &mediaType, &entry.MarkedBy, &entry.AddedAt); err != nil {
		return models.SharedEntry{}, fmt.Errorf("scan want to watch: %w", err)
	}
	entry.MediaType = models.MediaType(mediaType)
	entry.AddedAt = entry.AddedAt.UTC()
	return entry, nil
}

func insertLiked(ctx context.Context, q querier, userID string, entry models.LikedEntry) (bool, error) {
	tag, err := q.Exec(ctx, `
        INSERT INTO liked_media (user_id, media_id, media_type, added_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id, media_id) DO NOTHING
    `, userID, entry.MediaID, string(entry.MediaType), entry.AddedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("insert liked media: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func insertShared(ctx context.Context, q querier, userID string, entry models.SharedEntry) (bool, error) {
	tag, err := q.Exec(ctx, `
        INSERT INTO want_to_watch (user_id, media_id, media_type, marked_by, added_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (user_id, media_id) DO NOTHING
    `, userID, entry.MediaID, string(entry.MediaType), entry.MarkedBy, entry.AddedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("insert want to watch: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ UserRepository = (*PostgresUserRepository)(nil)
