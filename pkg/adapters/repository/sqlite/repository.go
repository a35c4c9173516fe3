package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"github.com/wadjakorntonsri/linkora/pkg/core/domain"
	"github.com/wadjakorntonsri/linkora/pkg/ports"
	_ "modernc.org/sqlite" // Local SQLite driver
)

// Dialect selects placeholder style and constraint error decoding
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// timestamps are stored as fixed-width UTC text so they sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteRepository struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// DriverFor maps a database URL to a database/sql driver name and dialect
func DriverFor(dbURL string) (string, Dialect) {
	switch {
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		return "postgres", DialectPostgres
	case strings.Contains(dbURL, "libsql://"), strings.Contains(dbURL, "wss://"):
		return "libsql", DialectSQLite
	default:
		return "sqlite", DialectSQLite
	}
}

func NewSQLiteRepository(dbURL string) (*SQLiteRepository, error) {
	driverName, dialect := DriverFor(dbURL)

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}
	if driverName == "sqlite" {
		// one writer keeps local files free of SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	r := NewFromDB(db, dialect)
	if err := r.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

// NewFromDB wraps an open handle without migrating it
func NewFromDB(db *sql.DB, dialect Dialect) *SQLiteRepository {
	return &SQLiteRepository{db: db, dialect: dialect, now: func() time.Time { return time.Now().UTC() }}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		key TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		data TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS profile_index (
		profile_id TEXT PRIMARY KEY,
		snapshot_key TEXT NOT NULL,
		username TEXT UNIQUE,
		is_public BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_profile_index_key ON profile_index(snapshot_key)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		username TEXT,
		full_name TEXT,
		avatar_url TEXT,
		password_hash TEXT,
		subscription_tier TEXT NOT NULL DEFAULT 'free',
		subscription_status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS revoked_sessions (
		jti TEXT PRIMARY KEY,
		expires_at TEXT NOT NULL
	)`,
}

func (r *SQLiteRepository) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres
func (r *SQLiteRepository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (r *SQLiteRepository) isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// --- Snapshot Repository Implementation ---

func (r *SQLiteRepository) LoadSnapshot(ctx context.Context, key string) (*domain.Snapshot, error) {
	var data string
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT data FROM snapshots WHERE key = ?`), key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return domain.DecodeSnapshot([]byte(data))
}

// SaveSnapshot upserts the snapshot and replaces its index rows in one
// transaction. A username or profile id held by another key moves to this one.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, key string, snap *domain.Snapshot) error {
	data, err := snap.Encode()
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, r.rebind(`INSERT INTO snapshots (key, version, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET version = excluded.version, data = excluded.data, updated_at = excluded.updated_at`),
		key, snap.Version, string(data), formatTime(r.now()))
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM profile_index WHERE snapshot_key = ?`), key); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}

	for _, ref := range ports.IndexEntries(key, snap) {
		if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM profile_index WHERE profile_id = ? OR (username IS NOT NULL AND username = ?)`),
			ref.ProfileID, ref.Username); err != nil {
			return fmt.Errorf("release index: %w", err)
		}
		if _, err := tx.ExecContext(ctx, r.rebind(`INSERT INTO profile_index (profile_id, snapshot_key, username, is_public) VALUES (?, ?, ?, ?)`),
			ref.ProfileID, key, nullable(ref.Username), ref.IsPublic); err != nil {
			return fmt.Errorf("insert index: %w", err)
		}
	}

	return tx.Commit()
}

func (r *SQLiteRepository) findRef(ctx context.Context, column, value string) (*ports.ProfileRef, error) {
	query := `SELECT profile_id, snapshot_key, username, is_public FROM profile_index WHERE ` + column + ` = ?`

	var ref ports.ProfileRef
	var username sql.NullString
	err := r.db.QueryRowContext(ctx, r.rebind(query), value).Scan(&ref.ProfileID, &ref.Key, &username, &ref.IsPublic)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ref.Username = username.String
	return &ref, nil
}

func (r *SQLiteRepository) FindProfileRef(ctx context.Context, username string) (*ports.ProfileRef, error) {
	if username == "" {
		return nil, ports.ErrNotFound
	}
	return r.findRef(ctx, "username", username)
}

func (r *SQLiteRepository) FindProfileRefByID(ctx context.Context, profileID string) (*ports.ProfileRef, error) {
	return r.findRef(ctx, "profile_id", profileID)
}

// ListSnapshotKeys returns every stored key in order
func (r *SQLiteRepository) ListSnapshotKeys(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key FROM snapshots ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// --- User Repository Implementation ---

const userColumns = `id, email, username, full_name, avatar_url, password_hash, subscription_tier, subscription_status, created_at, updated_at`

func (r *SQLiteRepository) CreateUser(ctx context.Context, rec *ports.UserRecord) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rec.ID, rec.Email, nullable(rec.Username), nullable(rec.FullName), nullable(rec.AvatarURL), nullable(rec.PasswordHash),
		string(rec.SubscriptionTier), string(rec.SubscriptionStatus), formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt))
	if err != nil {
		if r.isUniqueViolation(err) {
			return ports.ErrConflict
		}
		return err
	}
	return nil
}

func (r *SQLiteRepository) getUser(ctx context.Context, column, value string) (*ports.UserRecord, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ?`

	var rec ports.UserRecord
	var username, fullName, avatarURL, hash sql.NullString
	var tier, status, createdAt, updatedAt string
	err := r.db.QueryRowContext(ctx, r.rebind(query), value).Scan(
		&rec.ID, &rec.Email, &username, &fullName, &avatarURL, &hash,
		&tier, &status, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rec.Username = username.String
	rec.FullName = fullName.String
	rec.AvatarURL = avatarURL.String
	rec.PasswordHash = hash.String
	rec.SubscriptionTier = domain.Tier(tier)
	rec.SubscriptionStatus = domain.SubscriptionStatus(status)
	rec.Profiles = []domain.Profile{}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("updated_at: %w", err)
	}
	return &rec, nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (*ports.UserRecord, error) {
	return r.getUser(ctx, "id", id)
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*ports.UserRecord, error) {
	return r.getUser(ctx, "email", email)
}

func (r *SQLiteRepository) UpdateUser(ctx context.Context, rec *ports.UserRecord) error {
	query := `UPDATE users SET username = ?, full_name = ?, avatar_url = ?, password_hash = ?,
		subscription_tier = ?, subscription_status = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, r.rebind(query),
		nullable(rec.Username), nullable(rec.FullName), nullable(rec.AvatarURL), nullable(rec.PasswordHash),
		string(rec.SubscriptionTier), string(rec.SubscriptionStatus), formatTime(rec.UpdatedAt), rec.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// RevokeSession records jti as revoked and prunes revocations that have
// already expired.
func (r *SQLiteRepository) RevokeSession(ctx context.Context, jti string, expiresAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM revoked_sessions WHERE expires_at < ?`), formatTime(r.now())); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, r.rebind(`INSERT INTO revoked_sessions (jti, expires_at) VALUES (?, ?)
		ON CONFLICT(jti) DO UPDATE SET expires_at = excluded.expires_at`), jti, formatTime(expiresAt))
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) IsSessionRevoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT COUNT(*) FROM revoked_sessions WHERE jti = ?`), jti).Scan(&count)
	return count > 0, err
}

// Ensure interface compliance
var (
	_ ports.SnapshotRepository = (*SQLiteRepository)(nil)
	_ ports.UserRepository     = (*SQLiteRepository)(nil)
)
