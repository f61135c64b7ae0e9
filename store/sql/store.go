// Package sql provides PostgreSQL storage for dishcovery.
package sql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	// PostgreSQL driver
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nmehta6/dishcovery/store"
)

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations. The constraint, not a check-then-insert, is what makes
// concurrent signups safe.
const uniqueViolation = "23505"

// Store implements store.Store using PostgreSQL.
type Store struct {
	db      *sql.DB
	queries *queries
}

// Config holds SQL store configuration.
type Config struct {
	// DB is an existing database connection.
	// If provided, DSN is ignored.
	DB *sql.DB

	// DSN is the data source name for connecting to the database.
	DSN string

	// TablePrefix is the prefix for all table names.
	// Example: "test_" creates tables like "test_users".
	TablePrefix string

	// MaxOpenConns sets the maximum number of open connections.
	MaxOpenConns int

	// MaxIdleConns sets the maximum number of idle connections.
	MaxIdleConns int

	// ConnMaxLifetime sets the maximum lifetime of a connection.
	ConnMaxLifetime time.Duration
}

// New creates a new SQL store.
func New(cfg *Config) (*Store, error) {
	var db *sql.DB
	var err error

	if cfg.DB != nil {
		db = cfg.DB
	} else {
		db, err = sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, err
		}

		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}

	tablePrefix := cfg.TablePrefix
	if tablePrefix == "" {
		tablePrefix = defaultTablePrefix
	}

	return &Store{
		db:      db,
		queries: newQueries(tablePrefix),
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the database schema.
func (s *Store) Migrate(ctx context.Context) error {
	// Split schema by semicolon for multiple statements
	statements := strings.Split(s.queries.schema, ";")
	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}

// mapError translates driver errors into store sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return store.ErrDuplicate
	}
	return err
}

// CreateUser inserts a new user.
func (s *Store) CreateUser(ctx context.Context, user *store.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, s.queries.insertUser,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.GoogleID,
		user.Username,
		string(user.AuthMethod),
		user.CreatedAt,
	)
	return mapError(err)
}

// scanUser scans a user row.
func scanUser(row *sql.Row) (*store.User, error) {
	user := &store.User{}
	var passwordHash, googleID sql.NullString
	var authMethod string

	err := row.Scan(
		&user.ID,
		&user.Email,
		&passwordHash,
		&googleID,
		&user.Username,
		&authMethod,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}

	if passwordHash.Valid {
		user.PasswordHash = &passwordHash.String
	}
	if googleID.Valid {
		user.GoogleID = &googleID.String
	}
	user.AuthMethod = store.AuthMethod(authMethod)

	return user, nil
}

// GetUserByID retrieves a user by internal id.
func (s *Store) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, s.queries.selectUserByID, id))
}

// GetUserByEmail retrieves a user by exact email match.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, s.queries.selectUserByEmail, email))
}

// GetUserByGoogleID retrieves a user by Google subject id.
func (s *Store) GetUserByGoogleID(ctx context.Context, googleID string) (*store.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, s.queries.selectUserByGID, googleID))
}

// LinkGoogleID attaches a Google subject id to an existing user. The
// update only lands on a row whose google_id is still NULL; a linked
// account never changes subject.
func (s *Store) LinkGoogleID(ctx context.Context, userID, googleID string) error {
	res, err := s.db.ExecContext(ctx, s.queries.updateGoogleID, userID, googleID)
	if err != nil {
		return mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Zero rows means the user is gone or already linked.
		if _, err := s.GetUserByID(ctx, userID); errors.Is(err, store.ErrNotFound) {
			return store.ErrNotFound
		}
		return store.ErrDuplicate
	}
	return nil
}

// UpdatePasswordHash replaces a user's stored password hash.
func (s *Store) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, s.queries.updatePasswordHash, userID, passwordHash)
	if err != nil {
		return mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SaveSession persists a session.
func (s *Store) SaveSession(ctx context.Context, session *store.Session) error {
	_, err := s.db.ExecContext(ctx, s.queries.insertSession,
		session.ID,
		session.UserID,
		session.TokenHash,
		session.IssuedAt,
		session.ExpiresAt,
	)
	return mapError(err)
}

// GetSessionByTokenHash retrieves a session by token hash.
func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*store.Session, error) {
	session := &store.Session{}
	err := s.db.QueryRowContext(ctx, s.queries.selectSessionByHash, tokenHash).Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.IssuedAt,
		&session.ExpiresAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return session, nil
}

// DeleteSessionByTokenHash removes a session.
func (s *Store) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, s.queries.deleteSessionByHash, tokenHash)
	return mapError(err)
}

// DeleteUserSessions removes all sessions for a user.
func (s *Store) DeleteUserSessions(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, s.queries.deleteUserSessions, userID)
	return mapError(err)
}

// DeleteExpiredSessions removes sessions past their expiry.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.queries.deleteExpiredSessions)
	if err != nil {
		return 0, mapError(err)
	}
	return res.RowsAffected()
}

// AddFavorite saves a favourite and assigns its id.
func (s *Store) AddFavorite(ctx context.Context, fav *store.Favorite) error {
	err := s.db.QueryRowContext(ctx, s.queries.insertFavorite,
		fav.UserID,
		fav.RecipeID,
		fav.Title,
		fav.Image,
		fav.ReadyInMinutes,
	).Scan(&fav.ID, &fav.CreatedAt)
	return mapError(err)
}

// ListFavorites returns a user's favourites, newest first.
func (s *Store) ListFavorites(ctx context.Context, userID string) ([]*store.Favorite, error) {
	rows, err := s.db.QueryContext(ctx, s.queries.selectFavorites, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []*store.Favorite
	for rows.Next() {
		fav := &store.Favorite{}
		if err := rows.Scan(
			&fav.ID,
			&fav.UserID,
			&fav.RecipeID,
			&fav.Title,
			&fav.Image,
			&fav.ReadyInMinutes,
			&fav.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, fav)
	}
	return result, rows.Err()
}

// RemoveFavorite deletes a favourite scoped to the owning user.
func (s *Store) RemoveFavorite(ctx context.Context, id int64, userID string) error {
	_, err := s.db.ExecContext(ctx, s.queries.deleteFavorite, id, userID)
	return mapError(err)
}

// Ensure Store implements store.Store.
var _ store.Store = (*Store)(nil)
