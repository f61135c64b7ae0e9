package sql

import "strings"

// Default table prefix.
const defaultTablePrefix = ""

// queries holds all SQL statements with the table prefix applied.
// Every statement is parameterized; nothing here is built from user
// input.
type queries struct {
	schema string

	insertUser         string
	selectUserByID     string
	selectUserByEmail  string
	selectUserByGID    string
	updateGoogleID     string
	updatePasswordHash string

	insertSession         string
	selectSessionByHash   string
	deleteSessionByHash   string
	deleteUserSessions    string
	deleteExpiredSessions string

	insertFavorite  string
	selectFavorites string
	deleteFavorite  string
}

const rawSchema = `
	CREATE TABLE IF NOT EXISTS {p}users (
		id VARCHAR(64) PRIMARY KEY,
		email TEXT NOT NULL,
		password_hash TEXT,
		google_id TEXT,
		username TEXT NOT NULL DEFAULT '',
		auth_method VARCHAR(16) NOT NULL DEFAULT 'local',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT {p}users_email_key UNIQUE (email),
		CONSTRAINT {p}users_google_id_key UNIQUE (google_id)
	);

	CREATE TABLE IF NOT EXISTS {p}sessions (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL REFERENCES {p}users(id) ON DELETE CASCADE,
		token_hash VARCHAR(64) NOT NULL,
		issued_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT {p}sessions_token_hash_key UNIQUE (token_hash)
	);
	CREATE INDEX IF NOT EXISTS idx_{p}sessions_user_id ON {p}sessions(user_id);
	CREATE INDEX IF NOT EXISTS idx_{p}sessions_expires_at ON {p}sessions(expires_at);

	CREATE TABLE IF NOT EXISTS {p}favourites (
		id BIGSERIAL PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL REFERENCES {p}users(id) ON DELETE CASCADE,
		recipe_id INTEGER NOT NULL,
		recipe_title TEXT NOT NULL DEFAULT '',
		recipe_image TEXT NOT NULL DEFAULT '',
		ready_in_minutes INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_{p}favourites_user_id ON {p}favourites(user_id)
`

// newQueries builds the statement set for a table prefix.
func newQueries(prefix string) *queries {
	p := func(q string) string {
		return strings.ReplaceAll(q, "{p}", prefix)
	}

	return &queries{
		schema: p(rawSchema),

		insertUser: p(`
			INSERT INTO {p}users (id, email, password_hash, google_id, username, auth_method, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`),
		selectUserByID: p(`
			SELECT id, email, password_hash, google_id, username, auth_method, created_at
			FROM {p}users WHERE id = $1
		`),
		selectUserByEmail: p(`
			SELECT id, email, password_hash, google_id, username, auth_method, created_at
			FROM {p}users WHERE email = $1
		`),
		selectUserByGID: p(`
			SELECT id, email, password_hash, google_id, username, auth_method, created_at
			FROM {p}users WHERE google_id = $1
		`),
		updateGoogleID: p(`
			UPDATE {p}users SET google_id = $2 WHERE id = $1 AND google_id IS NULL
		`),
		updatePasswordHash: p(`
			UPDATE {p}users SET password_hash = $2 WHERE id = $1
		`),

		insertSession: p(`
			INSERT INTO {p}sessions (id, user_id, token_hash, issued_at, expires_at)
			VALUES ($1, $2, $3, $4, $5)
		`),
		selectSessionByHash: p(`
			SELECT id, user_id, token_hash, issued_at, expires_at
			FROM {p}sessions WHERE token_hash = $1
		`),
		deleteSessionByHash: p(`
			DELETE FROM {p}sessions WHERE token_hash = $1
		`),
		deleteUserSessions: p(`
			DELETE FROM {p}sessions WHERE user_id = $1
		`),
		deleteExpiredSessions: p(`
			DELETE FROM {p}sessions WHERE expires_at < NOW()
		`),

		insertFavorite: p(`
			INSERT INTO {p}favourites (user_id, recipe_id, recipe_title, recipe_image, ready_in_minutes)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at
		`),
		selectFavorites: p(`
			SELECT id, user_id, recipe_id, recipe_title, recipe_image, ready_in_minutes, created_at
			FROM {p}favourites WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
		`),
		deleteFavorite: p(`
			DELETE FROM {p}favourites WHERE id = $1 AND user_id = $2
		`),
	}
}
