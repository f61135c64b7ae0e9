package sql

import (
	"context"
	"strings"
	"testing"
)

func TestNew_EmptyDSN(t *testing.T) {
	// sql.Open doesn't validate the DSN until the first connection
	// attempt, so New() succeeds and Ping() fails.
	s, err := New(&Config{DSN: ""})
	if err != nil {
		return
	}
	defer s.Close()

	if err := s.Ping(context.Background()); err == nil {
		t.Error("expected error when pinging with empty DSN")
	}
}

func TestNewQueries_Prefix(t *testing.T) {
	q := newQueries("test_")

	if !strings.Contains(q.insertUser, "test_users") {
		t.Errorf("insertUser missing prefixed table: %s", q.insertUser)
	}
	if !strings.Contains(q.selectSessionByHash, "test_sessions") {
		t.Errorf("selectSessionByHash missing prefixed table: %s", q.selectSessionByHash)
	}
	if !strings.Contains(q.insertFavorite, "test_favourites") {
		t.Errorf("insertFavorite missing prefixed table: %s", q.insertFavorite)
	}
	if strings.Contains(q.schema, "{p}") {
		t.Error("schema still contains unexpanded prefix placeholder")
	}
}

func TestNewQueries_Parameterized(t *testing.T) {
	q := newQueries("")

	// Every data-touching statement must use positional parameters.
	statements := []string{
		q.insertUser,
		q.selectUserByID,
		q.selectUserByEmail,
		q.selectUserByGID,
		q.updateGoogleID,
		q.updatePasswordHash,
		q.insertSession,
		q.selectSessionByHash,
		q.deleteSessionByHash,
		q.deleteUserSessions,
		q.insertFavorite,
		q.selectFavorites,
		q.deleteFavorite,
	}
	for _, stmt := range statements {
		if !strings.Contains(stmt, "$1") {
			t.Errorf("statement is not parameterized: %s", stmt)
		}
	}
}

func TestSchema_Constraints(t *testing.T) {
	q := newQueries("")

	// Uniqueness of email and google_id is the concurrency backstop;
	// it must live in the schema, not in application checks.
	if !strings.Contains(q.schema, "users_email_key UNIQUE (email)") {
		t.Error("schema missing unique constraint on users.email")
	}
	if !strings.Contains(q.schema, "users_google_id_key UNIQUE (google_id)") {
		t.Error("schema missing unique constraint on users.google_id")
	}
	if !strings.Contains(q.schema, "sessions_token_hash_key UNIQUE (token_hash)") {
		t.Error("schema missing unique constraint on sessions.token_hash")
	}
}

func TestUpdateGoogleID_GuardsExistingLink(t *testing.T) {
	q := newQueries("")

	// The link update must only land on rows without a subject; an
	// existing link is never overwritten.
	if !strings.Contains(q.updateGoogleID, "google_id IS NULL") {
		t.Errorf("updateGoogleID must guard linked rows: %s", q.updateGoogleID)
	}
}
