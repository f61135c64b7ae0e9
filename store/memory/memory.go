// Package memory provides an in-memory store implementation for
// testing and development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/nmehta6/dishcovery/store"
)

// Store is an in-memory implementation of the store.Store interface.
// Uniqueness of email and google_id is enforced under the store lock,
// mirroring the database constraints the SQL store relies on.
type Store struct {
	mu sync.RWMutex

	users      map[string]*store.User // keyed by id
	byEmail    map[string]string      // email -> id
	byGoogleID map[string]string      // google_id -> id

	sessions map[string]*store.Session // keyed by token hash

	favorites map[int64]*store.Favorite
	nextFavID int64

	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		users:      make(map[string]*store.User),
		byEmail:    make(map[string]string),
		byGoogleID: make(map[string]string),
		sessions:   make(map[string]*store.Session),
		favorites:  make(map[int64]*store.Favorite),
	}
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ping checks if the store is available.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return nil
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(ctx context.Context) error {
	return nil
}

// CreateUser inserts a new user, enforcing email and google_id
// uniqueness.
func (s *Store) CreateUser(ctx context.Context, user *store.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[user.Email]; taken {
		return store.ErrDuplicate
	}
	if user.GoogleID != nil {
		if _, taken := s.byGoogleID[*user.GoogleID]; taken {
			return store.ErrDuplicate
		}
	}

	u := *user
	s.users[u.ID] = &u
	s.byEmail[u.Email] = u.ID
	if u.GoogleID != nil {
		s.byGoogleID[*u.GoogleID] = u.ID
	}
	return nil
}

// GetUserByID retrieves a user by internal id.
func (s *Store) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := *user
	return &u, nil
}

// GetUserByEmail retrieves a user by exact email match.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := *s.users[id]
	return &u, nil
}

// GetUserByGoogleID retrieves a user by Google subject id.
func (s *Store) GetUserByGoogleID(ctx context.Context, googleID string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byGoogleID[googleID]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := *s.users[id]
	return &u, nil
}

// LinkGoogleID attaches a Google subject id to an existing user.
func (s *Store) LinkGoogleID(ctx context.Context, userID, googleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byGoogleID[googleID]; taken {
		return store.ErrDuplicate
	}
	user, ok := s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	// A linked account never changes subject; overwriting would
	// orphan the old google_id.
	if user.GoogleID != nil {
		return store.ErrDuplicate
	}
	gid := googleID
	user.GoogleID = &gid
	s.byGoogleID[googleID] = userID
	return nil
}

// UpdatePasswordHash replaces a user's stored password hash.
func (s *Store) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	h := passwordHash
	user.PasswordHash = &h
	return nil
}

// SaveSession persists a session.
func (s *Store) SaveSession(ctx context.Context, session *store.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := *session
	s.sessions[sess.TokenHash] = &sess
	return nil
}

// GetSessionByTokenHash retrieves a session by token hash.
func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*store.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[tokenHash]
	if !ok {
		return nil, store.ErrNotFound
	}
	sess := *session
	return &sess, nil
}

// DeleteSessionByTokenHash removes a session.
func (s *Store) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tokenHash)
	return nil
}

// DeleteUserSessions removes all sessions for a user.
func (s *Store) DeleteUserSessions(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, hash)
		}
	}
	return nil
}

// DeleteExpiredSessions removes sessions past their expiry.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var deleted int64
	for hash, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, hash)
			deleted++
		}
	}
	return deleted, nil
}

// AddFavorite saves a favourite and assigns its id.
func (s *Store) AddFavorite(ctx context.Context, fav *store.Favorite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextFavID++
	fav.ID = s.nextFavID
	if fav.CreatedAt.IsZero() {
		fav.CreatedAt = time.Now()
	}
	f := *fav
	s.favorites[f.ID] = &f
	return nil
}

// ListFavorites returns a user's favourites, newest first.
func (s *Store) ListFavorites(ctx context.Context, userID string) ([]*store.Favorite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*store.Favorite
	for _, fav := range s.favorites {
		if fav.UserID == userID {
			f := *fav
			result = append(result, &f)
		}
	}
	// Newest first; map iteration order is random
	for i := 0; i < len(result); i++ {
		for j := i + 1; j < len(result); j++ {
			if result[j].ID > result[i].ID {
				result[i], result[j] = result[j], result[i]
			}
		}
	}
	return result, nil
}

// RemoveFavorite deletes a favourite scoped to the owning user.
func (s *Store) RemoveFavorite(ctx context.Context, id int64, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fav, ok := s.favorites[id]; ok && fav.UserID == userID {
		delete(s.favorites, id)
	}
	return nil
}

// Ensure Store implements store.Store.
var _ store.Store = (*Store)(nil)
