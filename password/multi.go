package password

// MultiHasher hashes with a preferred algorithm while still verifying
// hashes produced by a fallback one. It exists for algorithm
// migration: after the preferred hasher changes, old hashes keep
// verifying, and NeedsRehash reports them so credentials are upgraded
// the next time the plaintext is seen.
type MultiHasher struct {
	preferred Hasher
	fallback  Hasher
}

// NewMultiHasher creates a hasher that writes hashes with preferred
// and accepts hashes from either preferred or fallback.
func NewMultiHasher(preferred, fallback Hasher) *MultiHasher {
	return &MultiHasher{
		preferred: preferred,
		fallback:  fallback,
	}
}

// Hash creates a hash using the preferred algorithm.
func (h *MultiHasher) Hash(password string) (string, error) {
	return h.preferred.Hash(password)
}

// Verify checks the password against the preferred algorithm first.
// A decode error means the hash belongs to the other algorithm, so
// the fallback gets a try; a plain mismatch does not.
func (h *MultiHasher) Verify(password, hash string) (bool, error) {
	ok, err := h.preferred.Verify(password, hash)
	if err == nil {
		return ok, nil
	}
	return h.fallback.Verify(password, hash)
}

// NeedsRehash reports whether a hash should be rewritten with the
// preferred algorithm and its current parameters.
func (h *MultiHasher) NeedsRehash(hash string) bool {
	return h.preferred.NeedsRehash(hash)
}

// Ensure MultiHasher implements Hasher.
var _ Hasher = (*MultiHasher)(nil)
