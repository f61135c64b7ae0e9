// Package password provides one-way password hashing and verification.
//
// Hashes are self-describing: the algorithm and its parameters are
// encoded in the hash string itself, so the work factor can be raised
// without invalidating stored credentials. Plaintext passwords are
// never persisted or logged by anything in this package.
package password

// Hasher defines the contract for password hashing algorithms.
type Hasher interface {
	// Hash creates a salted one-way hash from a plaintext password.
	// A hashing failure surfaces as an error, never as a fallback.
	Hash(password string) (string, error)

	// Verify checks if a password matches a hash.
	// A mismatch is (false, nil); errors are reserved for malformed
	// hashes or algorithm failures.
	Verify(password, hash string) (bool, error)

	// NeedsRehash reports whether a hash was created with different
	// parameters than the hasher is currently configured with.
	NeedsRehash(hash string) bool
}
