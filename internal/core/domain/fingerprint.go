package domain

// Fingerprint is an opaque hex digest of a task's inputs and definition.
type Fingerprint string

// String returns the hex form of the fingerprint.
func (f Fingerprint) String() string {
	return string(f)
}

// Short returns an abbreviated fingerprint for display.
func (f Fingerprint) Short() string {
	if len(f) <= 8 {
		return string(f)
	}
	return string(f[:8])
}

// IsZero reports whether the fingerprint is unset.
func (f Fingerprint) IsZero() bool {
	return f == ""
}

// CacheKey addresses a cache entry. Shared stores key on the fingerprint alone;
// the local store keeps a single entry per task and compares fingerprints.
type CacheKey struct {
	Task        string
	Fingerprint Fingerprint
}
