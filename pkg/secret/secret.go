// Package secret wraps sensitive byte buffers (HMAC keys, KDF-derived
// keys, signing private keys) with an explicit Zero method. Nothing in
// this module relies on a GC finalizer to scrub memory; zeroing is an
// action the owner takes, not implicit magic.
package secret

// Bytes is a byte buffer the caller must Zero when done with it.
type Bytes struct {
	b []byte
}

// New wraps b. Ownership of the underlying array transfers to the
// returned Bytes; the caller should not keep its own reference to b.
func New(b []byte) *Bytes {
	return &Bytes{b: b}
}

// Slice returns the wrapped bytes. The returned slice aliases internal
// storage; it becomes invalid after Zero.
func (s *Bytes) Slice() []byte {
	if s == nil {
		return nil
	}
	return s.b
}

// Len returns the number of bytes held.
func (s *Bytes) Len() int {
	if s == nil {
		return 0
	}
	return len(s.b)
}

// Zero overwrites every byte with 0, then drops the reference.
func (s *Bytes) Zero() {
	if s == nil {
		return
	}
	for i := range s.b {
		s.b[i] = 0
	}
	s.b = nil
}
