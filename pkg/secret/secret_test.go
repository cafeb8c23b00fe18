package secret

import "testing"

func TestZero_OverwritesAndDrops(t *testing.T) {
	s := New([]byte{1, 2, 3, 4})
	if s.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", s.Len())
	}

	s.Zero()

	if s.Len() != 0 {
		t.Errorf("Len() after Zero = %d, want 0", s.Len())
	}
	if s.Slice() != nil {
		t.Errorf("Slice() after Zero = %v, want nil", s.Slice())
	}
}

func TestNilBytes_SafeNoOps(t *testing.T) {
	var s *Bytes
	if s.Len() != 0 {
		t.Errorf("Len() on nil = %d, want 0", s.Len())
	}
	if s.Slice() != nil {
		t.Errorf("Slice() on nil = %v, want nil", s.Slice())
	}
	s.Zero() // must not panic
}
