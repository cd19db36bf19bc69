package chunker

import "testing"

func TestFixedSizeAccept(t *testing.T) {
	s := FixedSize(4)

	accepted, ready := s.Accept([]byte("ab"), 0)
	if accepted != 2 || ready {
		t.Fatalf("got (%d, %v), want (2, false)", accepted, ready)
	}

	accepted, ready = s.Accept([]byte("cd"), 2)
	if accepted != 2 || !ready {
		t.Fatalf("got (%d, %v), want (2, true)", accepted, ready)
	}

	accepted, ready = s.Accept([]byte("efghij"), 0)
	if accepted != 4 || !ready {
		t.Fatalf("overlong input: got (%d, %v), want (4, true)", accepted, ready)
	}
}

func TestFixedSizeDefault(t *testing.T) {
	s := FixedSize(0)
	if s.Size() != DefaultBlockSize {
		t.Fatalf("got size %d, want default %d", s.Size(), DefaultBlockSize)
	}
}

func TestFixedSizeExactBoundary(t *testing.T) {
	s := FixedSize(3)
	accepted, ready := s.Accept([]byte("abc"), 0)
	if accepted != 3 || !ready {
		t.Fatalf("got (%d, %v), want (3, true)", accepted, ready)
	}
}
