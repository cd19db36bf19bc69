package pb

import "testing"

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	filesize := uint64(42)
	mode := uint32(0o644)
	frac := uint32(500)
	u := &UnixFS{
		Type:       TypeFile,
		Data:       []byte("hello"),
		Filesize:   &filesize,
		Blocksizes: []uint64{10, 20, 12},
		Mode:       &mode,
		Mtime:      &UnixTime{Seconds: 1000, FractionalNanoseconds: &frac},
	}

	raw := Marshal(u)
	got, err := Unmarshal(raw)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got.Type != u.Type {
		t.Errorf("Type = %v, want %v", got.Type, u.Type)
	}
	if string(got.Data) != string(u.Data) {
		t.Errorf("Data = %q, want %q", got.Data, u.Data)
	}
	if *got.Filesize != *u.Filesize {
		t.Errorf("Filesize = %d, want %d", *got.Filesize, *u.Filesize)
	}
	if len(got.Blocksizes) != len(u.Blocksizes) {
		t.Fatalf("Blocksizes len = %d, want %d", len(got.Blocksizes), len(u.Blocksizes))
	}
	for i := range u.Blocksizes {
		if got.Blocksizes[i] != u.Blocksizes[i] {
			t.Errorf("Blocksizes[%d] = %d, want %d", i, got.Blocksizes[i], u.Blocksizes[i])
		}
	}
	if *got.Mode != *u.Mode {
		t.Errorf("Mode = %d, want %d", *got.Mode, *u.Mode)
	}
	if got.Mtime.Seconds != u.Mtime.Seconds || *got.Mtime.FractionalNanoseconds != *u.Mtime.FractionalNanoseconds {
		t.Errorf("Mtime = %+v, want %+v", got.Mtime, u.Mtime)
	}
}

func TestMarshalMinimal(t *testing.T) {
	u := &UnixFS{Type: TypeRaw}
	raw := Marshal(u)
	got, err := Unmarshal(raw)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Type != TypeRaw {
		t.Errorf("Type = %v, want Raw", got.Type)
	}
	if got.Data != nil || got.Filesize != nil || got.Mode != nil || got.Mtime != nil {
		t.Errorf("expected all optional fields absent, got %+v", got)
	}
}

func TestUnmarshalMissingTypeErrors(t *testing.T) {
	if _, err := Unmarshal(nil); err == nil {
		t.Fatal("expected error for missing Type field")
	}
}
