package pbnode

import (
	"testing"

	"github.com/ipfs/go-cid"
)

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	n := &Node{
		Links: []Link{
			{Hash: []byte{0x01, 0x02, 0x03}, Name: "a", Tsize: 10},
			{Hash: []byte{0x04, 0x05}, Name: "b", Tsize: 20},
		},
		Data: []byte("payload"),
	}
	raw := Marshal(n)
	got, err := Unmarshal(raw)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if string(got.Data) != string(n.Data) {
		t.Errorf("Data = %q, want %q", got.Data, n.Data)
	}
	if len(got.Links) != len(n.Links) {
		t.Fatalf("Links len = %d, want %d", len(got.Links), len(n.Links))
	}
	for i := range n.Links {
		if string(got.Links[i].Hash) != string(n.Links[i].Hash) ||
			got.Links[i].Name != n.Links[i].Name ||
			got.Links[i].Tsize != n.Links[i].Tsize {
			t.Errorf("Links[%d] = %+v, want %+v", i, got.Links[i], n.Links[i])
		}
	}
}

func TestHashV0ProducesCIDv0(t *testing.T) {
	raw := Marshal(&Node{Data: []byte("foobar\n")})
	c, err := HashV0(raw)
	if err != nil {
		t.Fatalf("HashV0: %v", err)
	}
	if c.Version() != 0 {
		t.Errorf("Version() = %d, want 0", c.Version())
	}
	if c.Prefix().Codec != cid.DagProtobuf {
		t.Errorf("Codec = %d, want dag-pb", c.Prefix().Codec)
	}
}
