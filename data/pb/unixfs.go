// Package pb implements the wire codec for the UnixFs payload embedded in
// the Data field of a dag-pb PBNode (see data/pbnode for the outer
// envelope). It is hand-rolled over google.golang.org/protobuf's protowire
// primitives rather than generated by protoc, mirroring the manual
// field-by-field writer the reference rust implementation uses
// (quick_protobuf's MessageWrite), field-for-field compatible with the
// canonical go-ipfs unixfs.proto schema.
package pb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// DataType mirrors the UnixFs Data.Type enum. Only File and Raw are
// accepted by this core; the rest are recognized for error reporting.
type DataType int64

const (
	TypeRaw       DataType = 0
	TypeDirectory DataType = 1
	TypeFile      DataType = 2
	TypeMetadata  DataType = 3
	TypeSymlink   DataType = 4
	TypeHAMTShard DataType = 5
)

func (t DataType) String() string {
	switch t {
	case TypeRaw:
		return "Raw"
	case TypeDirectory:
		return "Directory"
	case TypeFile:
		return "File"
	case TypeMetadata:
		return "Metadata"
	case TypeSymlink:
		return "Symlink"
	case TypeHAMTShard:
		return "HAMTShard"
	default:
		return fmt.Sprintf("DataType(%d)", int64(t))
	}
}

// UnixTime is the optional mtime carried on a root block.
type UnixTime struct {
	Seconds               int64
	FractionalNanoseconds *uint32
}

// UnixFS is the flat, decoded form of the Data field's protobuf payload.
type UnixFS struct {
	Type       DataType
	Data       []byte // nil when absent; distinct from an empty-but-present slice
	Filesize   *uint64
	Blocksizes []uint64
	HashType   *uint64
	Fanout     *uint64
	Mode       *uint32
	Mtime      *UnixTime
}

const (
	fieldType       = 1
	fieldData       = 2
	fieldFilesize   = 3
	fieldBlocksizes = 4
	fieldHashType   = 5
	fieldFanout     = 6
	fieldMode       = 7
	fieldMtime      = 8

	fieldMtimeSeconds  = 1
	fieldMtimeFraction = 2
)

// Marshal deterministically encodes the UnixFs payload. Field order matches
// the canonical go-ipfs encoder: Type, Data, filesize, blocksizes (unpacked,
// repeated tag+varint pairs, matching proto2 default encoding), hashType,
// fanout, mode, mtime.
func Marshal(u *UnixFS) []byte {
	var out []byte
	out = protowire.AppendTag(out, fieldType, protowire.VarintType)
	out = protowire.AppendVarint(out, uint64(u.Type))

	if u.Data != nil {
		out = protowire.AppendTag(out, fieldData, protowire.BytesType)
		out = protowire.AppendBytes(out, u.Data)
	}

	if u.Filesize != nil {
		out = protowire.AppendTag(out, fieldFilesize, protowire.VarintType)
		out = protowire.AppendVarint(out, *u.Filesize)
	}

	for _, bs := range u.Blocksizes {
		out = protowire.AppendTag(out, fieldBlocksizes, protowire.VarintType)
		out = protowire.AppendVarint(out, bs)
	}

	if u.HashType != nil {
		out = protowire.AppendTag(out, fieldHashType, protowire.VarintType)
		out = protowire.AppendVarint(out, *u.HashType)
	}

	if u.Fanout != nil {
		out = protowire.AppendTag(out, fieldFanout, protowire.VarintType)
		out = protowire.AppendVarint(out, *u.Fanout)
	}

	if u.Mode != nil {
		out = protowire.AppendTag(out, fieldMode, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(*u.Mode))
	}

	if u.Mtime != nil {
		out = protowire.AppendTag(out, fieldMtime, protowire.BytesType)
		out = protowire.AppendBytes(out, marshalUnixTime(u.Mtime))
	}

	return out
}

func marshalUnixTime(t *UnixTime) []byte {
	var out []byte
	out = protowire.AppendTag(out, fieldMtimeSeconds, protowire.VarintType)
	out = protowire.AppendVarint(out, uint64(t.Seconds))
	if t.FractionalNanoseconds != nil {
		out = protowire.AppendTag(out, fieldMtimeFraction, protowire.Fixed32Type)
		out = protowire.AppendFixed32(out, *t.FractionalNanoseconds)
	}
	return out
}

// Unmarshal decodes a UnixFs payload. It is lenient about unknown fields
// (skipped) but strict about malformed wire data.
func Unmarshal(data []byte) (*UnixFS, error) {
	u := &UnixFS{}
	var sawType bool

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("unixfs: malformed tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case fieldType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("unixfs: malformed Type: %w", protowire.ParseError(n))
			}
			data = data[n:]
			u.Type = DataType(v)
			sawType = true
		case fieldData:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("unixfs: malformed Data: %w", protowire.ParseError(n))
			}
			data = data[n:]
			u.Data = append([]byte(nil), v...)
		case fieldFilesize:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("unixfs: malformed filesize: %w", protowire.ParseError(n))
			}
			data = data[n:]
			fs := v
			u.Filesize = &fs
		case fieldBlocksizes:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("unixfs: malformed blocksizes entry: %w", protowire.ParseError(n))
			}
			data = data[n:]
			u.Blocksizes = append(u.Blocksizes, v)
		case fieldHashType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("unixfs: malformed hashType: %w", protowire.ParseError(n))
			}
			data = data[n:]
			ht := v
			u.HashType = &ht
		case fieldFanout:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("unixfs: malformed fanout: %w", protowire.ParseError(n))
			}
			data = data[n:]
			fo := v
			u.Fanout = &fo
		case fieldMode:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("unixfs: malformed mode: %w", protowire.ParseError(n))
			}
			data = data[n:]
			m := uint32(v)
			u.Mode = &m
		case fieldMtime:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("unixfs: malformed mtime: %w", protowire.ParseError(n))
			}
			data = data[n:]
			mt, err := unmarshalUnixTime(v)
			if err != nil {
				return nil, err
			}
			u.Mtime = mt
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("unixfs: malformed unknown field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}

	if !sawType {
		return nil, fmt.Errorf("unixfs: missing required Type field")
	}

	return u, nil
}

func unmarshalUnixTime(data []byte) (*UnixTime, error) {
	t := &UnixTime{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("unixfs: malformed mtime tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case fieldMtimeSeconds:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("unixfs: malformed mtime.Seconds: %w", protowire.ParseError(n))
			}
			data = data[n:]
			t.Seconds = int64(v)
		case fieldMtimeFraction:
			v, n := protowire.ConsumeFixed32(data)
			if n < 0 {
				return nil, fmt.Errorf("unixfs: malformed mtime.FractionalNanoseconds: %w", protowire.ParseError(n))
			}
			data = data[n:]
			f := v
			t.FractionalNanoseconds = &f
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("unixfs: malformed mtime unknown field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return t, nil
}
