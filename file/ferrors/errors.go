// Package ferrors defines the error taxonomy produced while decoding or
// walking a UnixFS file DAG block-by-block.
//
// Errors form a two-level tree, mirroring the structure of the reference
// implementation's FileReadFailed/FileError split: a FileError captures a
// structural or traversal invariant violation, and a ReadFailed wraps either
// a FileError, an unexpected UnixFs type tag, a lower-level codec failure, or
// a bad link hash.
package ferrors

import (
	"fmt"
)

// Kind enumerates the structural/traversal invariant violations a FileError
// can carry.
type Kind int

const (
	// LinksAndBlocksizesMismatch: len(links) != len(blocksizes) (V1).
	LinksAndBlocksizesMismatch Kind = iota
	// NoLinksNoContent: filesize is non-zero but there is no data and no links.
	NoLinksNoContent
	// NonRootDefinesMetadata: a non-root block carries mode/mtime (V4).
	NonRootDefinesMetadata
	// IntermediateNodeWithoutFileSize: an interior node has links but no filesize.
	IntermediateNodeWithoutFileSize
	// TreeExpandsOnLinks: child range exceeds parent coverage (V6).
	TreeExpandsOnLinks
	// TreeOverlapsBetweenLinks: sibling ranges overlap (V5).
	TreeOverlapsBetweenLinks
	// EarlierLink: next range starts before the last consumed offset.
	EarlierLink
	// TreeJumpsBetweenLinks: a gap exists between a leaf's end and the next start.
	TreeJumpsBetweenLinks
	// UnexpectedRawOrFileProperties: hashType or fanout present on File/Raw.
	UnexpectedRawOrFileProperties
)

func (k Kind) String() string {
	switch k {
	case LinksAndBlocksizesMismatch:
		return "different number of links and blocksizes: cannot determine subtree ranges"
	case NoLinksNoContent:
		return "filesize is non-zero while there are no links or content"
	case NonRootDefinesMetadata:
		return "unsupported: non-root block defines mode/mtime"
	case IntermediateNodeWithoutFileSize:
		return "intermediary node with links but no filesize"
	case TreeExpandsOnLinks:
		return "total size of tree expands through links, it should only get smaller or keep size"
	case TreeOverlapsBetweenLinks:
		return "unsupported: tree contains overlap"
	case EarlierLink:
		return "error: earlier link given"
	case TreeJumpsBetweenLinks:
		return "unsupported: tree contains holes"
	case UnexpectedRawOrFileProperties:
		return "unsupported: File or Raw node defines hashType or fanout"
	default:
		return "unknown file error"
	}
}

// FileError is a structural or cross-block invariant violation.
type FileError struct {
	Kind Kind

	// HashType and Fanout are only set for UnexpectedRawOrFileProperties.
	HashType *uint64
	Fanout   *uint64

	// Metadata is only set for NonRootDefinesMetadata; it carries a short
	// description of what was found, kept as a string to avoid an import
	// cycle back into the reader package.
	Metadata string
}

func (e *FileError) Error() string {
	switch e.Kind {
	case UnexpectedRawOrFileProperties:
		return fmt.Sprintf("%s (hashType=%v, fanout=%v)", e.Kind, e.HashType, e.Fanout)
	case NonRootDefinesMetadata:
		if e.Metadata != "" {
			return fmt.Sprintf("%s: %s", e.Kind, e.Metadata)
		}
		return e.Kind.String()
	default:
		return e.Kind.String()
	}
}

// Is allows errors.Is(err, ferrors.New(ferrors.EarlierLink)) style matching
// on Kind alone: any *FileError with the same Kind matches.
func (e *FileError) Is(target error) bool {
	other, ok := target.(*FileError)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}

// New builds a FileError of the given kind with no extra payload.
func New(kind Kind) *FileError {
	return &FileError{Kind: kind}
}

// NewUnexpectedProperties builds the UnexpectedRawOrFileProperties error.
func NewUnexpectedProperties(hashType, fanout *uint64) *FileError {
	return &FileError{Kind: UnexpectedRawOrFileProperties, HashType: hashType, Fanout: fanout}
}

// NewNonRootMetadata builds the NonRootDefinesMetadata error.
func NewNonRootMetadata(description string) *FileError {
	return &FileError{Kind: NonRootDefinesMetadata, Metadata: description}
}

// ReadFailed is the top-level error returned by the reader, traversal, and
// visit operations.
type ReadFailed struct {
	// exactly one of the following is set.
	File           *FileError
	UnexpectedType int32
	Read           error // underlying codec failure (Codec(Parse))
	LinkInvalid    *LinkInvalidCid
}

// LinkInvalidCid describes a PBLink whose Hash bytes do not parse as a CID.
type LinkInvalidCid struct {
	Nth   int
	Hash  []byte
	Name  string
	Cause error
}

func (e *ReadFailed) Error() string {
	switch {
	case e.File != nil:
		return e.File.Error()
	case e.Read != nil:
		return fmt.Sprintf("reading failed: %s", e.Read)
	case e.LinkInvalid != nil:
		return fmt.Sprintf("failed to convert link #%d (%q) to Cid: %s", e.LinkInvalid.Nth, e.LinkInvalid.Name, e.LinkInvalid.Cause)
	default:
		return fmt.Sprintf("unexpected type for UnixFs: %d", e.UnexpectedType)
	}
}

func (e *ReadFailed) Unwrap() error {
	switch {
	case e.File != nil:
		return e.File
	case e.Read != nil:
		return e.Read
	case e.LinkInvalid != nil:
		return e.LinkInvalid.Cause
	default:
		return nil
	}
}

// WrapFile wraps a FileError as a ReadFailed.
func WrapFile(e *FileError) *ReadFailed { return &ReadFailed{File: e} }

// WrapRead wraps an underlying codec error as a ReadFailed.
func WrapRead(e error) *ReadFailed { return &ReadFailed{Read: e} }

// UnexpectedType builds a ReadFailed for an unrecognized UnixFs type tag.
func UnexpectedType(t int32) *ReadFailed { return &ReadFailed{UnexpectedType: t} }

// InvalidLinkCid builds a ReadFailed for the nth link's unparsable hash.
func InvalidLinkCid(nth int, hash []byte, name string, cause error) *ReadFailed {
	return &ReadFailed{LinkInvalid: &LinkInvalidCid{Nth: nth, Hash: hash, Name: name, Cause: cause}}
}
