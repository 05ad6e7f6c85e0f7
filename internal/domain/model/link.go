package model

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
)

// CIDLinkTag is the CBOR tag DAG-CBOR reserves for content identifiers.
const CIDLinkTag = 42

var ErrInvalidLink = errors.New("invalid cid link")

// cborNull is the single-byte CBOR encoding of null.
var cborNull = []byte{0xf6}

// Link is a CID carried as a DAG-CBOR tag 42 value.
// The tag content is the binary CID prefixed with the 0x00 multibase byte.
type Link struct {
	cid.Cid
}

// NewLink wraps c.
func NewLink(c cid.Cid) Link { return Link{Cid: c} }

// UnmarshalCBOR implements cbor.Unmarshaler.
func (l *Link) UnmarshalCBOR(data []byte) error {
	if len(data) == 1 && data[0] == cborNull[0] {
		*l = Link{}
		return nil
	}

	var tag cbor.RawTag
	if err := tag.UnmarshalCBOR(data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}
	if tag.Number != CIDLinkTag {
		return fmt.Errorf("%w: unexpected tag %d", ErrInvalidLink, tag.Number)
	}

	var raw []byte
	if err := cbor.Unmarshal(tag.Content, &raw); err != nil {
		return fmt.Errorf("%w: tag content: %v", ErrInvalidLink, err)
	}
	if len(raw) < 2 || raw[0] != 0x00 {
		return fmt.Errorf("%w: missing 0x00 prefix", ErrInvalidLink)
	}

	c, err := cid.Cast(raw[1:])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}
	l.Cid = c
	return nil
}

// MarshalCBOR implements cbor.Marshaler. An undefined link encodes as null.
func (l Link) MarshalCBOR() ([]byte, error) {
	if !l.Defined() {
		return cborNull, nil
	}
	content := append([]byte{0x00}, l.Bytes()...)
	return cbor.Marshal(cbor.Tag{Number: CIDLinkTag, Content: content})
}
