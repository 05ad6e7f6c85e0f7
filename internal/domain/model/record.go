package model

import "strings"

// Record type identifiers.
const (
	RecordTypePost = "app.bsky.feed.post"
)

// Facet feature kinds, matched as suffixes of the feature $type
// (e.g. "app.bsky.richtext.facet#tag").
const (
	FeatureKindTag     = "#tag"
	FeatureKindMention = "#mention"
	FeatureKindLink    = "#link"
)

// TaggedRecord is the minimal view used to dispatch on a record's type.
type TaggedRecord struct {
	Type string `cbor:"$type"`
}

// [POST] app.bsky.feed.post
type PostRecord struct {
	Text      string    `cbor:"text"`
	CreatedAt string    `cbor:"createdAt"`
	Langs     []string  `cbor:"langs,omitempty"`
	Reply     *ReplyRef `cbor:"reply,omitempty"`
	Facets    []Facet   `cbor:"facets,omitempty"`
	Tags      []string  `cbor:"tags,omitempty"`
}

type ReplyRef struct {
	Parent *StrongRef `cbor:"parent"`
	Root   *StrongRef `cbor:"root"`
}

// StrongRef points at a specific version of a record.
type StrongRef struct {
	URI string `cbor:"uri"`
	CID string `cbor:"cid"`
}

// Facet annotates a byte range of the post text.
type Facet struct {
	Index    ByteSlice `cbor:"index"`
	Features []Feature `cbor:"features"`
}

type ByteSlice struct {
	ByteStart int64 `cbor:"byteStart"`
	ByteEnd   int64 `cbor:"byteEnd"`
}

// Feature is one typed annotation of a facet. Only the fields relevant
// to its kind are set.
type Feature struct {
	Type string `cbor:"$type"`
	Tag  string `cbor:"tag,omitempty"`
	DID  string `cbor:"did,omitempty"`
	URI  string `cbor:"uri,omitempty"`
}

// IsTag reports whether f is a hashtag feature carrying a tag.
func (f Feature) IsTag() bool {
	return strings.HasSuffix(f.Type, FeatureKindTag) && f.Tag != ""
}

// IsMention reports whether f is a mention feature carrying a DID.
func (f Feature) IsMention() bool {
	return strings.HasSuffix(f.Type, FeatureKindMention) && f.DID != ""
}
