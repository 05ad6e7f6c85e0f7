// Package firehosetest builds firehose frames and CAR slices for tests.
package firehosetest

import (
	"bytes"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/multiformats/go-varint"
	"github.com/webitel/hose-relay/internal/domain/model"
)

var encMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("firehosetest: " + err.Error())
	}
	return em
}

// Block is one CAR section.
type Block struct {
	CID  cid.Cid
	Data []byte
}

// MustEncode encodes v as deterministic CBOR and panics on failure.
func MustEncode(v any) []byte {
	b, err := encMode.Marshal(v)
	if err != nil {
		panic("firehosetest: encode: " + err.Error())
	}
	return b
}

// CIDFor returns the dag-cbor sha2-256 CIDv1 of data.
func CIDFor(data []byte) cid.Cid {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		panic("firehosetest: multihash: " + err.Error())
	}
	return cid.NewCidV1(cid.DagCBOR, mh)
}

// NewBlock encodes v and addresses it by its CID.
func NewBlock(v any) Block {
	data := MustEncode(v)
	return Block{CID: CIDFor(data), Data: data}
}

type carHeader struct {
	Roots   []model.Link `cbor:"roots"`
	Version uint64       `cbor:"version"`
}

// CAR serializes blocks as a CARv1 slice rooted at the first block.
func CAR(blocks ...Block) []byte {
	var roots []model.Link
	if len(blocks) > 0 {
		roots = append(roots, model.NewLink(blocks[0].CID))
	}

	var buf bytes.Buffer
	writeSection(&buf, MustEncode(carHeader{Roots: roots, Version: 1}))
	for _, b := range blocks {
		writeSection(&buf, append(b.CID.Bytes(), b.Data...))
	}
	return buf.Bytes()
}

func writeSection(buf *bytes.Buffer, payload []byte) {
	buf.Write(varint.ToUvarint(uint64(len(payload))))
	buf.Write(payload)
}

// Frame concatenates the CBOR encodings of header and body.
func Frame(header, body any) []byte {
	return append(MustEncode(header), MustEncode(body)...)
}

// CommitHeader is the header of a "#commit" frame.
func CommitHeader() model.EventHeader {
	return model.EventHeader{Op: model.OpMessage, T: "#commit"}
}

// Post returns an app.bsky.feed.post record as a generic map.
func Post(text string, facets ...map[string]any) map[string]any {
	rec := map[string]any{
		"$type":     model.RecordTypePost,
		"text":      text,
		"createdAt": "2024-11-05T12:00:00.000Z",
		"langs":     []string{"en"},
	}
	if len(facets) > 0 {
		rec["facets"] = facets
	}
	return rec
}

// TagFacet is a facet holding a single hashtag feature.
func TagFacet(tag string) map[string]any {
	return facet(map[string]any{"$type": "app.bsky.richtext.facet#tag", "tag": tag})
}

// MentionFacet is a facet holding a single mention feature.
func MentionFacet(did string) map[string]any {
	return facet(map[string]any{"$type": "app.bsky.richtext.facet#mention", "did": did})
}

// LinkFacet is a facet holding a single link feature.
func LinkFacet(uri string) map[string]any {
	return facet(map[string]any{"$type": "app.bsky.richtext.facet#link", "uri": uri})
}

func facet(features ...map[string]any) map[string]any {
	return map[string]any{
		"index":    map[string]any{"byteStart": 0, "byteEnd": 1},
		"features": features,
	}
}

// Commit builds a commit body whose single create op points at record.
func Commit(repo, rev string, record any) (*model.CommitEventBody, Block) {
	blk := NewBlock(record)
	link := model.NewLink(blk.CID)
	return &model.CommitEventBody{
		Repo:   repo,
		Rev:    rev,
		Seq:    42,
		Commit: link,
		Blocks: CAR(blk),
		Ops: []model.RepoOp{{
			Action: model.ActionCreate,
			Path:   "app.bsky.feed.post/3kabc",
			CID:    &link,
		}},
		Time: "2024-11-05T12:00:01.000Z",
	}, blk
}

// PostFrame is a complete commit frame carrying record.
func PostFrame(repo, rev string, record any) []byte {
	body, _ := Commit(repo, rev, record)
	return Frame(CommitHeader(), body)
}
