package model

// Repository operation actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// [COMMIT] BODY OF A "#commit" FRAME
// Unknown fields are ignored by the decoder.
type CommitEventBody struct {
	Repo   string   `cbor:"repo"`
	Rev    string   `cbor:"rev"`
	Seq    int64    `cbor:"seq"`
	Since  *string  `cbor:"since"`
	Commit Link     `cbor:"commit"`
	TooBig bool     `cbor:"tooBig"`
	Blocks []byte   `cbor:"blocks"`
	Ops    []RepoOp `cbor:"ops"`
	Time   string   `cbor:"time,omitempty"`
}

// RepoOp is a single record mutation inside a commit.
// CID is nil for deletes.
type RepoOp struct {
	Action string `cbor:"action"`
	Path   string `cbor:"path"`
	CID    *Link  `cbor:"cid"`
}
