package firehose

import (
	"fmt"

	"github.com/webitel/hose-relay/internal/domain/model"
)

// RecordProjector decodes the block of one record type and projects it for
// subscribers. A nil post with a nil error means the record was filtered.
type RecordProjector func(d *Decoder, raw []byte, commit *model.CommitEventBody) (*model.RelayedPost, error)

// RecordRegistry dispatches record blocks by their $type. Register all
// projectors before the registry is shared; lookups are read-only.
type RecordRegistry struct {
	projectors map[string]RecordProjector
}

func NewRecordRegistry() *RecordRegistry {
	return &RecordRegistry{projectors: make(map[string]RecordProjector)}
}

// DefaultRecords returns a registry with every record type the relay forwards.
func DefaultRecords() *RecordRegistry {
	r := NewRecordRegistry()
	r.Register(model.RecordTypePost, ProjectPost)
	return r
}

func (r *RecordRegistry) Register(recordType string, p RecordProjector) {
	r.projectors[recordType] = p
}

// Project decodes raw and runs the projector registered for its $type.
func (r *RecordRegistry) Project(d *Decoder, raw []byte, commit *model.CommitEventBody) (*model.RelayedPost, error) {
	var tagged model.TaggedRecord
	if err := d.Unmarshal(raw, &tagged); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordDecode, err)
	}

	p, ok := r.projectors[tagged.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedRecordType, tagged.Type)
	}
	return p(d, raw, commit)
}

// ProjectPost is the projector for app.bsky.feed.post.
func ProjectPost(d *Decoder, raw []byte, commit *model.CommitEventBody) (*model.RelayedPost, error) {
	var post model.PostRecord
	if err := d.Unmarshal(raw, &post); err != nil {
		return nil, fmt.Errorf("%w: post: %v", ErrRecordDecode, err)
	}
	return BuildRelayedPost(&post, commit), nil
}
