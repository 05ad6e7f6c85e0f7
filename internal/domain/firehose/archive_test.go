package firehose_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/hose-relay/internal/domain/firehose"
	"github.com/webitel/hose-relay/internal/domain/firehose/firehosetest"
)

func TestExtractBlock(t *testing.T) {
	first := firehosetest.NewBlock(map[string]any{"n": 1})
	second := firehosetest.NewBlock(firehosetest.Post("second"))
	third := firehosetest.NewBlock(map[string]any{"n": 3})
	archive := firehosetest.CAR(first, second, third)

	for _, want := range []firehosetest.Block{first, second, third} {
		got, err := firehose.ExtractBlock(archive, want.CID)
		require.NoError(t, err)
		assert.Equal(t, want.Data, got)
	}
}

func TestExtractBlockNotFound(t *testing.T) {
	archive := firehosetest.CAR(firehosetest.NewBlock(map[string]any{"n": 1}))
	missing := firehosetest.NewBlock(map[string]any{"n": 2})

	_, err := firehose.ExtractBlock(archive, missing.CID)
	assert.ErrorIs(t, err, firehose.ErrBlockNotFound)
}

func TestExtractBlockInvalidArchive(t *testing.T) {
	want := firehosetest.NewBlock(map[string]any{"n": 1})

	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "empty", raw: nil},
		{name: "not a car", raw: []byte("definitely not a car file")},
		{name: "truncated", raw: firehosetest.CAR(want)[:20]},
		{
			// Section labelled with want's CID but carrying other bytes.
			name: "content mismatch",
			raw: firehosetest.CAR(firehosetest.Block{
				CID:  want.CID,
				Data: firehosetest.MustEncode(map[string]any{"n": 2}),
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := firehose.ExtractBlock(tt.raw, want.CID)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, firehose.ErrArchiveDecode)
		})
	}
}
