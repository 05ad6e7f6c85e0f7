package wsmarshaller_test

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/hose-relay/internal/domain/model"
	wsmarshaller "github.com/webitel/hose-relay/internal/handler/marshaller/ws"
)

func TestEncoderJSONShape(t *testing.T) {
	m, err := wsmarshaller.New()
	require.NoError(t, err)
	defer m.Close()
	encode := m.Encoder(false)

	mt, data, err := encode(&model.RelayedPost{
		Text:      "hello",
		DID:       "did:plc:abc",
		Rev:       "3kabc",
		CreatedAt: "2024-11-05T12:00:00.000Z",
		Tags:      []string{},
		Mentions:  []string{},
	})
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, mt)
	assert.JSONEq(t, `{"text":"hello","did":"did:plc:abc","rev":"3kabc","createdAt":"2024-11-05T12:00:00.000Z","tags":[],"mentions":[]}`, string(data))

	_, data, err = encode(&model.RelayedPost{
		Text:     "re",
		Reply:    &model.RelayedReply{Parent: model.RelayedRef{URI: "at://x"}},
		Tags:     []string{"a", "a"},
		Mentions: []string{"did:x"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"re","did":"","rev":"","createdAt":"","reply":{"parent":{"uri":"at://x"}},"tags":["a","a"],"mentions":["did:x"]}`, string(data))
}

func TestEncoder(t *testing.T) {
	m, err := wsmarshaller.New()
	require.NoError(t, err)
	defer m.Close()

	post := &model.RelayedPost{Text: "hello", Tags: []string{"go"}, Mentions: []string{}}

	mt, plain, err := m.Encoder(false)(post)
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, mt)

	mt, packed, err := m.Encoder(true)(post)
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, mt)

	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	unpacked, err := dec.DecodeAll(packed, nil)
	require.NoError(t, err)
	assert.Equal(t, plain, unpacked)

	var got model.RelayedPost
	require.NoError(t, json.Unmarshal(unpacked, &got))
	assert.Equal(t, *post, got)
}
