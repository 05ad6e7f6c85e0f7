package wsmarshaller

import (
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"
	"github.com/webitel/hose-relay/internal/domain/model"
	"github.com/webitel/hose-relay/internal/domain/registry"
)

// Marshaller prepares relayed posts for WebSocket transmission. Plain
// subscribers get JSON text frames; compressed ones get zstd binary frames
// holding the same JSON.
type Marshaller struct {
	// zstd encoders are safe for concurrent EncodeAll calls, so one instance
	// serves every session.
	zenc *zstd.Encoder
}

func New() (*Marshaller, error) {
	zenc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	return &Marshaller{zenc: zenc}, nil
}

// Close releases the encoder.
func (m *Marshaller) Close() error {
	return m.zenc.Close()
}

// Encoder returns the session encoder for a subscriber.
func (m *Marshaller) Encoder(compress bool) registry.Encoder {
	if !compress {
		return registry.EncodeJSON
	}

	// Same JSON payload, packed into a binary frame.
	return func(post *model.RelayedPost) (int, []byte, error) {
		_, data, err := registry.EncodeJSON(post)
		if err != nil {
			return 0, nil, err
		}
		return websocket.BinaryMessage, m.zenc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
	}
}
