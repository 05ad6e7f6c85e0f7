package registry

import (
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/webitel/hose-relay/internal/domain/model"
)

// EncodeJSON writes post as a JSON text frame. It is the default session
// Encoder and the payload every other encoding wraps.
func EncodeJSON(post *model.RelayedPost) (int, []byte, error) {
	data, err := json.Marshal(post)
	return websocket.TextMessage, data, err
}
