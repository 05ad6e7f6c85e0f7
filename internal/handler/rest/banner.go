package rest

import (
	"io"
	"net/http"
)

const banner = `
  _                                     _
 | |__   ___  ___  ___   _ __ ___| | __ _ _   _
 | '_ \ / _ \/ __|/ _ \ | '__/ _ \ |/ _' | | | |
 | | | | (_) \__ \  __/ | | |  __/ | (_| | |_| |
 |_| |_|\___/|___/\___| |_|  \___|_|\__,_|\__, |
                                          |___/

 Live Bluesky posts over WebSocket.

 Connect with a WebSocket client to this URL.
 Send "Authorization: Bearer <token>" unless the relay runs in debug mode.
 Add ?compress=true for zstd-compressed binary frames.
`

// Banner describes the endpoint to plain HTTP visitors.
func Banner(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, banner)
}
