package model

// RelayedPost is the simplified record pushed to subscribers.
// Tags and Mentions are never nil so they serialize as [].
type RelayedPost struct {
	Text      string        `json:"text"`
	DID       string        `json:"did"`
	Rev       string        `json:"rev"`
	CreatedAt string        `json:"createdAt"`
	Reply     *RelayedReply `json:"reply,omitempty"`
	Tags      []string      `json:"tags"`
	Mentions  []string      `json:"mentions"`
}

type RelayedReply struct {
	Parent RelayedRef `json:"parent"`
}

type RelayedRef struct {
	URI string `json:"uri"`
}
