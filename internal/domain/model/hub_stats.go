package model

import "time"

type HubStats struct {
	ActiveSessions int            `json:"active_sessions"`
	TotalSessions  int64          `json:"total_sessions"`
	Uptime         time.Duration  `json:"uptime"`
	Sessions       []SessionStats `json:"sessions,omitempty"`
}

type SessionStats struct {
	ID          string `json:"id"`
	State       string `json:"state"`
	RemoteAddr  string `json:"remote_addr,omitempty"`
	Relayed     uint64 `json:"relayed"`
	RateLimited uint64 `json:"rate_limited"`
	Dropped     uint64 `json:"dropped"`
}
