package model

// Account is the identity returned by the auth service for a subscriber token.
type Account struct {
	ID     string `json:"$id"`
	Name   string `json:"name"`
	Status bool   `json:"status"`
}
