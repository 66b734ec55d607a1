package model

import "time"

// Identity is the verified caller of a request. It is produced per request and never persisted.
type Identity struct {
	SubjectID string    `json:"uid"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	Picture   string    `json:"picture,omitempty"`
	ExpiresAt time.Time `json:"-"`
}
