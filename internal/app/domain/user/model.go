package user

import "time"

// User is a pseudonymous participant identified by a client-chosen anonId.
// The point balance is the currency of the reputation economy; the level is a
// tier purchased by spending points.
type User struct {
	AnonID    string    `json:"anonId"`
	Point     int       `json:"point"`
	Level     int       `json:"level"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
