package entity

import "time"

// User identity is owned by the external auth issuer; the id is the token's
// opaque subject. Rows are created lazily on first authenticated call.
type User struct {
	Id        string
	Email     *string
	CreatedAt time.Time
}
