package model

import "github.com/oklog/ulid/v2"

// NewID generates a new ULID string used as a compile job identifier.
// ULIDs sort by creation time, which keeps job listings stable.
func NewID() string {
	return ulid.Make().String()
}
