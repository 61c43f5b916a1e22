package xid

import "github.com/google/uuid"

// New returns a random identifier such as "access-3f1c...". The prefix keeps
// IDs of different kinds apart in logs.
func New(prefix string) string {
	id := uuid.NewString()
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}
