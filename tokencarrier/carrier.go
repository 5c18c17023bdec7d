// Package tokencarrier persists the opaque session token across client
// restarts. It is the only component allowed to touch the underlying slot;
// the token's contents are never interpreted.
package tokencarrier

import "time"

// Carrier manages a single persisted slot holding the session token.
// Read returns an empty string when the slot is empty or its max-age has
// passed. Clear writes an immediately-expired value, so media without a
// delete primitive still work.
type Carrier interface {
	Read() (string, error)
	Write(token string, ttl time.Duration) error
	Clear() error
}
