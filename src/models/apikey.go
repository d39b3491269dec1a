package models

import "time"

// APIKeyRecord is the usage metadata kept per key. Key always holds the
// masked form; the full token is only returned once, at creation.
type APIKeyRecord struct {
	Key       string     `json:"key"`
	CreatedAt time.Time  `json:"created_at"`
	LastUsed  *time.Time `json:"last_used"`
	CallCount int64      `json:"call_count"`
}

// MaskKey shows the first 8 and last 4 characters of a key.
func MaskKey(key string) string {
	if len(key) <= 12 {
		return "..."
	}
	return key[:8] + "..." + key[len(key)-4:]
}
