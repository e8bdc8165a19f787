package api

import (
	"strings"
	"sync/atomic"
)

// allowedOrigins holds the origins accepted for websocket upgrades.
// Entries may end in ":*" to accept any port on that host.
var allowedOrigins atomic.Pointer[[]string]

func init() {
	SetAllowedOrigins([]string{
		"http://localhost:*",
		"http://127.0.0.1:*",
	})
}

// SetAllowedOrigins replaces the websocket origin allow-list
func SetAllowedOrigins(origins []string) {
	list := append([]string(nil), origins...)
	allowedOrigins.Store(&list)
}

// IsAllowedOrigin checks if an origin is in the allowed list.
// Requests without an Origin header come from non-browser clients and are allowed.
func IsAllowedOrigin(origin string) bool {
	if origin == "" {
		return true
	}

	for _, allowed := range *allowedOrigins.Load() {
		if allowed == "*" || origin == allowed {
			return true
		}
		if prefix, ok := strings.CutSuffix(allowed, ":*"); ok {
			if origin == prefix || strings.HasPrefix(origin, prefix+":") {
				return true
			}
		}
	}

	return false
}
