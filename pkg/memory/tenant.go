package memory

import "strings"

// RequestContext carries the unauthenticated tenant hints of a request: who
// is calling and which spaces they claim to see. A nil pointer (or the zero
// value) is an anonymous caller in the global space.
//
// The transport in front of the service is responsible for authenticating
// these values; the engine takes them as claimed and never widens them.
type RequestContext struct {
	// UserID identifies the calling user. When no explicit space is
	// claimed it derives a personal space.
	UserID string

	// SpaceID is the tenant space the caller addresses directly.
	SpaceID string

	// AllowedSpaces lists every space the caller may read. Empty defaults
	// to the effective space alone.
	AllowedSpaces []string
}

// ResolveSpace derives the effective space id and the allowed-space set for
// a request: the claimed space id when present, otherwise "personal:<user>"
// from the user id, otherwise "global". An absent or empty allowed set
// defaults to just the effective space, so resolution never grants access
// beyond what the caller already claimed.
func ResolveSpace(rc *RequestContext) (space string, allowed []string) {
	var userID string
	if rc != nil {
		userID = strings.TrimSpace(rc.UserID)
		space = strings.TrimSpace(rc.SpaceID)
	}
	if space == "" {
		if userID != "" {
			space = "personal:" + userID
		} else {
			space = "global"
		}
	}
	if rc != nil && len(rc.AllowedSpaces) > 0 {
		return space, rc.AllowedSpaces
	}
	return space, []string{space}
}
