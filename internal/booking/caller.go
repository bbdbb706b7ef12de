package booking

import (
	"strings"

	"github.com/Darkosxl/immobiliare-agent/internal/locale"
)

// UnknownOriginator stands in for a caller whose number is not known.
const UnknownOriginator = "Unknown"

const sessionPrefix = "call-"

// CallerContext is what the booking engine knows about the party on the line.
type CallerContext struct {
	// OriginatorRef identifies the caller, usually a phone number.
	OriginatorRef string
	Policy        locale.Policy
}

// NewCaller returns a caller context, substituting UnknownOriginator for an
// empty reference.
func NewCaller(ref string, policy locale.Policy) CallerContext {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		ref = UnknownOriginator
	}
	return CallerContext{OriginatorRef: ref, Policy: policy}
}

// CallerFromSession derives the caller from a telephony session name shaped
// like "call-_+393331234567_abc". Names without the prefix or number resolve to
// UnknownOriginator.
func CallerFromSession(name string, policy locale.Policy) CallerContext {
	if !strings.HasPrefix(name, sessionPrefix) {
		return NewCaller("", policy)
	}
	parts := strings.Split(name, "_")
	if len(parts) < 2 {
		return NewCaller("", policy)
	}
	return NewCaller(parts[1], policy)
}
