package homeassistant

import "errors"

// Sentinel errors for Home Assistant API operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, homeassistant.ErrUnauthorized) {
//	    // Token was missing or rejected
//	}
var (
	// ErrUnauthorized indicates the supervisor token was missing or rejected.
	ErrUnauthorized = errors.New("homeassistant: unauthorized")

	// ErrUnreachable indicates the request never reached Home Assistant.
	ErrUnreachable = errors.New("homeassistant: unreachable")

	// ErrUnexpectedStatus indicates Home Assistant answered with a failure code.
	ErrUnexpectedStatus = errors.New("homeassistant: unexpected status")
)
