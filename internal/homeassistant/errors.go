package homeassistant

import "errors"

// Domain errors for the homeassistant package.
var (
	// ErrAuthFailed is returned when Home Assistant rejects the token.
	ErrAuthFailed = errors.New("homeassistant: authentication failed")

	// ErrHandshake is returned when the server does not follow the auth handshake.
	ErrHandshake = errors.New("homeassistant: unexpected handshake message")

	// ErrConnectionClosed is returned for commands pending when the connection drops.
	ErrConnectionClosed = errors.New("homeassistant: connection closed")

	// ErrCommandFailed is returned when a command result reports success=false.
	ErrCommandFailed = errors.New("homeassistant: command failed")

	// ErrTimeout is returned when no result arrives within the request timeout.
	ErrTimeout = errors.New("homeassistant: request timed out")
)
