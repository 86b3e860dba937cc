package embed

import "errors"

var (
	// ErrToolNotFound means the connection names a tool the catalog lacks
	ErrToolNotFound = errors.New("external tool not found")
	// ErrLaunch means the foreign process could not be started
	ErrLaunch = errors.New("launch failed")
	// ErrAcquisitionTimeout means no acceptable main window appeared in time
	ErrAcquisitionTimeout = errors.New("timed out waiting for the main window")
	// ErrEmbed means the window could not be re-parented or registered
	ErrEmbed = errors.New("embedding failed")
	// ErrNotConnected is returned for operations that need a connected instance
	ErrNotConnected = errors.New("instance is not connected")
	// ErrNonIntegrated marks the benign false returned for tools that opt
	// out of embedding. It is not a failure and should not be retried.
	ErrNonIntegrated = errors.New("tool runs without integration")
)
