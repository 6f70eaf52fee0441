package domain

import "errors"

// Shared failure taxonomy. None of these is fatal to the process; callers
// decide whether to retry or report upward.
var (
	// ErrRoomNotFound: the room id is absent. No state was mutated.
	ErrRoomNotFound = errors.New("room not found")
	// ErrClipNotFound: the clip id is absent from the local aggregator.
	ErrClipNotFound = errors.New("clip not found")
	// ErrNotReady: no usable playback surface for the operation.
	ErrNotReady = errors.New("no playback surface ready")
	// ErrTransportUnavailable: neither primary nor fallback relay transport
	// is usable; synchronization degrades to local-only.
	ErrTransportUnavailable = errors.New("relay transport unavailable")
)
