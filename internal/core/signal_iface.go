package core

// Frame is a raw wire payload (encoded JSON envelope).
type Frame []byte

// SignalConnection abstracts the messaging transport of one participant.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
