package strategy

import (
	"errors"
	"fmt"

	"github.com/surge-downloader/swarmpeer/internal/swarm"
)

var (
	// ErrUnknownPeer is returned when upstream data names a peer that is not
	// in the visible peer set.
	ErrUnknownPeer = errors.New("unknown peer")
	// ErrInvalidConfig is returned for out-of-range settings.
	ErrInvalidConfig = errors.New("invalid strategy config")
)

type UnknownPeerError struct {
	ID swarm.PeerID
}

func (e *UnknownPeerError) Error() string {
	return fmt.Sprintf("unknown peer %q", e.ID)
}

func (e *UnknownPeerError) Unwrap() error { return ErrUnknownPeer }
