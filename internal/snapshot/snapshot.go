package snapshot

import (
	"fmt"

	"github.com/surge-downloader/swarmpeer/internal/history"
	"github.com/surge-downloader/swarmpeer/internal/swarm"
)

// Snapshot is what the host hands one peer at the start of a round.
//
// Round is the round being decided. When Round > 0, LastUploads and
// LastDownloads carry the outcome of round Round-1.
type Snapshot struct {
	Round         int              `json:"round"`
	Self          swarm.PeerID     `json:"self"`
	Possession    swarm.Possession `json:"possession"`
	Peers         []swarm.PeerView `json:"peers"`
	Requests      []swarm.Request  `json:"requests,omitempty"`
	LastUploads   []swarm.Upload   `json:"last_uploads,omitempty"`
	LastDownloads []swarm.Download `json:"last_downloads,omitempty"`
}

// Completed returns the outcome of the previous round.
func (s *Snapshot) Completed() history.Round {
	return history.Round{Uploads: s.LastUploads, Downloads: s.LastDownloads}
}

// Validate checks the snapshot is self-consistent.
func (s *Snapshot) Validate() error {
	if s.Self == "" {
		return fmt.Errorf("snapshot: self is empty")
	}
	if s.Round < 0 {
		return fmt.Errorf("snapshot: negative round %d", s.Round)
	}
	if s.Round == 0 && (len(s.LastUploads) > 0 || len(s.LastDownloads) > 0) {
		return fmt.Errorf("snapshot: round 0 has no previous round")
	}
	seen := make(map[swarm.PeerID]bool, len(s.Peers))
	for _, p := range s.Peers {
		if p.ID == "" {
			return fmt.Errorf("snapshot: peer with empty id")
		}
		if seen[p.ID] {
			return fmt.Errorf("snapshot: duplicate peer %s", p.ID)
		}
		seen[p.ID] = true
	}
	for _, r := range s.Requests {
		if r.Target != s.Self {
			return fmt.Errorf("snapshot: request %s is not addressed to %s", r, s.Self)
		}
	}
	return nil
}

// Decision is the output of one round for one peer.
type Decision struct {
	Round    int             `json:"round"`
	Self     swarm.PeerID    `json:"self"`
	Requests []swarm.Request `json:"requests"`
	Uploads  []swarm.Upload  `json:"uploads"`
	// Optimistic is the upload recipient added by exploration this round.
	Optimistic swarm.PeerID `json:"optimistic,omitempty"`
}
