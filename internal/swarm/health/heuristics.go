package health

import (
	"sort"

	"github.com/surge-downloader/swarmpeer/internal/swarm"
)

// PeerSample summarizes what we granted a peer and what it sent back over a
// window of rounds.
type PeerSample struct {
	ID       swarm.PeerID
	Granted  int
	Received int
}

// Rate is blocks received per unit of bandwidth granted.
func (s PeerSample) Rate() float64 {
	if s.Granted <= 0 {
		return 0
	}
	return float64(s.Received) / float64(s.Granted)
}

// BelowRelativeMean returns, sorted by id, the peers whose reciprocation rate
// is below factor * mean rate among peers we granted at least minGranted.
// Peers below minGranted are ignored.
func BelowRelativeMean(samples []PeerSample, minGranted int, factor float64) []swarm.PeerID {
	if factor <= 0 {
		return nil
	}

	mature := make([]PeerSample, 0, len(samples))
	var sum float64
	for _, s := range samples {
		if s.ID == "" || s.Granted < minGranted || s.Granted <= 0 {
			continue
		}
		if s.Received < 0 {
			s.Received = 0
		}
		mature = append(mature, s)
		sum += s.Rate()
	}
	if len(mature) < 2 {
		return nil
	}

	mean := sum / float64(len(mature))
	cutoff := mean * factor
	if cutoff <= 0 {
		return nil
	}

	out := make([]swarm.PeerID, 0, len(mature))
	for _, s := range mature {
		if s.Rate() < cutoff {
			out = append(out, s.ID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Collect folds uploads made by self and downloads received by self into one
// sample per counterpart.
func Collect(self swarm.PeerID, uploads []swarm.Upload, downloads []swarm.Download) []PeerSample {
	byID := make(map[swarm.PeerID]*PeerSample)
	get := func(id swarm.PeerID) *PeerSample {
		s, ok := byID[id]
		if !ok {
			s = &PeerSample{ID: id}
			byID[id] = s
		}
		return s
	}
	for _, u := range uploads {
		if u.From != self {
			continue
		}
		get(u.To).Granted += u.Bandwidth
	}
	for _, d := range downloads {
		if d.To != self {
			continue
		}
		get(d.From).Received += d.Blocks
	}

	out := make([]PeerSample, 0, len(byID))
	for _, s := range byID {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
