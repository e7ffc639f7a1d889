package strategy

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/surge-downloader/swarmpeer/internal/swarm"
)

// Transition is what one tracker update did to a peer's upload demand.
type Transition int

const (
	// Held means the peer reciprocated but not for long enough to earn a discount.
	Held Transition = iota
	// Grew means the peer did not reciprocate and now needs more upload.
	Grew
	// Decayed means sustained reciprocation lowered the upload it needs.
	Decayed
)

func (t Transition) String() string {
	switch t {
	case Grew:
		return "grew"
	case Decayed:
		return "decayed"
	default:
		return "held"
	}
}

// PeerEstimate is the tracker's belief about one peer.
type PeerEstimate struct {
	MinUploadNeeded      float64 `json:"min_upload_needed"`
	PossibleDownloadRate float64 `json:"possible_download_rate"`
	RoundsUnchokedBy     int     `json:"rounds_unchoked_by"`

	// Piece counts seen in the last two observed rounds.
	PrevPieces        int `json:"prev_pieces"`
	LastPieces        int `json:"last_pieces"`
	Observations      int `json:"observations"`
	LastObservedRound int `json:"last_observed_round"`
}

// TrackerState is the persistable form of a Tracker.
type TrackerState struct {
	LastUpdate int                           `json:"last_update"`
	Peers      map[swarm.PeerID]PeerEstimate `json:"peers"`
}

// Tracker maintains per-peer reciprocity estimates from last round's
// realized downloads.
type Tracker struct {
	alpha          float64
	gamma          float64
	threshold      int
	fanOut         int
	blocksPerPiece int
	epsilon        float64
	initial        float64

	peers      map[swarm.PeerID]*PeerEstimate
	lastUpdate int
	log        *logrus.Entry
}

func NewTracker(cfg Config, log *logrus.Entry) *Tracker {
	return &Tracker{
		alpha:          max(cfg.Alpha, 0),
		gamma:          max(cfg.Gamma, 0),
		threshold:      cfg.ReciprocityRounds,
		fanOut:         cfg.FanOut,
		blocksPerPiece: cfg.BlocksPerPiece,
		epsilon:        cfg.Epsilon,
		initial:        float64(cfg.UploadBandwidth) / 4,
		peers:          make(map[swarm.PeerID]*PeerEstimate),
		lastUpdate:     -1,
		log:            log,
	}
}

func (t *Tracker) estimate(id swarm.PeerID) *PeerEstimate {
	e, ok := t.peers[id]
	if !ok {
		e = &PeerEstimate{
			MinUploadNeeded:      math.Max(t.initial, t.epsilon),
			PossibleDownloadRate: t.initial,
			LastObservedRound:    -1,
		}
		t.peers[id] = e
	}
	return e
}

// ObserveAvailability records how many pieces each visible peer holds in
// round. Observing the same round twice keeps only the latest counts.
func (t *Tracker) ObserveAvailability(round int, peers []swarm.PeerView) {
	for _, p := range peers {
		e := t.estimate(p.ID)
		n := p.Available.Len()
		if e.Observations > 0 && e.LastObservedRound == round {
			e.LastPieces = n
			continue
		}
		e.PrevPieces = e.LastPieces
		e.LastPieces = n
		e.Observations++
		e.LastObservedRound = round
	}
}

// capacityEstimate approximates what a peer that did not reciprocate would
// give us: its piece growth over the last two observations, in blocks,
// spread across fanOut recipients. It is a heuristic, not a measurement.
func (t *Tracker) capacityEstimate(e *PeerEstimate) float64 {
	prev := e.PrevPieces
	if e.Observations < 2 {
		prev = 0
	}
	growth := e.LastPieces - prev
	if growth <= 0 || t.fanOut <= 0 {
		return 0
	}
	return float64(growth*t.blocksPerPiece) / float64(t.fanOut)
}

// Update applies last round's downloads to every visible peer. It runs at
// most once per round: a second call for a round already applied is a no-op
// and returns nil.
func (t *Tracker) Update(round int, self swarm.PeerID, peers []swarm.PeerView, lastDownloads []swarm.Download) map[swarm.PeerID]Transition {
	if round <= t.lastUpdate {
		return nil
	}
	t.lastUpdate = round

	received := make(map[swarm.PeerID]int)
	for _, d := range lastDownloads {
		if d.To != self || d.Blocks <= 0 {
			continue
		}
		received[d.From] += d.Blocks
	}

	out := make(map[swarm.PeerID]Transition, len(peers))
	for _, p := range peers {
		e := t.estimate(p.ID)
		blocks, reciprocated := received[p.ID]
		var tr Transition
		switch {
		case !reciprocated:
			e.MinUploadNeeded *= 1 + t.alpha
			e.RoundsUnchokedBy = 0
			e.PossibleDownloadRate = t.capacityEstimate(e)
			tr = Grew
		default:
			e.PossibleDownloadRate = float64(blocks)
			e.RoundsUnchokedBy++
			if e.RoundsUnchokedBy >= t.threshold {
				e.MinUploadNeeded *= 1 - t.gamma
				tr = Decayed
			}
		}
		if e.MinUploadNeeded < t.epsilon {
			e.MinUploadNeeded = t.epsilon
		}
		if e.PossibleDownloadRate < 0 {
			e.PossibleDownloadRate = 0
		}
		out[p.ID] = tr
		t.log.WithFields(logrus.Fields{
			"round":      round,
			"peer":       p.ID,
			"transition": tr,
			"min_up":     e.MinUploadNeeded,
			"rate":       e.PossibleDownloadRate,
		}).Debug("reciprocity update")
	}
	return out
}

func (t *Tracker) MinUploadNeeded(id swarm.PeerID) float64 {
	return t.estimate(id).MinUploadNeeded
}

func (t *Tracker) PossibleDownloadRate(id swarm.PeerID) float64 {
	return t.estimate(id).PossibleDownloadRate
}

func (t *Tracker) RoundsUnchokedBy(id swarm.PeerID) int {
	return t.estimate(id).RoundsUnchokedBy
}

// Ratio is expected download per unit of upload for id.
func (t *Tracker) Ratio(id swarm.PeerID) float64 {
	e := t.estimate(id)
	return e.PossibleDownloadRate / math.Max(e.MinUploadNeeded, t.epsilon)
}

// Known returns the tracked peer ids in ascending order.
func (t *Tracker) Known() []swarm.PeerID {
	ids := make([]swarm.PeerID, 0, len(t.peers))
	for id := range t.peers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (t *Tracker) Snapshot() TrackerState {
	st := TrackerState{
		LastUpdate: t.lastUpdate,
		Peers:      make(map[swarm.PeerID]PeerEstimate, len(t.peers)),
	}
	for id, e := range t.peers {
		st.Peers[id] = *e
	}
	return st
}

func (t *Tracker) Restore(st TrackerState) {
	t.lastUpdate = st.LastUpdate
	t.peers = make(map[swarm.PeerID]*PeerEstimate, len(st.Peers))
	for id, e := range st.Peers {
		if e.MinUploadNeeded < t.epsilon {
			e.MinUploadNeeded = t.epsilon
		}
		t.peers[id] = &e
	}
}
