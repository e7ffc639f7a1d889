package strategy

import (
	"math"
	"sort"

	"github.com/surge-downloader/swarmpeer/internal/swarm"
)

// RoundInput is the allocator's view of one round.
type RoundInput struct {
	Self       swarm.PeerID
	Round      int
	Capacity   int
	Requesters []swarm.PeerID // distinct, ascending
	Peers      map[swarm.PeerID]swarm.PeerView
	PeerList   []swarm.PeerView
	// LastDownloads are the realized downloads of the previous round.
	LastDownloads []swarm.Download
	// Need and Rarity come from this round's planning pass and may be empty.
	Need   swarm.PieceSet
	Rarity map[int]int
}

// Selection is a policy's choice of recipients in rank order. A nil
// Bandwidth means capacity is split evenly across the final recipients,
// including any optimistic unchoke.
type Selection struct {
	Peers     []swarm.PeerID
	Bandwidth []int
}

// ChokePolicy ranks requesters from round 1 onwards.
type ChokePolicy interface {
	Name() PolicyKind
	// Observe runs once per round >= 1, whether or not anyone requested.
	Observe(in *RoundInput)
	Select(in *RoundInput) Selection
}

// SimplePolicy is reciprocal tit-for-tat: unchoke the requesters that sent
// us the most blocks last round.
type SimplePolicy struct {
	slots int
}

func NewSimplePolicy(slots int) *SimplePolicy {
	return &SimplePolicy{slots: slots}
}

func (p *SimplePolicy) Name() PolicyKind { return PolicySimple }

func (p *SimplePolicy) Observe(*RoundInput) {}

func (p *SimplePolicy) Select(in *RoundInput) Selection {
	received := make(map[swarm.PeerID]int)
	for _, d := range in.LastDownloads {
		if d.To == in.Self {
			received[d.From] += d.Blocks
		}
	}
	ranked := append([]swarm.PeerID(nil), in.Requesters...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return received[ranked[i]] > received[ranked[j]]
	})
	n := min(p.slots, len(ranked))
	return Selection{Peers: ranked[:n]}
}

// AuctionPolicy ranks requesters by expected download per unit of upload
// and funds them greedily at the upload each one is believed to need.
type AuctionPolicy struct {
	tracker *Tracker
}

func NewAuctionPolicy(tracker *Tracker) *AuctionPolicy {
	return &AuctionPolicy{tracker: tracker}
}

func (p *AuctionPolicy) Name() PolicyKind { return PolicyAuction }

func (p *AuctionPolicy) Observe(in *RoundInput) {
	p.tracker.Update(in.Round, in.Self, in.PeerList, in.LastDownloads)
}

// Select admits requesters by descending ratio until the next one no longer
// fits. Each admitted peer costs its min upload rounded up to whole units,
// so fractional estimates admit slightly fewer peers than a real-valued sum.
func (p *AuctionPolicy) Select(in *RoundInput) Selection {
	ranked := append([]swarm.PeerID(nil), in.Requesters...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return p.tracker.Ratio(ranked[i]) > p.tracker.Ratio(ranked[j])
	})

	var sel Selection
	spent := 0
	for _, id := range ranked {
		cost := int(math.Ceil(p.tracker.MinUploadNeeded(id)))
		if spent+cost > in.Capacity {
			break
		}
		spent += cost
		sel.Peers = append(sel.Peers, id)
		sel.Bandwidth = append(sel.Bandwidth, cost)
	}
	if sel.Bandwidth == nil {
		sel.Bandwidth = []int{}
	}
	return sel
}

// EvenSplit divides total into n parts that differ by at most one; the
// earliest parts receive the remainder.
func EvenSplit(total, n int) []int {
	if n <= 0 {
		return nil
	}
	if total < 0 {
		total = 0
	}
	out := make([]int, n)
	base, rem := total/n, total%n
	for i := range out {
		out[i] = base
		if i < rem {
			out[i]++
		}
	}
	return out
}
