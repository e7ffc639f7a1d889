package strategy

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/surge-downloader/swarmpeer/internal/swarm"
)

// Planner picks which pieces to request from which peers, rarest first.
type Planner struct {
	blocksPerPiece int
	maxRequests    int
	log            *logrus.Entry
}

// Plan is the outcome of one planning pass. Need and Rarity are kept by the
// agent so the allocator can reuse them in the same round.
type Plan struct {
	Requests []swarm.Request
	Need     swarm.PieceSet
	Rarity   map[int]int
}

func NewPlanner(blocksPerPiece, maxRequests int, log *logrus.Entry) *Planner {
	return &Planner{
		blocksPerPiece: blocksPerPiece,
		maxRequests:    maxRequests,
		log:            log,
	}
}

// Plan requests at most maxRequests needed pieces from every visible peer.
// Within a peer, pieces with fewer holders come first and ties go to the
// lower piece index. Every request continues its piece at the first block
// not yet held.
func (p *Planner) Plan(self swarm.PeerID, have swarm.Possession, peers []swarm.PeerView) Plan {
	need := have.Needed(p.blocksPerPiece)
	plan := Plan{Need: swarm.NewPieceSet(need...)}
	if len(need) == 0 {
		p.log.Debug("nothing needed")
		return plan
	}
	plan.Rarity = EstimateRarity(need, peers)
	p.log.WithField("need", need).Debug("still need pieces")

	for _, peer := range peers {
		if peer.ID == self {
			continue
		}
		candidates := peer.Available.Intersect(plan.Need).Indices()
		if len(candidates) == 0 {
			continue
		}
		sortRarestFirst(candidates, plan.Rarity)

		n := min(p.maxRequests, len(candidates))
		for _, piece := range candidates[:n] {
			plan.Requests = append(plan.Requests, swarm.Request{
				Requester: self,
				Target:    peer.ID,
				Piece:     piece,
				Start:     have.NextBlock(piece),
			})
		}
	}
	if len(plan.Requests) == 0 {
		p.log.Debug("no visible peer holds a needed piece")
	}
	return plan
}

func sortRarestFirst(pieces []int, rarity map[int]int) {
	sort.Slice(pieces, func(i, j int) bool {
		ri, rj := rarity[pieces[i]], rarity[pieces[j]]
		if ri != rj {
			return ri < rj
		}
		return pieces[i] < pieces[j]
	})
}
