package strategy

import (
	"math"
	"math/rand"

	"github.com/surge-downloader/swarmpeer/internal/swarm"
)

// Explorer picks the optimistic unchoke among requesters the policy did
// not select. Candidates are never empty.
type Explorer interface {
	Pick(candidates []swarm.PeerID, in *RoundInput) swarm.PeerID
}

// RandomExplorer picks uniformly.
type RandomExplorer struct {
	rng *rand.Rand
}

func NewRandomExplorer(rng *rand.Rand) *RandomExplorer {
	return &RandomExplorer{rng: rng}
}

func (e *RandomExplorer) Pick(candidates []swarm.PeerID, _ *RoundInput) swarm.PeerID {
	return candidates[e.rng.Intn(len(candidates))]
}

// RarestExplorer prefers the candidate holding the needed piece with the
// fewest holders, then the one holding more needed pieces. Remaining ties
// are broken at random.
type RarestExplorer struct {
	rng *rand.Rand
}

func NewRarestExplorer(rng *rand.Rand) *RarestExplorer {
	return &RarestExplorer{rng: rng}
}

func (e *RarestExplorer) Pick(candidates []swarm.PeerID, in *RoundInput) swarm.PeerID {
	if len(in.Rarity) == 0 {
		return candidates[e.rng.Intn(len(candidates))]
	}

	bestRarity, bestCount := math.MaxInt, -1
	var best []swarm.PeerID
	for _, id := range candidates {
		r, n := math.MaxInt, 0
		if v, ok := in.Peers[id]; ok {
			for _, piece := range v.Available.Intersect(in.Need).Indices() {
				n++
				if c, ok := in.Rarity[piece]; ok && c < r {
					r = c
				}
			}
		}
		switch {
		case r < bestRarity || (r == bestRarity && n > bestCount):
			bestRarity, bestCount = r, n
			best = append(best[:0], id)
		case r == bestRarity && n == bestCount:
			best = append(best, id)
		}
	}
	return best[e.rng.Intn(len(best))]
}
