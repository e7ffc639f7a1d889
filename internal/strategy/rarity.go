package strategy

import "github.com/surge-downloader/swarmpeer/internal/swarm"

// EstimateRarity counts, for every needed piece, how many of the visible
// peers hold it. Pieces nobody holds map to 0.
func EstimateRarity(need []int, peers []swarm.PeerView) map[int]int {
	rarity := make(map[int]int, len(need))
	for _, idx := range need {
		rarity[idx] = 0
	}
	for _, p := range peers {
		for _, idx := range need {
			if p.Available.Contains(idx) {
				rarity[idx]++
			}
		}
	}
	return rarity
}
