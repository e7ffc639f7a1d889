package swarm

import "fmt"

// PeerID identifies a participant in the swarm.
type PeerID string

// PeerView is a one-round snapshot of what a peer has available.
type PeerView struct {
	ID        PeerID   `json:"id"`
	Available PieceSet `json:"available"`
}

// Request asks Target for piece Piece starting at block Start.
type Request struct {
	Requester PeerID `json:"requester"`
	Target    PeerID `json:"target"`
	Piece     int    `json:"piece"`
	Start     int    `json:"start"`
}

func (r Request) String() string {
	return fmt.Sprintf("%s->%s piece=%d start=%d", r.Requester, r.Target, r.Piece, r.Start)
}

// Upload grants To a share of From's upload capacity for one round.
type Upload struct {
	From      PeerID `json:"from"`
	To        PeerID `json:"to"`
	Bandwidth int    `json:"bw"`
}

func (u Upload) String() string {
	return fmt.Sprintf("%s->%s bw=%d", u.From, u.To, u.Bandwidth)
}

// Download is the realized outcome of an Upload: blocks actually moved.
type Download struct {
	From   PeerID `json:"from"`
	To     PeerID `json:"to"`
	Blocks int    `json:"blocks"`
}

// Possession maps piece index to the number of blocks held locally.
type Possession []int

// Needed returns, in ascending order, the pieces holding fewer than
// blocksPerPiece blocks.
func (p Possession) Needed(blocksPerPiece int) []int {
	need := make([]int, 0, len(p))
	for idx := range p {
		if !p.Complete(idx, blocksPerPiece) {
			need = append(need, idx)
		}
	}
	return need
}

// NextBlock is the first block of piece idx not yet held.
func (p Possession) NextBlock(idx int) int {
	if idx < 0 || idx >= len(p) || p[idx] < 0 {
		return 0
	}
	return p[idx]
}

// Complete reports whether every block of piece idx is held.
func (p Possession) Complete(idx, blocksPerPiece int) bool {
	if idx < 0 || idx >= len(p) {
		return false
	}
	return p[idx] >= blocksPerPiece
}

// Validate rejects counts outside [0, blocksPerPiece].
func (p Possession) Validate(blocksPerPiece int) error {
	for idx, held := range p {
		if held < 0 || held > blocksPerPiece {
			return fmt.Errorf("piece %d holds %d blocks, want 0..%d", idx, held, blocksPerPiece)
		}
	}
	return nil
}

// IndexPeers returns the views keyed by id.
func IndexPeers(peers []PeerView) map[PeerID]PeerView {
	out := make(map[PeerID]PeerView, len(peers))
	for _, p := range peers {
		out[p.ID] = p
	}
	return out
}
