package snapshot

import (
	"bytes"
	"fmt"

	"github.com/anacrolix/torrent/metainfo"

	"github.com/surge-downloader/swarmpeer/internal/swarm"
)

// BlockSize is the request granularity peers use on the wire.
const BlockSize = 16 * 1024

// TorrentLayout is the piece geometry of a .torrent file.
type TorrentLayout struct {
	Name           string
	InfoHash       string
	PieceLength    int64
	NumPieces      int
	TotalLength    int64
	BlocksPerPiece int
}

// ParseTorrent reads the piece layout of a .torrent file.
func ParseTorrent(data []byte) (*TorrentLayout, error) {
	mi, err := metainfo.Load(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	info, err := mi.UnmarshalInfo()
	if err != nil {
		return nil, err
	}
	if info.PieceLength <= 0 || len(info.Pieces) == 0 || len(info.Pieces)%20 != 0 {
		return nil, fmt.Errorf("invalid info dict")
	}

	total := info.TotalLength()
	if total <= 0 {
		return nil, fmt.Errorf("missing length/files")
	}

	name := info.BestName()
	if name == "" {
		name = info.Name
	}
	return &TorrentLayout{
		Name:           name,
		InfoHash:       mi.HashInfoBytes().HexString(),
		PieceLength:    info.PieceLength,
		NumPieces:      info.NumPieces(),
		TotalLength:    total,
		BlocksPerPiece: int((info.PieceLength + BlockSize - 1) / BlockSize),
	}, nil
}

// Template returns the round-0 snapshot of a peer holding nothing.
func (l *TorrentLayout) Template(self swarm.PeerID) *Snapshot {
	return &Snapshot{
		Self:       self,
		Possession: make(swarm.Possession, l.NumPieces),
		Peers:      []swarm.PeerView{},
	}
}
