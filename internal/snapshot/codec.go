package snapshot

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/anacrolix/torrent/bencode"

	"github.com/surge-downloader/swarmpeer/internal/swarm"
)

// Format is a snapshot encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatBencode Format = "bencode"
)

// FormatFor picks the format from a file extension. Unknown extensions are JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bencode", ".ben", ".bn":
		return FormatBencode
	default:
		return FormatJSON
	}
}

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatBencode:
		return FormatBencode, nil
	default:
		return "", fmt.Errorf("unknown format %q", s)
	}
}

// Decode parses and validates a snapshot.
func Decode(data []byte, f Format) (*Snapshot, error) {
	var snap Snapshot
	switch f {
	case FormatBencode:
		var w wireSnapshot
		if err := bencode.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("decode bencode snapshot: %w", err)
		}
		decoded, err := w.snapshot()
		if err != nil {
			return nil, fmt.Errorf("decode bencode snapshot: %w", err)
		}
		snap = decoded
	default:
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("decode json snapshot: %w", err)
		}
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Encode serializes a snapshot.
func Encode(s *Snapshot, f Format) ([]byte, error) {
	if f == FormatBencode {
		return bencode.Marshal(toWire(s))
	}
	return json.MarshalIndent(s, "", "  ")
}

// EncodeDecision serializes a round decision.
func EncodeDecision(d *Decision, f Format) ([]byte, error) {
	if f == FormatBencode {
		return bencode.Marshal(wireDecision{
			Round:      d.Round,
			Self:       string(d.Self),
			Requests:   toWireRequests(d.Requests),
			Uploads:    toWireUploads(d.Uploads),
			Optimistic: string(d.Optimistic),
		})
	}
	return json.MarshalIndent(d, "", "  ")
}

// Bencode has no sets or named string types, so snapshots travel as plain
// lists and strings.

type wirePeer struct {
	ID        string `bencode:"id"`
	Available []int  `bencode:"available"`
}

type wireRequest struct {
	Requester string `bencode:"requester"`
	Target    string `bencode:"target"`
	Piece     int    `bencode:"piece"`
	Start     int    `bencode:"start"`
}

type wireTransfer struct {
	From   string `bencode:"from"`
	To     string `bencode:"to"`
	Amount int    `bencode:"amount"`
}

type wireSnapshot struct {
	Round         int            `bencode:"round"`
	Self          string         `bencode:"self"`
	Possession    []int          `bencode:"possession"`
	Peers         []wirePeer     `bencode:"peers"`
	Requests      []wireRequest  `bencode:"requests,omitempty"`
	LastUploads   []wireTransfer `bencode:"last_uploads,omitempty"`
	LastDownloads []wireTransfer `bencode:"last_downloads,omitempty"`
}

type wireDecision struct {
	Round    int            `bencode:"round"`
	Self     string         `bencode:"self"`
	Requests []wireRequest  `bencode:"requests"`
	Uploads  []wireTransfer `bencode:"uploads"`

	Optimistic string `bencode:"optimistic,omitempty"`
}

func (w wireSnapshot) snapshot() (Snapshot, error) {
	s := Snapshot{
		Round:      w.Round,
		Self:       swarm.PeerID(w.Self),
		Possession: swarm.Possession(w.Possession),
	}
	for _, p := range w.Peers {
		avail, err := swarm.ParsePieceSet(p.Available)
		if err != nil {
			return Snapshot{}, fmt.Errorf("peer %s: %w", p.ID, err)
		}
		s.Peers = append(s.Peers, swarm.PeerView{ID: swarm.PeerID(p.ID), Available: avail})
	}
	for _, r := range w.Requests {
		s.Requests = append(s.Requests, swarm.Request{
			Requester: swarm.PeerID(r.Requester),
			Target:    swarm.PeerID(r.Target),
			Piece:     r.Piece,
			Start:     r.Start,
		})
	}
	for _, u := range w.LastUploads {
		s.LastUploads = append(s.LastUploads, swarm.Upload{From: swarm.PeerID(u.From), To: swarm.PeerID(u.To), Bandwidth: u.Amount})
	}
	for _, d := range w.LastDownloads {
		s.LastDownloads = append(s.LastDownloads, swarm.Download{From: swarm.PeerID(d.From), To: swarm.PeerID(d.To), Blocks: d.Amount})
	}
	return s, nil
}

func toWire(s *Snapshot) wireSnapshot {
	w := wireSnapshot{
		Round:       s.Round,
		Self:        string(s.Self),
		Possession:  []int(s.Possession),
		Requests:    toWireRequests(s.Requests),
		LastUploads: toWireUploads(s.LastUploads),
	}
	if w.Possession == nil {
		w.Possession = []int{}
	}
	w.Peers = []wirePeer{}
	for _, p := range s.Peers {
		w.Peers = append(w.Peers, wirePeer{ID: string(p.ID), Available: p.Available.Indices()})
	}
	for _, d := range s.LastDownloads {
		w.LastDownloads = append(w.LastDownloads, wireTransfer{From: string(d.From), To: string(d.To), Amount: d.Blocks})
	}
	return w
}

func toWireRequests(reqs []swarm.Request) []wireRequest {
	out := []wireRequest{}
	for _, r := range reqs {
		out = append(out, wireRequest{Requester: string(r.Requester), Target: string(r.Target), Piece: r.Piece, Start: r.Start})
	}
	return out
}

func toWireUploads(ups []swarm.Upload) []wireTransfer {
	out := []wireTransfer{}
	for _, u := range ups {
		out = append(out, wireTransfer{From: string(u.From), To: string(u.To), Amount: u.Bandwidth})
	}
	return out
}
