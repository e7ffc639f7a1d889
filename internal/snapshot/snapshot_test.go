package snapshot

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/anacrolix/torrent/bencode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surge-downloader/swarmpeer/internal/swarm"
	"github.com/surge-downloader/swarmpeer/internal/testutil"
)

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		Round:      1,
		Self:       "alice",
		Possession: swarm.Possession{4, 0, 2},
		Peers: []swarm.PeerView{
			{ID: "bob", Available: swarm.NewPieceSet(1, 2)},
			{ID: "carol", Available: swarm.NewPieceSet(2)},
		},
		Requests: []swarm.Request{
			{Requester: "bob", Target: "alice", Piece: 0, Start: 0},
		},
		LastUploads:   []swarm.Upload{{From: "alice", To: "bob", Bandwidth: 10}},
		LastDownloads: []swarm.Download{{From: "bob", To: "alice", Blocks: 2}},
	}
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFor("round.json"))
	assert.Equal(t, FormatBencode, FormatFor("round.BENCODE"))
	assert.Equal(t, FormatJSON, FormatFor("round"))

	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestDecodeJSON(t *testing.T) {
	data := []byte(`{
		"round": 0,
		"self": "alice",
		"possession": [0, 4],
		"peers": [{"id": "bob", "available": [0, 1]}],
		"requests": [{"requester": "bob", "target": "alice", "piece": 1, "start": 0}]
	}`)
	snap, err := Decode(data, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, swarm.PeerID("alice"), snap.Self)
	assert.Equal(t, []int{0, 1}, snap.Peers[0].Available.Indices())
	assert.Len(t, snap.Requests, 1)
	assert.Empty(t, snap.Completed().Downloads)
}

func TestBencodeMatchesJSON(t *testing.T) {
	want := sampleSnapshot()

	data, err := Encode(want, FormatBencode)
	require.NoError(t, err)
	got, err := Decode(data, FormatBencode)
	require.NoError(t, err)

	assert.Equal(t, want.Round, got.Round)
	assert.Equal(t, want.Self, got.Self)
	assert.Equal(t, want.Possession, got.Possession)
	assert.Equal(t, want.Requests, got.Requests)
	assert.Equal(t, want.Completed(), got.Completed())
	require.Len(t, got.Peers, 2)
	assert.Equal(t, []int{1, 2}, got.Peers[0].Available.Indices())
}

func TestDecodeRejectsBadPieceIndices(t *testing.T) {
	for _, idx := range []int{-1, 4294967296} {
		w := wireSnapshot{
			Self:       "alice",
			Possession: []int{0},
			Peers:      []wirePeer{{ID: "bob", Available: []int{0, idx}}},
		}
		raw, err := bencode.Marshal(w)
		require.NoError(t, err)
		_, err = Decode(raw, FormatBencode)
		assert.Error(t, err, "bencode index %d", idx)

		doc := fmt.Sprintf(`{"round":0,"self":"alice","possession":[0],"peers":[{"id":"bob","available":[0,%d]}]}`, idx)
		_, err = Decode([]byte(doc), FormatJSON)
		assert.Error(t, err, "json index %d", idx)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Snapshot)
	}{
		{"empty self", func(s *Snapshot) { s.Self = "" }},
		{"negative round", func(s *Snapshot) { s.Round = -1 }},
		{"round zero with outcome", func(s *Snapshot) { s.Round = 0 }},
		{"duplicate peer", func(s *Snapshot) { s.Peers = append(s.Peers, s.Peers[0]) }},
		{"misaddressed request", func(s *Snapshot) { s.Requests[0].Target = "carol" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := sampleSnapshot()
			tc.mutate(s)
			assert.Error(t, s.Validate())
		})
	}
	assert.NoError(t, sampleSnapshot().Validate())
}

func TestEncodeDecision(t *testing.T) {
	d := &Decision{Round: 2, Self: "alice", Uploads: []swarm.Upload{{From: "alice", To: "bob", Bandwidth: 3}}}

	js, err := EncodeDecision(d, FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, string(js), `"bw": 3`)

	raw, err := EncodeDecision(d, FormatBencode)
	require.NoError(t, err)
	var w wireDecision
	require.NoError(t, bencode.Unmarshal(raw, &w))
	assert.Equal(t, "bob", w.Uploads[0].To)
	assert.Empty(t, w.Requests)
}

func TestParseTorrent_Layout(t *testing.T) {
	info := map[string]any{
		"name":         "file.bin",
		"piece length": int64(65536),
		"length":       int64(65536*2 + 10),
		"pieces":       []byte("123456789012345678901234567890123456789012345678901234567890"),
	}
	infoBytes, err := bencode.Marshal(info)
	if err != nil {
		t.Fatalf("encode info failed: %v", err)
	}
	rootBytes, err := bencode.Marshal(map[string]any{
		"announce": "http://tracker",
		"info":     info,
	})
	if err != nil {
		t.Fatalf("encode root failed: %v", err)
	}

	layout, err := ParseTorrent(rootBytes)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	sum := sha1.Sum(infoBytes)
	if layout.InfoHash != hex.EncodeToString(sum[:]) {
		t.Fatalf("infohash mismatch")
	}
	assert.Equal(t, 3, layout.NumPieces)
	assert.Equal(t, 4, layout.BlocksPerPiece)
	assert.Equal(t, "file.bin", layout.Name)

	tmpl := layout.Template("alice")
	assert.Equal(t, swarm.Possession{0, 0, 0}, tmpl.Possession)
	assert.NoError(t, tmpl.Validate())
}

func TestParseTorrent_FixtureGeometry(t *testing.T) {
	raw, err := testutil.TorrentBytes("big.iso", 256*1024, 10)
	require.NoError(t, err)

	layout, err := ParseTorrent(raw)
	require.NoError(t, err)
	assert.Equal(t, 10, layout.NumPieces)
	assert.Equal(t, 16, layout.BlocksPerPiece)
	assert.Equal(t, int64(256*1024*10), layout.TotalLength)
}

func TestParseTorrent_Invalid(t *testing.T) {
	raw, _ := bencode.Marshal(map[string]any{
		"info": map[string]any{"name": "x", "piece length": int64(0), "length": int64(1), "pieces": []byte("12345678901234567890")},
	})
	_, err := ParseTorrent(raw)
	assert.Error(t, err)

	_, err = ParseTorrent([]byte("not bencode"))
	assert.Error(t, err)
}
