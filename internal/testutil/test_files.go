package testutil

import (
	"os"
	"path/filepath"

	"github.com/anacrolix/torrent/bencode"
)

// WriteFile writes data to dir/name and returns the path.
func WriteFile(dir, name string, data []byte) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// TorrentBytes builds a single-file .torrent with numPieces pieces of
// pieceLength bytes. Piece hashes are filler.
func TorrentBytes(name string, pieceLength int64, numPieces int) ([]byte, error) {
	pieces := make([]byte, 20*numPieces)
	for i := range pieces {
		pieces[i] = byte('a' + i%26)
	}
	info := map[string]any{
		"name":         name,
		"piece length": pieceLength,
		"length":       pieceLength * int64(numPieces),
		"pieces":       pieces,
	}
	return bencode.Marshal(map[string]any{
		"announce": "http://tracker.invalid/announce",
		"info":     info,
	})
}

// WriteTorrent writes a .torrent built by TorrentBytes into dir.
func WriteTorrent(dir, name string, pieceLength int64, numPieces int) (string, error) {
	data, err := TorrentBytes(name, pieceLength, numPieces)
	if err != nil {
		return "", err
	}
	return WriteFile(dir, name+".torrent", data)
}
