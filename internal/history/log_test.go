package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surge-downloader/swarmpeer/internal/swarm"
)

func TestLogCurrentRoundTracksAppends(t *testing.T) {
	l := NewLog()
	assert.Equal(t, 0, l.CurrentRound())
	_, ok := l.Last()
	assert.False(t, ok)
	assert.Nil(t, l.LastDownloads())

	l.Append(Round{Downloads: []swarm.Download{{From: "a", To: "me", Blocks: 2}}})
	l.Append(Round{Downloads: []swarm.Download{{From: "b", To: "me", Blocks: 5}}})
	assert.Equal(t, 2, l.CurrentRound())

	last, ok := l.Last()
	require.True(t, ok)
	assert.Equal(t, swarm.PeerID("b"), last.Downloads[0].From)
	assert.Equal(t, last.Downloads, l.LastDownloads())
}

func TestLogAppendCopiesInput(t *testing.T) {
	ups := []swarm.Upload{{From: "me", To: "a", Bandwidth: 10}}
	l := NewLog(Round{Uploads: ups})
	ups[0].Bandwidth = 99

	r, ok := l.At(0)
	require.True(t, ok)
	assert.Equal(t, 10, r.Uploads[0].Bandwidth)
}

func TestLogRecent(t *testing.T) {
	l := NewLog(Round{}, Round{}, Round{})
	assert.Len(t, l.Recent(2), 2)
	assert.Len(t, l.Recent(10), 3)
	assert.Nil(t, l.Recent(0))

	var nilLog *Log
	assert.Equal(t, 0, nilLog.CurrentRound())
	assert.Nil(t, nilLog.Recent(1))
}

func TestRoundDownloadsTo(t *testing.T) {
	r := Round{Downloads: []swarm.Download{
		{From: "a", To: "me", Blocks: 1},
		{From: "a", To: "b", Blocks: 4},
		{From: "c", To: "me", Blocks: 2},
	}}
	got := r.DownloadsTo("me")
	require.Len(t, got, 2)
	assert.Equal(t, swarm.PeerID("c"), got[1].From)
}
