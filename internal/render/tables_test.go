package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/surge-downloader/swarmpeer/internal/history"
	"github.com/surge-downloader/swarmpeer/internal/swarm"
	"github.com/surge-downloader/swarmpeer/internal/swarm/health"
)

func init() {
	DisableColor()
}

func TestDecisionListsRequestsAndUploads(t *testing.T) {
	out := Decision("alice", 3,
		[]swarm.Request{{Requester: "alice", Target: "bob", Piece: 7, Start: 2}},
		[]swarm.Upload{{From: "alice", To: "bob", Bandwidth: 6}, {From: "alice", To: "carol", Bandwidth: 4}},
		"carol",
	)
	assert.Contains(t, out, "alice round 3")
	assert.Contains(t, out, "bob")
	assert.Contains(t, out, "optimistic")
	lines := strings.Split(out, "\n")
	for _, l := range lines {
		if strings.Contains(l, "optimistic") {
			assert.Contains(t, l, "carol")
		}
	}
}

func TestEmptyTables(t *testing.T) {
	assert.Equal(t, "no requests", Requests(nil))
	assert.Equal(t, "no uploads", Uploads(nil, ""))
	assert.Equal(t, "no completed rounds", History("alice", history.NewLog()))
	assert.Equal(t, "no exchanges recorded", Samples(nil, nil))
}

func TestHistoryTotals(t *testing.T) {
	log := history.NewLog(history.Round{
		Uploads:   []swarm.Upload{{From: "alice", To: "bob", Bandwidth: 5}, {From: "bob", To: "carol", Bandwidth: 9}},
		Downloads: []swarm.Download{{From: "bob", To: "alice", Blocks: 2}, {From: "dave", To: "alice", Blocks: 1}},
	})
	out := History("alice", log)
	assert.Contains(t, out, "bob,dave")
	assert.Contains(t, out, " 5 ")
	assert.Contains(t, out, " 3 ")
}

func TestSamplesFlagsFreeRiders(t *testing.T) {
	out := Samples([]health.PeerSample{
		{ID: "bob", Granted: 10, Received: 10},
		{ID: "eve", Granted: 10, Received: 0},
	}, []swarm.PeerID{"eve"})
	for _, l := range strings.Split(out, "\n") {
		if strings.Contains(l, "eve") {
			assert.Contains(t, l, "free rider")
		}
		if strings.Contains(l, "bob") {
			assert.Contains(t, l, "ok")
		}
	}
}
