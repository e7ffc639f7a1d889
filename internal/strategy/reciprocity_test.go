package strategy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surge-downloader/swarmpeer/internal/swarm"
)

func newTestTracker(upload int) *Tracker {
	cfg := Config{BlocksPerPiece: 4, UploadBandwidth: upload, Seed: 1}.withDefaults()
	return NewTracker(cfg, quietLog())
}

func TestTrackerBootstrapsToQuarterOfUpload(t *testing.T) {
	tr := newTestTracker(40)
	assert.Equal(t, 10.0, tr.MinUploadNeeded("a"))
	assert.Equal(t, 10.0, tr.PossibleDownloadRate("a"))
	assert.Equal(t, 0, tr.RoundsUnchokedBy("a"))
}

func TestTrackerGrowsDemandWithoutReciprocation(t *testing.T) {
	tr := newTestTracker(40)
	peers := []swarm.PeerView{view("a")}

	got := tr.Update(1, "me", peers, nil)

	assert.Equal(t, map[swarm.PeerID]Transition{"a": Grew}, got)
	assert.InDelta(t, 12.0, tr.MinUploadNeeded("a"), 1e-9)
	assert.Equal(t, 0, tr.RoundsUnchokedBy("a"))
}

func TestTrackerDisabledAlphaAndGamma(t *testing.T) {
	cfg := Config{BlocksPerPiece: 4, UploadBandwidth: 40, Seed: 1, Alpha: Disabled, Gamma: Disabled}.withDefaults()
	require.NoError(t, cfg.Validate())
	tr := NewTracker(cfg, quietLog())
	peers := []swarm.PeerView{view("a"), view("b")}
	gave := []swarm.Download{{From: "b", To: "me", Blocks: 5}}

	for round := 1; round <= 4; round++ {
		tr.Update(round, "me", peers, gave)
	}
	assert.InDelta(t, 10.0, tr.MinUploadNeeded("a"), 1e-9)
	assert.InDelta(t, 10.0, tr.MinUploadNeeded("b"), 1e-9)

	assert.Error(t, Config{BlocksPerPiece: 4, Alpha: -0.5}.withDefaults().Validate())
}

func TestTrackerUpdateAppliesOncePerRound(t *testing.T) {
	tr := newTestTracker(40)
	peers := []swarm.PeerView{view("a")}

	tr.Update(1, "me", peers, nil)
	assert.Nil(t, tr.Update(1, "me", peers, nil))
	assert.Nil(t, tr.Update(0, "me", peers, nil))

	assert.InDelta(t, 12.0, tr.MinUploadNeeded("a"), 1e-9)
}

func TestTrackerDecaysAfterSustainedReciprocation(t *testing.T) {
	tr := newTestTracker(40)
	peers := []swarm.PeerView{view("a")}
	gave := []swarm.Download{{From: "a", To: "me", Blocks: 5}}

	assert.Equal(t, Held, tr.Update(1, "me", peers, gave)["a"])
	assert.Equal(t, Held, tr.Update(2, "me", peers, gave)["a"])
	assert.Equal(t, 10.0, tr.MinUploadNeeded("a"))
	assert.Equal(t, 5.0, tr.PossibleDownloadRate("a"))

	assert.Equal(t, Decayed, tr.Update(3, "me", peers, gave)["a"])
	assert.InDelta(t, 9.0, tr.MinUploadNeeded("a"), 1e-9)
	assert.Equal(t, 3, tr.RoundsUnchokedBy("a"))

	// A lapse resets the streak and grows demand instead.
	assert.Equal(t, Grew, tr.Update(4, "me", peers, nil)["a"])
	assert.InDelta(t, 10.8, tr.MinUploadNeeded("a"), 1e-9)
	assert.Equal(t, 0, tr.RoundsUnchokedBy("a"))
}

func TestTrackerIgnoresOtherPeersTraffic(t *testing.T) {
	tr := newTestTracker(40)
	peers := []swarm.PeerView{view("a")}
	notOurs := []swarm.Download{{From: "a", To: "b", Blocks: 9}, {From: "a", To: "me", Blocks: 0}}

	assert.Equal(t, Grew, tr.Update(1, "me", peers, notOurs)["a"])
}

func TestTrackerEstimatesCapacityFromPieceGrowth(t *testing.T) {
	tr := newTestTracker(40)
	tr.ObserveAvailability(0, []swarm.PeerView{view("a", 0, 1)})
	tr.ObserveAvailability(1, []swarm.PeerView{view("a", 0, 1, 2, 3, 4)})

	tr.Update(1, "me", []swarm.PeerView{view("a", 0, 1, 2, 3, 4)}, nil)

	// 3 new pieces * 4 blocks spread over 4 recipients.
	assert.InDelta(t, 3.0, tr.PossibleDownloadRate("a"), 1e-9)
}

func TestTrackerObserveSameRoundKeepsLatest(t *testing.T) {
	tr := newTestTracker(40)
	tr.ObserveAvailability(0, []swarm.PeerView{view("a", 0, 1)})
	tr.ObserveAvailability(0, []swarm.PeerView{view("a", 0, 1, 2)})

	st := tr.Snapshot().Peers["a"]
	assert.Equal(t, 1, st.Observations)
	assert.Equal(t, 3, st.LastPieces)
	assert.Equal(t, 0, st.PrevPieces)
}

func TestTrackerRatioStaysFinite(t *testing.T) {
	tr := newTestTracker(0)
	tr.Update(1, "me", []swarm.PeerView{view("a")}, []swarm.Download{{From: "a", To: "me", Blocks: 5}})

	assert.Greater(t, tr.MinUploadNeeded("a"), 0.0)
	r := tr.Ratio("a")
	assert.False(t, math.IsInf(r, 0))
	assert.False(t, math.IsNaN(r))
}

func TestTrackerSnapshotRestore(t *testing.T) {
	tr := newTestTracker(40)
	tr.Update(1, "me", []swarm.PeerView{view("a"), view("b")}, []swarm.Download{{From: "b", To: "me", Blocks: 2}})
	st := tr.Snapshot()

	restored := newTestTracker(40)
	restored.Restore(st)

	require.Equal(t, []swarm.PeerID{"a", "b"}, restored.Known())
	assert.Equal(t, tr.MinUploadNeeded("a"), restored.MinUploadNeeded("a"))
	assert.Equal(t, 2.0, restored.PossibleDownloadRate("b"))
	assert.Nil(t, restored.Update(1, "me", nil, nil))

	restored.Restore(TrackerState{LastUpdate: -1, Peers: map[swarm.PeerID]PeerEstimate{"z": {}}})
	assert.Greater(t, restored.MinUploadNeeded("z"), 0.0)
}
