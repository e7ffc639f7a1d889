package health

import (
	"testing"

	"github.com/surge-downloader/swarmpeer/internal/swarm"
)

func TestBelowRelativeMeanFlagsFreeRiders(t *testing.T) {
	samples := []PeerSample{
		{ID: "generous", Granted: 20, Received: 40},
		{ID: "fair", Granted: 20, Received: 20},
		{ID: "leech", Granted: 20, Received: 1},
	}

	victims := BelowRelativeMean(samples, 10, 0.3)
	if len(victims) != 1 || victims[0] != "leech" {
		t.Fatalf("unexpected victims: %v", victims)
	}
}

func TestBelowRelativeMeanIgnoresSmallGrants(t *testing.T) {
	samples := []PeerSample{
		{ID: "generous", Granted: 20, Received: 40},
		{ID: "fair", Granted: 20, Received: 20},
		{ID: "barelyTried", Granted: 2, Received: 0},
	}

	victims := BelowRelativeMean(samples, 10, 0.3)
	if len(victims) != 0 {
		t.Fatalf("expected no victims, got %v", victims)
	}
}

func TestBelowRelativeMeanNeedsAtLeastTwoPeers(t *testing.T) {
	samples := []PeerSample{
		{ID: "onlyOne", Granted: 20, Received: 0},
		{ID: "never", Granted: 0, Received: 10},
	}

	victims := BelowRelativeMean(samples, 1, 0.3)
	if len(victims) != 0 {
		t.Fatalf("expected no victims, got %v", victims)
	}
}

func TestCollectOnlyCountsOwnTraffic(t *testing.T) {
	uploads := []swarm.Upload{
		{From: "me", To: "a", Bandwidth: 10},
		{From: "me", To: "a", Bandwidth: 5},
		{From: "b", To: "a", Bandwidth: 50},
	}
	downloads := []swarm.Download{
		{From: "a", To: "me", Blocks: 3},
		{From: "c", To: "me", Blocks: 7},
		{From: "a", To: "b", Blocks: 9},
	}

	samples := Collect("me", uploads, downloads)
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %v", samples)
	}
	if samples[0] != (PeerSample{ID: "a", Granted: 15, Received: 3}) {
		t.Fatalf("unexpected sample for a: %+v", samples[0])
	}
	if samples[1] != (PeerSample{ID: "c", Granted: 0, Received: 7}) {
		t.Fatalf("unexpected sample for c: %+v", samples[1])
	}
}
