package core

import (
	"context"

	"github.com/surge-downloader/swarmpeer/internal/history"
	"github.com/surge-downloader/swarmpeer/internal/snapshot"
	"github.com/surge-downloader/swarmpeer/internal/strategy"
	"github.com/surge-downloader/swarmpeer/internal/swarm"
	"github.com/surge-downloader/swarmpeer/internal/swarm/health"
)

// RoundService runs agents against round snapshots and answers questions
// about their stored history. The CLI talks to it only through this interface.
type RoundService interface {
	// Register records a peer and returns its agent id.
	Register(self swarm.PeerID) (string, error)

	// Decide records the completed previous round carried by snap, then
	// returns this round's requests and uploads.
	Decide(ctx context.Context, snap *snapshot.Snapshot) (*snapshot.Decision, error)

	// DecideAll runs independent peers concurrently. Results follow input order.
	DecideAll(ctx context.Context, snaps []*snapshot.Snapshot) ([]*snapshot.Decision, error)

	// History returns the stored round log of a peer.
	History(self swarm.PeerID) (*history.Log, error)

	// Estimates returns the agent rebuilt from stored state, for inspection.
	Estimates(self swarm.PeerID) (*strategy.Agent, error)

	// Report summarizes reciprocation over the last window rounds and flags
	// peers reciprocating below factor times the mean.
	Report(self swarm.PeerID, window int, minGranted int, factor float64) (*Report, error)
}

// Report is the result of RoundService.Report.
type Report struct {
	Self    swarm.PeerID
	Rounds  int
	Samples []health.PeerSample
	Flagged []swarm.PeerID
}
