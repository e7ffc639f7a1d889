package core

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/surge-downloader/swarmpeer/internal/history"
	"github.com/surge-downloader/swarmpeer/internal/snapshot"
	"github.com/surge-downloader/swarmpeer/internal/store"
	"github.com/surge-downloader/swarmpeer/internal/strategy"
	"github.com/surge-downloader/swarmpeer/internal/swarm"
	"github.com/surge-downloader/swarmpeer/internal/swarm/health"
)

// ErrRoundMismatch is returned when a snapshot's round does not follow the
// stored history.
var ErrRoundMismatch = errors.New("snapshot round does not follow history")

// ErrNotRegistered is returned for peers with no stored agent.
var ErrNotRegistered = errors.New("peer not registered")

// LocalRoundService runs agents in-process against a local store.
type LocalRoundService struct {
	store  *store.Store
	cfg    strategy.Config
	logger *logrus.Logger
}

// NewLocalRoundService creates a service. cfg.Rand must be nil; each agent
// gets its own source.
func NewLocalRoundService(st *store.Store, cfg strategy.Config, logger *logrus.Logger) *LocalRoundService {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	cfg.Rand = nil
	cfg.Logger = logger
	return &LocalRoundService{store: st, cfg: cfg, logger: logger}
}

func (s *LocalRoundService) Register(self swarm.PeerID) (string, error) {
	return s.store.EnsureAgent(self)
}

// agentConfig derives a per-round seed so a fixed seed does not replay the
// same random draws every round.
func (s *LocalRoundService) agentConfig(round int) strategy.Config {
	cfg := s.cfg
	if cfg.Seed != 0 {
		cfg.Seed = cfg.Seed*1_000_003 + int64(round)
	}
	return cfg
}

func (s *LocalRoundService) loadAgent(agentID string, self swarm.PeerID, round int) (*strategy.Agent, error) {
	agent, err := strategy.NewAgent(self, s.agentConfig(round))
	if err != nil {
		return nil, err
	}
	st, ok, err := s.store.LoadAgentState(agentID)
	if err != nil {
		return nil, err
	}
	if ok {
		agent.LoadState(st)
	}
	return agent, nil
}

func (s *LocalRoundService) Decide(ctx context.Context, snap *snapshot.Snapshot) (*snapshot.Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	agentID, err := s.store.EnsureAgent(snap.Self)
	if err != nil {
		return nil, err
	}
	log, err := s.store.LoadHistory(agentID)
	if err != nil {
		return nil, err
	}

	stored := log.CurrentRound()
	switch snap.Round {
	case stored + 1:
		completed := snap.Completed()
		if err := s.store.AppendRound(agentID, stored, completed); err != nil {
			return nil, err
		}
		log.Append(completed)
	case stored:
		// Previous outcome already stored, or round 0.
	default:
		return nil, fmt.Errorf("%w: %s has %d completed rounds, snapshot is round %d",
			ErrRoundMismatch, snap.Self, stored, snap.Round)
	}

	agent, err := s.loadAgent(agentID, snap.Self, snap.Round)
	if err != nil {
		return nil, err
	}

	reqs, err := agent.Requests(snap.Possession, snap.Peers, log)
	if err != nil {
		return nil, err
	}
	ups, err := agent.Uploads(snap.Requests, snap.Peers, log)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveAgentState(agentID, agent.State()); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"peer":     snap.Self,
		"round":    snap.Round,
		"requests": len(reqs),
		"uploads":  len(ups),
	}).Debug("round decided")

	return &snapshot.Decision{
		Round:      snap.Round,
		Self:       snap.Self,
		Requests:   reqs,
		Uploads:    ups,
		Optimistic: agent.Bonus(),
	}, nil
}

func (s *LocalRoundService) DecideAll(ctx context.Context, snaps []*snapshot.Snapshot) ([]*snapshot.Decision, error) {
	seen := make(map[swarm.PeerID]bool, len(snaps))
	for _, snap := range snaps {
		if seen[snap.Self] {
			return nil, fmt.Errorf("two snapshots for peer %s", snap.Self)
		}
		seen[snap.Self] = true
	}

	out := make([]*snapshot.Decision, len(snaps))
	g, groupCtx := errgroup.WithContext(ctx)
	for i, snap := range snaps {
		g.Go(func() error {
			d, err := s.Decide(groupCtx, snap)
			if err != nil {
				return fmt.Errorf("%s: %w", snap.Self, err)
			}
			out[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *LocalRoundService) lookup(self swarm.PeerID) (string, error) {
	agents, err := s.store.ListAgents()
	if err != nil {
		return "", err
	}
	for _, a := range agents {
		if a.PeerID == self {
			return a.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotRegistered, self)
}

func (s *LocalRoundService) History(self swarm.PeerID) (*history.Log, error) {
	agentID, err := s.lookup(self)
	if err != nil {
		return nil, err
	}
	return s.store.LoadHistory(agentID)
}

func (s *LocalRoundService) Estimates(self swarm.PeerID) (*strategy.Agent, error) {
	agentID, err := s.lookup(self)
	if err != nil {
		return nil, err
	}
	return s.loadAgent(agentID, self, 0)
}

func (s *LocalRoundService) Report(self swarm.PeerID, window int, minGranted int, factor float64) (*Report, error) {
	log, err := s.History(self)
	if err != nil {
		return nil, err
	}
	if window <= 0 {
		window = log.CurrentRound()
	}

	recent := log.Recent(window)
	var (
		uploads   []swarm.Upload
		downloads []swarm.Download
	)
	for _, r := range recent {
		uploads = append(uploads, r.Uploads...)
		downloads = append(downloads, r.Downloads...)
	}
	samples := health.Collect(self, uploads, downloads)
	return &Report{
		Self:    self,
		Rounds:  len(recent),
		Samples: samples,
		Flagged: health.BelowRelativeMean(samples, minGranted, factor),
	}, nil
}
