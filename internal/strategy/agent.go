package strategy

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/surge-downloader/swarmpeer/internal/swarm"
)

// History is the read-only round log the agent consults. Only the most
// recently completed round is used.
type History interface {
	CurrentRound() int
	LastDownloads() []swarm.Download
}

// State is the persistable part of an Agent.
type State struct {
	Optimistic swarm.PeerID `json:"optimistic,omitempty"`
	Tracker    TrackerState `json:"tracker"`
}

// Agent is one peer's decision maker. All mutable state is owned by the
// agent; separate agents share nothing. An Agent is not safe for concurrent
// use.
type Agent struct {
	id        swarm.PeerID
	cfg       Config
	planner   *Planner
	tracker   *Tracker
	allocator *Allocator

	// Cached by Requests for the Uploads call of the same round.
	plannedRound int
	need         swarm.PieceSet
	rarity       map[int]int

	log *logrus.Entry
}

func NewAgent(id swarm.PeerID, cfg Config) (*Agent, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty peer id", ErrInvalidConfig)
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger.WithField("agent", id)

	tracker := NewTracker(cfg, log)
	var policy ChokePolicy
	switch cfg.Policy {
	case PolicyAuction:
		policy = NewAuctionPolicy(tracker)
	default:
		policy = NewSimplePolicy(cfg.UnchokeSlots)
	}
	var explorer Explorer
	switch cfg.Explore {
	case ExploreRarest:
		explorer = NewRarestExplorer(cfg.Rand)
	default:
		explorer = NewRandomExplorer(cfg.Rand)
	}

	return &Agent{
		id:           id,
		cfg:          cfg,
		planner:      NewPlanner(cfg.BlocksPerPiece, cfg.MaxRequests, log),
		tracker:      tracker,
		allocator:    NewAllocator(cfg, policy, explorer, log),
		plannedRound: -1,
		log:          log,
	}, nil
}

func (a *Agent) ID() swarm.PeerID { return a.id }

func (a *Agent) Config() Config { return a.cfg }

func (a *Agent) Tracker() *Tracker { return a.tracker }

// Bonus is the optimistic unchoke granted by the last Uploads call, if any.
func (a *Agent) Bonus() swarm.PeerID { return a.allocator.Bonus() }

// Requests plans this round's outgoing requests. It must be called before
// Uploads in every round.
func (a *Agent) Requests(have swarm.Possession, peers []swarm.PeerView, hist History) ([]swarm.Request, error) {
	if err := have.Validate(a.cfg.BlocksPerPiece); err != nil {
		return nil, fmt.Errorf("possession: %w", err)
	}
	round := hist.CurrentRound()
	a.tracker.ObserveAvailability(round, peers)

	plan := a.planner.Plan(a.id, have, peers)
	a.plannedRound = round
	a.need = plan.Need
	a.rarity = plan.Rarity
	a.log.WithFields(logrus.Fields{"round": round, "requests": len(plan.Requests)}).Debug("planned requests")
	return plan.Requests, nil
}

// Uploads decides this round's grants for the requests addressed to us.
func (a *Agent) Uploads(requests []swarm.Request, peers []swarm.PeerView, hist History) ([]swarm.Upload, error) {
	index := swarm.IndexPeers(peers)
	requesters, err := Requesters(requests, index)
	if err != nil {
		return nil, fmt.Errorf("uploads: %w", err)
	}

	round := hist.CurrentRound()
	in := &RoundInput{
		Self:          a.id,
		Round:         round,
		Capacity:      a.cfg.UploadBandwidth,
		Requesters:    requesters,
		Peers:         index,
		PeerList:      peers,
		LastDownloads: hist.LastDownloads(),
	}
	if a.plannedRound == round {
		in.Need = a.need
		in.Rarity = a.rarity
	}
	return a.allocator.Allocate(in), nil
}

func (a *Agent) State() State {
	return State{
		Optimistic: a.allocator.Optimistic(),
		Tracker:    a.tracker.Snapshot(),
	}
}

func (a *Agent) LoadState(st State) {
	a.allocator.SetOptimistic(st.Optimistic)
	if st.Tracker.Peers == nil && st.Tracker.LastUpdate == 0 {
		st.Tracker.LastUpdate = -1
	}
	a.tracker.Restore(st.Tracker)
}
