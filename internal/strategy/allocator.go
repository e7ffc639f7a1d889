package strategy

import (
	"math/rand"
	"slices"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/surge-downloader/swarmpeer/internal/swarm"
)

// Allocator decides who receives upload bandwidth each round.
type Allocator struct {
	policy         ChokePolicy
	explorer       Explorer
	rng            *rand.Rand
	bootstrapSlots int
	maxRecipients  int
	interval       int

	// optimistic survives across rounds and is only replaced when
	// exploration fires.
	optimistic swarm.PeerID
	// bonus is the optimistic recipient actually granted by the last Allocate.
	bonus swarm.PeerID
	log   *logrus.Entry
}

func NewAllocator(cfg Config, policy ChokePolicy, explorer Explorer, log *logrus.Entry) *Allocator {
	return &Allocator{
		policy:         policy,
		explorer:       explorer,
		rng:            cfg.Rand,
		bootstrapSlots: cfg.BootstrapSlots,
		maxRecipients:  cfg.MaxRecipients,
		interval:       cfg.OptimisticInterval,
		log:            log,
	}
}

func (a *Allocator) Optimistic() swarm.PeerID { return a.optimistic }

func (a *Allocator) SetOptimistic(id swarm.PeerID) { a.optimistic = id }

// Bonus is the optimistic recipient granted by the last Allocate, if any.
func (a *Allocator) Bonus() swarm.PeerID { return a.bonus }

// Requesters returns the distinct requester ids in ascending order, or an
// UnknownPeerError if any of them is not visible this round.
func Requesters(requests []swarm.Request, peers map[swarm.PeerID]swarm.PeerView) ([]swarm.PeerID, error) {
	seen := make(map[swarm.PeerID]bool, len(requests))
	var ids []swarm.PeerID
	for _, r := range requests {
		if _, ok := peers[r.Requester]; !ok {
			return nil, &UnknownPeerError{ID: r.Requester}
		}
		if seen[r.Requester] {
			continue
		}
		seen[r.Requester] = true
		ids = append(ids, r.Requester)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Allocate returns this round's uploads. The sum of granted bandwidth never
// exceeds in.Capacity. No requesters means no uploads.
func (a *Allocator) Allocate(in *RoundInput) []swarm.Upload {
	a.bonus = ""
	if in.Round > 0 {
		a.policy.Observe(in)
	}
	if len(in.Requesters) == 0 {
		return nil
	}

	var sel Selection
	if in.Round == 0 {
		sel = a.bootstrap(in)
	} else {
		sel = a.policy.Select(in)
	}

	recipients := append([]swarm.PeerID(nil), sel.Peers...)
	bonus := a.explore(in, recipients)

	var bws []int
	if sel.Bandwidth == nil {
		if bonus != "" {
			recipients = append(recipients, bonus)
			a.bonus = bonus
		}
		bws = EvenSplit(in.Capacity, len(recipients))
	} else {
		bws = append([]int(nil), sel.Bandwidth...)
		spent := 0
		for _, bw := range bws {
			spent += bw
		}
		if left := in.Capacity - spent; bonus != "" && left > 0 {
			recipients = append(recipients, bonus)
			bws = append(bws, left)
			a.bonus = bonus
		}
	}

	uploads := make([]swarm.Upload, 0, len(recipients))
	for i, id := range recipients {
		uploads = append(uploads, swarm.Upload{From: in.Self, To: id, Bandwidth: bws[i]})
	}
	a.log.WithFields(logrus.Fields{
		"round":   in.Round,
		"policy":  a.policy.Name(),
		"uploads": uploads,
	}).Debug("unchoked")
	return uploads
}

// bootstrap unchokes up to bootstrapSlots requesters chosen at random.
func (a *Allocator) bootstrap(in *RoundInput) Selection {
	if len(in.Requesters) <= a.bootstrapSlots {
		return Selection{Peers: append([]swarm.PeerID(nil), in.Requesters...)}
	}
	picked := make([]swarm.PeerID, 0, a.bootstrapSlots)
	for _, i := range a.rng.Perm(len(in.Requesters))[:a.bootstrapSlots] {
		picked = append(picked, in.Requesters[i])
	}
	return Selection{Peers: picked}
}

// explore refreshes the optimistic pick on exploration rounds and returns
// it when it can fill a free slot this round.
func (a *Allocator) explore(in *RoundInput, selected []swarm.PeerID) swarm.PeerID {
	if a.interval > 0 && in.Round%a.interval == 0 && len(in.Requesters) > len(selected) {
		candidates := make([]swarm.PeerID, 0, len(in.Requesters)-len(selected))
		for _, id := range in.Requesters {
			if !slices.Contains(selected, id) {
				candidates = append(candidates, id)
			}
		}
		a.optimistic = a.explorer.Pick(candidates, in)
		a.log.WithField("peer", a.optimistic).Debug("optimistic unchoke")
	}

	if a.optimistic == "" || len(selected) >= a.maxRecipients {
		return ""
	}
	if !slices.Contains(in.Requesters, a.optimistic) || slices.Contains(selected, a.optimistic) {
		return ""
	}
	return a.optimistic
}
