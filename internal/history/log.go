package history

import (
	"fmt"
	"strings"

	"github.com/surge-downloader/swarmpeer/internal/swarm"
)

// Round is everything that happened in one completed round.
type Round struct {
	Uploads   []swarm.Upload   `json:"uploads"`
	Downloads []swarm.Download `json:"downloads"`
}

// DownloadsTo returns the downloads received by id.
func (r Round) DownloadsTo(id swarm.PeerID) []swarm.Download {
	var out []swarm.Download
	for _, d := range r.Downloads {
		if d.To == id {
			out = append(out, d)
		}
	}
	return out
}

// Log is an append-only sequence of completed rounds. Round r is appended
// only after it completes, so CurrentRound is always len(rounds).
type Log struct {
	rounds []Round
}

func NewLog(rounds ...Round) *Log {
	l := &Log{}
	for _, r := range rounds {
		l.Append(r)
	}
	return l
}

// CurrentRound is the 0-based index of the round in progress.
func (l *Log) CurrentRound() int {
	if l == nil {
		return 0
	}
	return len(l.rounds)
}

// Append records a completed round. Slices are copied.
func (l *Log) Append(r Round) {
	l.rounds = append(l.rounds, Round{
		Uploads:   append([]swarm.Upload(nil), r.Uploads...),
		Downloads: append([]swarm.Download(nil), r.Downloads...),
	})
}

// At returns completed round i.
func (l *Log) At(i int) (Round, bool) {
	if l == nil || i < 0 || i >= len(l.rounds) {
		return Round{}, false
	}
	return l.rounds[i], true
}

// Last returns the most recently completed round.
func (l *Log) Last() (Round, bool) {
	return l.At(l.CurrentRound() - 1)
}

// LastDownloads returns the downloads of the most recently completed round,
// or nil during round 0.
func (l *Log) LastDownloads() []swarm.Download {
	r, _ := l.Last()
	return r.Downloads
}

// Recent returns up to n most recent completed rounds, oldest first.
func (l *Log) Recent(n int) []Round {
	if l == nil || n <= 0 {
		return nil
	}
	start := len(l.rounds) - n
	if start < 0 {
		start = 0
	}
	return l.rounds[start:]
}

func (l *Log) String() string {
	var b strings.Builder
	for i, r := range l.rounds {
		fmt.Fprintf(&b, "round %d: uploads=%v downloads=%d\n", i, r.Uploads, len(r.Downloads))
	}
	return b.String()
}
