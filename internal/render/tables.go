package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/surge-downloader/swarmpeer/internal/history"
	"github.com/surge-downloader/swarmpeer/internal/strategy"
	"github.com/surge-downloader/swarmpeer/internal/swarm"
	"github.com/surge-downloader/swarmpeer/internal/swarm/health"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Gray)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle
			}
			return CellStyle
		})
}

// Requests renders the planned requests of one round.
func Requests(reqs []swarm.Request) string {
	if len(reqs) == 0 {
		return DimStyle.Render("no requests")
	}
	t := newTable("TARGET", "PIECE", "START")
	for _, r := range reqs {
		t.Row(string(r.Target), strconv.Itoa(r.Piece), strconv.Itoa(r.Start))
	}
	return t.String()
}

// Uploads renders grants; optimistic marks the exploration pick.
func Uploads(ups []swarm.Upload, optimistic swarm.PeerID) string {
	if len(ups) == 0 {
		return DimStyle.Render("no uploads")
	}
	t := newTable("TO", "BANDWIDTH", "")
	bonusRow := -1
	for i, u := range ups {
		mark := ""
		if u.To == optimistic {
			mark = "optimistic"
			bonusRow = i
		}
		t.Row(string(u.To), strconv.Itoa(u.Bandwidth), mark)
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return HeaderStyle
		case row == bonusRow:
			return BonusStyle
		}
		return CellStyle
	})
	return t.String()
}

// Decision renders a full round decision.
func Decision(self swarm.PeerID, round int, reqs []swarm.Request, ups []swarm.Upload, optimistic swarm.PeerID) string {
	title := TitleStyle.Render(fmt.Sprintf("%s round %d", self, round))
	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		"requests",
		Requests(reqs),
		"uploads",
		Uploads(ups, optimistic),
	)
}

// History renders per-round totals for self.
func History(self swarm.PeerID, log *history.Log) string {
	if log.CurrentRound() == 0 {
		return DimStyle.Render("no completed rounds")
	}
	t := newTable("ROUND", "GRANTED", "RECEIVED", "PARTNERS")
	for i := 0; i < log.CurrentRound(); i++ {
		r, _ := log.At(i)
		granted := 0
		for _, u := range r.Uploads {
			if u.From == self {
				granted += u.Bandwidth
			}
		}
		received := 0
		var from []string
		for _, d := range r.DownloadsTo(self) {
			received += d.Blocks
			from = append(from, string(d.From))
		}
		t.Row(strconv.Itoa(i), strconv.Itoa(granted), strconv.Itoa(received), strings.Join(from, ","))
	}
	return t.String()
}

// Tracker renders reciprocity estimates by peer id.
func Tracker(tr *strategy.Tracker) string {
	ids := tr.Known()
	if len(ids) == 0 {
		return DimStyle.Render("no reciprocity estimates")
	}
	t := newTable("PEER", "MIN UPLOAD", "RATE", "STREAK", "RATIO")
	for _, id := range ids {
		t.Row(string(id),
			strconv.FormatFloat(tr.MinUploadNeeded(id), 'f', 2, 64),
			strconv.FormatFloat(tr.PossibleDownloadRate(id), 'f', 2, 64),
			strconv.Itoa(tr.RoundsUnchokedBy(id)),
			strconv.FormatFloat(tr.Ratio(id), 'f', 3, 64),
		)
	}
	return t.String()
}

// Samples renders reciprocation samples, flagging free riders.
func Samples(samples []health.PeerSample, flagged []swarm.PeerID) string {
	if len(samples) == 0 {
		return DimStyle.Render("no exchanges recorded")
	}
	bad := make(map[swarm.PeerID]bool, len(flagged))
	for _, id := range flagged {
		bad[id] = true
	}
	t := newTable("PEER", "GRANTED", "RECEIVED", "RATE", "")
	for _, s := range samples {
		status := OKStyle.Render("ok")
		if bad[s.ID] {
			status = WarnStyle.Render("free rider")
		}
		t.Row(string(s.ID), strconv.Itoa(s.Granted), strconv.Itoa(s.Received),
			strconv.FormatFloat(s.Rate(), 'f', 2, 64), status)
	}
	return t.String()
}
