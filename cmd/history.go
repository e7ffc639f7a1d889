package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/surge-downloader/swarmpeer/internal/render"
	"github.com/surge-downloader/swarmpeer/internal/swarm"
)

var historyCmd = &cobra.Command{
	Use:     "history [peer-id]",
	Aliases: []string{"log"},
	Short:   "Show a peer's completed rounds and reciprocity estimates",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		settings := initializeGlobalState()
		self := swarm.PeerID(settings.General.PeerID)
		if len(args) == 1 {
			self = swarm.PeerID(args[0])
		}
		if self == "" {
			fatalf("provide a peer id or set general.peer_id")
		}

		svc, cleanup := mustOpenService(context.Background(), settings)
		defer cleanup()

		log, err := svc.History(self)
		if err != nil {
			cleanup()
			fatalf("%v", err)
		}
		agent, err := svc.Estimates(self)
		if err != nil {
			cleanup()
			fatalf("%v", err)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, render.TitleStyle.Render(fmt.Sprintf("%s: %d completed rounds", self, log.CurrentRound())))
		fmt.Fprintln(w, render.History(self, log))
		fmt.Fprintln(w, render.Tracker(agent.Tracker()))
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
