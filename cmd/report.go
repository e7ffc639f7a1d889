package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/surge-downloader/swarmpeer/internal/render"
	"github.com/surge-downloader/swarmpeer/internal/swarm"
)

var reportCmd = &cobra.Command{
	Use:   "report [peer-id]",
	Short: "Flag peers that reciprocate far below the mean",
	Long: `Sum what this peer granted each counterpart and what it received back over
the last --window rounds, and flag counterparts whose rate falls below
--factor times the mean rate.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		settings := initializeGlobalState()
		self := swarm.PeerID(settings.General.PeerID)
		if len(args) == 1 {
			self = swarm.PeerID(args[0])
		}
		if self == "" {
			fatalf("provide a peer id or set general.peer_id")
		}

		window, _ := cmd.Flags().GetInt("window")
		minGranted, _ := cmd.Flags().GetInt("min-granted")
		factor, _ := cmd.Flags().GetFloat64("factor")

		svc, cleanup := mustOpenService(context.Background(), settings)
		defer cleanup()

		rep, err := svc.Report(self, window, minGranted, factor)
		if err != nil {
			cleanup()
			fatalf("%v", err)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, render.TitleStyle.Render(fmt.Sprintf("%s: last %d rounds", rep.Self, rep.Rounds)))
		fmt.Fprintln(w, render.Samples(rep.Samples, rep.Flagged))
		if len(rep.Flagged) > 0 {
			fmt.Fprintf(w, "%d free riders\n", len(rep.Flagged))
		}
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().Int("window", 10, "Rounds to consider (0 for all)")
	reportCmd.Flags().Int("min-granted", 1, "Ignore peers granted less than this in the window")
	reportCmd.Flags().Float64("factor", 0.3, "Flag rates below factor times the mean")
}
