package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/surge-downloader/swarmpeer/internal/core"
	"github.com/surge-downloader/swarmpeer/internal/render"
	"github.com/surge-downloader/swarmpeer/internal/snapshot"
)

var roundCmd = &cobra.Command{
	Use:   "round <snapshot>...",
	Short: "Decide requests and uploads for one round",
	Long: `Read one round snapshot per peer (JSON, or bencode for .bencode files; "-" reads
stdin), record the previous round's outcome, and print this round's requests
and uploads. Several snapshots for different peers are decided concurrently.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		settings := initializeGlobalState()

		inFormat, _ := cmd.Flags().GetString("input-format")
		outFormat, _ := cmd.Flags().GetString("output")
		policy, _ := cmd.Flags().GetString("policy")
		if policy != "" {
			settings.Strategy.Policy = policy
		}

		snaps, err := readSnapshots(args, inFormat, cmd.InOrStdin())
		if err != nil {
			fatalf("%v", err)
		}

		ctx := context.Background()
		svc, cleanup := mustOpenService(ctx, settings)
		defer cleanup()

		decisions, err := decideRound(ctx, svc, snaps)
		if err != nil {
			cleanup()
			fatalf("%v", err)
		}
		if err := printDecisions(cmd.OutOrStdout(), decisions, outFormat); err != nil {
			cleanup()
			fatalf("%v", err)
		}
	},
}

func readSnapshots(paths []string, format string, stdin io.Reader) ([]*snapshot.Snapshot, error) {
	var forced snapshot.Format
	if format != "" {
		f, err := snapshot.ParseFormat(format)
		if err != nil {
			return nil, err
		}
		forced = f
	}

	snaps := make([]*snapshot.Snapshot, 0, len(paths))
	for _, path := range paths {
		var (
			data []byte
			err  error
		)
		if path == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, fmt.Errorf("read snapshot %s: %w", path, err)
		}

		f := forced
		if f == "" {
			f = snapshot.FormatFor(path)
		}
		snap, err := snapshot.Decode(data, f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

func decideRound(ctx context.Context, svc core.RoundService, snaps []*snapshot.Snapshot) ([]*snapshot.Decision, error) {
	if len(snaps) == 1 {
		d, err := svc.Decide(ctx, snaps[0])
		if err != nil {
			return nil, err
		}
		return []*snapshot.Decision{d}, nil
	}
	return svc.DecideAll(ctx, snaps)
}

func printDecisions(w io.Writer, decisions []*snapshot.Decision, format string) error {
	if format == "" || format == "table" {
		for _, d := range decisions {
			fmt.Fprintln(w, render.Decision(d.Self, d.Round, d.Requests, d.Uploads, d.Optimistic))
		}
		return nil
	}

	f, err := snapshot.ParseFormat(format)
	if err != nil {
		return err
	}
	for _, d := range decisions {
		data, err := snapshot.EncodeDecision(d, f)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(roundCmd)
	roundCmd.Flags().StringP("input-format", "f", "", "Snapshot format (json, bencode); default from file extension")
	roundCmd.Flags().StringP("output", "o", "table", "Output format (table, json, bencode)")
	roundCmd.Flags().String("policy", "", "Override the choke policy (simple, auction)")
}
