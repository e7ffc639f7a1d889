package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/surge-downloader/swarmpeer/internal/config"
	"github.com/surge-downloader/swarmpeer/internal/snapshot"
	"github.com/surge-downloader/swarmpeer/internal/swarm"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Register a peer and write its round-0 snapshot",
	Long: `Register a peer in the local database. With --torrent, the piece layout of a
.torrent file sizes the peer's possession vector and a round-0 snapshot
template is written to --out.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		settings := initializeGlobalState()

		peerFlag, _ := cmd.Flags().GetString("peer-id")
		torrentPath, _ := cmd.Flags().GetString("torrent")
		out, _ := cmd.Flags().GetString("out")
		save, _ := cmd.Flags().GetBool("save")

		self := resolvePeerID(peerFlag, settings)

		var layout *snapshot.TorrentLayout
		if torrentPath != "" {
			data, err := os.ReadFile(torrentPath)
			if err != nil {
				fatalf("read torrent: %v", err)
			}
			layout, err = snapshot.ParseTorrent(data)
			if err != nil {
				fatalf("parse torrent: %v", err)
			}
			settings.Strategy.BlocksPerPiece = layout.BlocksPerPiece
		}

		svc, cleanup := mustOpenService(context.Background(), settings)
		agentID, err := svc.Register(self)
		cleanup()
		if err != nil {
			fatalf("register %s: %v", self, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (agent %s)\n", self, agentID[:8])

		if layout != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d pieces, %d blocks per piece\n", layout.Name, layout.NumPieces, layout.BlocksPerPiece)
			if err := writeTemplate(layout.Template(self), out); err != nil {
				fatalf("%v", err)
			}
			if out != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
			}
		}

		if save {
			settings.General.PeerID = string(self)
			if err := saveSettings(settings); err != nil {
				fatalf("save settings: %v", err)
			}
		}
	},
}

// resolvePeerID prefers the flag, then settings, then a generated id.
func resolvePeerID(flag string, settings *config.Settings) swarm.PeerID {
	if flag != "" {
		return swarm.PeerID(flag)
	}
	if settings.General.PeerID != "" {
		return swarm.PeerID(settings.General.PeerID)
	}
	return swarm.PeerID("peer-" + strings.SplitN(uuid.New().String(), "-", 2)[0])
}

func writeTemplate(snap *snapshot.Snapshot, out string) error {
	f := snapshot.FormatFor(out)
	data, err := snapshot.Encode(snap, f)
	if err != nil {
		return err
	}
	if out == "" || out == "-" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(out, data, 0o644)
}

func saveSettings(s *config.Settings) error {
	if settingsPath != "" {
		return config.SaveSettingsTo(settingsPath, s)
	}
	return config.SaveSettings(s)
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().String("peer-id", "", "Peer id; defaults to general.peer_id or a generated id")
	initCmd.Flags().StringP("torrent", "t", "", "Size the snapshot from a .torrent file")
	initCmd.Flags().StringP("out", "o", "", "Where to write the round-0 snapshot (default stdout)")
	initCmd.Flags().Bool("save", false, "Store the peer id in the settings file")
}
