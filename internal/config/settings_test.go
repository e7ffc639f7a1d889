package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surge-downloader/swarmpeer/internal/strategy"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.Equal(t, 4, s.Strategy.BlocksPerPiece)
	assert.Equal(t, "simple", s.Strategy.Policy)
	assert.Equal(t, 3, s.Strategy.UnchokeSlots)
	assert.Equal(t, 4, s.Strategy.BootstrapSlots)
	assert.Equal(t, 3, s.Strategy.OptimisticInterval)
	assert.InDelta(t, 0.2, s.Strategy.Alpha, 1e-9)
	assert.InDelta(t, 0.1, s.Strategy.Gamma, 1e-9)
	assert.Equal(t, 5*time.Second, s.Storage.LockTimeout)
}

func TestSettingsMetadataCoversCategories(t *testing.T) {
	meta := GetSettingsMetadata()
	for _, cat := range CategoryOrder() {
		if len(meta[cat]) == 0 {
			t.Errorf("category %s has no settings", cat)
		}
	}
}

func TestLoadSettingsFrom_MissingFileGivesDefaults(t *testing.T) {
	s, err := LoadSettingsFrom(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestLoadSettingsFrom_JSONPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"strategy":{"policy":"auction","upload_bandwidth":12}}`), 0o644))

	s, err := LoadSettingsFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "auction", s.Strategy.Policy)
	assert.Equal(t, 12, s.Strategy.UploadBandwidth)
	// untouched fields keep defaults
	assert.Equal(t, 4, s.Strategy.BlocksPerPiece)
}

func TestLoadSettingsFrom_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	body := "general:\n  peer_id: alice\nstrategy:\n  blocks_per_piece: 8\n  explore: rarest\nstorage:\n  db_path: /tmp/x.db\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	s, err := LoadSettingsFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "alice", s.General.PeerID)
	assert.Equal(t, 8, s.Strategy.BlocksPerPiece)
	assert.Equal(t, "rarest", s.Strategy.Explore)
	assert.Equal(t, "/tmp/x.db", s.DBPath())
}

func TestLoadSettingsFrom_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"strategy":`), 0o644))

	_, err := LoadSettingsFrom(path)
	assert.Error(t, err)
}

func TestSaveSettingsTo_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"settings.json", "settings.yml"} {
		path := filepath.Join(dir, name)
		s := DefaultSettings()
		s.General.PeerID = "bob"
		s.Strategy.Seed = 99

		require.NoError(t, SaveSettingsTo(path, s))
		_, err := os.Stat(path + ".tmp")
		assert.True(t, os.IsNotExist(err), "temp file should be renamed away")

		got, err := LoadSettingsFrom(path)
		require.NoError(t, err)
		assert.Equal(t, "bob", got.General.PeerID, name)
		assert.Equal(t, int64(99), got.Strategy.Seed, name)
	}
}

func TestToStrategyConfig(t *testing.T) {
	s := DefaultSettings()
	s.Strategy.Policy = "auction"

	cfg, err := s.ToStrategyConfig()
	require.NoError(t, err)
	assert.Equal(t, strategy.PolicyAuction, cfg.Policy)
	assert.Equal(t, strategy.ExploreKind(""), cfg.Explore)
	assert.Equal(t, 40, cfg.UploadBandwidth)
	assert.NoError(t, cfg.Validate())

	s.Strategy.Gamma = -1
	cfg, err = s.ToStrategyConfig()
	require.NoError(t, err)
	assert.Equal(t, strategy.Disabled, cfg.Gamma)
	assert.NoError(t, cfg.Validate())

	s.Strategy.Policy = "bogus"
	_, err = s.ToStrategyConfig()
	assert.ErrorIs(t, err, strategy.ErrInvalidConfig)
}
