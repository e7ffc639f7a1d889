package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/surge-downloader/swarmpeer/internal/strategy"
	"gopkg.in/yaml.v2"
)

// Settings holds all user-configurable application settings organized by category.
type Settings struct {
	General  GeneralSettings  `json:"general" yaml:"general"`
	Strategy StrategySettings `json:"strategy" yaml:"strategy"`
	Storage  StorageSettings  `json:"storage" yaml:"storage"`
}

// GeneralSettings contains application behavior settings.
type GeneralSettings struct {
	PeerID            string `json:"peer_id" yaml:"peer_id"`
	LogRetentionCount int    `json:"log_retention_count" yaml:"log_retention_count"`
	Verbose           bool   `json:"verbose" yaml:"verbose"`
}

// StrategySettings tunes the request planner and upload allocator.
type StrategySettings struct {
	BlocksPerPiece     int     `json:"blocks_per_piece" yaml:"blocks_per_piece"`
	MaxRequests        int     `json:"max_requests" yaml:"max_requests"`
	UploadBandwidth    int     `json:"upload_bandwidth" yaml:"upload_bandwidth"`
	Policy             string  `json:"policy" yaml:"policy"`
	Explore            string  `json:"explore" yaml:"explore"`
	UnchokeSlots       int     `json:"unchoke_slots" yaml:"unchoke_slots"`
	BootstrapSlots     int     `json:"bootstrap_slots" yaml:"bootstrap_slots"`
	MaxRecipients      int     `json:"max_recipients" yaml:"max_recipients"`
	OptimisticInterval int     `json:"optimistic_interval" yaml:"optimistic_interval"`
	Alpha              float64 `json:"alpha" yaml:"alpha"`
	Gamma              float64 `json:"gamma" yaml:"gamma"`
	ReciprocityRounds  int     `json:"reciprocity_rounds" yaml:"reciprocity_rounds"`
	FanOut             int     `json:"fan_out" yaml:"fan_out"`
	Seed               int64   `json:"seed" yaml:"seed"`
}

// StorageSettings locate the agent database.
type StorageSettings struct {
	DBPath      string        `json:"db_path" yaml:"db_path"`
	LockTimeout time.Duration `json:"lock_timeout" yaml:"lock_timeout"`
}

// SettingMeta provides metadata for a single setting (for CLI rendering).
type SettingMeta struct {
	Key         string // JSON key name
	Label       string // Human-readable label
	Description string
	Type        string // "string", "int", "int64", "bool", "duration", "float64"
}

// GetSettingsMetadata returns metadata for all settings organized by category.
func GetSettingsMetadata() map[string][]SettingMeta {
	return map[string][]SettingMeta{
		"General": {
			{Key: "peer_id", Label: "Peer ID", Description: "Identity of this peer in the swarm. Generated by init when empty.", Type: "string"},
			{Key: "log_retention_count", Label: "Log Retention Count", Description: "Number of recent log files to keep.", Type: "int"},
			{Key: "verbose", Label: "Verbose", Description: "Write debug logs for every decision.", Type: "bool"},
		},
		"Strategy": {
			{Key: "blocks_per_piece", Label: "Blocks/Piece", Description: "Blocks making up one complete piece.", Type: "int"},
			{Key: "max_requests", Label: "Max Requests", Description: "Requests sent to any single peer per round.", Type: "int"},
			{Key: "upload_bandwidth", Label: "Upload Bandwidth", Description: "Blocks this peer can upload per round.", Type: "int"},
			{Key: "policy", Label: "Policy", Description: "Choke policy (simple, auction).", Type: "string"},
			{Key: "explore", Label: "Explore", Description: "Optimistic unchoke choice (random, rarest). Empty picks per policy.", Type: "string"},
			{Key: "unchoke_slots", Label: "Unchoke Slots", Description: "Regular unchokes under the simple policy.", Type: "int"},
			{Key: "bootstrap_slots", Label: "Bootstrap Slots", Description: "Random unchokes in round 0.", Type: "int"},
			{Key: "max_recipients", Label: "Max Recipients", Description: "A remembered optimistic pick is only reused below this many recipients.", Type: "int"},
			{Key: "optimistic_interval", Label: "Optimistic Interval", Description: "Rounds between optimistic unchokes.", Type: "int"},
			{Key: "alpha", Label: "Alpha", Description: "Growth of the upload demanded from a peer that did not reciprocate (-1 disables).", Type: "float64"},
			{Key: "gamma", Label: "Gamma", Description: "Discount after sustained reciprocation (0.0-1.0, -1 disables).", Type: "float64"},
			{Key: "reciprocity_rounds", Label: "Reciprocity Rounds", Description: "Consecutive reciprocated rounds before the discount applies.", Type: "int"},
			{Key: "fan_out", Label: "Fan Out", Description: "Assumed unchoke count of other peers when estimating their capacity.", Type: "int"},
			{Key: "seed", Label: "Seed", Description: "Random seed. 0 seeds from the clock.", Type: "int64"},
		},
		"Storage": {
			{Key: "db_path", Label: "Database Path", Description: "SQLite file for history and agent state. Empty uses the state dir.", Type: "string"},
			{Key: "lock_timeout", Label: "Lock Timeout", Description: "How long to wait for another process holding the database (e.g., 5s).", Type: "duration"},
		},
	}
}

// CategoryOrder returns the order of categories for display.
func CategoryOrder() []string {
	return []string{"General", "Strategy", "Storage"}
}

// DefaultSettings returns a new Settings instance with sensible defaults.
func DefaultSettings() *Settings {
	return &Settings{
		General: GeneralSettings{
			LogRetentionCount: 5,
		},
		Strategy: StrategySettings{
			BlocksPerPiece:     4,
			MaxRequests:        4,
			UploadBandwidth:    40,
			Policy:             string(strategy.PolicySimple),
			UnchokeSlots:       3,
			BootstrapSlots:     4,
			MaxRecipients:      4,
			OptimisticInterval: 3,
			Alpha:              0.2,
			Gamma:              0.1,
			ReciprocityRounds:  3,
			FanOut:             4,
		},
		Storage: StorageSettings{
			LockTimeout: 5 * time.Second,
		},
	}
}

// GetSettingsPath returns the path to the settings JSON file.
func GetSettingsPath() string {
	return filepath.Join(GetAppDir(), "settings.json")
}

// DBPath returns the configured database path or the default one.
func (s *Settings) DBPath() string {
	if s.Storage.DBPath != "" {
		return s.Storage.DBPath
	}
	return GetDefaultDBPath()
}

// LoadSettings loads settings from disk. Returns defaults if file doesn't exist.
func LoadSettings() (*Settings, error) {
	return LoadSettingsFrom(GetSettingsPath())
}

// LoadSettingsFrom reads a JSON or YAML settings file, chosen by extension.
// Missing fields keep their defaults.
func LoadSettingsFrom(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, settings)
	default:
		err = json.Unmarshal(data, settings)
	}
	if err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return settings, nil
}

// SaveSettings saves settings to disk atomically.
func SaveSettings(s *Settings) error {
	return SaveSettingsTo(GetSettingsPath(), s)
}

// SaveSettingsTo writes s as JSON, or YAML for .yaml/.yml paths.
func SaveSettingsTo(path string, s *Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(s)
	default:
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return err
	}

	// Atomic write: write to temp file, then rename
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}

// ToStrategyConfig converts Settings into the agent configuration.
func (s *Settings) ToStrategyConfig() (strategy.Config, error) {
	policy, err := strategy.ParsePolicy(s.Strategy.Policy)
	if err != nil {
		return strategy.Config{}, err
	}
	explore, err := strategy.ParseExplore(s.Strategy.Explore)
	if err != nil {
		return strategy.Config{}, err
	}
	return strategy.Config{
		BlocksPerPiece:     s.Strategy.BlocksPerPiece,
		MaxRequests:        s.Strategy.MaxRequests,
		UploadBandwidth:    s.Strategy.UploadBandwidth,
		Policy:             policy,
		Explore:            explore,
		UnchokeSlots:       s.Strategy.UnchokeSlots,
		BootstrapSlots:     s.Strategy.BootstrapSlots,
		MaxRecipients:      s.Strategy.MaxRecipients,
		OptimisticInterval: s.Strategy.OptimisticInterval,
		Alpha:              s.Strategy.Alpha,
		Gamma:              s.Strategy.Gamma,
		ReciprocityRounds:  s.Strategy.ReciprocityRounds,
		FanOut:             s.Strategy.FanOut,
		Seed:               s.Strategy.Seed,
	}, nil
}
