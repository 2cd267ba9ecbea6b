// Package daemon manages the Bloom daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/bloom-health/bloom/internal/domain"
)

// Config holds all daemon configuration.
type Config struct {
	Server        ServerConfig              `toml:"server"`
	Storage       StorageConfig             `toml:"storage"`
	Progression   ProgressionConfig         `toml:"progression"`
	Challenges    ChallengesConfig          `toml:"challenges"`
	Notifications domain.NotificationPolicy `toml:"notifications"`
	Telemetry     TelemetryConfig           `toml:"telemetry"`
}

// ServerConfig controls the HTTP API server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig controls where state lives.
type StorageConfig struct {
	DataDir string `toml:"data_dir"`
}

// ProgressionConfig tunes the level curve and overrides the action
// catalog. XP values are product data; operators adjust them here
// without touching code.
type ProgressionConfig struct {
	BaseXP   int64              `toml:"base_xp"`
	Growth   float64            `toml:"growth"`
	MaxLevel int                `toml:"max_level"`
	Actions  []domain.ActionDef `toml:"actions"`
}

// ChallengesConfig points at the challenge seed file.
type ChallengesConfig struct {
	SeedFile string `toml:"seed_file"`
}

// TelemetryConfig controls observability endpoints.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	home := bloomHome()
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8420,
		},
		Storage: StorageConfig{
			DataDir: home,
		},
		Progression: ProgressionConfig{
			BaseXP:   100,
			Growth:   1.2,
			MaxLevel: 100,
		},
		Challenges: ChallengesConfig{
			SeedFile: filepath.Join(home, "challenges.toml"),
		},
		Notifications: domain.DefaultNotificationPolicy(),
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// LoadConfig reads config from $BLOOM_HOME/config.toml, falling back to
// defaults when no file exists.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(bloomHome(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the config to $BLOOM_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(bloomHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// bloomHome returns the Bloom data directory.
func bloomHome() string {
	if env := os.Getenv("BLOOM_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".bloom")
}

// ─── Challenge Seed File ────────────────────────────────────────────────────

type challengeSeed struct {
	Challenges []struct {
		ID              string `toml:"id"`
		Name            string `toml:"name"`
		Description     string `toml:"description"`
		DurationDays    int    `toml:"duration_days"`
		DailyPoints     int64  `toml:"daily_points"`
		CompletionBonus int64  `toml:"completion_bonus"`
		MaxParticipants int    `toml:"max_participants"`
		Tasks           []struct {
			Day   int    `toml:"day"`
			Title string `toml:"title"`
		} `toml:"tasks"`
	} `toml:"challenges"`
}

// LoadChallengeSeed parses a challenge seed file. A missing file is not
// an error; the daemon simply starts with no challenges defined.
func LoadChallengeSeed(path string) ([]domain.Challenge, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	var seed challengeSeed
	if _, err := toml.DecodeFile(path, &seed); err != nil {
		return nil, fmt.Errorf("parse challenge seed: %w", err)
	}

	challenges := make([]domain.Challenge, len(seed.Challenges))
	for i, c := range seed.Challenges {
		tasks := make([]domain.DailyTask, len(c.Tasks))
		for j, task := range c.Tasks {
			tasks[j] = domain.DailyTask{Day: task.Day, Title: task.Title}
		}
		challenges[i] = domain.Challenge{
			ID:              c.ID,
			Name:            c.Name,
			Description:     c.Description,
			DurationDays:    c.DurationDays,
			DailyTasks:      tasks,
			DailyPoints:     c.DailyPoints,
			CompletionBonus: c.CompletionBonus,
			MaxParticipants: c.MaxParticipants,
		}
	}
	return challenges, nil
}
