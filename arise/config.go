package arise

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/arisefit/arise/arise/database"
	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log    LogConfig         `toml:"log"`
	DB     database.DBConfig `toml:"db"`
	Engine EngineConfig      `toml:"engine"`
	Legacy LegacyConfig      `toml:"legacy"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

// EngineConfig tunes the progression engine. Zero values fall back to the
// built-in defaults.
type EngineConfig struct {
	// Timezone for quest reset boundaries, e.g. "UTC" or "America/New_York".
	// Empty means UTC.
	Timezone string `toml:"timezone"`
	// Seed for the quest selector RNG. Zero seeds from the clock.
	SelectorSeed int64 `toml:"selector_seed"`
	// LeaderboardSize caps GetTop responses.
	LeaderboardSize int `toml:"leaderboard_size"`
}

// LegacyConfig points at the old Mongoose deployment for one-off migrations.
type LegacyConfig struct {
	MongoURI string `toml:"mongo_uri"`
	Database string `toml:"database"`
	// DataDir holds mongodump BSON files when migrating offline.
	DataDir string `toml:"data_dir"`
}
