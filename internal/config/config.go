package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all service settings, parsed from the environment once at
// startup. Cycle cadences and guard windows are durations so ops can tune
// them without code changes.
type Config struct {
	DBPath       string `env:"KINDRED_DB_PATH" envDefault:"data/kindred.db"`
	CycleLogPath string `env:"KINDRED_CYCLELOG_PATH" envDefault:"data/cycles.json"`
	HTTPAddr     string `env:"KINDRED_HTTP_ADDR" envDefault:":8791"`
	AIProvider   string `env:"AI_PROVIDER" envDefault:"pollinations"`

	MainInterval      time.Duration `env:"KINDRED_MAIN_INTERVAL" envDefault:"30m"`
	ImmediateInterval time.Duration `env:"KINDRED_IMMEDIATE_INTERVAL" envDefault:"2m"`
	AnalyticsInterval time.Duration `env:"KINDRED_ANALYTICS_INTERVAL" envDefault:"2h"`
	CycleTimeout      time.Duration `env:"KINDRED_CYCLE_TIMEOUT" envDefault:"3m"`

	BombardmentCooldown time.Duration `env:"KINDRED_COOLDOWN" envDefault:"30m"`
	MaxPersonasPerEntry int           `env:"KINDRED_MAX_PERSONAS_PER_ENTRY" envDefault:"2"`

	TestingMode bool `env:"KINDRED_TESTING_MODE" envDefault:"false"`
}

// New loads .env (if present) and parses the typed config. Invalid values are
// fatal: a misconfigured scheduler must not start half-working.
func New() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] No .env file found, using system environment")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("[ERR] config parse: %v", err)
	}

	if cfg.MainInterval <= 0 || cfg.ImmediateInterval <= 0 || cfg.AnalyticsInterval <= 0 {
		log.Fatal("[ERR] cycle intervals must be positive")
	}
	if cfg.MaxPersonasPerEntry < 1 {
		cfg.MaxPersonasPerEntry = 1
	}
	return cfg
}
