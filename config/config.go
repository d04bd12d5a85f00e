package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del simulador.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Storage    StorageConfig    `yaml:"storage"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
}

// SimulationConfig controla el mercado sintético.
type SimulationConfig struct {
	TickerCount     int           `yaml:"ticker_count" default:"10" validate:"gte=1,lte=500"`
	HistoryLength   int           `yaml:"history_length" default:"20" validate:"gte=2,lte=1000"`
	TickInterval    time.Duration `yaml:"tick_interval" default:"333ms" validate:"gt=0"`
	Seed            uint64        `yaml:"seed"` // 0 = semilla aleatoria
	// puntero para que un 0 explícito no se confunda con "sin definir"
	InitialCash     *float64      `yaml:"initial_cash" default:"10000" validate:"required,gte=0"`
	ValuationBucket time.Duration `yaml:"valuation_bucket" default:"1h" validate:"gt=0"`
}

// StorageConfig controla dónde se persiste el snapshot.
type StorageConfig struct {
	Backend     string        `yaml:"backend" default:"sqlite" validate:"oneof=sqlite redis memory"`
	DSN         string        `yaml:"dsn" default:"memesim.db"` // ruta al archivo SQLite, o ":memory:"
	Key         string        `yaml:"key" default:"memesim:state" validate:"required"`
	RedisAddr   string        `yaml:"redis_addr" default:"localhost:6379"`
	RedisPass   string        `yaml:"redis_password"`
	RedisDB     int           `yaml:"redis_db" validate:"gte=0"`
	SaveTimeout time.Duration `yaml:"save_timeout" default:"2s" validate:"gt=0"`
	Async       bool          `yaml:"async"` // recomendado con redis
}

// MetricsConfig controla el endpoint de Prometheus.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" default:":9108"`
	Path    string `yaml:"path" default:"/metrics" validate:"startswith=/"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"text" validate:"oneof=text json"`
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
// Un path vacío arranca solo con defaults + entorno.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: defaults: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: validate: %w", err)
	}
	return &cfg, nil
}

// InitialCash devuelve el cash inicial como decimal.
func (c *Config) InitialCash() decimal.Decimal {
	if c.Simulation.InitialCash == nil {
		return decimal.NewFromInt(10000)
	}
	return decimal.NewFromFloat(*c.Simulation.InitialCash)
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("MEMESIM_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("MEMESIM_STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Storage.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Storage.RedisPass = v
	}
	if v := os.Getenv("MEMESIM_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MEMESIM_SEED %q: %w", v, err)
		}
		cfg.Simulation.Seed = seed
	}
	return nil
}
