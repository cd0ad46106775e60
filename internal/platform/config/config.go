package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ModeDev     = "dev"
	ModeRelease = "release"

	DefaultPath = "config/config.yaml"
)

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// Institution は請求書ヘッダーに印字される
type Institution struct {
	Name     string `yaml:"name"`
	Subtitle string `yaml:"subtitle"`
	Footer   string `yaml:"footer"` // 請求書フッターの2行目
}

// BillingDefaults: generate_bills で固定費が省略されたときの値
type BillingDefaults struct {
	RoomRent             float64 `yaml:"room_rent"`
	WaterCharges         float64 `yaml:"water_charges"`
	ElectricityCharges   float64 `yaml:"electricity_charges"`
	EstablishmentCharges float64 `yaml:"establishment_charges"`
}

type Config struct {
	Version     string          `yaml:"version"`
	Mode        string          `yaml:"mode"`
	Addr        string          `yaml:"addr"`
	DB          DatabaseConfig  `yaml:"database"`
	Certificate Certs           `yaml:"certificate"`
	Auth        AuthConfig      `yaml:"auth"`
	Institution Institution     `yaml:"institution"`
	Billing     BillingDefaults `yaml:"billing"`
}

// Load reads the yaml file, then applies an optional .env and MESS_* environment overrides.
func Load(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	// .env が無いのは正常
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("MESS_MODE"); v != "" {
		c.Mode = v
	}
	if v := os.Getenv("MESS_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("MESS_DB_HOST"); v != "" {
		c.DB.Host = v
	}
	if v := os.Getenv("MESS_DB_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: MESS_DB_PORT: %w", err)
		}
		c.DB.Port = p
	}
	if v := os.Getenv("MESS_DB_PASSWORD"); v != "" {
		c.DB.Password = v
	}
	if v := os.Getenv("MESS_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeDev
	}
	if c.Addr == "" {
		c.Addr = ":8443"
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Billing == (BillingDefaults{}) {
		c.Billing = BillingDefaults{
			RoomRent:             150,
			WaterCharges:         125,
			ElectricityCharges:   150,
			EstablishmentCharges: 275,
		}
	}
}

func (c *Config) Validate() error {
	if c.Mode != ModeDev && c.Mode != ModeRelease {
		return fmt.Errorf("config: mode must be %q or %q, got %q", ModeDev, ModeRelease, c.Mode)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("config: auth.jwt_secret is empty (set MESS_JWT_SECRET)")
	}
	return nil
}

// TLSEnabled は証明書が両方設定されているときだけ true
func (c *Config) TLSEnabled() bool {
	return c.Certificate.Cert != "" && c.Certificate.Key != ""
}
