package config

import (
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/pendlab/internal/chain"
)

const (
	DefaultListen    = ":8089"
	DefaultServerURL = "ws://127.0.0.1:8089/ws"
	DefaultDt        = 0.016
	DefaultScale     = 100.0
	DefaultFrameRate = 60
)

type Config struct {
	Listen    string      `yaml:"listen"`
	ServerURL string      `yaml:"server_url"`
	Dt        float64     `yaml:"dt"`
	Gravity   float64     `yaml:"gravity"`
	Scale     float64     `yaml:"scale"`
	FrameRate int         `yaml:"frame_rate"`
	Bobs      []BobConfig `yaml:"bobs"`
}

type BobConfig struct {
	LengthRod float64 `yaml:"length_rod"`
	Mass      float64 `yaml:"mass"`
	Theta     float64 `yaml:"theta"`
	Omega     float64 `yaml:"omega"`
}

func DefaultConfig() *Config {
	return &Config{
		Listen:    DefaultListen,
		ServerURL: DefaultServerURL,
		Dt:        DefaultDt,
		Gravity:   chain.Gravity,
		Scale:     DefaultScale,
		FrameRate: DefaultFrameRate,
		Bobs: []BobConfig{
			{LengthRod: 120, Mass: 10, Theta: math.Pi / 2},
			{LengthRod: 120, Mass: 10, Theta: math.Pi / 2},
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// BuildChain assembles the initial chain described by the config.
func (c *Config) BuildChain() *chain.Chain {
	bobs := make([]chain.Bob, len(c.Bobs))
	for i, b := range c.Bobs {
		bobs[i] = chain.NewBob(b.LengthRod, b.Mass, b.Theta, b.Omega)
	}
	return chain.New(c.Gravity, bobs...)
}
