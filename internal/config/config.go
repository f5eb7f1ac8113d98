package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Store   StoreConfig   `yaml:"store"`
	Cache   CacheConfig   `yaml:"cache"`
	Vendors VendorsConfig `yaml:"vendors"`
	Analyst AnalystConfig `yaml:"analyst"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type StoreConfig struct {
	Sqlite SqliteConfig `yaml:"sqlite"`
}

type SqliteConfig struct {
	Path string `yaml:"path"`
}

type CacheConfig struct {
	TTLSec int `yaml:"ttl_sec"`
}

type VendorsConfig struct {
	Eastmoney   EastmoneyConfig   `yaml:"eastmoney"`
	Tushare     TushareConfig     `yaml:"tushare"`
	FinDatasets FinDatasetsConfig `yaml:"financialdatasets"`
}

type EastmoneyConfig struct {
	HistBaseURL string `yaml:"hist_base_url"`
	PushBaseURL string `yaml:"push_base_url"`
	DataBaseURL string `yaml:"data_base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
}

type TushareConfig struct {
	Token     string `yaml:"token"`
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type FinDatasetsConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type AnalystConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	ByAzure    bool   `yaml:"by_azure"`
	APIVersion string `yaml:"api_version"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Config{
		Server: ServerConfig{Port: 8080},
		Log:    LogConfig{Level: "info"},
		Store: StoreConfig{
			Sqlite: SqliteConfig{Path: "data/cache.db"},
		},
		Cache: CacheConfig{TTLSec: 600},
		Vendors: VendorsConfig{
			Eastmoney:   EastmoneyConfig{TimeoutMs: 10000},
			Tushare:     TushareConfig{TimeoutMs: 10000},
			FinDatasets: FinDatasetsConfig{TimeoutMs: 15000},
		},
		Analyst: AnalystConfig{
			Enabled:   false,
			Model:     "gpt-4.1-mini",
			TimeoutMs: 15000,
		},
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			return fmt.Errorf("invalid PORT: %q", v)
		}
		cfg.Server.Port = p
	}
	if v := os.Getenv("TUSHARE_TOKEN"); v != "" {
		cfg.Vendors.Tushare.Token = v
	}
	if v := os.Getenv("FINANCIAL_DATASETS_API_KEY"); v != "" {
		cfg.Vendors.FinDatasets.APIKey = v
	}
	return nil
}
