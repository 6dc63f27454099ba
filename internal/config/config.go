// Copyright (c) 2026 SHIC AB
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the approval relay service.
type Config struct {
	// Feishu app credentials and webhook secrets
	AppID             string
	AppSecret         string
	VerificationToken string
	SigningSecret     string // empty disables signature verification

	// Resend email provider
	ResendAPIKey string
	FromEmail    string

	// Routes maps an approval definition name to a destination address.
	// Blank destinations are dropped at load time.
	Routes map[string]string

	// RedisURL, when set, switches event/instance dedup from the in-memory
	// store to Redis SETNX.
	RedisURL string

	// DatabaseURL, when set, enables the Postgres delivery audit log.
	DatabaseURL string

	// Server
	Port int
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Feishu struct {
		AppID             string `yaml:"app_id"`
		AppSecret         string `yaml:"app_secret"`
		VerificationToken string `yaml:"verification_token"`
		SigningSecret     string `yaml:"signing_secret"`
	} `yaml:"feishu"`
	Resend struct {
		APIKey    string `yaml:"api_key"`
		FromEmail string `yaml:"from_email"`
	} `yaml:"resend"`
	Routes map[string]string `yaml:"routes"`
	Redis  struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
}

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables for non-YAML settings.
func Load() (*Config, error) {
	configPath := envOrDefault("CONFIG_PATH", "/app/config/config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	// Expand ${VAR} references in the YAML
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	cfg := &Config{
		AppID:             raw.Feishu.AppID,
		AppSecret:         raw.Feishu.AppSecret,
		VerificationToken: raw.Feishu.VerificationToken,
		SigningSecret:     raw.Feishu.SigningSecret,
		ResendAPIKey:      raw.Resend.APIKey,
		FromEmail:         firstNonEmpty(raw.Resend.FromEmail, "onboarding@resend.dev"),
		Routes:            make(map[string]string, len(raw.Routes)),
		RedisURL:          firstNonEmpty(raw.Redis.URL, os.Getenv("REDIS_URL")),
		DatabaseURL:       firstNonEmpty(raw.Database.URL, os.Getenv("DATABASE_URL")),
		Port:              envOrDefaultInt("PORT", 8080),
	}

	// A blank destination is equivalent to no route at all
	for name, addr := range raw.Routes {
		if strings.TrimSpace(addr) == "" {
			continue
		}
		cfg.Routes[name] = strings.TrimSpace(addr)
	}

	var missing []string
	if cfg.AppID == "" {
		missing = append(missing, "feishu.app_id")
	}
	if cfg.AppSecret == "" {
		missing = append(missing, "feishu.app_secret")
	}
	if cfg.VerificationToken == "" {
		missing = append(missing, "feishu.verification_token")
	}
	if cfg.ResendAPIKey == "" {
		missing = append(missing, "resend.api_key")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
