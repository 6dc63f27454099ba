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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeConfig writes a config file into a temp dir and points CONFIG_PATH
// at it.
func writeConfig(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
}

const validConfig = `
feishu:
  app_id: cli_test123
  app_secret: secret456
  verification_token: vtoken
  signing_secret: stoken
resend:
  api_key: re_testkey
  from_email: relay@example.com
routes:
  付款-瑞典对公-SHIC: finance@example.com
  报销-员工: ""
redis:
  url: redis://localhost:6379/0
database:
  url: postgres://localhost/relay
`

// TestLoad verifies the happy path: all sections populated, blank route
// destinations dropped.
func TestLoad(t *testing.T) {
	writeConfig(t, validConfig)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.AppID != "cli_test123" {
		t.Errorf("AppID = %q, want cli_test123", cfg.AppID)
	}
	if cfg.SigningSecret != "stoken" {
		t.Errorf("SigningSecret = %q, want stoken", cfg.SigningSecret)
	}
	if cfg.FromEmail != "relay@example.com" {
		t.Errorf("FromEmail = %q, want relay@example.com", cfg.FromEmail)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
	if cfg.DatabaseURL != "postgres://localhost/relay" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}

	if got := cfg.Routes["付款-瑞典对公-SHIC"]; got != "finance@example.com" {
		t.Errorf("route = %q, want finance@example.com", got)
	}
	if _, ok := cfg.Routes["报销-员工"]; ok {
		t.Error("blank route destination should have been dropped")
	}
}

// TestLoad_EnvExpansion verifies ${VAR} references in the YAML are expanded
// from the environment.
func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_FEISHU_SECRET", "expanded-secret")
	writeConfig(t, `
feishu:
  app_id: cli_test123
  app_secret: ${TEST_FEISHU_SECRET}
  verification_token: vtoken
resend:
  api_key: re_testkey
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AppSecret != "expanded-secret" {
		t.Errorf("AppSecret = %q, want expanded-secret", cfg.AppSecret)
	}
}

// TestLoad_Defaults verifies the from address and port fall back when
// unset.
func TestLoad_Defaults(t *testing.T) {
	writeConfig(t, `
feishu:
  app_id: cli_test123
  app_secret: secret456
  verification_token: vtoken
resend:
  api_key: re_testkey
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.FromEmail != "onboarding@resend.dev" {
		t.Errorf("FromEmail = %q, want default", cfg.FromEmail)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.SigningSecret != "" {
		t.Errorf("SigningSecret = %q, want empty", cfg.SigningSecret)
	}
}

// TestLoad_MissingRequired verifies each required field is reported.
func TestLoad_MissingRequired(t *testing.T) {
	writeConfig(t, `
feishu:
  app_id: cli_test123
`)

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing required fields")
	}
	for _, want := range []string{"feishu.app_secret", "feishu.verification_token", "resend.api_key"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

// TestLoad_FileNotFound verifies a missing config file is a hard error.
func TestLoad_FileNotFound(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
