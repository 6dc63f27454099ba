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

// Approval Relay — subscription registration
//
// One-shot CLI that subscribes this app to approval events for the given
// approval definitions. Feishu delivers instance events only for definitions
// that have been subscribed once; run this after adding a new approval type.
//
// Usage:
//
//	go run ./cmd/subscribe/ --codes 96FDDC67-...,C439B482-...
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/shic/approval-relay/internal/config"
	"github.com/shic/approval-relay/internal/feishu"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// --- CLI Flags ---
	codesFlag := flag.String("codes", "", "Comma-separated approval definition codes (required)")
	flag.Parse()

	if *codesFlag == "" {
		fmt.Fprintf(os.Stderr, "Error: --codes is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	var codes []string
	for _, c := range strings.Split(*codesFlag, ",") {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, c)
		}
	}

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tokenSource := feishu.NewTokenSource(cfg.AppID, cfg.AppSecret, feishu.DefaultBaseURL)
	client := feishu.NewClient(oauth2.NewClient(ctx, tokenSource), feishu.DefaultBaseURL)

	failed := 0
	for _, code := range codes {
		if err := client.Subscribe(ctx, code); err != nil {
			slog.Error("subscription failed", "definition_code", code, "error", err)
			failed++
			continue
		}
		slog.Info("subscribed", "definition_code", code)
	}

	if failed > 0 {
		slog.Error("some subscriptions failed", "failed", failed, "total", len(codes))
		os.Exit(1)
	}

	slog.Info("all subscriptions registered", "total", len(codes))
}
