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

// Approval Relay — webhook server
//
// Entry point for the relay service. It:
//  1. Loads configuration (credentials, routing table, backends)
//  2. Picks the dedup store: Redis when configured, in-memory otherwise
//  3. Optionally connects Postgres for the delivery audit log
//  4. Builds the Feishu client behind an oauth2 token source
//  5. Serves the approval webhook and health endpoints
//  6. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"

	"github.com/shic/approval-relay/internal/approval"
	"github.com/shic/approval-relay/internal/attachment"
	"github.com/shic/approval-relay/internal/audit"
	"github.com/shic/approval-relay/internal/config"
	"github.com/shic/approval-relay/internal/dedup"
	"github.com/shic/approval-relay/internal/feishu"
	"github.com/shic/approval-relay/internal/mail"
	"github.com/shic/approval-relay/internal/routing"
	"github.com/shic/approval-relay/internal/webhook"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("starting approval relay")

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	routes := routing.New(cfg.Routes)
	if routes.Len() == 0 {
		// Not fatal — every approval will be a permanent no-op until
		// routes are configured.
		slog.Warn("no approval routes configured, nothing will be forwarded")
	}

	slog.Info("configuration loaded",
		"routes", routes.Len(),
		"signature_check", cfg.SigningSecret != "",
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Dedup Store ---
	var store dedup.Store
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid redis URL", "error", err)
			os.Exit(1)
		}
		rdb = redis.NewClient(opt)
		redisStore := dedup.NewRedis(rdb)
		if err := redisStore.Ping(ctx); err != nil {
			slog.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		store = redisStore
		slog.Info("dedup store: redis")
	} else {
		store = dedup.NewMemory(0)
		slog.Info("dedup store: in-memory", "max_entries", dedup.DefaultMaxEntries)
	}

	// --- Delivery Audit Log (optional) ---
	var deliveryLog approval.DeliveryLog
	var pgPool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pgPool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to create Postgres pool", "error", err)
			os.Exit(1)
		}
		auditStore, err := audit.NewStore(ctx, pgPool)
		if err != nil {
			slog.Error("failed to initialise audit store", "error", err)
			os.Exit(1)
		}
		deliveryLog = auditStore
	}

	// --- Feishu Client ---
	tokenSource := feishu.NewTokenSource(cfg.AppID, cfg.AppSecret, feishu.DefaultBaseURL)
	httpClient := oauth2.NewClient(ctx, tokenSource)
	client := feishu.NewClient(httpClient, feishu.DefaultBaseURL)

	// --- Collaborators ---
	attachments := attachment.NewService(client)
	sender := mail.NewSender(cfg.ResendAPIKey, cfg.FromEmail)

	orchestrator := approval.New(approval.Config{
		Fetcher:     client,
		Attachments: attachments,
		Sender:      sender,
		Routes:      routes,
		Log:         deliveryLog,
	})

	// --- Webhook Server ---
	handler := webhook.NewHandler(orchestrator, store, cfg.VerificationToken, cfg.SigningSecret)
	ready, err := webhook.Serve(ctx, cfg.Port, handler)
	if err != nil {
		slog.Error("failed to start webhook server", "error", err)
		os.Exit(1)
	}
	<-ready
	slog.Info("approval relay ready", "port", cfg.Port)

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh

	slog.Info("received shutdown signal", "signal", sig)
	cancel() // Closes the webhook server

	if rdb != nil {
		rdb.Close()
	}
	if pgPool != nil {
		pgPool.Close()
	}

	slog.Info("approval relay stopped")
}
