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

// Package webhook handles incoming Feishu approval event deliveries. It is
// the admission gate: every request is authenticated, answered quickly, and
// only genuinely new APPROVED instance events are handed to the orchestrator
// as background work. Feishu retries deliveries that get a non-2xx or a slow
// response, so every understood request — including ones this service will
// not act on — is acknowledged with a 2xx.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/shic/approval-relay/internal/approval"
	"github.com/shic/approval-relay/internal/dedup"
)

// Event is the decoded webhook body. Feishu sends two envelope versions:
// v2 nests identifiers under header, v1 carries them at the top level.
// Status and instance code each have three possible locations across the
// versions; the precedence order in the accessors below is deliberate.
type Event struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Token     string `json:"token"`
	UUID      string `json:"uuid"`
	Header    struct {
		EventID   string `json:"event_id"`
		EventType string `json:"event_type"`
		Token     string `json:"token"`
	} `json:"header"`
	Event struct {
		Status         string `json:"status"`
		InstanceStatus string `json:"instance_status"`
		InstanceCode   string `json:"instance_code"`
		ApprovalCode   string `json:"approval_code"`
		Object         struct {
			Status       string `json:"status"`
			InstanceCode string `json:"instance_code"`
		} `json:"object"`
	} `json:"event"`
}

// eventID returns a stable identifier for dedup: the v2 header ID, the v1
// uuid, or a best-effort composite when the platform omits both.
func (e *Event) eventID() string {
	if e.Header.EventID != "" {
		return e.Header.EventID
	}
	if e.UUID != "" {
		return e.UUID
	}
	status := e.Event.Status
	if status == "" {
		status = e.Event.InstanceStatus
	}
	return fmt.Sprintf("%s:%s", e.instanceCode(), status)
}

// status returns the effective instance status, first non-empty of the
// three locations.
func (e *Event) status() string {
	if e.Event.Status != "" {
		return e.Event.Status
	}
	if e.Event.InstanceStatus != "" {
		return e.Event.InstanceStatus
	}
	return e.Event.Object.Status
}

// instanceCode returns the approval instance code, first non-empty of the
// three locations.
func (e *Event) instanceCode() string {
	if e.Event.InstanceCode != "" {
		return e.Event.InstanceCode
	}
	if e.Event.ApprovalCode != "" {
		return e.Event.ApprovalCode
	}
	return e.Event.Object.InstanceCode
}

// verificationToken returns whichever token the envelope carries.
func (e *Event) verificationToken() string {
	if e.Token != "" {
		return e.Token
	}
	return e.Header.Token
}

// Processor runs the background work for one admitted instance.
// Implemented by approval.Orchestrator.
type Processor interface {
	Process(ctx context.Context, instanceCode string) (approval.Outcome, error)
}

// Handler is the admission gate for approval webhook deliveries.
type Handler struct {
	processor         Processor
	store             dedup.Store
	verificationToken string
	signingSecret     string // empty disables signature verification
}

// NewHandler creates a webhook handler.
func NewHandler(processor Processor, store dedup.Store, verificationToken, signingSecret string) *Handler {
	return &Handler{
		processor:         processor,
		store:             store,
		verificationToken: verificationToken,
		signingSecret:     signingSecret,
	}
}

// ServeEvent handles one approval webhook delivery.
//
// Authentication failures get a rejection status so a misconfigured sender
// notices. Everything past that point is acknowledged with 2xx whether or
// not work was scheduled — Feishu retries on non-2xx, and a retry of an
// event this service chose to skip is pure noise.
func (h *Handler) ServeEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("failed to read event body", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unreadable body"})
		return
	}

	if status, err := h.verifySignature(r.Header, body); err != nil {
		slog.Warn("signature verification failed", "error", err)
		writeJSON(w, status, map[string]any{"error": err.Error()})
		return
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		slog.Warn("event body not valid JSON", "body_len", len(body))
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}

	// Token check — an absent token is accepted, the platform omits it on
	// some envelope versions.
	if token := event.verificationToken(); token != "" && token != h.verificationToken {
		slog.Warn("verification token mismatch")
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "invalid token"})
		return
	}

	// Challenge handshake — echo and bail out before any dedup state is
	// touched.
	if event.Type == "url_verification" && event.Challenge != "" {
		slog.Info("url verification challenge received")
		writeJSON(w, http.StatusOK, map[string]any{"challenge": event.Challenge})
		return
	}

	eventID := event.eventID()
	isNew, err := h.store.IsNewEvent(r.Context(), eventID)
	if err != nil {
		slog.Warn("event dedup check failed, proceeding", "error", err)
	} else if !isNew {
		slog.Debug("skipping duplicate event", "event_id", eventID)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	// Relevance: only approval instance events matter. An absent event_type
	// (v1 envelopes) passes through to the status check.
	if et := event.Header.EventType; et != "" && !strings.Contains(et, "approval_instance") {
		slog.Debug("skipping irrelevant event type", "event_type", et)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if status := event.status(); status != "APPROVED" {
		slog.Debug("skipping event with non-approved status", "status", status)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	instanceCode := event.instanceCode()
	if instanceCode == "" {
		slog.Warn("approved event without instance code", "event_id", eventID)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	// Instance-level check-and-mark happens here, before the background
	// unit is spawned: a concurrent duplicate delivery of the same instance
	// must observe the mark.
	fresh, err := h.store.MarkInstance(r.Context(), instanceCode)
	if err != nil {
		slog.Warn("instance dedup check failed, proceeding", "error", err)
	} else if !fresh {
		slog.Info("instance already being processed, skipping", "instance", instanceCode)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	correlationID := uuid.New().String()
	slog.Info("admitting approved instance",
		"event_id", eventID,
		"instance", instanceCode,
		"correlation_id", correlationID,
	)

	// Fire and forget: the webhook response must not wait on collaborators.
	// Failures are observable only via logs — there is no retry.
	go h.runBackground(correlationID, instanceCode)

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// runBackground executes the orchestrator for one instance outside the
// request lifecycle.
func (h *Handler) runBackground(correlationID, instanceCode string) {
	outcome, err := h.processor.Process(context.Background(), instanceCode)
	if err != nil {
		slog.Error("approval processing failed",
			"instance", instanceCode,
			"correlation_id", correlationID,
			"error", err,
		)
		return
	}
	slog.Info("approval processing finished",
		"instance", instanceCode,
		"correlation_id", correlationID,
		"outcome", outcome.String(),
	)
}

// verifySignature checks the Feishu event signature when a signing secret is
// configured. Returns the HTTP status to respond with on failure.
func (h *Handler) verifySignature(header http.Header, body []byte) (int, error) {
	if h.signingSecret == "" {
		return 0, nil
	}

	timestamp := header.Get("X-Lark-Request-Timestamp")
	nonce := header.Get("X-Lark-Request-Nonce")
	signature := header.Get("X-Lark-Signature")

	if timestamp == "" || nonce == "" || signature == "" {
		return http.StatusBadRequest, fmt.Errorf("missing signature headers")
	}

	mac := hmac.New(sha256.New, []byte(h.signingSecret))
	fmt.Fprintf(mac, "%s\n%s\n%s\n", timestamp, nonce, body)
	digest := hex.EncodeToString(mac.Sum(nil))

	if !strings.HasSuffix(signature, digest) {
		return http.StatusForbidden, fmt.Errorf("invalid signature")
	}
	return 0, nil
}

func writeJSON(w http.ResponseWriter, status int, payload map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Serve starts the webhook HTTP server on the given port. It binds the port
// immediately and signals readiness via the returned channel before starting
// to accept connections.
func Serve(ctx context.Context, port int, handler *Handler) (<-chan struct{}, error) {
	mux := http.NewServeMux()

	mux.HandleFunc("/feishu/webhook/approval", handler.ServeEvent)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	server := &http.Server{
		Handler: mux,
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("bind webhook port %d: %w", port, err)
	}

	ready := make(chan struct{})

	go func() {
		<-ctx.Done()
		slog.Info("webhook server shutting down")
		server.Close()
	}()

	go func() {
		slog.Info("webhook server listening", "port", port)
		close(ready)
		if err := server.Serve(ln); err != http.ErrServerClosed {
			slog.Error("webhook server error", "error", err)
		}
	}()

	return ready, nil
}
