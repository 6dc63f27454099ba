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

// Package audit provides a Postgres-backed delivery log. Every forwarded
// approval gets one row, giving finance a queryable trail of what was sent
// where. The log is an optional add-on: when no database is configured the
// relay runs without it, and recording failures never fail a delivery.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Record is one forwarded approval.
type Record struct {
	ID              int64
	InstanceCode    string
	ApprovalName    string
	Recipient       string
	Subject         string
	AttachmentCount int
	SentAt          time.Time
}

// Store writes delivery records to Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a delivery log backed by the given Postgres pool.
// It ensures the forwarded_approvals table exists on creation.
func NewStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure audit schema: %w", err)
	}
	slog.Info("delivery audit log initialised")
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS forwarded_approvals (
			id               BIGSERIAL PRIMARY KEY,
			instance_code    TEXT NOT NULL,
			approval_name    TEXT NOT NULL,
			recipient        TEXT NOT NULL,
			subject          TEXT NOT NULL,
			attachment_count INT NOT NULL,
			sent_at          TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_forwarded_instance ON forwarded_approvals(instance_code);
		CREATE INDEX IF NOT EXISTS idx_forwarded_sent_at ON forwarded_approvals(sent_at);
	`)
	return err
}

// Record inserts one delivery row.
func (s *Store) Record(ctx context.Context, instanceCode, approvalName, recipient, subject string, attachmentCount int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO forwarded_approvals
			(instance_code, approval_name, recipient, subject, attachment_count)
		VALUES ($1, $2, $3, $4, $5)
	`, instanceCode, approvalName, recipient, subject, attachmentCount)
	return err
}

// ListByInstance returns all deliveries recorded for an instance, oldest first.
func (s *Store) ListByInstance(ctx context.Context, instanceCode string) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, instance_code, approval_name, recipient, subject, attachment_count, sent_at
		FROM forwarded_approvals
		WHERE instance_code = $1
		ORDER BY sent_at
	`, instanceCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(
			&r.ID, &r.InstanceCode, &r.ApprovalName, &r.Recipient,
			&r.Subject, &r.AttachmentCount, &r.SentAt,
		); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
