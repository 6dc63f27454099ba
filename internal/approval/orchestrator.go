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

// Package approval orchestrates the processing of one admitted approval
// instance: fetch the detail, derive the summary, download attachments, and
// forward everything by email.
package approval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shic/approval-relay/internal/attachment"
	"github.com/shic/approval-relay/internal/feishu"
	"github.com/shic/approval-relay/internal/form"
	"github.com/shic/approval-relay/internal/routing"
)

// Outcome classifies how processing one instance ended. Everything except
// OutcomeSent is an expected no-op, not an error.
type Outcome int

const (
	// OutcomeSent — the summary email went out.
	OutcomeSent Outcome = iota
	// OutcomeNoRoute — the approval name has no destination configured.
	OutcomeNoRoute
	// OutcomeNoAttachments — the form referenced no attachments.
	OutcomeNoAttachments
	// OutcomeNoneDownloaded — references existed but none could be fetched.
	OutcomeNoneDownloaded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeNoRoute:
		return "no_route"
	case OutcomeNoAttachments:
		return "no_attachments"
	case OutcomeNoneDownloaded:
		return "none_downloaded"
	default:
		return "unknown"
	}
}

// InstanceFetcher retrieves approval instance details.
// Implemented by feishu.Client.
type InstanceFetcher interface {
	GetInstance(ctx context.Context, instanceCode string) (*feishu.Instance, error)
}

// AttachmentService extracts and downloads form attachments.
// Implemented by attachment.Service.
type AttachmentService interface {
	ExtractRefs(formJSON string) ([]attachment.Ref, error)
	Download(ctx context.Context, refs []attachment.Ref) []attachment.File
}

// EmailSender delivers the final message. Implemented by mail.Sender.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string, files []attachment.File) error
}

// DeliveryLog records forwarded approvals. Implemented by audit.Store;
// may be nil when no database is configured.
type DeliveryLog interface {
	Record(ctx context.Context, instanceCode, approvalName, recipient, subject string, attachmentCount int) error
}

// Orchestrator drives the fetch → extract → download → send sequence for
// admitted, approved instances.
type Orchestrator struct {
	fetcher     InstanceFetcher
	attachments AttachmentService
	sender      EmailSender
	routes      *routing.Table
	log         DeliveryLog
}

// Config holds the orchestrator's collaborators.
type Config struct {
	Fetcher     InstanceFetcher
	Attachments AttachmentService
	Sender      EmailSender
	Routes      *routing.Table
	Log         DeliveryLog // optional
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		fetcher:     cfg.Fetcher,
		attachments: cfg.Attachments,
		sender:      cfg.Sender,
		routes:      cfg.Routes,
		log:         cfg.Log,
	}
}

// Process handles one approved instance end to end. No-op outcomes are
// returned without error; collaborator failures propagate to the caller,
// which logs them and lets the unit die — there is no retry at this layer.
func (o *Orchestrator) Process(ctx context.Context, instanceCode string) (Outcome, error) {
	instance, err := o.fetcher.GetInstance(ctx, instanceCode)
	if err != nil {
		return 0, fmt.Errorf("fetch instance %s: %w", instanceCode, err)
	}

	target, ok := o.routes.Lookup(instance.ApprovalName)
	if !ok {
		slog.Info("approval name not routed, skipping",
			"instance", instanceCode,
			"approval_name", instance.ApprovalName,
		)
		return OutcomeNoRoute, nil
	}

	fields, err := form.ParseFields(instance.Form)
	if err != nil {
		return 0, fmt.Errorf("parse form of %s: %w", instanceCode, err)
	}
	summary := form.Extract(fields, instance.SerialNumber, instanceCode)

	refs, err := o.attachments.ExtractRefs(instance.Form)
	if err != nil {
		return 0, fmt.Errorf("extract attachments of %s: %w", instanceCode, err)
	}
	if len(refs) == 0 {
		slog.Info("no attachments in form, skipping",
			"instance", instanceCode,
			"approval_name", instance.ApprovalName,
		)
		return OutcomeNoAttachments, nil
	}

	files := o.attachments.Download(ctx, refs)
	if len(files) == 0 {
		slog.Warn("no attachments could be downloaded, skipping",
			"instance", instanceCode,
			"refs", len(refs),
		)
		return OutcomeNoneDownloaded, nil
	}

	subject := fmt.Sprintf("[%s]-%s", instance.ApprovalName, stripLineBreaks(summary.Title))
	body := fmt.Sprintf(
		"审批已通过\n\n审批类型: %s\n审批标题: %s\n审批金额: %s\n附件数量: %d\n",
		instance.ApprovalName, summary.Title, summary.Amount, len(files),
	)

	if err := o.sender.Send(ctx, target, subject, body, files); err != nil {
		return 0, fmt.Errorf("send summary of %s: %w", instanceCode, err)
	}

	if o.log != nil {
		if err := o.log.Record(ctx, instanceCode, instance.ApprovalName, target, subject, len(files)); err != nil {
			// The email is already out — an audit miss is log-worthy, not fatal.
			slog.Warn("failed to record delivery",
				"instance", instanceCode,
				"error", err,
			)
		}
	}

	slog.Info("approval forwarded",
		"instance", instanceCode,
		"approval_name", instance.ApprovalName,
		"to", target,
		"attachments", len(files),
	)
	return OutcomeSent, nil
}

// stripLineBreaks flattens a title for use in a subject line.
func stripLineBreaks(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", "")
}
