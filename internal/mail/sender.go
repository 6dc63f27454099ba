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

// Package mail sends approval summaries with attachments via the Resend API.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/shic/approval-relay/internal/attachment"
)

// Sender delivers email through Resend.
type Sender struct {
	client *resend.Client
	from   string
}

// NewSender creates a Resend-backed sender.
func NewSender(apiKey, fromEmail string) *Sender {
	return &Sender{
		client: resend.NewClient(apiKey),
		from:   fromEmail,
	}
}

// Send delivers one message. Attachments are forced to
// application/octet-stream so recipients always get downloadable files
// instead of inlined previews.
func (s *Sender) Send(ctx context.Context, to, subject, body string, files []attachment.File) error {
	attachments := make([]*resend.Attachment, 0, len(files))
	for _, f := range files {
		if f.Content == nil {
			continue
		}
		attachments = append(attachments, &resend.Attachment{
			Filename:    f.Name,
			Content:     f.Content,
			ContentType: "application/octet-stream",
		})
	}

	// Send an HTML variant too — some clients auto-inline images in
	// text-only messages.
	htmlBody := strings.ReplaceAll(body, "\n", "<br>")

	params := &resend.SendEmailRequest{
		From:        s.from,
		To:          []string{to},
		Subject:     subject,
		Text:        body,
		Html:        fmt.Sprintf("<html><body><p>%s</p></body></html>", htmlBody),
		Attachments: attachments,
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}

	slog.Info("email sent",
		"to", to,
		"subject", subject,
		"attachments", len(attachments),
		"message_id", sent.Id,
	)
	return nil
}
