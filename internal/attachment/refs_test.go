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

package attachment

import (
	"context"
	"fmt"
	"testing"
)

// TestExtractRefs_TopLevel verifies extraction from a plain attachment field,
// with ext file names paired to URLs.
func TestExtractRefs_TopLevel(t *testing.T) {
	formJSON := `[
		{"type": "input", "name": "付款事由", "value": "invoices"},
		{"type": "attachmentV2", "name": "附件",
			"value": ["https://files.example.com/v1/abc?token=x", "https://files.example.com/v1/def.pdf"],
			"ext": ["invoice-march.pdf"]}
	]`

	refs, err := ExtractRefs(formJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(refs) != 2 {
		t.Fatalf("expected 2 refs, got %d", len(refs))
	}
	if refs[0].Name != "invoice-march.pdf" {
		t.Errorf("refs[0].Name = %q, want ext file name", refs[0].Name)
	}
	if refs[1].Name != "def.pdf" {
		t.Errorf("refs[1].Name = %q, want URL path base", refs[1].Name)
	}
	if refs[0].URL != "https://files.example.com/v1/abc?token=x" {
		t.Errorf("refs[0].URL = %q", refs[0].URL)
	}
}

// TestExtractRefs_InsideFieldList verifies that attachment cells nested in
// fieldList rows are collected, preserving row order.
func TestExtractRefs_InsideFieldList(t *testing.T) {
	formJSON := `[
		{"type": "fieldList", "name": "报销明细", "value": [
			[
				{"type": "input", "name": "报销内容", "value": "hotel"},
				{"type": "attachmentV2", "name": "发票", "value": ["https://files.example.com/r1.pdf"]}
			],
			[
				{"type": "input", "name": "报销内容", "value": "taxi"},
				{"type": "attachment", "name": "发票", "value": ["https://files.example.com/r2.pdf"]}
			]
		]}
	]`

	refs, err := ExtractRefs(formJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(refs) != 2 {
		t.Fatalf("expected 2 refs, got %d", len(refs))
	}
	if refs[0].Name != "r1.pdf" || refs[1].Name != "r2.pdf" {
		t.Errorf("refs out of order: %v", refs)
	}
}

// TestExtractRefs_ObjectEntries verifies the object-wrapped URL shape.
func TestExtractRefs_ObjectEntries(t *testing.T) {
	formJSON := `[
		{"type": "attachment", "name": "附件",
			"value": [{"url": "https://files.example.com/contract.docx", "name": "contract"}]}
	]`

	refs, err := ExtractRefs(formJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(refs) != 1 {
		t.Fatalf("expected 1 ref, got %d", len(refs))
	}
	if refs[0].URL != "https://files.example.com/contract.docx" {
		t.Errorf("URL = %q", refs[0].URL)
	}
}

// TestExtractRefs_NoAttachments verifies an attachment-free form yields an
// empty result, not an error.
func TestExtractRefs_NoAttachments(t *testing.T) {
	refs, err := ExtractRefs(`[{"type": "input", "name": "付款事由", "value": "t"}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("expected no refs, got %d", len(refs))
	}
}

// TestExtractRefs_MalformedForm verifies the parse error propagates.
func TestExtractRefs_MalformedForm(t *testing.T) {
	if _, err := ExtractRefs("{broken"); err == nil {
		t.Error("expected error for malformed form")
	}
}

// fakeDownloader fails for URLs in the fail set.
type fakeDownloader struct {
	fail map[string]bool
}

func (f *fakeDownloader) DownloadFile(_ context.Context, url string) ([]byte, error) {
	if f.fail[url] {
		return nil, fmt.Errorf("boom")
	}
	return []byte("content of " + url), nil
}

// TestDownload_DropsFailures verifies that failed downloads are dropped
// without failing the batch.
func TestDownload_DropsFailures(t *testing.T) {
	svc := NewService(&fakeDownloader{fail: map[string]bool{"u2": true}})

	files := svc.Download(context.Background(), []Ref{
		{Name: "a.pdf", URL: "u1"},
		{Name: "b.pdf", URL: "u2"},
		{Name: "c.pdf", URL: "u3"},
	})

	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].Name != "a.pdf" || files[1].Name != "c.pdf" {
		t.Errorf("unexpected files: %v, %v", files[0].Name, files[1].Name)
	}
	if string(files[0].Content) != "content of u1" {
		t.Errorf("content = %q", files[0].Content)
	}
}

// TestDownload_AllFail verifies an empty result when nothing downloads.
func TestDownload_AllFail(t *testing.T) {
	svc := NewService(&fakeDownloader{fail: map[string]bool{"u1": true}})

	files := svc.Download(context.Background(), []Ref{{Name: "a", URL: "u1"}})
	if len(files) != 0 {
		t.Errorf("expected 0 files, got %d", len(files))
	}
}
