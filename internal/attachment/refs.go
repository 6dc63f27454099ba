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

// Package attachment extracts attachment references from approval form JSON
// and downloads their content. Extraction is a pure parse; downloading is
// the only part that touches the network.
package attachment

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/shic/approval-relay/internal/form"
)

// Ref points at a remotely stored file before download.
type Ref struct {
	Name string
	URL  string
}

// ExtractRefs collects attachment references from a raw form string, in
// form order. Attachment fields appear both at the top level and inside
// fieldList rows; both are walked.
func ExtractRefs(formJSON string) ([]Ref, error) {
	fields, err := form.ParseFields(formJSON)
	if err != nil {
		return nil, fmt.Errorf("parse form for attachments: %w", err)
	}

	var refs []Ref
	for _, f := range fields {
		switch field := f.(type) {
		case form.Attachment:
			refs = append(refs, buildRefs(field)...)
		case form.FieldList:
			for _, row := range field.Rows {
				for _, cell := range row {
					if cell.Type != "attachment" && cell.Type != "attachmentV2" {
						continue
					}
					for _, u := range cellURLs(cell.Value) {
						refs = append(refs, Ref{
							Name: fileNameFromURL(u),
							URL:  u,
						})
					}
				}
			}
		}
	}
	return refs, nil
}

// buildRefs pairs an attachment field's URLs with file names from ext when
// the platform supplies a matching list, falling back to the URL path base.
func buildRefs(field form.Attachment) []Ref {
	refs := make([]Ref, 0, len(field.URLs))
	for i, u := range field.URLs {
		name := ""
		if i < len(field.FileNames) {
			name = field.FileNames[i]
		}
		if name == "" {
			name = fileNameFromURL(u)
		}
		refs = append(refs, Ref{Name: name, URL: u})
	}
	return refs
}

// cellURLs interprets a row cell's value as either a JSON array of URLs or a
// single URL string. Attachment cells inside fieldList rows use both shapes.
func cellURLs(value string) []string {
	if value == "" {
		return nil
	}
	if strings.HasPrefix(value, "[") {
		var urls []string
		if err := json.Unmarshal([]byte(value), &urls); err == nil {
			return urls
		}
	}
	return []string{value}
}

// fileNameFromURL derives a display name from the URL path, ignoring query
// parameters (Feishu attachment URLs carry signing tokens in the query).
func fileNameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "attachment"
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return "attachment"
	}
	return name
}
