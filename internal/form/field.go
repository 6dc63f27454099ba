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

// Package form parses Feishu approval form JSON and derives a human-readable
// summary (title, amount) from it. The form is an ordered list of fields
// whose shape depends on a "type" discriminant; each known type is decoded
// into its own variant so the extractor can switch over them exhaustively,
// and anything else lands in Unknown.
package form

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Field is one entry in an approval form. Concrete types: Input, Textarea,
// Amount, FieldList, Attachment, Unknown.
type Field interface {
	isField()
}

// Input is a single-line free-text field.
type Input struct {
	Name  string
	Value string
}

// Textarea is a multi-line free-text field.
type Textarea struct {
	Name  string
	Value string
}

// Amount is a monetary field. Currency comes from ext.currency when ext is
// an object; it is empty otherwise and the extractor applies the default.
type Amount struct {
	Name     string
	Value    string
	Currency string
}

// Cell is one cell inside a FieldList row.
type Cell struct {
	Name  string
	Type  string
	Value string
}

// ListExt is one entry of a FieldList's ext array. For amount entries,
// SumItems is itself a JSON-encoded array of {value, currency} pairs.
type ListExt struct {
	Type     string
	Value    string
	SumItems string
}

// FieldList is a nested repeating-row structure (expense claims use it: one
// row per line item).
type FieldList struct {
	Name string
	Rows [][]Cell
	Ext  []ListExt
}

// Attachment is a file-bearing field. Values are download URLs; Names holds
// the parallel file names when the platform supplies them.
type Attachment struct {
	Name      string
	URLs      []string
	FileNames []string
}

// Unknown is the catch-all for field types this service does not handle.
// The extractor ignores it, which keeps new platform field types from
// breaking existing forms.
type Unknown struct {
	Type string
	Name string
}

func (Input) isField()      {}
func (Textarea) isField()   {}
func (Amount) isField()     {}
func (FieldList) isField()  {}
func (Attachment) isField() {}
func (Unknown) isField()    {}

// fieldHead is the shape every form entry shares; value and ext are decoded
// per type.
type fieldHead struct {
	Type  string          `json:"type"`
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
	Ext   json.RawMessage `json:"ext"`
}

// ParseFields decodes a raw form string into its ordered field list.
func ParseFields(formJSON string) ([]Field, error) {
	var heads []fieldHead
	if err := json.Unmarshal([]byte(formJSON), &heads); err != nil {
		return nil, fmt.Errorf("decode form: %w", err)
	}

	fields := make([]Field, 0, len(heads))
	for _, h := range heads {
		fields = append(fields, decodeField(h))
	}
	return fields, nil
}

func decodeField(h fieldHead) Field {
	switch h.Type {
	case "input":
		return Input{Name: h.Name, Value: flexString(h.Value)}
	case "textarea":
		return Textarea{Name: h.Name, Value: flexString(h.Value)}
	case "amount":
		return Amount{
			Name:     h.Name,
			Value:    flexString(h.Value),
			Currency: extCurrency(h.Ext),
		}
	case "fieldList":
		return FieldList{
			Name: h.Name,
			Rows: decodeRows(h.Value),
			Ext:  decodeListExt(h.Ext),
		}
	case "attachment", "attachmentV2":
		return Attachment{
			Name:      h.Name,
			URLs:      decodeURLs(h.Value),
			FileNames: decodeFileNames(h.Ext),
		}
	default:
		return Unknown{Type: h.Type, Name: h.Name}
	}
}

// flexString decodes a JSON value that the platform sometimes sends as a
// string and sometimes as a bare number.
func flexString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// extCurrency reads ext.currency when ext is an object. Any other shape
// (array, string, absent) yields "".
func extCurrency(raw json.RawMessage) string {
	var ext struct {
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(raw, &ext); err != nil {
		return ""
	}
	return ext.Currency
}

// decodeRows parses a fieldList value: an array of rows, each row an array
// of cells. Non-list shapes are ignored.
func decodeRows(raw json.RawMessage) [][]Cell {
	var rawRows [][]fieldHead
	if err := json.Unmarshal(raw, &rawRows); err != nil {
		return nil
	}

	rows := make([][]Cell, 0, len(rawRows))
	for _, rawRow := range rawRows {
		row := make([]Cell, 0, len(rawRow))
		for _, c := range rawRow {
			row = append(row, Cell{
				Name:  c.Name,
				Type:  c.Type,
				Value: flexString(c.Value),
			})
		}
		rows = append(rows, row)
	}
	return rows
}

// decodeListExt parses a fieldList ext: expected to be an array of summary
// entries. Non-array shapes are ignored.
func decodeListExt(raw json.RawMessage) []ListExt {
	var rawExt []struct {
		Type     string          `json:"type"`
		Value    json.RawMessage `json:"value"`
		SumItems string          `json:"sumItems"`
	}
	if err := json.Unmarshal(raw, &rawExt); err != nil {
		return nil
	}

	ext := make([]ListExt, 0, len(rawExt))
	for _, e := range rawExt {
		ext = append(ext, ListExt{
			Type:     e.Type,
			Value:    flexString(e.Value),
			SumItems: e.SumItems,
		})
	}
	return ext
}

// decodeURLs parses an attachment value. Entries are usually plain URL
// strings; some payloads wrap them in objects with a "url" key.
func decodeURLs(raw json.RawMessage) []string {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}

	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		var s string
		if err := json.Unmarshal(e, &s); err == nil {
			if s != "" {
				urls = append(urls, s)
			}
			continue
		}
		var obj struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(e, &obj); err == nil && obj.URL != "" {
			urls = append(urls, obj.URL)
		}
	}
	return urls
}

// decodeFileNames parses attachment ext as a list of file names.
func decodeFileNames(raw json.RawMessage) []string {
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil
	}
	return names
}
