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

package form

import (
	"encoding/json"
	"strings"
)

// DefaultCurrency is used when an amount field carries no currency in ext.
const DefaultCurrency = "SEK"

// Field names the extractor recognises. These are the literal labels the
// approval definitions use; the platform sends them verbatim.
var (
	// titleNames: 名称 (payment test forms), 付款事由 (Sweden B2B payment forms)
	titleNames = map[string]bool{"名称": true, "付款事由": true}
	// amountNames: 金额, 付款金额
	amountNames = map[string]bool{"金额": true, "付款金额": true}
	// lineItemName: 报销内容, the per-row description in expense claims
	lineItemName = "报销内容"
)

// Summary is the human-readable digest of one approved instance.
type Summary struct {
	Title  string
	Amount string // free text, may be empty
}

// Extract derives a Summary from an ordered field list in a single pass.
//
// Rules:
//   - Title: first recognised input/textarea field wins; later matches are
//     ignored. If the form has fieldList line items (报销内容), their joined
//     values override any field-level title — for expense claims the line
//     items are the meaningful description.
//   - Amount: a recognised amount field formats as "value currency". A
//     fieldList total (ext amount entry) is used only while the amount is
//     still empty; its sumItems JSON is joined pair-wise, falling back to
//     the entry's raw value when sumItems does not parse.
//   - Fallback title: the instance serial number, then the instance code.
func Extract(fields []Field, serialNumber, instanceCode string) Summary {
	var (
		title           string
		amount          string
		expenseContents []string
	)

	for _, f := range fields {
		switch field := f.(type) {
		case Input:
			if title == "" && titleNames[field.Name] {
				title = strings.TrimSpace(field.Value)
			}

		case Textarea:
			if title == "" && titleNames[field.Name] {
				title = strings.TrimSpace(field.Value)
			}

		case Amount:
			if amountNames[field.Name] {
				currency := field.Currency
				if currency == "" {
					currency = DefaultCurrency
				}
				amount = field.Value + " " + currency
			}

		case FieldList:
			if amount == "" {
				amount = listAmount(field.Ext)
			}
			for _, row := range field.Rows {
				for _, cell := range row {
					if cell.Name == lineItemName && cell.Type == "input" {
						if content := strings.TrimSpace(cell.Value); content != "" {
							expenseContents = append(expenseContents, content)
						}
					}
				}
			}

		case Attachment, Unknown:
			// Attachments are handled separately; unknown types are
			// ignored for forward compatibility.
		}
	}

	if len(expenseContents) > 0 {
		title = strings.Join(expenseContents, "-")
	} else if title == "" {
		title = serialNumber
		if title == "" {
			title = instanceCode
		}
	}

	return Summary{Title: title, Amount: amount}
}

// listAmount extracts the total from a fieldList's ext: the first amount
// entry's sumItems, formatted "value currency" and joined with ", ". When
// sumItems does not parse as JSON the entry's raw value is used instead.
func listAmount(ext []ListExt) string {
	for _, e := range ext {
		if e.Type != "amount" {
			continue
		}
		if e.SumItems == "" {
			return ""
		}

		var sums []struct {
			Value    json.RawMessage `json:"value"`
			Currency string          `json:"currency"`
		}
		if err := json.Unmarshal([]byte(e.SumItems), &sums); err != nil {
			return e.Value
		}

		parts := make([]string, 0, len(sums))
		for _, s := range sums {
			parts = append(parts, flexString(s.Value)+" "+s.Currency)
		}
		return strings.Join(parts, ", ")
	}
	return ""
}
