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

// Package feishu provides a client for the Feishu open platform: approval
// instance details, attachment downloads, and approval event subscriptions.
package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// DefaultBaseURL is the root of the Feishu open API.
const DefaultBaseURL = "https://open.feishu.cn/open-apis"

// Instance holds the fields of an approval instance the relay cares about.
type Instance struct {
	ApprovalName string `json:"approval_name"`
	Form         string `json:"form"` // JSON-encoded ordered field list
	SerialNumber string `json:"serial_number"`
	Status       string `json:"status"`
}

// Client talks to the Feishu open API. The httpClient must already handle
// authentication (via the oauth2 token source in this package).
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Feishu API client.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// GetInstance fetches the detail of one approval instance.
func (c *Client) GetInstance(ctx context.Context, instanceCode string) (*Instance, error) {
	url := fmt.Sprintf("%s/approval/v4/instances/%s", c.baseURL, instanceCode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch approval instance: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("approval API returned HTTP %d for instance %s", resp.StatusCode, instanceCode)
	}

	var result struct {
		Code int      `json:"code"`
		Msg  string   `json:"msg"`
		Data Instance `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode instance response: %w", err)
	}
	if result.Code != 0 {
		return nil, fmt.Errorf("approval API returned code %d for instance %s: %s", result.Code, instanceCode, result.Msg)
	}

	return &result.Data, nil
}

// DownloadFile fetches attachment bytes from a form attachment URL.
func (c *Client) DownloadFile(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("attachment download returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read attachment body: %w", err)
	}
	return data, nil
}

// Subscribe registers this app for events of one approval definition.
// Registration is required once per definition before Feishu starts
// delivering its instance events.
func (c *Client) Subscribe(ctx context.Context, definitionCode string) error {
	body, err := json.Marshal(map[string]string{
		"definition_code": definitionCode,
	})
	if err != nil {
		return fmt.Errorf("marshal subscribe request: %w", err)
	}

	url := c.baseURL + "/approval/openapi/v1/subscription/subscribe"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build subscribe request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode subscribe response: %w", err)
	}
	if result.Code != 0 {
		return fmt.Errorf("subscribe %s returned code %d: %s", definitionCode, result.Code, result.Msg)
	}

	return nil
}
