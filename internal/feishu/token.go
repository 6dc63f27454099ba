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

package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// tenantTokenSource fetches tenant access tokens from the Feishu auth
// endpoint. Feishu does not speak standard OAuth2 client credentials, so
// this adapts its endpoint to oauth2.TokenSource; caching and refresh come
// from oauth2.ReuseTokenSource.
type tenantTokenSource struct {
	appID     string
	appSecret string
	baseURL   string
}

// NewTokenSource returns a cached token source for the given Feishu app.
// Pass the resulting source to oauth2.NewClient to get an *http.Client that
// attaches a fresh tenant access token to every request.
func NewTokenSource(appID, appSecret, baseURL string) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &tenantTokenSource{
		appID:     appID,
		appSecret: appSecret,
		baseURL:   baseURL,
	})
}

// Token implements oauth2.TokenSource.
func (s *tenantTokenSource) Token() (*oauth2.Token, error) {
	body, err := json.Marshal(map[string]string{
		"app_id":     s.appID,
		"app_secret": s.appSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal token request: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/auth/v3/tenant_access_token/internal", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch tenant access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned HTTP %d", resp.StatusCode)
	}

	var result struct {
		Code              int    `json:"code"`
		Msg               string `json:"msg"`
		TenantAccessToken string `json:"tenant_access_token"`
		Expire            int    `json:"expire"` // seconds
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if result.Code != 0 {
		return nil, fmt.Errorf("token endpoint returned code %d: %s", result.Code, result.Msg)
	}

	// Refresh a few minutes early so in-flight requests never carry an
	// expired token.
	expiry := time.Now().Add(time.Duration(result.Expire) * time.Second).Add(-5 * time.Minute)

	return &oauth2.Token{
		AccessToken: result.TenantAccessToken,
		TokenType:   "Bearer",
		Expiry:      expiry,
	}, nil
}
