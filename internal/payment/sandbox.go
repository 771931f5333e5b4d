package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// SandboxProvider talks to an HTTP payment sandbox. Production deployments
// swap in a real processor behind the same interface.
type SandboxProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func (p *SandboxProvider) httpClient() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// Charge posts the charge request and decodes the normalised result.
func (p *SandboxProvider) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if p == nil || p.BaseURL == "" {
		return ChargeResult{}, errors.New("payment provider not configured")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return ChargeResult{}, fmt.Errorf("encode charge request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/v1/charges", bytes.NewReader(body))
	if err != nil {
		return ChargeResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
	resp, err := p.httpClient().Do(httpReq)
	if err != nil {
		return ChargeResult{}, fmt.Errorf("charge request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		return ChargeResult{}, fmt.Errorf("payment provider unavailable: %s", resp.Status)
	}
	var out ChargeResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ChargeResult{}, fmt.Errorf("decode charge response: %w", err)
	}
	return out, nil
}
