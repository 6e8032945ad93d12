// Package billsvc is the HTTP client for the external bill-validation
// service. It implements ports.BillValidator; retry policy lives in the
// bill-check service, not here.
package billsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Client calls the bill-validation HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a bill-validation client against baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type validateRequest struct {
	EntryID     string `json:"entry_id"`
	DocumentRef string `json:"document_ref"`
}

type validateResponse struct {
	Verdict string `json:"verdict"` // VALID, INVALID, UNVERIFIABLE
}

// Validate submits one document reference and returns the verdict.
func (c *Client) Validate(ctx context.Context, entryID uuid.UUID, documentRef string) (string, error) {
	payload, err := json.Marshal(validateRequest{
		EntryID:     entryID.String(),
		DocumentRef: documentRef,
	})
	if err != nil {
		return "", fmt.Errorf("marshal validation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/validate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build validation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call bill validation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("bill validation service returned status %d", resp.StatusCode)
	}

	var out validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode validation response: %w", err)
	}
	if out.Verdict == "" {
		return "", fmt.Errorf("bill validation service returned empty verdict")
	}
	return out.Verdict, nil
}
