package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"datablocks/internal/ingest"
)

// ── HTTP Source ─────────────────────────────────────────────
// Fetches records from a JSON REST endpoint.

type httpSource struct {
	client *http.Client
}

func init() {
	ingest.RegisterSource(&httpSource{client: &http.Client{Timeout: 30 * time.Second}})
}

func (s *httpSource) Spec() ingest.SourceSpec {
	return ingest.SourceSpec{
		Type:  ingest.TypeHTTP,
		Label: "HTTP API",
		ConfigFields: []ingest.ConfigField{
			{Key: "url", Label: "URL", Required: true, Help: "Full URL to fetch"},
			{Key: "method", Label: "Method", Default: "GET"},
			{Key: "headers", Label: "Headers", Help: "JSON object of headers (e.g., {\"Authorization\": \"Bearer xxx\"})"},
			{Key: "body", Label: "Body", Help: "Request body (for POST)"},
			{Key: "dataPath", Label: "Data Path", Help: "Dot-separated path to the array in the response (e.g., 'data.items')"},
		},
	}
}

func (s *httpSource) Load(ctx context.Context, cfg ingest.SourceConfig) (any, error) {
	url := cfg.String("url")
	if url == "" {
		return nil, fmt.Errorf("url is required")
	}
	method := cfg.String("method")
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	if body := cfg.String("body"); body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if headersStr := cfg.String("headers"); headersStr != "" {
		var headers map[string]string
		if err := json.Unmarshal([]byte(headersStr), &headers); err != nil {
			return nil, fmt.Errorf("parse headers: %w", err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	var raw any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if dataPath := cfg.String("dataPath"); dataPath != "" {
		raw, err = navigatePath(raw, dataPath)
		if err != nil {
			return nil, err
		}
	}
	return toRecords(raw), nil
}
