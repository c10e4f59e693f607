package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

const defaultHTTPTimeout = 15 * time.Second

// httpParser implements RemoteParser against an external HTTP endpoint that
// proxies the model (e.g. a cloud function).
type httpParser struct {
	endpoint string
	client   *http.Client
}

// NewHTTPParser creates a RemoteParser that POSTs parse requests to endpoint.
func NewHTTPParser(endpoint string, client *http.Client) RemoteParser {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &httpParser{
		endpoint: endpoint,
		client:   client,
	}
}

func (p *httpParser) Parse(ctx context.Context, req ParseRequest) (*ParseResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &RemoteParseError{Code: ErrCodeBadResponse, Message: "failed to encode request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &RemoteParseError{Code: ErrCodeTransport, Message: "failed to build request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &RemoteParseError{Code: ErrCodeTransport, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &RemoteParseError{Code: ErrCodeTransport, Message: "failed to read response", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteParseError{
			Code:    ErrCodeBadStatus,
			Message: "endpoint returned " + resp.Status,
		}
	}

	return decodeParseResponse(data)
}
