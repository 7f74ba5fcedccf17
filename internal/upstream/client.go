package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"gembiz2api/gateway/internal/account"
	"gembiz2api/gateway/internal/logger"
	jsonpkg "gembiz2api/gateway/internal/pkg/json"
)

const chatPath = "/api/chat"

// Client talks to the Gemini Business chat API on behalf of a leased
// account. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(baseURL, proxy string, timeout time.Duration) *Client {
	transport := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     false,
	}

	if proxy != "" {
		if proxyURL, err := url.Parse(proxy); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		baseURL: baseURL,
	}
}

func buildHeaders(lease *account.Lease, bearer string) http.Header {
	creds := lease.Credentials
	return http.Header{
		"Content-Type":  {"application/json"},
		"Authorization": {"Bearer " + bearer},
		"User-Agent":    {creds.UserAgent},
		"Cookie": {fmt.Sprintf("__Secure-c-SES=%s; __Host-c-OSES=%s; csesidx=%s",
			creds.SecureSES, creds.HostOSES, creds.SessionIndex)},
	}
}

// SendMessage posts one chat turn and returns the full reply. Non-200
// replies surface as *APIError with the upstream status.
func (c *Client) SendMessage(ctx context.Context, lease *account.Lease, bearer string, req *ChatRequest) (*ChatResponse, error) {
	if req.TeamID == "" {
		req.TeamID = lease.AccountID
	}

	body, err := jsonpkg.Marshal(req)
	if err != nil {
		return nil, err
	}

	reqURL := c.baseURL + chatPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for key, values := range buildHeaders(lease, bearer) {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	logger.Upstream(http.MethodPost, reqURL, resp.StatusCode, time.Since(startTime))

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: truncate(string(respBody), 512)}
	}

	var out ChatResponse
	if err := jsonpkg.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
