package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/spacesedan/instalens/config"
	"github.com/spacesedan/instalens/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// CaptureClient fetches raw captures from the capture service. When client
// credentials are configured every request carries an OAuth2 bearer token.
type CaptureClient struct {
	Config  *clientcredentials.Config
	Client  *http.Client
	baseURL string
	backoff time.Duration
	mu      sync.Mutex
}

func NewCaptureClient(cfg config.CaptureConfig) *CaptureClient {
	cc := &CaptureClient{
		baseURL: cfg.BaseURL,
		backoff: INITIAL_BACKOFF,
	}

	if cfg.TokenURL != "" {
		cc.Config = &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
	}
	cc.RefreshClient()

	return cc
}

func (cc *CaptureClient) RefreshClient() {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if cc.Config == nil {
		cc.Client = &http.Client{Timeout: 2 * time.Minute}
		return
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: 30 * time.Second})
	cc.Client = cc.Config.Client(ctx)
}

func (cc *CaptureClient) httpClient() *http.Client {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.Client
}

// FetchCapture retrieves every post the account published between from and
// to, both inclusive.
func (cc *CaptureClient) FetchCapture(ctx context.Context, handle string, from, to civil.Date) (models.RawCapture, error) {
	var capture models.RawCapture

	endpoint, err := url.Parse(fmt.Sprintf("%s/v1/accounts/%s/capture", cc.baseURL, url.PathEscape(handle)))
	if err != nil {
		return capture, fmt.Errorf("[CaptureClient] Failed to parse URL: %w", err)
	}
	query := endpoint.Query()
	query.Add("from", from.String())
	query.Add("to", to.String())
	endpoint.RawQuery = query.Encode()

	body, err := cc.get(ctx, endpoint.String())
	if err != nil {
		return capture, err
	}

	if err := json.Unmarshal(body, &capture); err != nil {
		return capture, fmt.Errorf("[CaptureClient] Failed to decode capture: %w", err)
	}
	if capture.Handle == "" {
		capture.Handle = handle
	}
	if capture.From == nil && capture.To == nil {
		capture.From, capture.To = &from, &to
	}

	slog.Info("[CaptureClient] Fetched capture",
		slog.String("handle", handle),
		slog.String("source", capture.Source),
		slog.Int("posts", len(capture.Posts)))

	return capture, nil
}

func (cc *CaptureClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	backoff := cc.backoff
	refreshed := false

	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", USER_AGENT)
		req.Header.Set("Accept", "application/json")

		resp, err := cc.httpClient().Do(req)
		if err != nil {
			return nil, fmt.Errorf("[CaptureClient] request failed: %w", err)
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, readErr
		case resp.StatusCode == http.StatusUnauthorized && !refreshed:
			slog.Warn("[CaptureClient] Token expired - Refreshing and Retrying...")
			cc.RefreshClient()
			refreshed = true
			continue
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			slog.Warn("[CaptureClient] Retrying request",
				slog.Int("attempt", attempt),
				slog.Int("status", resp.StatusCode),
				slog.Duration("backoff", backoff))
		default:
			return nil, fmt.Errorf("[CaptureClient] unexpected status code %d", resp.StatusCode)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > MAX_BACKOFF {
			backoff = MAX_BACKOFF
		}
	}

	return nil, fmt.Errorf("[CaptureClient] Max retries reached request failed")
}
