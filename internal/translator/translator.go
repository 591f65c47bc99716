// Package translator defines the translation capability used by the
// processors and the HTTP adapters for the supported backends.
package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrUnavailable wraps every transport, protocol or decoding failure of a
// translation backend.
var ErrUnavailable = errors.New("translation service unavailable")

// Provider names accepted by New.
const (
	ProviderLibreTranslate = "libretranslate"
	ProviderOpenAI         = "openai"
)

const maxResponseBytes = 16 << 20

// Translator translates text into targetLang. The source language is always
// detected by the backend.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// Func adapts a plain function to the Translator interface.
type Func func(ctx context.Context, text, targetLang string) (string, error)

// Translate calls f.
func (f Func) Translate(ctx context.Context, text, targetLang string) (string, error) {
	return f(ctx, text, targetLang)
}

// Options configures a backend adapter.
type Options struct {
	Provider string
	BaseURL  string
	APIKey   string
	// Model is only used by OpenAI-compatible backends.
	Model string
	Proxy string
	// Timeout of zero means requests are never cut short.
	Timeout time.Duration
	// RequestsPerSecond of zero disables client side rate limiting.
	RequestsPerSecond float64
}

// New builds the adapter named by opts.Provider.
func New(opts Options) (Translator, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("translator %q: base url required", opts.Provider)
	}
	if err := ValidateProxy(opts.Proxy); err != nil {
		return nil, err
	}
	switch strings.ToLower(opts.Provider) {
	case "", ProviderLibreTranslate:
		return NewLibreTranslate(opts), nil
	case ProviderOpenAI:
		return NewOpenAIChat(opts), nil
	default:
		return nil, fmt.Errorf("unknown translation provider %q", opts.Provider)
	}
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// ValidateProxy reports whether proxyURL can be used as an HTTP proxy. An
// empty value means the environment's proxy settings apply.
func ValidateProxy(proxyURL string) error {
	if proxyURL == "" {
		return nil
	}
	u, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("invalid proxy url: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "socks5":
	default:
		return fmt.Errorf("invalid proxy url %q: unsupported scheme %q", proxyURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid proxy url %q: missing host", proxyURL)
	}
	return nil
}

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// postJSON sends payload and returns the body of a 2xx response. Any other
// outcome is reported as ErrUnavailable.
func postJSON(ctx context.Context, client *http.Client, limiter *rate.Limiter, endpoint string, headers map[string]string, payload any) ([]byte, error) {
	if err := limiter.Wait(ctx); err != nil {
		return nil, unavailable(fmt.Errorf("rate limiter: %w", err))
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, unavailable(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, unavailable(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, unavailable(fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, unavailable(fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(respBody), 500)))
	}
	return respBody, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
