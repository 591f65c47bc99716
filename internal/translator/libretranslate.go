package translator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// LibreTranslate talks to a LibreTranslate compatible /translate endpoint.
type LibreTranslate struct {
	endpoint string
	apiKey   string
	client   *http.Client
	limiter  *rate.Limiter
}

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText *string `json:"translatedText"`
}

// NewLibreTranslate constructs the adapter.
func NewLibreTranslate(opts Options) *LibreTranslate {
	return &LibreTranslate{
		endpoint: strings.TrimRight(opts.BaseURL, "/") + "/translate",
		apiKey:   opts.APIKey,
		client:   makeHTTPClient(opts.Proxy, opts.Timeout),
		limiter:  newLimiter(opts.RequestsPerSecond),
	}
}

// Translate implements Translator.
func (l *LibreTranslate) Translate(ctx context.Context, text, targetLang string) (string, error) {
	body, err := postJSON(ctx, l.client, l.limiter, l.endpoint, nil, libreRequest{
		Q:      text,
		Source: "auto",
		Target: targetLang,
		Format: "text",
		APIKey: l.apiKey,
	})
	if err != nil {
		return "", err
	}
	var out libreResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", unavailable(fmt.Errorf("decode response: %w", err))
	}
	if out.TranslatedText == nil {
		return "", unavailable(errors.New("response without translatedText"))
	}
	return *out.TranslatedText, nil
}
