package translator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"golang.org/x/time/rate"
)

const defaultOpenAIModel = "gpt-4o-mini"

const chatSystemPrompt = `You are a professional document translator. Detect the language of the user's text automatically and translate it into %s.
Reply with the translated text only. Preserve line breaks. Do not add explanations, quotes or code fences.`

// OpenAIChat uses an OpenAI compatible chat/completions endpoint as the
// translation backend.
type OpenAIChat struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
	limiter  *rate.Limiter
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewOpenAIChat constructs the adapter.
func NewOpenAIChat(opts Options) *OpenAIChat {
	model := opts.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIChat{
		endpoint: strings.TrimRight(opts.BaseURL, "/") + "/chat/completions",
		apiKey:   opts.APIKey,
		model:    model,
		client:   makeHTTPClient(opts.Proxy, opts.Timeout),
		limiter:  newLimiter(opts.RequestsPerSecond),
	}
}

// Translate implements Translator.
func (o *OpenAIChat) Translate(ctx context.Context, text, targetLang string) (string, error) {
	headers := map[string]string{}
	if o.apiKey != "" {
		headers["Authorization"] = "Bearer " + o.apiKey
	}
	body, err := postJSON(ctx, o.client, o.limiter, o.endpoint, headers, chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(chatSystemPrompt, languageName(targetLang))},
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return "", err
	}
	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", unavailable(fmt.Errorf("decode response: %w", err))
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == nil {
		return "", unavailable(errors.New("response without choices"))
	}
	return *out.Choices[0].Message.Content, nil
}

// languageName renders "es" as "Spanish (es)" for the prompt.
func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		return code
	}
	return fmt.Sprintf("%s (%s)", name, code)
}
