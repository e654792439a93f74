package groq

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-assistant/core/assistant"
	"github.com/koscakluka/ema-assistant/core/llms"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultURL   = "https://api.groq.com/openai/v1/chat/completions"
	DefaultModel = "openai/gpt-oss-20b"
	apiKeyEnv    = "GROQ_API_KEY"

	defaultInstructions = `You are a voice assistant. Answer in one to three short spoken sentences
without markdown. When a table, list or other visual aid helps, also return it as a small
self-contained HTML fragment in "html", otherwise leave "html" empty. Set
"continue_conversation" to true only when you asked the user a question and expect an answer.`
)

var (
	ErrMissingAPIKey = errors.New("groq api key not found")
	ErrRequestFailed = errors.New("groq request failed")
	ErrNoChoices     = errors.New("groq returned no choices")
)

// Client answers queries with structured chat completions.
type Client struct {
	apiKey       string
	model        string
	url          string
	instructions string

	httpClient *http.Client
	history    *llms.History
}

type Option func(*Client)

// WithAPIKey sets the API key. Without it the key is read from GROQ_API_KEY.
func WithAPIKey(apiKey string) Option {
	return func(c *Client) { c.apiKey = apiKey }
}

func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithURL points the client at any OpenAI compatible chat completions
// endpoint.
func WithURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.url = url
		}
	}
}

func WithInstructions(instructions string) Option {
	return func(c *Client) {
		if instructions != "" {
			c.instructions = instructions
		}
	}
}

func WithHistoryLimit(limit int) Option {
	return func(c *Client) { c.history = llms.NewHistory(limit) }
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		model:        DefaultModel,
		url:          defaultURL,
		instructions: defaultInstructions,
		httpClient:   &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		history:      llms.NewHistory(llms.DefaultHistoryLimit),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv(apiKeyEnv)
	}
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	return c, nil
}

type structuredResponse struct {
	Text                 string `json:"text" jsonschema_description:"The answer as it should be spoken to the user."`
	HTML                 string `json:"html" jsonschema_description:"Optional HTML fragment shown alongside the spoken answer. Empty when not needed."`
	ContinueConversation bool   `json:"continue_conversation" jsonschema_description:"True when the answer asks the user a question."`
}

// Respond answers query with the recent conversation as context.
func (c *Client) Respond(ctx context.Context, query string) (*assistant.Response, error) {
	ctx, span := tracer.Start(ctx, "respond")
	defer span.End()

	output, err := PromptJSONSchema[structuredResponse](ctx, c, query,
		llms.WithTurns(c.history.Turns()...))
	if err != nil {
		logger.Error("failed to generate response", "error", err)
		return nil, err
	}

	response := &assistant.Response{}
	if err := copier.Copy(response, output); err != nil {
		return nil, recordError(span, fmt.Errorf("error converting response: %w", err))
	}

	c.history.Add(llms.Turn{Query: query, Answer: response.Text})
	return response, nil
}

// ResetHistory forgets earlier turns.
func (c *Client) ResetHistory() {
	c.history.Reset()
}
