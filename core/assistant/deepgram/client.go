package deepgram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-assistant/core/assistant"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultBaseURL     = "https://api.deepgram.com"
	defaultListenModel = "nova-3"
	apiKeyEnv          = "DEEPGRAM_API_KEY"

	defaultKeepAliveInterval = 5 * time.Second
)

var (
	ErrMissingAPIKey     = errors.New("deepgram api key not found")
	ErrNoResponder       = errors.New("no responder configured")
	ErrInvalidVoice      = errors.New("invalid voice")
	ErrUnauthorized      = errors.New("deepgram rejected the api key")
	errConversationEnded = errors.New("conversation ended")
)

// Client opens conversations backed by Deepgram speech recognition and speech
// synthesis, with answers generated by a [assistant.Responder].
type Client struct {
	apiKey      string
	baseURL     *url.URL
	voice       Voice
	listenModel string
	responder   assistant.Responder

	keepAliveInterval time.Duration

	httpClient *http.Client
	dialer     *websocket.Dialer
}

type ClientOption func(*Client)

// WithAPIKey sets the API key. Without it the key is read from
// DEEPGRAM_API_KEY.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) { c.apiKey = apiKey }
}

func WithVoice(voice Voice) ClientOption {
	return func(c *Client) { c.voice = voice }
}

func WithListenModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.listenModel = model
		}
	}
}

func WithResponder(responder assistant.Responder) ClientOption {
	return func(c *Client) { c.responder = responder }
}

// WithBaseURL points the client at a different API host. Websocket URLs are
// derived from it.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if u, err := url.Parse(baseURL); err == nil {
			c.baseURL = u
		}
	}
}

func WithKeepAliveInterval(interval time.Duration) ClientOption {
	return func(c *Client) {
		if interval > 0 {
			c.keepAliveInterval = interval
		}
	}
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewClient(opts ...ClientOption) (*Client, error) {
	baseURL, _ := url.Parse(defaultBaseURL)
	c := &Client{
		baseURL:           baseURL,
		voice:             defaultVoice,
		listenModel:       defaultListenModel,
		keepAliveInterval: defaultKeepAliveInterval,
		httpClient:        &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		dialer:            &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
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
	if !slices.Contains(AvailableVoices(), c.voice) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidVoice, c.voice)
	}

	return c, nil
}

// Connect checks the API key against the projects endpoint.
func (c *Client) Connect(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "connect deepgram")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.httpURL("/v1/projects").String(), nil)
	if err != nil {
		err = fmt.Errorf("error creating HTTP request: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("error sending request: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		err = ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		err = fmt.Errorf("non-OK HTTP status: %s", resp.Status)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Start opens a conversation. An utterance is spoken, a text query is
// answered and spoken, anything else listens to audio written to the
// conversation until the user stops speaking.
func (c *Client) Start(ctx context.Context, opts ...assistant.ConversationOption) (assistant.Conversation, error) {
	options := assistant.NewConversationOptions(opts...)
	if options.Utterance == "" && c.responder == nil {
		return nil, ErrNoResponder
	}

	conv := newConversation(ctx, c, options)
	switch {
	case options.Utterance != "":
		go conv.speak(options.Utterance, false)
	case options.TextQuery != "":
		go conv.respond(conv.ctx, options.TextQuery)
	default:
		if err := conv.listen(); err != nil {
			conv.cancel()
			return nil, err
		}
	}
	return conv, nil
}

func (c *Client) httpURL(path string) *url.URL {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return &u
}

func (c *Client) websocketURL(path string, query url.Values) *url.URL {
	u := c.httpURL(path)
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.RawQuery = query.Encode()
	return u
}

func (c *Client) dial(ctx context.Context, u *url.URL) (*websocket.Conn, error) {
	conn, _, err := c.dialer.DialContext(ctx, u.String(), http.Header{"Authorization": {"Token " + c.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return conn, nil
}
