package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/koscakluka/ema-assistant/core/llms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PromptJSONSchema asks the model for an answer shaped like T. The schema is
// reflected from T and enforced strictly by the API.
func PromptJSONSchema[T any](
	ctx context.Context,
	c *Client,
	prompt string,
	opts ...llms.StructuredPromptOption,
) (*T, error) {
	ctx, span := tracer.Start(ctx, "prompt llm structured")
	defer span.End()

	options := llms.StructuredPromptOptions{Instructions: c.instructions}
	for _, opt := range opts {
		opt(&options)
	}

	messages := toMessages(options.Instructions, options.Turns)
	messages = append(messages, message{
		Role:    messageRoleUser,
		Content: prompt,
	})

	// TODO: Implement a custom reflector that only satisfies the subset of
	// jsonschema used by groq
	reflector := jsonschema.Reflector{DoNotReference: true}
	outputType := reflect.TypeFor[T]()
	schema := reflector.ReflectFromType(outputType)

	reqBody := schemaRequestBody{
		Model:       c.model,
		Messages:    messages,
		Temperature: options.Temperature,
		ResponseFormat: &ChatResponseFormat{
			Type: "json_schema",
			JSONSchema: &JSONSchema{
				Name:   outputType.Name(),
				Schema: *schema,
				Strict: true,
			},
		},
	}

	span.SetAttributes(attribute.String("request.model", c.model))
	schemaString, _ := schema.MarshalJSON()
	span.SetAttributes(attribute.String("request.schema", string(schemaString)))

	requestBodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("error marshalling JSON: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return nil, recordError(span, fmt.Errorf("error creating HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	span.SetAttributes(attribute.String("request.url", req.URL.String()))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("error sending request: %w", err))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		if errorBody, err := io.ReadAll(resp.Body); err != nil {
			span.RecordError(fmt.Errorf("error reading error body: %w", err))
		} else {
			span.SetAttributes(attribute.String("response.error", string(errorBody)))
		}
		return nil, recordError(span, fmt.Errorf("%w: %s", ErrRequestFailed, resp.Status))
	}

	var responseBody schemaResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&responseBody); err != nil {
		return nil, recordError(span, fmt.Errorf("error decoding response body: %w", err))
	}
	if len(responseBody.Choices) == 0 {
		return nil, recordError(span, ErrNoChoices)
	}
	if responseBody.Usage != nil {
		span.SetAttributes(attribute.Int("response.total_tokens", responseBody.Usage.TotalTokens))
	}

	var output T
	if err := json.Unmarshal([]byte(extractJSON(responseBody.Choices[0].Message.Content)), &output); err != nil {
		return nil, recordError(span, fmt.Errorf("error unmarshalling response: %w", err))
	}

	return &output, nil
}

// extractJSON strips a markdown code fence some models wrap their output in.
func extractJSON(content string) string {
	split := strings.Split(content, "```")
	if len(split) < 3 {
		return content
	}
	fenced := strings.TrimSpace(split[1])
	return strings.TrimPrefix(fenced, "json")
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

type schemaRequestBody struct {
	Model          string              `json:"model"`
	Messages       []message           `json:"messages"`
	Temperature    *float64            `json:"temperature,omitempty"`
	ResponseFormat *ChatResponseFormat `json:"response_format,omitempty"`
}

type ChatResponseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

type JSONSchema struct {
	// Name identifies the schema in the response.
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Schema      jsonschema.Schema `json:"schema"`
	// Strict enforces the schema upon the generated content.
	Strict bool `json:"strict"`
}

type schemaResponseBody struct {
	Choices []struct {
		Message struct {
			Role         string  `json:"role,omitempty"`
			Content      string  `json:"content,omitempty"`
			Reasoning    string  `json:"reasoning,omitempty"`
			FinishReason *string `json:"finish_reason,omitempty"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}
