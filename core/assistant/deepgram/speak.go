package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-assistant/core/assistant"
	"go.opentelemetry.io/otel/attribute"
)

type speakTextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

var (
	flushMsg = controlMessage{Type: "Flush"}
	closeMsg = controlMessage{Type: "Close"}
)

func (c *conversation) respond(ctx context.Context, query string) {
	ctx, span := tracer.Start(ctx, "respond")
	defer span.End()

	response, err := c.client.responder.Respond(ctx, query)
	if err != nil {
		c.fail(span, fmt.Errorf("failed to generate response: %w", err))
		return
	}
	span.SetAttributes(attribute.Bool("response.continue_conversation", response.ContinueConversation))

	if response.HTML != "" {
		c.emit(func() {
			c.options.ScreenDataCallback(assistant.ScreenData{
				Format: assistant.ScreenDataFormatHTML,
				Data:   []byte(response.HTML),
			})
		})
	}
	if response.Text == "" {
		c.end(assistant.EndedReport{ContinueConversation: response.ContinueConversation})
		return
	}

	c.emit(func() { c.options.ResponseCallback(response.Text) })
	c.speakContext(ctx, response.Text, response.ContinueConversation)
}

func (c *conversation) speak(text string, continueConversation bool) {
	c.speakContext(c.ctx, text, continueConversation)
}

// speakContext synthesises text and ends the conversation once the audio has
// been delivered.
func (c *conversation) speakContext(ctx context.Context, text string, continueConversation bool) {
	ctx, span := tracer.Start(ctx, "speak")
	defer span.End()

	encoding, err := convertEncoding(c.options.OutputEncoding)
	if err != nil {
		c.fail(span, fmt.Errorf("invalid output encoding: %w", err))
		return
	}

	query := url.Values{}
	query.Set("encoding", encoding.Format)
	query.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	query.Set("model", string(c.client.voice))
	query.Set("container", "none")

	conn, err := c.client.dial(ctx, c.client.websocketURL("/v1/speak", query))
	if err != nil {
		c.fail(span, err)
		return
	}

	c.speakMu.Lock()
	if c.ended.Load() {
		c.speakMu.Unlock()
		_ = conn.Close()
		return
	}
	c.speakConn = conn
	c.speakMu.Unlock()

	if err := c.writeSpeak(speakTextMessage{Type: "Speak", Text: text}); err != nil {
		c.fail(span, err)
		return
	}
	if err := c.writeSpeak(flushMsg); err != nil {
		c.fail(span, err)
		return
	}

	report := assistant.EndedReport{ContinueConversation: continueConversation}
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || c.ctx.Err() != nil {
				c.end(report)
				return
			}
			c.fail(span, fmt.Errorf("failed to read deepgram speak message: %w", err))
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if len(msg) > 0 {
				c.emit(func() { c.options.AudioCallback(msg) })
			}
		case websocket.TextMessage:
			var parsedMsg controlMessage
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				logger.Warn("failed to unmarshal deepgram message", "error", err)
				continue
			}
			switch parsedMsg.Type {
			case "Flushed":
				if err := c.writeSpeak(closeMsg); err != nil {
					logger.Debug("failed to close deepgram speak stream", "error", err)
				}
				c.end(report)
				return
			case "Warning", "Error":
				logger.Warn("deepgram speak stream reported a problem", "message", string(msg))
			}
		}
	}
}

func (c *conversation) writeSpeak(msg any) error {
	c.speakMu.Lock()
	defer c.speakMu.Unlock()
	if c.speakConn == nil {
		return fmt.Errorf("speak connection closed")
	}
	if err := c.speakConn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write to deepgram: %w", err)
	}
	return nil
}

func (c *conversation) closeSpeak() {
	c.speakMu.Lock()
	defer c.speakMu.Unlock()
	if c.speakConn == nil {
		return
	}
	_ = c.speakConn.Close()
	c.speakConn = nil
}
