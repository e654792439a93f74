package deepgram

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-assistant/core/assistant"
)

// interimStability is reported for everything recognised before the
// utterance ends, so only the closing candidate is ever stable. Candidates
// carry their own separating whitespace.
const interimStability = 0.99

type controlMessage struct {
	Type string `json:"type"`
}

var (
	keepAliveMsg   = controlMessage{Type: "KeepAlive"}
	closeStreamMsg = controlMessage{Type: string(api.TypeCloseStreamResponse)}
)

func (c *conversation) listen() error {
	encoding, err := convertEncoding(c.options.InputEncoding)
	if err != nil {
		return fmt.Errorf("invalid input encoding: %w", err)
	}

	query := url.Values{}
	query.Set("encoding", encoding.Format)
	query.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	query.Set("channels", "1")
	query.Set("model", c.client.listenModel)
	query.Set("language", c.options.Language)
	query.Set("smart_format", "true")
	query.Set("interim_results", "true")
	query.Set("utterance_end_ms", "1000")
	query.Set("endpointing", "300")
	query.Set("vad_events", "true")

	conn, err := c.client.dial(c.ctx, c.client.websocketURL("/v1/listen", query))
	if err != nil {
		return err
	}

	c.listenMu.Lock()
	c.listenConn = conn
	c.lastAudio = time.Now()
	c.listenMu.Unlock()

	go c.readListenMessages(conn)
	go c.keepListenAlive(conn)
	return nil
}

// WriteAudio forwards microphone audio while the conversation is listening.
func (c *conversation) WriteAudio(audio []byte) error {
	if c.ended.Load() {
		return errConversationEnded
	}

	c.listenMu.Lock()
	defer c.listenMu.Unlock()
	if c.listenConn == nil {
		return nil
	}

	c.lastAudio = time.Now()
	if err := c.listenConn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram: %w", err)
	}
	return nil
}

func (c *conversation) keepListenAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(c.client.keepAliveInterval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.listenMu.Lock()
			if c.listenConn != conn {
				c.listenMu.Unlock()
				return
			}
			if time.Since(c.lastAudio) >= c.client.keepAliveInterval {
				c.lastAudio = time.Now()
				if err := conn.WriteJSON(keepAliveMsg); err != nil {
					logger.Warn("failed to send deepgram keep alive", "error", err)
				}
			}
			c.listenMu.Unlock()
		}
	}
}

func (c *conversation) closeListen() {
	c.listenMu.Lock()
	defer c.listenMu.Unlock()

	if c.listenConn == nil {
		return
	}
	if err := c.listenConn.WriteJSON(closeStreamMsg); err != nil {
		logger.Debug("failed to close deepgram listen stream", "error", err)
	}
	_ = c.listenConn.Close()
	c.listenConn = nil
}

func (c *conversation) isListeningOn(conn *websocket.Conn) bool {
	c.listenMu.Lock()
	defer c.listenMu.Unlock()
	return c.listenConn == conn
}

func (c *conversation) readListenMessages(conn *websocket.Conn) {
	ctx, span := tracer.Start(c.ctx, "listen")
	defer span.End()

	var utterance utteranceState
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if !c.isListeningOn(conn) {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.end(assistant.EndedReport{})
				return
			}
			c.fail(span, fmt.Errorf("failed to read deepgram listen message: %w", err))
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		transcript, finished := c.processListenMessage(&utterance, msg)
		if !finished {
			continue
		}

		c.emit(func() {
			c.options.SpeechResultsCallback(assistant.SpeechResults{{Transcript: transcript, Stability: 1}})
		})
		c.emit(c.options.EndOfUtteranceCallback)
		c.closeListen()
		c.respond(ctx, transcript)
		return
	}
}

type utteranceState struct {
	segments []string
	unended  bool
}

func (u *utteranceState) finish() (string, bool) {
	transcript := strings.Join(u.segments, " ")
	u.segments = nil
	u.unended = false
	return transcript, transcript != ""
}

func (u *utteranceState) interimResults(tail string, confidence float64) assistant.SpeechResults {
	results := assistant.SpeechResults{}
	if len(u.segments) > 0 {
		prefix := strings.Join(u.segments, " ")
		if tail != "" {
			prefix += " "
		}
		results = append(results, assistant.SpeechResult{Transcript: prefix, Stability: interimStability})
	}
	if tail != "" {
		results = append(results, assistant.SpeechResult{
			Transcript: tail,
			Stability:  min(confidence, interimStability),
		})
	}
	return results
}

// processListenMessage returns the full transcript once the user has stopped
// speaking.
func (c *conversation) processListenMessage(u *utteranceState, msg []byte) (string, bool) {
	var parsedMsg controlMessage
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Warn("failed to unmarshal deepgram message", "error", err)
		return "", false
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Warn("failed to unmarshal deepgram results", "error", err)
			return "", false
		}

		var (
			transcript string
			confidence float64
		)
		if len(msgResp.Channel.Alternatives) > 0 {
			transcript = strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
			confidence = msgResp.Channel.Alternatives[0].Confidence
		}

		if !msgResp.IsFinal {
			if transcript != "" {
				results := u.interimResults(transcript, confidence)
				c.emit(func() { c.options.SpeechResultsCallback(results) })
			}
			return "", false
		}

		if transcript != "" {
			u.segments = append(u.segments, transcript)
		}
		if msgResp.SpeechFinal {
			return u.finish()
		}
		if transcript != "" {
			results := u.interimResults("", 0)
			c.emit(func() { c.options.SpeechResultsCallback(results) })
		}

	case api.TypeUtteranceEndResponse:
		if u.unended {
			return u.finish()
		}

	case api.TypeSpeechStartedResponse:
		u.unended = true
	}

	return "", false
}
