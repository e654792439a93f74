package deepgram

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-assistant/core/assistant"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type conversation struct {
	client  *Client
	options assistant.ConversationOptions

	ctx    context.Context
	cancel context.CancelFunc

	listenMu   sync.Mutex
	listenConn *websocket.Conn
	lastAudio  time.Time

	speakMu   sync.Mutex
	speakConn *websocket.Conn

	// callbackMu serialises callbacks so the ended callback is always last.
	callbackMu sync.Mutex
	ended      atomic.Bool
	endOnce    sync.Once
}

func newConversation(ctx context.Context, client *Client, options assistant.ConversationOptions) *conversation {
	ctx, cancel := context.WithCancel(ctx)
	return &conversation{
		client:  client,
		options: options,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (c *conversation) Stop() error {
	c.end(assistant.EndedReport{})
	return nil
}

func (c *conversation) emit(callback func()) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	if c.ended.Load() {
		return
	}
	callback()
}

func (c *conversation) end(report assistant.EndedReport) {
	c.endOnce.Do(func() {
		c.cancel()
		c.closeListen()
		c.closeSpeak()

		c.callbackMu.Lock()
		defer c.callbackMu.Unlock()
		c.ended.Store(true)
		c.options.EndedCallback(report)
	})
}

func (c *conversation) fail(span trace.Span, err error) {
	if c.ctx.Err() == nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("conversation failed", "error", err)
		c.emit(func() { c.options.ErrorCallback(err) })
	}
	c.end(assistant.EndedReport{})
}
