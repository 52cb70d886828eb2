package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/mastermhp/Live-Baz-sub000/internal/platform/logging"
	"github.com/mastermhp/Live-Baz-sub000/internal/realtime"
	"github.com/mastermhp/Live-Baz-sub000/internal/usecase"
)

// controlReply acknowledges or rejects a subscriber control message.
type controlReply struct {
	Type    string `json:"type"`
	Topic   string `json:"topic,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	replyJoined = "joined"
	replyLeft   = "left"
	replyError  = "error"
)

// ServeWS upgrades the request and bridges the socket to the broker until
// either side goes away.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ServeWS")
	defer span.End()

	if h.subscriptions == nil {
		writeError(ctx, w, fmt.Errorf("%w: realtime broker is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(ctx, "websocket upgrade failed", "error", err)
		return
	}

	sub := realtime.NewChannelConn(h.ids.NewID(connIDPrefix), h.ws.SendBuffer)
	logger := h.logger.With(
		"conn_id", sub.ID(),
		"client_ip", resolveClientIP(ctx, r),
		"country", resolveCountryCode(ctx, r),
	)
	h.metrics.ConnectionOpened()
	logger.InfoContext(ctx, "subscriber connected")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writePump(conn, sub)
	}()

	h.readPump(ctx, conn, sub, logger)

	h.subscriptions.Disconnect(sub)
	sub.Close()
	<-writerDone
	h.metrics.ConnectionClosed()
	logger.InfoContext(ctx, "subscriber disconnected")
}

func (h *Handler) readPump(ctx context.Context, conn *websocket.Conn, sub *realtime.ChannelConn, logger *logging.Logger) {
	defer conn.Close()

	conn.SetReadLimit(h.ws.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.ws.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.ws.PongTimeout))
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.DebugContext(ctx, "websocket read ended", "error", err)
			}
			return
		}
		h.handleControl(ctx, sub, payload, logger)
	}
}

func (h *Handler) handleControl(ctx context.Context, sub *realtime.ChannelConn, payload []byte, logger *logging.Logger) {
	var msg realtime.ControlMessage
	if err := sonic.Unmarshal(payload, &msg); err != nil {
		h.reply(sub, controlReply{Type: replyError, Message: "invalid control message"})
		return
	}

	topic := strings.TrimSpace(msg.Topic)
	switch msg.Type {
	case realtime.ControlJoin:
		if err := h.subscriptions.Join(sub, topic); err != nil {
			h.reply(sub, controlReply{Type: replyError, Topic: topic, Message: err.Error()})
			return
		}
		logger.DebugContext(ctx, "topic joined", "topic", topic)
		h.reply(sub, controlReply{Type: replyJoined, Topic: topic})
	case realtime.ControlLeave:
		h.subscriptions.Leave(sub, topic)
		h.reply(sub, controlReply{Type: replyLeft, Topic: topic})
	default:
		h.reply(sub, controlReply{Type: replyError, Topic: topic, Message: "unknown control type " + msg.Type})
	}
}

func (h *Handler) reply(sub *realtime.ChannelConn, msg controlReply) {
	payload, err := sonic.Marshal(msg)
	if err != nil {
		return
	}
	_ = sub.Send(payload)
}

// writePump is the only writer on conn.
func (h *Handler) writePump(conn *websocket.Conn, sub *realtime.ChannelConn) {
	ticker := time.NewTicker(h.ws.PongTimeout * 9 / 10)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case payload, ok := <-sub.Outbound():
			_ = conn.SetWriteDeadline(time.Now().Add(h.ws.WriteTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.ws.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// originChecker allows requests without an Origin header, and any origin
// when the list is empty or contains "*".
func originChecker(allowed []string) func(*http.Request) bool {
	allowAll := len(allowed) == 0
	allowMap := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			allowAll = true
		}
		if origin != "" {
			allowMap[strings.ToLower(origin)] = struct{}{}
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" || allowAll {
			return true
		}
		if _, ok := allowMap[strings.ToLower(origin)]; ok {
			return true
		}
		parsed, err := url.Parse(origin)
		return err == nil && strings.EqualFold(parsed.Host, r.Host)
	}
}
