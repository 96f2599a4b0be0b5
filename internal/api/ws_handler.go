package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

// WsHandler forwards render progress notifications to connected clients.
type WsHandler struct {
	redisClient *redis.Client
	logger      *slog.Logger
	upgrader    websocket.Upgrader
}

// NewWsHandler constructs the WebSocket handler.
func NewWsHandler(redisClient *redis.Client, logger *slog.Logger) *WsHandler {
	h := &WsHandler{
		redisClient: redisClient,
		logger:      logger,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			return strings.EqualFold(u.Host, r.Host)
		},
	}
	return h
}

type wsWatchMessage struct {
	Type          string `json:"type"`
	CertificateID uint   `json:"certificate_id"`
}

// HandleConnection upgrades the connection and starts the read and forward
// loops. The client must open with a watch message naming a certificate
// before any notifications are relayed.
func (h *WsHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	baseLog := h.logger.With(
		slog.String("client_ip", c.ClientIP()),
	)

	certIDCh := make(chan uint, 1)
	errCh := make(chan error, 1)

	go h.readLoop(ctx, conn, certIDCh, errCh, cancel)

	var certID uint
	select {
	case <-ctx.Done():
		return
	case err := <-errCh:
		if err != nil {
			baseLog.Warn("websocket watch handshake failed", slog.Any("error", err))
		}
		return
	case certID = <-certIDCh:
	}

	watchLog := baseLog.With(slog.Uint64("certificate_id", uint64(certID)))
	go h.subscribeLoop(ctx, conn, certID, errCh, cancel, watchLog)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			watchLog.Info("websocket connection closed", slog.Any("error", err))
		} else {
			watchLog.Info("websocket connection closed")
		}
	}
}

func (h *WsHandler) readLoop(
	ctx context.Context,
	conn *websocket.Conn,
	certIDCh chan<- uint,
	errCh chan<- error,
	cancel context.CancelFunc,
) {
	watching := false

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			writeClose(conn, websocket.CloseAbnormalClosure, "read error")
			reportErr(ctx, errCh, fmt.Errorf("read message: %w", err))
			cancel()
			return
		}

		if !watching {
			var watchMsg wsWatchMessage
			if err := json.Unmarshal(message, &watchMsg); err != nil {
				writeClose(conn, websocket.ClosePolicyViolation, "invalid watch payload")
				reportErr(ctx, errCh, fmt.Errorf("decode watch payload: %w", err))
				cancel()
				return
			}
			if watchMsg.Type != "watch" || watchMsg.CertificateID == 0 {
				writeClose(conn, websocket.ClosePolicyViolation, "watch message required")
				reportErr(ctx, errCh, fmt.Errorf("invalid watch message"))
				cancel()
				return
			}

			watching = true
			certIDCh <- watchMsg.CertificateID
			continue
		}

		// Keep reading to detect client disconnects.
	}
}

// reportErr delivers err without blocking once the connection context
// is gone, so a loop that fails after its peer never hangs on the send.
func reportErr(ctx context.Context, errCh chan<- error, err error) {
	select {
	case errCh <- err:
	case <-ctx.Done():
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}

func (h *WsHandler) subscribeLoop(
	ctx context.Context,
	conn *websocket.Conn,
	certID uint,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	channel := fmt.Sprintf("cert_notify:%d", certID)
	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer pubsub.Close()

	log.Info("subscribed to redis channel", slog.String("channel", channel))

	ch := pubsub.Channel()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				reportErr(ctx, errCh, fmt.Errorf("pubsub channel closed"))
				cancel()
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				reportErr(ctx, errCh, fmt.Errorf("write message: %w", err))
				cancel()
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				reportErr(ctx, errCh, fmt.Errorf("write ping: %w", err))
				cancel()
				return
			}
		}
	}
}
