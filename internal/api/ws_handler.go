package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"careerDesk/internal/api/middleware"
	"careerDesk/internal/tasks"
)

const (
	wsAuthTimeout  = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 5 * time.Second
)

// notifySubscriber 是 redis.Client 的订阅子集。
type notifySubscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// WsHandler 把某个 identity 的 redis 通知转发到 WebSocket。
type WsHandler struct {
	subscriber notifySubscriber
	verifier   middleware.SubjectVerifier
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

// NewWsHandler 构造 WebSocket 处理器。verifier 为 nil 时不要求鉴权消息。
func NewWsHandler(subscriber notifySubscriber, verifier middleware.SubjectVerifier, origins *originPolicy, logger *slog.Logger) *WsHandler {
	h := &WsHandler{
		subscriber: subscriber,
		verifier:   verifier,
		logger:     logger,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origins.Allow(origin)
		},
	}
	return h
}

type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// HandleConnection 升级连接；启用鉴权时首条消息必须是 {"type":"auth","token":...}。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	identityID := c.Param("identityId")
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	log := h.logger.With(
		slog.String("identity_id", identityID),
		slog.String("client_ip", c.ClientIP()),
	)

	if h.verifier != nil {
		if err := h.authenticate(conn, identityID); err != nil {
			log.Warn("websocket authentication failed", slog.Any("error", err))
			return
		}
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go readLoop(conn, errCh, cancel)
	go h.subscribeLoop(ctx, conn, tasks.NotifyChannel(identityID), errCh, cancel, log)

	<-ctx.Done()
	select {
	case err := <-errCh:
		log.Info("websocket connection closed", slog.Any("reason", err))
	default:
		log.Info("websocket connection closed")
	}
}

func (h *WsHandler) authenticate(conn *websocket.Conn, identityID string) error {
	_ = conn.SetReadDeadline(time.Now().Add(wsAuthTimeout))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	_, message, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read auth message: %w", err)
	}
	var msg wsAuthMessage
	if err := json.Unmarshal(message, &msg); err != nil || msg.Type != "auth" || msg.Token == "" {
		writeClose(conn, websocket.ClosePolicyViolation, "auth required")
		return errors.New("invalid auth message")
	}
	subject, err := h.verifier.Subject(msg.Token)
	if err != nil {
		writeClose(conn, websocket.ClosePolicyViolation, "unauthorized")
		return fmt.Errorf("validate token: %w", err)
	}
	if subject != identityID {
		writeClose(conn, websocket.ClosePolicyViolation, "identity mismatch")
		return errors.New("identity mismatch")
	}
	return nil
}

// readLoop 丢弃客户端消息，只用于发现断开。
func readLoop(conn *websocket.Conn, errCh chan<- error, cancel context.CancelFunc) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			errCh <- fmt.Errorf("read message: %w", err)
			cancel()
			return
		}
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	deadline := time.Now().Add(wsWriteTimeout)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}

func (h *WsHandler) subscribeLoop(
	ctx context.Context,
	conn *websocket.Conn,
	channel string,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	defer cancel()
	pubsub := h.subscriber.Subscribe(ctx, channel)
	defer pubsub.Close()

	log.Info("subscribed to redis channel", slog.String("channel", channel))

	ch := pubsub.Channel()
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				errCh <- errors.New("pubsub channel closed")
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				errCh <- fmt.Errorf("write message: %w", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(wsWriteTimeout)); err != nil {
				errCh <- fmt.Errorf("write ping: %w", err)
				return
			}
		}
	}
}
