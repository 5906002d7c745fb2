package infra

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pot-code/learning-path/internal/infrastructure/logging"
	"go.uber.org/zap"
)

// SessionHandler serve one websocket connection until ctx is done or it returns.
// It is the only writer of data frames on conn.
type SessionHandler func(ctx context.Context, conn *websocket.Conn) error

// Websocket upgrade HTTP requests and keep the connections alive with ping/pong
type Websocket struct {
	upgrader     websocket.Upgrader
	WriteWait    time.Duration
	PongWait     time.Duration
	PingInterval time.Duration
	logger       *zap.Logger
}

// NewWebsocket create a Websocket
func NewWebsocket(logger *zap.Logger) *Websocket {
	if logger == nil {
		logger = zap.NewNop()
	}
	pongWait := 30 * time.Second
	return &Websocket{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			HandshakeTimeout: 3 * time.Second,
		},
		WriteWait:    10 * time.Second,
		PongWait:     pongWait,
		PingInterval: pongWait * 9 / 10,
		logger:       logger,
	}
}

// WithHeartbeat wrap handler function with heartbeat probe
func (ws *Websocket) WithHeartbeat(handler SessionHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := ws.upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			// upgrader has replied with the HTTP error
			return nil
		}
		defer conn.Close()

		logger := logging.ExtractLoggerFromContext(c.Request().Context(), ws.logger)
		// the session outlives the request timeout
		ctx, cancel := context.WithCancel(logging.SetLoggerInContext(context.Background(), logger))
		defer cancel()

		go ws.readRoutine(conn, cancel)
		go ws.heartbeatRoutine(ctx, conn, cancel)

		logger.Debug("Websocket session opened", zap.String("client.address", conn.RemoteAddr().String()))
		err = handler(ctx, conn)
		logger.Debug("Websocket session closed", zap.NamedError("reason", err))
		return nil
	}
}

// WriteJSON write v as one text frame
func (ws *Websocket) WriteJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(ws.WriteWait))
	return conn.WriteJSON(v)
}

// readRoutine drain client frames so control frames get processed, cancel on disconnect
func (ws *Websocket) readRoutine(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(ws.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(ws.PongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (ws *Websocket) heartbeatRoutine(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) {
	ticker := time.NewTicker(ws.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ws.WriteWait)); err != nil {
				cancel()
				return
			}
		}
	}
}
