package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/neon-tictactoe/internal/entity"
)

const (
	sessionCookieName = "user_session"
	sessionCookieTTL  = 24 * time.Hour

	pingInterval    = 30 * time.Second
	writeWait       = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

type gameManager interface {
	GetOrCreate(ctx context.Context, id string) (*entity.Session, error)
	MakeTurn(ctx context.Context, id string, cell int) (*entity.Session, error)
	Reset(ctx context.Context, id string) (*entity.Session, error)
	ChangeMode(ctx context.Context, id, mode string) (*entity.Session, error)
}

// connection is the per-socket state owned by the read loop.
type connection struct {
	client    *client
	cookieID  string
	sessionID string
}

type Server struct {
	logger      *slog.Logger
	gameManager gameManager
	hub         *Hub
	upgrader    websocket.Upgrader

	handlers map[string]func(ctx context.Context, conn *connection, msg *Message) error
}

func New(logger *slog.Logger, gameManager gameManager, hub *Hub) *Server {
	server := &Server{
		logger:      logger.With("component", "websocket"),
		gameManager: gameManager,
		hub:         hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},

		handlers: make(map[string]func(context.Context, *connection, *Message) error),
	}

	server.handlers[actionConnect] = server.handleConnect
	server.handlers[actionGameTurn] = server.handleGameTurn
	server.handlers[actionGameReset] = server.handleGameReset
	server.handlers[actionGameMode] = server.handleGameMode

	return server
}

func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", that.serveWS)

	return mux
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     that.Handler(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// serveWS - upgrades the connection to WebSocket and processes its messages.
func (that *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "serveWS")

	cookieID, header := that.sessionCookie(r)

	ws, err := that.upgrader.Upgrade(w, r, header)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	stop := context.AfterFunc(r.Context(), func() { _ = ws.Close() })
	defer stop()

	conn := &connection{
		client:   &client{send: make(chan []byte, clientSendBuffer)},
		cookieID: cookieID,
	}

	go func() {
		defer ws.Close()

		if err := writeWithHeartbeat(ws, conn.client.send); err != nil {
			log.Debug("writer stopped", "error", err)
		}
	}()

	log.Info("WebSocket connection established")

	if err = that.handleMessages(r.Context(), ws, conn); err != nil {
		log.Debug("connection closed", "error", err)
	}

	that.hub.unregister(conn.client)
}

// handleMessages - processes messages from the client.
func (that *Server) handleMessages(ctx context.Context, ws *websocket.Conn, conn *connection) error {
	log := that.logger.With("method", "handleMessages")

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Warn("failed to unmarshal message", "error", err)
			that.sendError(conn, "", "malformed message")
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)
			that.sendError(conn, message.Action, "unknown action")
			continue
		}

		if err = handler(ctx, conn, &message); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

// sessionCookie returns the caller's session id and, for a new one, the header that sets its cookie.
func (that *Server) sessionCookie(r *http.Request) (string, http.Header) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && validSessionID(cookie.Value) {
		return cookie.Value, nil
	}

	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    uuid.NewString(),
		Expires:  time.Now().Add(sessionCookieTTL),
		Path:     "/",
		HttpOnly: true,
	}

	that.logger.Info("session cookie not found, new one created", "session", cookie.Value)

	return cookie.Value, http.Header{"Set-Cookie": {cookie.String()}}
}

func (that *Server) send(conn *connection, action string, payload ResponsePayload) {
	data, err := encodeMessage(action, payload)
	if err != nil {
		that.logger.Error("failed to encode response", "action", action, "error", err)
		return
	}

	that.hub.reply(conn.client, data)
}

func (that *Server) sendSession(conn *connection, action string, session *entity.Session) {
	snapshot := session.Snapshot()
	that.send(conn, action, ResponsePayload{Session: &snapshot})
}

func (that *Server) sendError(conn *connection, action, message string) {
	that.send(conn, action, ResponsePayload{Error: message})
}

// validSessionID accepts only canonical UUID strings, the form this server issues.
func validSessionID(id string) bool {
	parsed, err := uuid.Parse(id)
	return err == nil && parsed.String() == id
}

func writeWithHeartbeat(ws *websocket.Conn, send <-chan []byte) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return nil
			}

			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}
