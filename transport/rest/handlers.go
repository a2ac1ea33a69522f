package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rocketscienceinc/neon-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/neon-tictactoe/internal/entity"
)

const (
	sessionCookieName = "user_session"
	sessionCookieTTL  = 24 * time.Hour
)

type Handlers interface {
	PingHandler(w http.ResponseWriter, _ *http.Request)

	GetSession(w http.ResponseWriter, r *http.Request)
	MakeTurn(w http.ResponseWriter, r *http.Request)
	Reset(w http.ResponseWriter, r *http.Request)
	ChangeMode(w http.ResponseWriter, r *http.Request)
	DeleteSession(w http.ResponseWriter, r *http.Request)
}

type gameManager interface {
	GetOrCreate(ctx context.Context, id string) (*entity.Session, error)
	MakeTurn(ctx context.Context, id string, cell int) (*entity.Session, error)
	Reset(ctx context.Context, id string) (*entity.Session, error)
	ChangeMode(ctx context.Context, id, mode string) (*entity.Session, error)
	Delete(ctx context.Context, id string) error
}

type turnRequest struct {
	Cell *int `json:"cell"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type handlers struct {
	logger      *slog.Logger
	gameManager gameManager
}

func NewHandlers(logger *slog.Logger, gameManager gameManager) Handlers {
	return &handlers{
		logger:      logger.With("component", "rest"),
		gameManager: gameManager,
	}
}

func (that *handlers) PingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

func (that *handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := that.ensureSessionCookie(w, r)

	session, err := that.gameManager.GetOrCreate(r.Context(), sessionID)
	that.respond(w, "GetSession", session, err)
}

func (that *handlers) MakeTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := that.ensureSessionCookie(w, r)

	var request turnRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.Cell == nil {
		that.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "cell is required"})
		return
	}

	session, err := that.gameManager.MakeTurn(r.Context(), sessionID, *request.Cell)
	that.respond(w, "MakeTurn", session, err)
}

func (that *handlers) Reset(w http.ResponseWriter, r *http.Request) {
	sessionID := that.ensureSessionCookie(w, r)

	session, err := that.gameManager.Reset(r.Context(), sessionID)
	that.respond(w, "Reset", session, err)
}

func (that *handlers) ChangeMode(w http.ResponseWriter, r *http.Request) {
	sessionID := that.ensureSessionCookie(w, r)

	var request modeRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		that.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "mode is required"})
		return
	}

	session, err := that.gameManager.ChangeMode(r.Context(), sessionID, request.Mode)
	that.respond(w, "ChangeMode", session, err)
}

// DeleteSession forgets the caller's session and expires its cookie.
func (that *handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "DeleteSession")

	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || !validSessionID(cookie.Value) {
		that.writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	err = that.gameManager.Delete(r.Context(), cookie.Value)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, apperror.ErrSessionNotFound):
		that.writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
	default:
		log.Error("request failed", "error", err)
		that.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
	}
}

func (that *handlers) respond(w http.ResponseWriter, method string, session *entity.Session, err error) {
	log := that.logger.With("method", method)

	switch {
	case err == nil:
		that.writeJSON(w, http.StatusOK, session.Snapshot())
	case errors.Is(err, apperror.ErrUnknownMode):
		that.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, apperror.ErrSessionNotFound):
		that.writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
	default:
		log.Error("request failed", "error", err)
		that.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
	}
}

// ensureSessionCookie returns the caller's session id, issuing a new one if the cookie is missing or malformed.
func (that *handlers) ensureSessionCookie(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && validSessionID(cookie.Value) {
		return cookie.Value
	}

	sessionID := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Expires:  time.Now().Add(sessionCookieTTL),
		Path:     "/",
		HttpOnly: true,
	})

	that.logger.Info("session cookie not found, new one created", "session", sessionID)

	return sessionID
}

func (that *handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "status", status, "error", err)
	}
}

// validSessionID accepts only canonical UUID strings, the form this server issues.
func validSessionID(id string) bool {
	parsed, err := uuid.Parse(id)
	return err == nil && parsed.String() == id
}
