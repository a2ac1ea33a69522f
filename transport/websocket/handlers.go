package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/neon-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/neon-tictactoe/internal/entity"
)

var (
	errNotConnected     = errors.New("connect first")
	errInvalidSessionID = errors.New("invalid session id")
)

func (that *Server) handleConnect(ctx context.Context, conn *connection, msg *Message) error {
	log := that.logger.With("method", "handleConnect")

	payloadReq, err := decodePayload(msg)
	if err != nil {
		that.sendError(conn, msg.Action, "malformed payload")
		return err
	}

	sessionID := payloadReq.Session
	if sessionID == "" {
		sessionID = conn.cookieID
	}

	if !validSessionID(sessionID) {
		log.Warn("rejected session id", "session", sessionID)
		that.sendError(conn, msg.Action, errInvalidSessionID.Error())
		return nil
	}

	session, err := that.gameManager.GetOrCreate(ctx, sessionID)
	if err != nil {
		that.sendError(conn, msg.Action, "failed to load the session")
		return fmt.Errorf("failed to get or create session: %w", err)
	}

	conn.sessionID = session.ID
	that.hub.subscribe(conn.client, session.ID)

	that.sendSession(conn, msg.Action, session)

	log.Info("successfully connected", "session", session.ID)

	return nil
}

func (that *Server) handleGameTurn(ctx context.Context, conn *connection, msg *Message) error {
	payloadReq, ok := that.connectedPayload(conn, msg)
	if !ok {
		return nil
	}

	if payloadReq.Cell == nil {
		that.sendError(conn, msg.Action, "cell is required")
		return nil
	}

	session, err := that.gameManager.MakeTurn(ctx, conn.sessionID, *payloadReq.Cell)

	return that.respond(conn, msg.Action, session, err)
}

func (that *Server) handleGameReset(ctx context.Context, conn *connection, msg *Message) error {
	if _, ok := that.connectedPayload(conn, msg); !ok {
		return nil
	}

	session, err := that.gameManager.Reset(ctx, conn.sessionID)

	return that.respond(conn, msg.Action, session, err)
}

func (that *Server) handleGameMode(ctx context.Context, conn *connection, msg *Message) error {
	payloadReq, ok := that.connectedPayload(conn, msg)
	if !ok {
		return nil
	}

	session, err := that.gameManager.ChangeMode(ctx, conn.sessionID, payloadReq.Mode)

	return that.respond(conn, msg.Action, session, err)
}

// connectedPayload decodes the payload of a game action, answering the client itself when the action cannot proceed.
func (that *Server) connectedPayload(conn *connection, msg *Message) (RequestPayload, bool) {
	log := that.logger.With("method", "connectedPayload", "action", msg.Action)

	if conn.sessionID == "" {
		log.Warn("game action before connect")
		that.sendError(conn, msg.Action, errNotConnected.Error())
		return RequestPayload{}, false
	}

	payloadReq, err := decodePayload(msg)
	if err != nil {
		log.Warn("malformed payload", "error", err)
		that.sendError(conn, msg.Action, "malformed payload")
		return RequestPayload{}, false
	}

	return payloadReq, true
}

func (that *Server) respond(conn *connection, action string, session *entity.Session, err error) error {
	switch {
	case err == nil:
		that.sendSession(conn, action, session)
		return nil
	case errors.Is(err, apperror.ErrUnknownMode), errors.Is(err, apperror.ErrSessionNotFound):
		that.sendError(conn, action, err.Error())
		return nil
	default:
		that.sendError(conn, action, "internal error")
		return err
	}
}

func decodePayload(msg *Message) (RequestPayload, error) {
	var payloadReq RequestPayload

	if len(msg.Payload) == 0 {
		return payloadReq, nil
	}

	if err := json.Unmarshal(msg.Payload, &payloadReq); err != nil {
		return payloadReq, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return payloadReq, nil
}
