package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/neon-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/neon-tictactoe/internal/entity"
	mockedRest "github.com/rocketscienceinc/neon-tictactoe/mocks/rest"
)

var (
	errRedisDown   = errors.New("redis down")
	errBrokenPipe  = errors.New("broken pipe")
	knownSessionID = uuid.NewString()
)

func newTestRouter(t *testing.T) (*mockedRest.MockgameManager, http.Handler) {
	t.Helper()

	manager := mockedRest.NewMockgameManager(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return manager, NewRouter(NewHandlers(logger, manager))
}

func withSession(req *http.Request, id string) *http.Request {
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: id})
	return req
}

func decodeSnapshot(t *testing.T, rr *httptest.ResponseRecorder) entity.Snapshot {
	t.Helper()

	var snapshot entity.Snapshot
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&snapshot))

	return snapshot
}

type failingWriter struct {
	header http.Header
}

func (that *failingWriter) Header() http.Header {
	return that.header
}

func (that *failingWriter) Write([]byte) (int, error) {
	return 0, errBrokenPipe
}

func (that *failingWriter) WriteHeader(int) {}

func TestPing(t *testing.T) {
	_, router := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pong", rr.Body.String())
}

func TestGetSession(t *testing.T) {
	t.Run("Issues a cookie for a new browser", func(t *testing.T) {
		// Given: a manager creating any session it is asked for
		manager, router := newTestRouter(t)
		manager.EXPECT().
			GetOrCreate(mock.Anything, mock.AnythingOfType("string")).
			Return(entity.NewSession("new"), nil).
			Once()

		// When: requesting the session without a cookie
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/session", nil))

		// Then: a session cookie is set and the snapshot returned
		require.Equal(t, http.StatusOK, rr.Code)
		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, sessionCookieName, cookies[0].Name)
		assert.True(t, validSessionID(cookies[0].Value))

		snapshot := decodeSnapshot(t, rr)
		assert.Equal(t, entity.ModeAI, snapshot.Mode)
		assert.Equal(t, entity.PhaseXTurn, snapshot.Phase)
	})

	t.Run("Reuses the cookie session", func(t *testing.T) {
		manager, router := newTestRouter(t)
		manager.EXPECT().
			GetOrCreate(mock.Anything, knownSessionID).
			Return(entity.NewSession(knownSessionID), nil).
			Once()

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, withSession(httptest.NewRequest(http.MethodGet, "/api/session", nil), knownSessionID))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, rr.Result().Cookies())
		assert.Equal(t, knownSessionID, decodeSnapshot(t, rr).ID)
	})

	t.Run("Malformed cookie gets a fresh session", func(t *testing.T) {
		// Given: cookies that are not canonical UUIDs
		for _, bad := range []string{"abc", strings.ToUpper(knownSessionID), "{" + knownSessionID + "}"} {
			manager, router := newTestRouter(t)
			manager.EXPECT().
				GetOrCreate(mock.Anything, mock.MatchedBy(validSessionID)).
				Return(entity.NewSession("fresh"), nil).
				Once()

			// When: requesting the session with it
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, withSession(httptest.NewRequest(http.MethodGet, "/api/session", nil), bad))

			// Then: the manager only ever sees a server-issued id
			require.Equal(t, http.StatusOK, rr.Code, bad)
			cookies := rr.Result().Cookies()
			require.Len(t, cookies, 1, bad)
			assert.NotEqual(t, bad, cookies[0].Value)
		}
	})

	t.Run("Storage failure is a 500", func(t *testing.T) {
		manager, router := newTestRouter(t)
		manager.EXPECT().GetOrCreate(mock.Anything, knownSessionID).Return(nil, errRedisDown).Once()

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, withSession(httptest.NewRequest(http.MethodGet, "/api/session", nil), knownSessionID))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "redis")
	})
}

func TestMakeTurn(t *testing.T) {
	t.Run("Returns the snapshot after the move", func(t *testing.T) {
		// Given: a session where the bot will be thinking after X plays the center
		session := entity.NewSession(knownSessionID)
		session.Game.Board[4] = entity.PlayerX
		session.Game.Turn = entity.PlayerO
		session.AIThinking = true

		manager, router := newTestRouter(t)
		manager.EXPECT().MakeTurn(mock.Anything, knownSessionID, 4).Return(session, nil).Once()

		// When: posting the move
		req := httptest.NewRequest(http.MethodPost, "/api/session/turn", strings.NewReader(`{"cell": 4}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, withSession(req, knownSessionID))

		// Then: the snapshot shows the AI thinking
		require.Equal(t, http.StatusOK, rr.Code)
		snapshot := decodeSnapshot(t, rr)
		assert.True(t, snapshot.AIThinking)
		assert.Equal(t, entity.PhaseAIThinking, snapshot.Phase)
		assert.Equal(t, entity.PlayerX, snapshot.Board[4])
	})

	t.Run("Cell zero is a valid move", func(t *testing.T) {
		manager, router := newTestRouter(t)
		manager.EXPECT().MakeTurn(mock.Anything, knownSessionID, 0).Return(entity.NewSession(knownSessionID), nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/session/turn", strings.NewReader(`{"cell": 0}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, withSession(req, knownSessionID))

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Missing cell is a bad request", func(t *testing.T) {
		_, router := newTestRouter(t)

		for _, body := range []string{`{}`, `not json`, `{"cell": "one"}`} {
			req := httptest.NewRequest(http.MethodPost, "/api/session/turn", strings.NewReader(body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, withSession(req, knownSessionID))

			assert.Equal(t, http.StatusBadRequest, rr.Code, body)
		}
	})

	t.Run("Unknown session is a 404", func(t *testing.T) {
		manager, router := newTestRouter(t)
		manager.EXPECT().MakeTurn(mock.Anything, knownSessionID, 1).Return(nil, apperror.ErrSessionNotFound).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/session/turn", strings.NewReader(`{"cell": 1}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, withSession(req, knownSessionID))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestResetAndMode(t *testing.T) {
	t.Run("Reset returns a fresh game", func(t *testing.T) {
		session := entity.NewSession(knownSessionID)
		session.Score = entity.Score{X: 3}

		manager, router := newTestRouter(t)
		manager.EXPECT().Reset(mock.Anything, knownSessionID).Return(session, nil).Once()

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, withSession(httptest.NewRequest(http.MethodPost, "/api/session/reset", nil), knownSessionID))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, entity.Score{X: 3}, decodeSnapshot(t, rr).Score)
	})

	t.Run("Mode change is forwarded", func(t *testing.T) {
		session := entity.NewSession(knownSessionID)
		session.Mode = entity.ModePvP

		manager, router := newTestRouter(t)
		manager.EXPECT().ChangeMode(mock.Anything, knownSessionID, entity.ModePvP).Return(session, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/session/mode", strings.NewReader(`{"mode": "pvp"}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, withSession(req, knownSessionID))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, entity.ModePvP, decodeSnapshot(t, rr).Mode)
	})

	t.Run("Unknown mode is a bad request", func(t *testing.T) {
		manager, router := newTestRouter(t)
		manager.EXPECT().ChangeMode(mock.Anything, knownSessionID, "chess").Return(nil, apperror.ErrUnknownMode).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/session/mode", strings.NewReader(`{"mode": "chess"}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, withSession(req, knownSessionID))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestDeleteSession(t *testing.T) {
	t.Run("Deletes the session and expires the cookie", func(t *testing.T) {
		// Given: a known session
		manager, router := newTestRouter(t)
		manager.EXPECT().Delete(mock.Anything, knownSessionID).Return(nil).Once()

		// When: deleting it
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, withSession(httptest.NewRequest(http.MethodDelete, "/api/session", nil), knownSessionID))

		// Then: no content and the cookie is cleared
		require.Equal(t, http.StatusNoContent, rr.Code)
		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, sessionCookieName, cookies[0].Name)
		assert.Negative(t, cookies[0].MaxAge)
	})

	t.Run("Missing or malformed cookie is a 404", func(t *testing.T) {
		_, router := newTestRouter(t)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/session", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)

		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, withSession(httptest.NewRequest(http.MethodDelete, "/api/session", nil), "abc"))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("Unknown session is a 404", func(t *testing.T) {
		manager, router := newTestRouter(t)
		manager.EXPECT().Delete(mock.Anything, knownSessionID).Return(apperror.ErrSessionNotFound).Once()

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, withSession(httptest.NewRequest(http.MethodDelete, "/api/session", nil), knownSessionID))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestWriteJSON(t *testing.T) {
	// Given: a client that went away
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	h, ok := NewHandlers(logger, mockedRest.NewMockgameManager(t)).(*handlers)
	require.True(t, ok)

	// When: writing a response to it
	h.writeJSON(&failingWriter{header: http.Header{}}, http.StatusOK, entity.NewSession(knownSessionID).Snapshot())

	// Then: the failure is logged
	assert.Contains(t, logs.String(), "failed to write response")
	assert.Contains(t, logs.String(), errBrokenPipe.Error())
}
