package tictactoe

import (
	"github.com/rocketscienceinc/neon-tictactoe/internal/entity"
)

// The functions below are the orchestrator transitions. Each takes a session by value
// and returns the next one; the caller is responsible for serializing calls per session.

// PlayHuman applies a move submitted by a person. It is ignored while the AI is thinking
// or when, in AI mode, it is O's turn.
func PlayHuman(session entity.Session, cell int) (entity.Session, bool) {
	if session.AIThinking || session.IsBotTurn() {
		return session, false
	}

	return play(session, cell)
}

// BeginBotTurn marks the session as waiting for the AI. It reports false if the AI is not due.
func BeginBotTurn(session entity.Session) (entity.Session, bool) {
	if session.AIThinking || !session.IsBotTurn() {
		return session, false
	}

	session.AIThinking = true

	return session, true
}

// ResolveBotTurn applies the AI's move if it belongs to the session's current generation.
// A reply for an older generation, or arriving when no AI turn is pending, is discarded and
// the session is returned unchanged. An illegal cell clears the pending flag without moving.
func ResolveBotTurn(session entity.Session, generation uint64, cell int, taunt string) (entity.Session, bool) {
	if session.Generation != generation || !session.AIThinking {
		return session, false
	}

	session.AIThinking = false

	next, applied := play(session, cell)
	if !applied {
		return session, false
	}

	next.Taunt = taunt

	return next, true
}

// Reset starts a new game keeping the mode and score.
func Reset(session entity.Session) entity.Session {
	session.Game = entity.NewGame()
	session.AIThinking = false
	session.Taunt = ""
	session.Generation++

	return session
}

// ChangeMode resets the game and zeroes the score. The mode must already be validated.
func ChangeMode(session entity.Session, mode string) entity.Session {
	session = Reset(session)
	session.Mode = mode
	session.Score = entity.Score{}

	return session
}

func play(session entity.Session, cell int) (entity.Session, bool) {
	game, applied := ApplyMove(session.Game, cell)
	if !applied {
		return session, false
	}

	session.Game = game
	session.Score = Tally(session.Score, game)

	return session, true
}
