package tictactoe

import (
	"github.com/rocketscienceinc/neon-tictactoe/internal/entity"
)

// ApplyMove plays the current turn's mark at cell and returns the resulting game.
// Moves on a game that is not ongoing, an occupied cell or an out-of-range index are ignored:
// the game is returned unchanged with applied=false.
func ApplyMove(game entity.Game, cell int) (entity.Game, bool) {
	if game.ConfirmOngoingState() != nil || !game.Board.IsEmptyCell(cell) {
		return game, false
	}

	next := game
	next.Board[cell] = game.Turn
	updateGameStatus(&next)

	return next, true
}

// updateGameStatus - checks the game status after a move.
func updateGameStatus(game *entity.Game) {
	outcome := entity.Evaluate(game.Board)
	if outcome.IsNone() {
		game.Turn = entity.ToggleMark(game.Turn)
		return
	}

	game.Winner = outcome.Winner
	game.WinningLine = outcome.Line
	game.Status = entity.StatusFinished
}

// Tally adds a finished game's result to the score.
func Tally(score entity.Score, game entity.Game) entity.Score {
	if !game.IsFinished() {
		return score
	}

	switch game.Winner {
	case entity.PlayerX:
		score.X++
	case entity.PlayerO:
		score.O++
	case entity.PlayerTie:
		score.Draw++
	}

	return score
}
