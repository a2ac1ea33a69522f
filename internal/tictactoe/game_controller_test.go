package tictactoe

import (
	"testing"

	"github.com/rocketscienceinc/neon-tictactoe/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	x = entity.PlayerX
	o = entity.PlayerO
	e = entity.EmptyCell
)

func TestApplyMove(t *testing.T) {
	t.Run("Winning move finishes the game", func(t *testing.T) {
		// Given: X to move with two in the top row
		game := entity.Game{
			Board:  entity.Board{x, x, e, o, o, e, e, e, e},
			Turn:   x,
			Status: entity.StatusOngoing,
		}

		// When: X plays index 2
		next, applied := ApplyMove(game, 2)

		// Then: X wins on the top row
		require.True(t, applied)
		assert.Equal(t, entity.StatusFinished, next.Status)
		assert.Equal(t, x, next.Winner)
		assert.Equal(t, []int{0, 1, 2}, next.WinningLine)
	})

	t.Run("Filling the last cell without a line is a draw", func(t *testing.T) {
		// Given: a board one move away from the classic draw
		game := entity.Game{
			Board:  entity.Board{x, o, x, o, x, o, o, x, e},
			Turn:   o,
			Status: entity.StatusOngoing,
		}

		// When: O fills the last cell
		next, applied := ApplyMove(game, 8)

		// Then: the game is a draw
		require.True(t, applied)
		assert.Equal(t, entity.StatusFinished, next.Status)
		assert.Equal(t, entity.PlayerTie, next.Winner)
		assert.Nil(t, next.WinningLine)
	})

	t.Run("Non-terminal move flips the turn exactly once", func(t *testing.T) {
		game := entity.NewGame()

		next, applied := ApplyMove(game, 4)

		require.True(t, applied)
		assert.Equal(t, o, next.Turn)
		assert.Equal(t, x, next.Board[4])
		assert.True(t, next.IsOngoing())

		next, applied = ApplyMove(next, 0)

		require.True(t, applied)
		assert.Equal(t, x, next.Turn)
		assert.Equal(t, o, next.Board[0])
	})

	t.Run("Occupied cell leaves the game unchanged", func(t *testing.T) {
		// Given: a game with the center taken
		game, _ := ApplyMove(entity.NewGame(), 4)

		// When: O tries the center
		next, applied := ApplyMove(game, 4)

		// Then: nothing changes
		assert.False(t, applied)
		assert.Equal(t, game, next)
	})

	t.Run("Out of range cells are ignored", func(t *testing.T) {
		game := entity.NewGame()

		for _, cell := range []int{-1, 9, 100} {
			next, applied := ApplyMove(game, cell)

			assert.False(t, applied)
			assert.Equal(t, game, next)
		}
	})

	t.Run("Finished game accepts no moves", func(t *testing.T) {
		game := entity.Game{
			Board:  entity.Board{x, x, x, o, o, e, e, e, e},
			Turn:   o,
			Winner: x,
			Status: entity.StatusFinished,
		}

		next, applied := ApplyMove(game, 5)

		assert.False(t, applied)
		assert.Equal(t, game, next)
	})

	t.Run("Game with an unknown status accepts no moves", func(t *testing.T) {
		// Given: a stored game whose status is neither ongoing nor finished
		game := entity.NewGame()
		game.Status = "paused"

		// When: X tries to play
		next, applied := ApplyMove(game, 0)

		// Then: nothing is played
		assert.False(t, applied)
		assert.Equal(t, game, next)
	})

	t.Run("Input game is not mutated", func(t *testing.T) {
		game := entity.NewGame()

		_, _ = ApplyMove(game, 0)

		assert.Equal(t, entity.Board{}, game.Board)
		assert.Equal(t, x, game.Turn)
	})
}

func TestTally(t *testing.T) {
	t.Run("Counts each terminal outcome", func(t *testing.T) {
		score := entity.Score{}

		score = Tally(score, entity.Game{Status: entity.StatusFinished, Winner: x})
		score = Tally(score, entity.Game{Status: entity.StatusFinished, Winner: o})
		score = Tally(score, entity.Game{Status: entity.StatusFinished, Winner: entity.PlayerTie})

		assert.Equal(t, entity.Score{X: 1, O: 1, Draw: 1}, score)
	})

	t.Run("Ongoing games do not count", func(t *testing.T) {
		score := Tally(entity.Score{X: 2}, entity.NewGame())

		assert.Equal(t, entity.Score{X: 2}, score)
	})
}
