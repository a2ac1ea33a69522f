package entity

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/neon-tictactoe/internal/apperror"
)

const (
	StatusFinished = "finished"
	StatusOngoing  = "ongoing"

	PlayerX   = "X"
	PlayerO   = "O"
	PlayerTie = "draw"

	EmptyCell = ""
)

var (
	ErrInvalidCell       = errors.New("invalid cell index")
	ErrUnknownGameStatus = errors.New("unknown game status")
	ErrUnknownMark       = errors.New("unknown mark")

	// WinCombos are checked in this order: rows, columns, diagonals.
	WinCombos = [8][3]int{
		{0, 1, 2},
		{3, 4, 5},
		{6, 7, 8},
		{0, 3, 6},
		{1, 4, 7},
		{2, 5, 8},
		{0, 4, 8},
		{2, 4, 6},
	}
)

// Board is row-major: 0-2 top row, 3-5 middle, 6-8 bottom.
// It marshals empty cells as JSON null.
type Board [9]string

func (that Board) MarshalJSON() ([]byte, error) {
	cells := make([]*string, len(that))
	for i := range that {
		if that[i] != EmptyCell {
			mark := that[i]
			cells[i] = &mark
		}
	}

	return json.Marshal(cells)
}

func (that *Board) UnmarshalJSON(data []byte) error {
	var cells []*string
	if err := json.Unmarshal(data, &cells); err != nil {
		return fmt.Errorf("failed to unmarshal board: %w", err)
	}

	if len(cells) != len(that) {
		return fmt.Errorf("%w: board has %d cells", ErrInvalidCell, len(cells))
	}

	for i, cell := range cells {
		switch {
		case cell == nil:
			that[i] = EmptyCell
		case *cell == PlayerX, *cell == PlayerO:
			that[i] = *cell
		default:
			return fmt.Errorf("%w: %q", ErrUnknownMark, *cell)
		}
	}

	return nil
}

func (that Board) IsEmptyCell(cell int) bool {
	return cell >= 0 && cell < len(that) && that[cell] == EmptyCell
}

// EmptyCells returns the indices of unoccupied cells in ascending order.
func (that Board) EmptyCells() []int {
	cells := make([]int, 0, len(that))
	for i, cell := range that {
		if cell == EmptyCell {
			cells = append(cells, i)
		}
	}

	return cells
}

func (that Board) IsFull() bool {
	for _, cell := range that {
		if cell == EmptyCell {
			return false
		}
	}

	return true
}

// Outcome is the result of evaluating a board. Winner is EmptyCell while the game continues.
type Outcome struct {
	Winner string
	Line   []int
}

func (that Outcome) IsNone() bool {
	return that.Winner == EmptyCell
}

func (that Outcome) IsDraw() bool {
	return that.Winner == PlayerTie
}

// Evaluate reports the first completed line in WinCombos order, a draw for a full board, or no outcome.
func Evaluate(board Board) Outcome {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return Outcome{Winner: a, Line: []int{combo[0], combo[1], combo[2]}}
		}
	}

	// the game will continue until all the squares are full
	if !board.IsFull() {
		return Outcome{}
	}

	return Outcome{Winner: PlayerTie}
}

type Game struct {
	Board       Board  `json:"board"`
	Winner      string `json:"winner"`
	WinningLine []int  `json:"winning_line"`
	Status      string `json:"status"`
	Turn        string `json:"player_turn"`
}

func NewGame() Game {
	return Game{
		Turn:   PlayerX,
		Status: StatusOngoing,
	}
}

func (that Game) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that Game) IsOngoing() bool {
	return that.Status == StatusOngoing
}

func (that Game) ConfirmOngoingState() error {
	switch {
	case that.IsFinished():
		return apperror.ErrGameFinished
	case that.IsOngoing():
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownGameStatus, that.Status)
	}
}

func ToggleMark(mark string) string {
	if mark == PlayerX {
		return PlayerO
	}

	return PlayerX
}
