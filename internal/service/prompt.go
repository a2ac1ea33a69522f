package service

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/neon-tictactoe/internal/entity"
)

const promptTemplate = `You are playing a game of Tic-Tac-Toe. You are player 'O'.
The board is a 1D array of length 9.
0 is top-left, 1 is top-center, 2 is top-right, etc.
Current board state: %s.
'X' is the opponent. 'O' is you. null is empty.

Your goal is to win. If you cannot win immediately, block the opponent from winning.
If neither, play the optimal strategic move (center, corners, etc.).

Return a JSON object with:
1. 'move': The index (0-8) of the square you want to play. It MUST be a currently null square.
2. 'taunt': A very short, witty, hypercasual game style phrase (max 5 words) reacting to the game state (e.g., "Blocked you!", "My turn!", "Too easy.").`

func buildPrompt(board entity.Board) (string, error) {
	boardJSON, err := json.Marshal(board)
	if err != nil {
		return "", fmt.Errorf("could not marshal board: %w", err)
	}

	return fmt.Sprintf(promptTemplate, boardJSON), nil
}
