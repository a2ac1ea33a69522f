package entity

import (
	"fmt"
	"time"

	"github.com/rocketscienceinc/neon-tictactoe/internal/apperror"
)

const (
	ModePvP = "pvp"
	ModeAI  = "ai"
)

const (
	PhaseXTurn      = "x_turn"
	PhaseOTurn      = "o_turn"
	PhaseAIThinking = "ai_thinking"
	PhaseFinished   = "finished"
)

// BotMark is the mark played by the AI in ModeAI.
const BotMark = PlayerO

type Score struct {
	X    int `json:"x"`
	O    int `json:"o"`
	Draw int `json:"draw"`
}

func (that Score) Total() int {
	return that.X + that.O + that.Draw
}

// Session is the state owned by one orchestrator: the current game, the running score and the mode.
// Generation advances on every reset so late AI replies can be recognised.
type Session struct {
	ID         string    `json:"id"`
	Mode       string    `json:"mode"`
	Game       Game      `json:"game"`
	Score      Score     `json:"score"`
	Generation uint64    `json:"generation"`
	AIThinking bool      `json:"ai_thinking"`
	Taunt      string    `json:"taunt,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func NewSession(id string) *Session {
	return &Session{
		ID:   id,
		Mode: ModeAI,
		Game: NewGame(),
	}
}

func ValidateMode(mode string) error {
	switch mode {
	case ModePvP, ModeAI:
		return nil
	default:
		return fmt.Errorf("%w: %q", apperror.ErrUnknownMode, mode)
	}
}

func (that Session) IsWithBot() bool {
	return that.Mode == ModeAI
}

// IsBotTurn reports whether the AI should be asked for a move.
func (that Session) IsBotTurn() bool {
	return that.IsWithBot() && that.Game.IsOngoing() && that.Game.Turn == BotMark
}

func (that Session) Phase() string {
	switch {
	case that.Game.IsFinished():
		return PhaseFinished
	case that.AIThinking:
		return PhaseAIThinking
	case that.Game.Turn == PlayerO:
		return PhaseOTurn
	default:
		return PhaseXTurn
	}
}
