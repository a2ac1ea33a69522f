package entity

// Snapshot is what the presentation layer needs to draw a session.
type Snapshot struct {
	ID          string `json:"id"`
	Mode        string `json:"mode"`
	Board       Board  `json:"board"`
	Turn        string `json:"turn"`
	Winner      string `json:"winner,omitempty"`
	WinningLine []int  `json:"winning_line,omitempty"`
	Status      string `json:"status"`
	Phase       string `json:"phase"`
	AIThinking  bool   `json:"ai_thinking"`
	Taunt       string `json:"taunt,omitempty"`
	Score       Score  `json:"score"`
}

func (that Session) Snapshot() Snapshot {
	return Snapshot{
		ID:          that.ID,
		Mode:        that.Mode,
		Board:       that.Game.Board,
		Turn:        that.Game.Turn,
		Winner:      that.Game.Winner,
		WinningLine: that.Game.WinningLine,
		Status:      that.Game.Status,
		Phase:       that.Phase(),
		AIThinking:  that.AIThinking,
		Taunt:       that.Taunt,
		Score:       that.Score,
	}
}
