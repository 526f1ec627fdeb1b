package engine

// RevealOutcome reports what a revealed cell contained
type RevealOutcome string

const (
	// Safe means the revealed cell held a nonzero value
	Safe RevealOutcome = "safe"
	// Loss means the revealed cell held a loss marker (value 0)
	Loss RevealOutcome = "loss"

	// Defaults for the classic board
	DefaultBoardSize   = 49
	DefaultZeroPercent = 30
	DefaultMinValue    = 1
	DefaultMaxValue    = 999

	// Validation constants
	MinBoardSize = 1
	MaxBoardSize = 400
)

// Cell represents a single board cell
type Cell struct {
	Value    int  `json:"value"`
	Revealed bool `json:"revealed"`
}

// IsLossMarker reports whether the cell ends the game for whoever reveals it
func (c Cell) IsLossMarker() bool {
	return c.Value == 0
}

// BoardConfig describes how a board is generated
type BoardConfig struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Size        int    `json:"size"`
	ZeroPercent int    `json:"zero_percent"`
	MinValue    int    `json:"min_value"`
	MaxValue    int    `json:"max_value"`
}
