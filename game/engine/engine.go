package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

var (
	ErrOutOfRange      = errors.New("cell index out of range")
	ErrAlreadyRevealed = errors.New("cell already revealed")
)

// Board is an ordered sequence of cells. It is not safe for concurrent use;
// the owning session serializes access.
type Board struct {
	cells    []Cell
	revealed int
}

// NewBoard generates a board from the given configuration.
// A nil rng falls back to the package-level generator.
func NewBoard(config *BoardConfig, rng *rand.Rand) (*Board, error) {
	if err := ValidateBoardConfig(config); err != nil {
		return nil, err
	}

	zeros := config.ZeroCount()
	values := sampleDistinct(rng, config.MinValue, config.MaxValue, config.Size-zeros)

	cells := make([]Cell, 0, config.Size)
	for _, v := range values {
		cells = append(cells, Cell{Value: v})
	}
	for i := 0; i < zeros; i++ {
		cells = append(cells, Cell{Value: 0})
	}

	shuffle(rng, len(cells), func(i, j int) {
		cells[i], cells[j] = cells[j], cells[i]
	})

	return &Board{cells: cells}, nil
}

// NewBoardFromValues builds a board with a fixed layout, all cells hidden
func NewBoardFromValues(values []int) *Board {
	cells := make([]Cell, len(values))
	for i, v := range values {
		cells[i] = Cell{Value: v}
	}
	return &Board{cells: cells}
}

// Reveal uncovers the cell at index
func (b *Board) Reveal(index int) (RevealOutcome, error) {
	if index < 0 || index >= len(b.cells) {
		return "", fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, index, len(b.cells))
	}
	if b.cells[index].Revealed {
		return "", fmt.Errorf("%w: %d", ErrAlreadyRevealed, index)
	}

	b.cells[index].Revealed = true
	b.revealed++

	if b.cells[index].IsLossMarker() {
		return Loss, nil
	}
	return Safe, nil
}

// Size returns the number of cells
func (b *Board) Size() int {
	return len(b.cells)
}

// Cell returns the cell at index
func (b *Board) Cell(index int) (Cell, error) {
	if index < 0 || index >= len(b.cells) {
		return Cell{}, fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, index, len(b.cells))
	}
	return b.cells[index], nil
}

// Cells returns a copy of every cell in board order
func (b *Board) Cells() []Cell {
	out := make([]Cell, len(b.cells))
	copy(out, b.cells)
	return out
}

// RevealedCount returns how many cells have been uncovered
func (b *Board) RevealedCount() int {
	return b.revealed
}

// ZeroCount returns how many loss markers the board holds
func (b *Board) ZeroCount() int {
	return CountLossMarkers(b.cells)
}
