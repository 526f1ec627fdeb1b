package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrInvalidBoardConfig is wrapped by every board configuration failure
var ErrInvalidBoardConfig = errors.New("invalid board configuration")

// DefaultBoardConfig returns the classic 49-cell board
func DefaultBoardConfig() *BoardConfig {
	return &BoardConfig{
		Name:        "classic",
		Description: "Seven by seven board, 30% loss markers, values 1-999",
		Size:        DefaultBoardSize,
		ZeroPercent: DefaultZeroPercent,
		MinValue:    DefaultMinValue,
		MaxValue:    DefaultMaxValue,
	}
}

// ZeroCount returns how many loss markers a board built from this config holds.
// The share is rounded to the nearest cell, so 30% of 49 gives 15.
func (c *BoardConfig) ZeroCount() int {
	return (c.Size*c.ZeroPercent + 50) / 100
}

// ValueRangeSize returns how many distinct nonzero values the config can draw from
func (c *BoardConfig) ValueRangeSize() int {
	return c.MaxValue - c.MinValue + 1
}

// ValidateBoardConfig validates a board configuration for correctness
func ValidateBoardConfig(config *BoardConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidBoardConfig)
	}
	if config.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidBoardConfig)
	}

	if config.Size < MinBoardSize || config.Size > MaxBoardSize {
		return fmt.Errorf("%w: size must be between %d and %d, got %d",
			ErrInvalidBoardConfig, MinBoardSize, MaxBoardSize, config.Size)
	}
	if config.ZeroPercent < 0 || config.ZeroPercent > 100 {
		return fmt.Errorf("%w: zero_percent must be between 0 and 100, got %d",
			ErrInvalidBoardConfig, config.ZeroPercent)
	}

	// Zero is reserved for loss markers
	if config.MinValue < 1 {
		return fmt.Errorf("%w: min_value must be at least 1, got %d", ErrInvalidBoardConfig, config.MinValue)
	}
	if config.MinValue > config.MaxValue {
		return fmt.Errorf("%w: min_value (%d) must not exceed max_value (%d)",
			ErrInvalidBoardConfig, config.MinValue, config.MaxValue)
	}

	safe := config.Size - config.ZeroCount()
	if safe > config.ValueRangeSize() {
		return fmt.Errorf("%w: %d distinct values needed but range [%d, %d] only holds %d",
			ErrInvalidBoardConfig, safe, config.MinValue, config.MaxValue, config.ValueRangeSize())
	}

	return nil
}

// LoadBoardConfig loads and validates a board configuration from a JSON file
func LoadBoardConfig(filename string) (*BoardConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var config BoardConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse board config '%s': %w", filename, err)
	}

	if err := ValidateBoardConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
