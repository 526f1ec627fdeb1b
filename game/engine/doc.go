// Package engine provides the board logic for Zero Blast.
//
// The engine package implements:
//   - Board generation from a validated BoardConfig
//   - Cell reveal with out-of-range and already-revealed detection
//   - Loss marker (value 0) accounting
//   - Board configuration loading and validation
//
// Core Types:
//
// Board is an ordered sequence of cells. A cell carries an immutable value and
// a revealed flag that only ever flips from false to true. BoardConfig defines
// the board size, the share of loss markers and the range the remaining
// distinct values are drawn from.
//
// Usage:
//
//	board, err := engine.NewBoard(engine.DefaultBoardConfig(), nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	outcome, err := board.Reveal(12)
//	if outcome == engine.Loss {
//		// the revealing player lost
//	}
//
// Board Rules:
//
// The classic board has 49 cells. 15 of them are loss markers; the other 34
// hold pairwise-distinct values in [1, 999]. Cell order is a uniform random
// permutation. The board is generated once and never regenerated.
//
// Concurrency:
//
// Board is not safe for concurrent use. The game session that owns a board
// serializes every access.
package engine
