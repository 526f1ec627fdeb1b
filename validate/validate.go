// Command validate lints board preset JSON files. It is stricter than the
// server's loader and checks:
//   - JSON structure, with unknown fields rejected
//   - The preset name matches its file name
//   - A description is present
//   - Board rules: size, zero share and a value range wide enough for
//     distinct nonzero values
//   - A board can actually be dealt from the preset
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/zero-blast/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validatePreset loads and validates a single preset file
func validatePreset(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var preset engine.BoardConfig
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&preset); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	stem := strings.TrimSuffix(result.File, ".json")
	if preset.Name != stem {
		result.fail("Name %q does not match file name %q", preset.Name, stem)
	}
	if strings.TrimSpace(preset.Description) == "" {
		result.fail("Description is empty")
	}

	if err := engine.ValidateBoardConfig(&preset); err != nil {
		result.fail("%v", err)
		return result
	}

	board, err := engine.NewBoard(&preset, rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		result.fail("Failed to deal a board: %v", err)
		return result
	}
	if got := board.ZeroCount(); got != preset.ZeroCount() {
		result.fail("Dealt board holds %d zeros, expected %d", got, preset.ZeroCount())
		return result
	}

	result.info("Board: %d cells, %d zeros, values %d-%d", preset.Size, preset.ZeroCount(), preset.MinValue, preset.MaxValue)
	result.info("Value range: %d distinct values for %d safe cells", preset.ValueRangeSize(), preset.Size-preset.ZeroCount())
	return result
}

// validateDir validates every *.json file in dir, writes a report to w and
// reports whether all of them are valid
func validateDir(dir string, w io.Writer) (bool, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return false, fmt.Errorf("error finding preset files: %w", err)
	}
	if len(files) == 0 {
		return false, fmt.Errorf("no preset files in %s", dir)
	}

	allValid := true
	for _, file := range files {
		result := validatePreset(file)

		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Errors {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Fprintln(w, "  ❌ "+err)
				}
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All presets are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some presets have errors")
	}
	return allValid, nil
}

func main() {
	cmd := &cli.Command{
		Name:      "validate",
		Usage:     "Lint Zero Blast board presets",
		ArgsUsage: "[presets-dir]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := "../presets"
			if cmd.Args().Present() {
				dir = cmd.Args().First()
			}

			ok, err := validateDir(dir, os.Stdout)
			if err != nil {
				return err
			}
			if !ok {
				return cli.Exit("", 1)
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
