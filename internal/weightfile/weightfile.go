// Package weightfile reads and watches the user-edited `name = weight` override file.
package weightfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"bettershuffle/internal/core"
)

var (
	errFieldCount = errors.New("expected a name and a weight separated by ' = '")
	errEmptyName  = errors.New("track name is empty")
)

// Read parses the weight file at path.
func Read(path string) ([]core.WeightOverride, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening weight file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads one `name = weight` override per line. Blank lines are skipped and
// both LF and CRLF line endings are accepted. Any malformed line fails the whole
// input with a *core.ParseError.
func Parse(r io.Reader) ([]core.WeightOverride, error) {
	var overrides []core.WeightOverride

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		override, err := parseLine(line, lineNo)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, override)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading weight file: %w", err)
	}

	return overrides, nil
}

// splitLine separates name and weight at the first " = ". Lines without a
// spaced separator must contain exactly one '='.
func splitLine(line string) (string, string, bool) {
	if name, weight, ok := strings.Cut(line, " = "); ok {
		return name, weight, true
	}
	fields := strings.Split(line, "=")
	if len(fields) != 2 {
		return "", "", false
	}
	return fields[0], fields[1], true
}

func parseLine(line string, lineNo int) (core.WeightOverride, error) {
	rawName, rawWeight, ok := splitLine(line)
	if !ok {
		return core.WeightOverride{}, &core.ParseError{Line: lineNo, Text: line, Err: errFieldCount}
	}

	name := strings.TrimSpace(rawName)
	if name == "" {
		return core.WeightOverride{}, &core.ParseError{Line: lineNo, Text: line, Err: errEmptyName}
	}

	weight, err := strconv.Atoi(strings.TrimSpace(rawWeight))
	if err != nil {
		return core.WeightOverride{}, &core.ParseError{Line: lineNo, Text: line, Err: err}
	}
	if weight < 0 {
		return core.WeightOverride{}, &core.ParseError{
			Line: lineNo,
			Text: line,
			Err:  fmt.Errorf("weight %d must not be negative", weight),
		}
	}
	if weight > core.MaxWeight {
		return core.WeightOverride{}, &core.ParseError{
			Line: lineNo,
			Text: line,
			Err:  fmt.Errorf("weight %d exceeds the maximum of %d", weight, core.MaxWeight),
		}
	}

	return core.WeightOverride{Name: name, Weight: weight, Line: lineNo}, nil
}
