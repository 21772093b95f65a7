// Package shell turns a command line into running processes.
//
// The accepted language is a small subset of
// https://pubs.opengroup.org/onlinepubs/9699919799/utilities/V3_chap02.html
//
// 1. A trailing & on the line runs the whole pipeline in the background.
//
// 2. The line is split on | into stages and each stage is split on whitespace
// into words. There is no quoting, escaping or expansion.
//
// 3. The words "<" and ">" followed by a file name redirect the stage's
// standard input and output. The marker and file name are removed from the
// argument list.
//
// 4. Each stage is started as its own process with its standard output piped
// into the next stage's standard input.
//
// 5. Foreground pipelines are waited on, background pipelines are handed to a
// job table.
package shell

import (
	"fmt"
	"strings"
)

const (
	// StageSeparator splits a line into pipeline stages.
	StageSeparator = "|"
	// BackgroundMarker at the end of a line detaches the pipeline.
	BackgroundMarker = "&"

	DefaultMaxLineLength = 1024
	DefaultMaxArgs       = 100
)

// Limits bounds the size of accepted input.
type Limits struct {
	// MaxLineLength is the longest accepted line in bytes.
	MaxLineLength int
	// MaxArgs is the most words accepted in a single stage.
	MaxArgs int
}

// DefaultLimits returns the limits of the classic interpreter.
func DefaultLimits() Limits {
	return Limits{
		MaxLineLength: DefaultMaxLineLength,
		MaxArgs:       DefaultMaxArgs,
	}
}

// Pipeline is a parsed command line.
type Pipeline struct {
	// Stages in the order they are connected.
	Stages []Stage
	// Background is set if the line ended with the background marker.
	Background bool
	// Text is the line with the background marker and surrounding space
	// removed.
	Text string
}

// Empty reports whether the pipeline has nothing to run.
func (p *Pipeline) Empty() bool {
	return len(p.Stages) == 0
}

// Parse splits line into a pipeline. The line is not modified and none of the
// returned slices alias it.
func Parse(line string, limits Limits) (*Pipeline, error) {
	if limits.MaxLineLength > 0 && len(line) > limits.MaxLineLength {
		return nil, fmt.Errorf("%w: line is %d bytes, limit is %d", ErrInputTooLarge, len(line), limits.MaxLineLength)
	}

	text := strings.TrimSpace(line)
	background := false
	if strings.HasSuffix(text, BackgroundMarker) {
		background = true
		text = strings.TrimSpace(strings.TrimSuffix(text, BackgroundMarker))
	}

	out := &Pipeline{Background: background, Text: text}
	if text == "" {
		return out, nil
	}

	rawStages := strings.Split(text, StageSeparator)
	for i, raw := range rawStages {
		words := strings.Fields(raw)
		if len(words) == 0 {
			return nil, fmt.Errorf("%w near stage %d", ErrEmptyStage, i+1)
		}
		if limits.MaxArgs > 0 && len(words) > limits.MaxArgs {
			return nil, fmt.Errorf("%w: stage %d has %d arguments, limit is %d", ErrInputTooLarge, i+1, len(words), limits.MaxArgs)
		}

		stage, err := Resolve(words)
		if err != nil {
			return nil, err
		}
		stage.Last = i == len(rawStages)-1
		out.Stages = append(out.Stages, stage)
	}

	return out, nil
}
