package shell

import "fmt"

const (
	RedirectIn  = "<"
	RedirectOut = ">"
)

// Stage is a single program invocation in a pipeline.
type Stage struct {
	// Args holds the program name followed by its arguments.
	Args []string
	// Last is set for the final stage of a pipeline.
	Last bool
	// Stdin is a file to read standard input from, blank for none.
	Stdin string
	// Stdout is a file to truncate and write standard output into, blank for
	// none.
	Stdout string
}

// Name returns the program name of the stage.
func (s Stage) Name() string {
	if len(s.Args) == 0 {
		return ""
	}
	return s.Args[0]
}

// Resolve pulls input and output redirects out of words. A repeated redirect
// replaces the earlier one. The filesystem is not consulted.
func Resolve(words []string) (Stage, error) {
	var stage Stage
	args := make([]string, 0, len(words))

	for i := 0; i < len(words); i++ {
		switch word := words[i]; word {
		case RedirectIn, RedirectOut:
			if i+1 >= len(words) {
				return Stage{}, fmt.Errorf("%w %q", ErrMissingRedirectTarget, word)
			}
			i++
			if word == RedirectIn {
				stage.Stdin = words[i]
			} else {
				stage.Stdout = words[i]
			}
		default:
			args = append(args, word)
		}
	}

	if len(args) == 0 {
		return Stage{}, ErrEmptyStage
	}

	stage.Args = args
	return stage, nil
}
