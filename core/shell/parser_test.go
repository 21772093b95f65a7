package shell

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ExampleParse() {
	p, err := Parse("grep -v x < in.txt | sort > out.txt &", DefaultLimits())
	if err != nil {
		panic(err)
	}

	fmt.Println(p.Background, p.Text)
	for _, stage := range p.Stages {
		fmt.Printf("%q in=%q out=%q last=%v\n", stage.Args, stage.Stdin, stage.Stdout, stage.Last)
	}

	// Output: true grep -v x < in.txt | sort > out.txt
	// ["grep" "-v" "x"] in="in.txt" out="" last=false
	// ["sort"] in="" out="out.txt" last=true
}

func TestParse(t *testing.T) {
	cases := map[string]struct {
		line       string
		wantArgs   [][]string
		background bool
		text       string
	}{
		"blank": {
			line: "   \t ",
		},
		"single word": {
			line:     "ls",
			wantArgs: [][]string{{"ls"}},
			text:     "ls",
		},
		"collapses whitespace": {
			line:     "  ls \t -l   /tmp  ",
			wantArgs: [][]string{{"ls", "-l", "/tmp"}},
			text:     "ls \t -l   /tmp",
		},
		"pipeline": {
			line:     "cat f | grep x | wc -l",
			wantArgs: [][]string{{"cat", "f"}, {"grep", "x"}, {"wc", "-l"}},
			text:     "cat f | grep x | wc -l",
		},
		"pipe without spaces": {
			line:     "cat f|wc",
			wantArgs: [][]string{{"cat", "f"}, {"wc"}},
			text:     "cat f|wc",
		},
		"background": {
			line:       "sleep 10 &",
			wantArgs:   [][]string{{"sleep", "10"}},
			background: true,
			text:       "sleep 10",
		},
		"attached background marker": {
			line:       "sleep 10&",
			wantArgs:   [][]string{{"sleep", "10"}},
			background: true,
			text:       "sleep 10",
		},
		"background pipeline": {
			line:       "yes | head -n 1 &  ",
			wantArgs:   [][]string{{"yes"}, {"head", "-n", "1"}},
			background: true,
			text:       "yes | head -n 1",
		},
		"lone background marker": {
			line:       "&",
			background: true,
		},
		"no quoting": {
			line:     `echo "a b"`,
			wantArgs: [][]string{{"echo", `"a`, `b"`}},
			text:     `echo "a b"`,
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			p, err := Parse(tc.line, DefaultLimits())
			require.NoError(t, err)

			var gotArgs [][]string
			for _, stage := range p.Stages {
				gotArgs = append(gotArgs, stage.Args)
			}
			assert.Equal(t, tc.wantArgs, gotArgs)
			assert.Equal(t, tc.background, p.Background)
			assert.Equal(t, tc.text, p.Text)
			assert.Equal(t, len(tc.wantArgs) == 0, p.Empty())

			for i, stage := range p.Stages {
				assert.Equal(t, i == len(p.Stages)-1, stage.Last, "stage %d", i)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]struct {
		line string
		want error
	}{
		"leading pipe":       {line: "| wc", want: ErrEmptyStage},
		"trailing pipe":      {line: "ls |", want: ErrEmptyStage},
		"double pipe":        {line: "ls || wc", want: ErrEmptyStage},
		"redirect only":      {line: "> out", want: ErrEmptyStage},
		"missing out target": {line: "ls >", want: ErrMissingRedirectTarget},
		"missing in target":  {line: "wc < | ls", want: ErrMissingRedirectTarget},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			p, err := Parse(tc.line, DefaultLimits())
			assert.Nil(t, p)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestParseLimits(t *testing.T) {
	limits := Limits{MaxLineLength: 16, MaxArgs: 3}

	t.Run("line at limit", func(t *testing.T) {
		_, err := Parse(strings.Repeat("a", 16), limits)
		assert.NoError(t, err)
	})

	t.Run("line over limit", func(t *testing.T) {
		_, err := Parse(strings.Repeat("a", 17), limits)
		assert.ErrorIs(t, err, ErrInputTooLarge)
	})

	t.Run("args at limit", func(t *testing.T) {
		_, err := Parse("a b c | d e f", limits)
		assert.NoError(t, err)
	})

	t.Run("args over limit", func(t *testing.T) {
		_, err := Parse("a b c d", limits)
		assert.ErrorIs(t, err, ErrInputTooLarge)
	})

	t.Run("redirect words count", func(t *testing.T) {
		_, err := Parse("a > b c", limits)
		assert.ErrorIs(t, err, ErrInputTooLarge)
	})

	t.Run("zero disables", func(t *testing.T) {
		_, err := Parse(strings.Repeat("a ", 500), Limits{})
		assert.NoError(t, err)
	})
}

func TestParseDoesNotAlias(t *testing.T) {
	line := "echo one two | cat"
	p, err := Parse(line, DefaultLimits())
	require.NoError(t, err)

	p.Stages[0].Args[1] = "changed"
	again, err := Parse(line, DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, "echo one two | cat", line)
	assert.Equal(t, []string{"echo", "one", "two"}, again.Stages[0].Args)
}

func TestResolve(t *testing.T) {
	cases := map[string]struct {
		words []string
		want  Stage
	}{
		"no redirects": {
			words: []string{"ls", "-l"},
			want:  Stage{Args: []string{"ls", "-l"}},
		},
		"input": {
			words: []string{"wc", "<", "in"},
			want:  Stage{Args: []string{"wc"}, Stdin: "in"},
		},
		"output before args": {
			words: []string{"echo", ">", "out", "hi"},
			want:  Stage{Args: []string{"echo", "hi"}, Stdout: "out"},
		},
		"both": {
			words: []string{"sort", "<", "in", ">", "out"},
			want:  Stage{Args: []string{"sort"}, Stdin: "in", Stdout: "out"},
		},
		"last wins": {
			words: []string{"cat", "<", "a", "<", "b", ">", "c", ">", "d"},
			want:  Stage{Args: []string{"cat"}, Stdin: "b", Stdout: "d"},
		},
		"attached marker is a word": {
			words: []string{"echo", ">out"},
			want:  Stage{Args: []string{"echo", ">out"}},
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			got, err := Resolve(tc.words)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveErrors(t *testing.T) {
	_, err := Resolve([]string{"cat", "<"})
	assert.ErrorIs(t, err, ErrMissingRedirectTarget)

	_, err = Resolve([]string{"<", "in"})
	assert.ErrorIs(t, err, ErrEmptyStage)

	_, err = Resolve(nil)
	assert.ErrorIs(t, err, ErrEmptyStage)
}
