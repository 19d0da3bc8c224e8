// Package prompt implements the interactive console used between pipeline
// stages: rename confirmation, series-name correction for unresolved guesses,
// and candidate selection when a search returns more than one series.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"retitle/internal/services"
	"retitle/internal/services/tvdb"
)

// Answer is the decision taken at the rename confirmation prompt.
type Answer int

const (
	// AnswerYes proceeds with the single planned rename.
	AnswerYes Answer = iota + 1
	// AnswerNo skips the file without renaming.
	AnswerNo
	// AnswerAlways proceeds and suppresses the prompt for the rest of the run.
	AnswerAlways
	// AnswerQuit aborts the whole batch.
	AnswerQuit
)

// Console prompts on out and reads replies from in. Both ends are injected so
// tests can script a session; production wiring passes os.Stdin and os.Stdout.
type Console struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewConsole returns a console reading replies from in and writing prompts to
// out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewScanner(in), out: out}
}

// Confirm prints a question and a one-letter option list, then reads replies
// until one matches an option. An empty reply selects the default, which is
// shown in brackets. A closed input stream aborts the run so piped input can
// never hang on an unanswered prompt.
func (c *Console) Confirm(ctx context.Context, question string, options []string, def string) (string, error) {
	rendered := make([]string, 0, len(options))
	for _, option := range options {
		if option == "" {
			continue
		}
		if option == def {
			option = "[" + option + "]"
		}
		rendered = append(rendered, option)
	}
	optionList := strings.Join(rendered, "/")

	for {
		if err := ctx.Err(); err != nil {
			return "", services.ErrUserAbort
		}
		fmt.Fprintln(c.out, question)
		fmt.Fprintf(c.out, "(%s) ", optionList)

		answer, err := c.readLine()
		if err != nil {
			return "", err
		}
		for _, option := range options {
			if answer == option {
				return answer, nil
			}
		}
		if answer == "" {
			return def, nil
		}
	}
}

// ConfirmRename asks whether one planned rename should proceed. The reply
// maps onto an Answer; only input failures surface as errors.
func (c *Console) ConfirmRename(ctx context.Context) (Answer, error) {
	answer, err := c.Confirm(ctx, "Rename?", []string{"y", "n", "a", "q"}, "y")
	if err != nil {
		return AnswerQuit, err
	}
	return answerFor(answer), nil
}

// ConfirmMove asks whether one planned relocation should proceed. Used when
// files move without being renamed first.
func (c *Console) ConfirmMove(ctx context.Context) (Answer, error) {
	answer, err := c.Confirm(ctx, "Move?", []string{"y", "n", "a", "q"}, "y")
	if err != nil {
		return AnswerQuit, err
	}
	return answerFor(answer), nil
}

func answerFor(reply string) Answer {
	switch reply {
	case "a":
		return AnswerAlways
	case "q":
		return AnswerQuit
	case "y":
		return AnswerYes
	default:
		return AnswerNo
	}
}

// AskSeriesName shows the file whose series could not be found and reads a
// corrected series name. The reply is trimmed but otherwise unvalidated; the
// caller decides whether it is substantial enough to retry with.
func (c *Console) AskSeriesName(ctx context.Context, sourcePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", services.ErrUserAbort
	}
	fmt.Fprintf(c.out, "Current file: %s\n", sourcePath)
	fmt.Fprintln(c.out, "Please enter series name:")
	return c.readLine()
}

// PickSeries lists candidate series with their first-aired year and reads a
// 1-based choice. An empty reply picks the first candidate, matching the
// search's own ranking. Out-of-range or non-numeric replies re-prompt.
func (c *Console) PickSeries(ctx context.Context, query string, options []tvdb.Series) (tvdb.Series, error) {
	if len(options) == 0 {
		return tvdb.Series{}, services.Wrap(services.ErrValidation, "prompt", "pick series", "no candidates to choose from", nil)
	}

	fmt.Fprintf(c.out, "Search results for %q:\n", query)
	for i, series := range options {
		if series.Year > 0 {
			fmt.Fprintf(c.out, "%d -> %s (%d)\n", i+1, series.Name, series.Year)
		} else {
			fmt.Fprintf(c.out, "%d -> %s\n", i+1, series.Name)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return tvdb.Series{}, services.ErrUserAbort
		}
		fmt.Fprint(c.out, "Enter choice (return for first): ")

		answer, err := c.readLine()
		if err != nil {
			return tvdb.Series{}, err
		}
		if answer == "" {
			return options[0], nil
		}
		choice, err := strconv.Atoi(answer)
		if err != nil || choice < 1 || choice > len(options) {
			fmt.Fprintf(c.out, "Invalid choice %q, expected 1-%d\n", answer, len(options))
			continue
		}
		return options[choice-1], nil
	}
}

func (c *Console) readLine() (string, error) {
	if c.in.Scan() {
		return strings.TrimSpace(c.in.Text()), nil
	}
	if err := c.in.Err(); err != nil {
		return "", services.Wrap(services.ErrUserAbort, "prompt", "read input", "input stream failed", err)
	}
	// EOF. Without a terminal there is nobody to answer, so quit cleanly.
	return "", services.ErrUserAbort
}
