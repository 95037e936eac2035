package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"gatekeep/internal/gateway"
)

// ErrPasteCancelled is returned when the user aborts the paste prompt.
var ErrPasteCancelled = errors.New("cancelled")

// LineReader reads one line of user input. Write prints above the prompt.
type LineReader interface {
	Readline() (string, error)
	Write(p []byte) (int, error)
	Close() error
}

// pasteHint is shown when a pasted address carries no callback parameters.
const pasteHint = "That address has no sign-in result in it. Copy the full address from the browser, including everything after '#'.\n"

// newLineReader is a variable for tests.
var newLineReader = func(prompt string) (LineReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
	})
	if err != nil {
		return nil, err
	}
	return rl, nil
}

// PromptFragment asks the user to paste the address the provider redirected
// to and returns its fragment. A bare fragment is accepted as well.
func PromptFragment(prompt string) (string, error) {
	rl, err := newLineReader(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return "", ErrPasteCancelled
		}
		if err != nil {
			return "", fmt.Errorf("readline error: %w", err)
		}

		if fragment := gateway.NormalizeFragment(line); fragment != "" {
			return "#" + fragment, nil
		}
		if strings.TrimSpace(line) != "" {
			_, _ = io.WriteString(rl, pasteHint)
		}
	}
}
