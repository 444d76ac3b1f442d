// Package console implements the interactive terminal host: line prompts,
// simulated captures for every method type and the command REPL.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/atinyakov/accessgate/internal/capture"
	"github.com/atinyakov/accessgate/internal/clock"
	"github.com/atinyakov/accessgate/internal/models"
)

// errBack is returned by captures when the user typed "back".
var errBack = errors.New("back")

// Console reads answers line by line and writes prompts.
type Console struct {
	in    *bufio.Scanner
	out   io.Writer
	clock clock.Clock
}

// New creates a Console. Tap timestamps are taken from clk when each line is read.
func New(in io.Reader, out io.Writer, clk clock.Clock) *Console {
	if clk == nil {
		clk = clock.System{}
	}
	return &Console{in: bufio.NewScanner(in), out: out, clock: clk}
}

// Printf writes formatted output.
func (c *Console) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

// Println writes a line.
func (c *Console) Println(args ...any) {
	_, _ = fmt.Fprintln(c.out, args...)
}

// Prompt prints label and returns the trimmed answer. ok is false on end of input.
func (c *Console) Prompt(label string) (answer string, ok bool) {
	c.Printf("%s", label)
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

// Confirm asks a yes/no question; anything but y/yes is no.
func (c *Console) Confirm(label string) (yes bool, ok bool) {
	answer, ok := c.Prompt(label + " [y/N]: ")
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, ok
	}
	return false, ok
}

// confirm is Confirm for wizard prompts. It returns errBack when the user
// asked to go back and io.EOF on end of input.
func (c *Console) confirm(label string) (bool, error) {
	answer, err := c.answer(label + " [y/N]: ")
	if err != nil {
		return false, err
	}
	return strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes"), nil
}

// Capture asks the user for one capture of the given method type.
// It returns errBack when the user asked to go back and io.EOF on end of input.
func (c *Console) Capture(t models.MethodType) (capture.Input, error) {
	switch t {
	case models.TapRhythm:
		return c.captureTaps()
	case models.Pin:
		pin, err := c.answer("Enter PIN: ")
		return capture.Input{Payload: pin}, err
	case models.FlipPattern:
		line, err := c.answer("Enter flips (UP DOWN LEFT RIGHT FACE_UP FACE_DOWN): ")
		return capture.Input{Tokens: strings.Fields(strings.ReplaceAll(line, ",", " "))}, err
	case models.Fingerprint:
		return c.captureBiometric()
	}
	return capture.Input{}, fmt.Errorf("unknown method type %q", t)
}

func (c *Console) answer(label string) (string, error) {
	answer, ok := c.Prompt(label)
	if !ok {
		return "", io.EOF
	}
	if strings.EqualFold(answer, "back") {
		return "", errBack
	}
	return answer, nil
}

// captureTaps records one timestamp per empty line until "done".
func (c *Console) captureTaps() (capture.Input, error) {
	c.Println("Press Enter once per tap, then type 'done'.")
	var stamps []int64
	for {
		answer, err := c.answer(fmt.Sprintf("tap %d> ", len(stamps)+1))
		if err != nil {
			return capture.Input{}, err
		}
		if strings.EqualFold(answer, "done") {
			return capture.Input{Timestamps: stamps}, nil
		}
		stamps = append(stamps, c.clock.Now().UnixMilli())
	}
}

// captureBiometric stands in for the platform prompt.
func (c *Console) captureBiometric() (capture.Input, error) {
	answer, err := c.answer("Touch the sensor (y = recognised, anything else = failure message): ")
	if err != nil {
		return capture.Input{}, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return capture.Input{Biometric: &capture.Biometric{OK: true}}, nil
	case "n", "no":
		answer = ""
	}
	return capture.Input{Biometric: &capture.Biometric{Message: answer}}, nil
}
