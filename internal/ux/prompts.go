package ux

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter reads answers from a line-oriented input. It is the fallback when
// stdin is not a terminal, and what tests drive.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	// fd is the terminal file descriptor used to read passwords without
	// echo, or -1 when input is not a terminal.
	fd int
}

// NewPrompter creates a Prompter over in/out
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	return &Prompter{in: bufio.NewReader(in), out: out, fd: fd}
}

// Line prompts for a value, returning defaultValue on empty input
func (p *Prompter) Line(message, defaultValue string) (string, error) {
	if defaultValue != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", message, defaultValue)
	} else {
		fmt.Fprintf(p.out, "%s: ", message)
	}

	response, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || response == "") {
		if defaultValue != "" {
			return defaultValue, nil
		}
		return "", fmt.Errorf("no input for %q: %w", message, err)
	}

	response = strings.TrimSpace(response)
	if response == "" {
		return defaultValue, nil
	}
	return response, nil
}

// Password prompts for a secret. On a terminal the input is not echoed.
func (p *Prompter) Password(message string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", message)
	if p.fd >= 0 {
		b, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	response, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || response == "") {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(response, "\r\n"), nil
}
