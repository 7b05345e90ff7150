// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prompt resolves a bad URL or missing credential mid-run. The
// migration core only needs the synchronous "give me a corrected
// value" contract; the terminal implementation here is deliberately
// minimal.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// DefaultURL is offered when the user is prompted for a ledger URL.
const DefaultURL = "http://localhost:8090/fdb/ledger/name"

// Prompter supplies corrected connection values on demand. Implementations
// block until the user answers.
type Prompter interface {
	// URL asks for a ledger URL, offering def as the default, and
	// returns a syntactically valid URL.
	URL(def string) (string, error)

	// Credential asks for an API key.
	Credential() (string, error)
}

// Terminal is a Prompter reading newline-terminated answers from In
// and writing prompts to Out.
type Terminal struct {
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

// URL prompts until the answer parses as a URL. An empty answer takes
// the default.
func (t *Terminal) URL(def string) (string, error) {
	if def == "" {
		def = DefaultURL
	}
	for {
		fmt.Fprintf(t.Out, "Ledger URL [%s]: ", def)
		line, err := t.readLine()
		if err != nil {
			return "", err
		}
		if line == "" {
			line = def
		}
		if _, err := url.ParseRequestURI(line); err == nil {
			return line, nil
		}
		fmt.Fprintln(t.Out, "Please provide a valid URL.")
	}
}

// Credential prompts for an API key.
func (t *Terminal) Credential() (string, error) {
	fmt.Fprint(t.Out, "API Key: ")
	return t.readLine()
}

func (t *Terminal) readLine() (string, error) {
	if t.reader == nil {
		t.reader = bufio.NewReader(t.In)
	}
	line, err := t.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading prompt answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}
