// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalURL(t *testing.T) {
	var out strings.Builder
	term := &Terminal{In: strings.NewReader("http://localhost:8090/fdb/test/db\n"), Out: &out}

	got, err := term.URL("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8090/fdb/test/db", got)
	assert.Contains(t, out.String(), DefaultURL)
}

func TestTerminalURLEmptyTakesDefault(t *testing.T) {
	var out strings.Builder
	term := &Terminal{In: strings.NewReader("\n"), Out: &out}

	got, err := term.URL("http://example.com/fdb/a/b")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/fdb/a/b", got)
}

func TestTerminalURLRejectsInvalid(t *testing.T) {
	var out strings.Builder
	term := &Terminal{In: strings.NewReader("not a url\nhttp://ok.example/fdb/a/b\n"), Out: &out}

	got, err := term.URL("")
	require.NoError(t, err)
	assert.Equal(t, "http://ok.example/fdb/a/b", got)
	assert.Contains(t, out.String(), "valid URL")
}

func TestTerminalCredential(t *testing.T) {
	var out strings.Builder
	term := &Terminal{In: strings.NewReader("  secret-key \n"), Out: &out}

	got, err := term.Credential()
	require.NoError(t, err)
	assert.Equal(t, "secret-key", got)
}

func TestTerminalEOF(t *testing.T) {
	term := &Terminal{In: strings.NewReader(""), Out: &strings.Builder{}}
	_, err := term.Credential()
	require.Error(t, err)
}
