package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sidkik/devmirror/pkg/errors"
)

func TestPromptYesOrNo(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		exp   bool
	}{
		{name: "Yes", stdin: "y\n", exp: true},
		{name: "YesUpperCase", stdin: "YES\n", exp: true},
		{name: "No", stdin: "n\n", exp: false},
		{name: "Empty", stdin: "\n", exp: false},
		{name: "EOF", stdin: "yes", exp: true},
	}

	origStdin, origStdout := stdin, stdout
	defer func() {
		stdin, stdout = origStdin, origStdout
	}()
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			stdin, stdout = strings.NewReader(test.stdin), out

			res, err := PromptYesOrNo("Continue?")
			assert.NoError(t, err)
			assert.Equal(t, test.exp, res)
			assert.Equal(t, "Continue? (y/N) ", out.String())
		})
	}
}

func TestHandleFatalError(t *testing.T) {
	defer func(orig func(int)) {
		exit = orig
	}(exit)

	var code int
	exit = func(c int) { code = c }

	HandleFatalError(errors.NewFriendlyError("friendly"))
	assert.Equal(t, 1, code)
}

func TestProgressPrinter(t *testing.T) {
	out := &bytes.Buffer{}
	pp := NewProgressPrinter(out, "Working")
	go pp.Run()
	pp.Stop()
	assert.True(t, strings.HasPrefix(out.String(), "Working"))
	assert.True(t, strings.HasSuffix(out.String(), "\n"))
}
