package errors

import (
	goerrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithContext(t *testing.T) {
	cause := New("connection refused")
	err := WithContext(WithContext(cause, "dial"), "reconnect agent")

	assert.EqualError(t, err, "reconnect agent: dial: connection refused")
	assert.Equal(t, cause, RootCause(err))
	assert.True(t, goerrors.Is(err, cause))
	assert.NoError(t, WithContext(nil, "ignored"))
}

func TestGetPrintableMessage(t *testing.T) {
	friendly := NewFriendlyError("Project %q is unknown.", "p1")
	assert.Equal(t, `Project "p1" is unknown.`,
		GetPrintableMessage(WithContext(friendly, "delete")))
	assert.Equal(t, "delete: boom",
		GetPrintableMessage(WithContext(New("boom"), "delete")))
}

func TestIsUnreachable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		exp  bool
	}{
		{
			name: "Unreachable",
			err:  ConnectionError{Service: "agent", Kind: KindUnreachable, Err: New("refused")},
			exp:  true,
		},
		{
			name: "WrappedUnreachable",
			err: WithContext(ConnectionError{
				Service: "agent", Kind: KindUnreachable, Err: New("refused")}, "connect"),
			exp: true,
		},
		{
			name: "Generic",
			err:  ConnectionError{Service: "agent", Kind: KindGeneric, Err: New("bad status")},
			exp:  false,
		},
		{
			name: "NotAConnectionError",
			err:  New("refused"),
			exp:  false,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.exp, IsUnreachable(test.err))
		})
	}
}

func TestConnectionErrorMessage(t *testing.T) {
	err := ConnectionError{Service: "sync tool", Kind: KindUnreachable, Err: New("dial tcp: refused")}
	assert.Equal(t, "sync tool not responding: dial tcp: refused", err.Error())
}
