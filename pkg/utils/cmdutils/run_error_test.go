package cmdutils_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgateway-dev/gwsuite/pkg/utils/cmdutils"
)

func TestRunError(t *testing.T) {
	r := require.New(t)

	inner := errors.New("exit status 1")
	err := cmdutils.NewRunError(inner, []byte("no such deployment\n"), "kubectl", "set", "env", "deployment/my gw", "--list")

	r.ErrorIs(err, inner)
	r.Equal(`kubectl set env "deployment/my gw" --list`, err.PrettyCommand())
	r.Equal(`command "kubectl set env "deployment/my gw" --list" failed with error: exit status 1: no such deployment`, err.Error())
	r.Equal("no such deployment\n", err.OutputString())

	var nilErr *cmdutils.RunError
	r.Empty(nilErr.Error())
	r.NoError(nilErr.Unwrap())
}

func TestPrettyCommand(t *testing.T) {
	tests := []struct {
		name     string
		quoteAll bool
		args     []string
		want     string
	}{
		{name: "no args", want: "cfssl"},
		{name: "plain args", args: []string{"sign", "-ca", "ca.pem"}, want: "cfssl sign -ca ca.pem"},
		{name: "whitespace arg", args: []string{"genkey", "a b"}, want: `cfssl genkey "a b"`},
		{name: "quote all", quoteAll: true, args: []string{"genkey"}, want: `"cfssl" "genkey"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, cmdutils.PrettyCommand(tt.quoteAll, "cfssl", tt.args...))
		})
	}
}
