package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRootCmd_RegistersExpectedSubcommands(t *testing.T) {
	root := NewRootCmd()

	want := []string{"create", "checkout", "log", "ls", "show", "diff", "gc", "stats", "reset", "delete-latest", "branch"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		require.Equal(t, name, cmd.Name())
	}
}

func TestNewRootCmd_BranchDeleteIsRegistered(t *testing.T) {
	root := NewRootCmd()
	cmd, _, err := root.Find([]string{"branch", "delete"})
	require.NoError(t, err)
	require.Equal(t, "delete", cmd.Name())
}

func TestNewRootCmd_LockFlagIsRegistered(t *testing.T) {
	root := NewRootCmd()
	flag := root.PersistentFlags().Lookup("lock")
	require.NotNil(t, flag)
	require.Equal(t, "false", flag.DefValue)
}
