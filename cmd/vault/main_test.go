package main

import (
	"os"
	"path/filepath"
	"testing"

	prt "github.com/abcfe/abcfe-vault/protocol"
	"github.com/stretchr/testify/require"
)

func TestParseChains(t *testing.T) {
	require.Equal(t, []prt.Blockchain{prt.EOSIO, prt.Ethereum, prt.Bitcoin}, parseChains(" EOS, eth,,btc "))
	require.Empty(t, parseChains(""))
}

func TestPidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "vault.pid")

	_, err := readPidFile(path)
	require.Error(t, err)
	require.False(t, isRunning(path))

	require.NoError(t, writePidFile(path, os.Getpid()))
	pid, err := readPidFile(path)
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), pid)
	require.True(t, isRunning(path))

	removePidFile(path)
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}
