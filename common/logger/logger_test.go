package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestHelpersWriteToLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	Info("vault ", "unlocked")
	Warn("unlock attempt ", 3)
	HandleErr(errors.New("boom"))
	HandleErr(nil)

	entries := logs.All()
	require.Len(t, entries, 3)
	require.Equal(t, "vault unlocked", entries[0].ContextMap()["Info"])
	require.Equal(t, "unlock attempt 3", entries[1].ContextMap()["Warn"])
	require.Equal(t, "boom", entries[2].ContextMap()["Err"])
}
