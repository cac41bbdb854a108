package eos

import (
	"testing"

	"github.com/btcsuite/btcutil/base58"
	"github.com/stretchr/testify/require"
)

func decodeWIF(t *testing.T, wif string) []byte {
	t.Helper()
	payload, version, err := base58.CheckDecode(wif)
	require.NoError(t, err)
	require.Equal(t, wifPrefix, version)
	return payload
}
