package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHexHelpers(t *testing.T) {
	b, err := HexToBytes("0xdeadBEEF")
	require.NoError(t, err)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, b)

	_, err = HexToBytes("zz")
	require.Error(t, err)
}

func TestOptionalKey(t *testing.T) {
	key := GetOptionalKey("backup")
	require.Equal(t, "opt:backup", string(key))
	require.Equal(t, "backup", GetOptionalName(key))
}

func TestSerializeData(t *testing.T) {
	in := map[string]int{"a": 1}

	raw, err := SerializeData(in, SerializationFormatJSON)
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(raw))

	indented, err := SerializeData(in, SerializationFormatIndentJSON)
	require.NoError(t, err)
	require.Contains(t, string(indented), "\n")

	var out map[string]int
	require.NoError(t, DeserializeData(indented, &out, SerializationFormatIndentJSON))
	require.Equal(t, in, out)

	_, err = SerializeData(in, 99)
	require.Error(t, err)
}
