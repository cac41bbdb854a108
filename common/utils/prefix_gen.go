package utils

import (
	"strings"

	prt "github.com/abcfe/abcfe-vault/protocol"
)

// "opt:"
func GetOptionalKey(name string) []byte {
	return []byte(prt.PrefixOptional + name)
}

// GetOptionalName strips the "opt:" prefix from a stored key
func GetOptionalName(key []byte) string {
	return strings.TrimPrefix(string(key), prt.PrefixOptional)
}
