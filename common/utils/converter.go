package utils

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Strip0x removes a leading 0x / 0X prefix
func Strip0x(str string) string {
	if len(str) >= 2 && (str[0:2] == "0x" || str[0:2] == "0X") {
		return str[2:]
	}
	return str
}

// HexToBytes decodes a hex string with or without 0x prefix
func HexToBytes(str string) ([]byte, error) {
	bytes, err := hex.DecodeString(Strip0x(strings.TrimSpace(str)))
	if err != nil {
		return nil, fmt.Errorf("invalid hex string: %w", err)
	}
	return bytes, nil
}

// Serialization formats
const (
	SerializationFormatJSON = iota
	SerializationFormatIndentJSON
)

// SerializeData encodes data in the given format
func SerializeData(data interface{}, format int) ([]byte, error) {
	switch format {
	case SerializationFormatJSON:
		return json.Marshal(data)
	case SerializationFormatIndentJSON:
		return json.MarshalIndent(data, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported serialization format: %d", format)
	}
}

// DeserializeData decodes data into result
func DeserializeData(data []byte, result interface{}, format int) error {
	switch format {
	case SerializationFormatJSON, SerializationFormatIndentJSON:
		return json.Unmarshal(data, result)
	default:
		return fmt.Errorf("unsupported serialization format: %d", format)
	}
}
