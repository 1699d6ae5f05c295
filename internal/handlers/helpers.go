package handlers

import (
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// parseAddress validates the 0x-prefixed 20-byte hex form before converting.
// common.HexToAddress alone would silently accept malformed input.
func parseAddress(raw string) (common.Address, bool) {
	if !strings.HasPrefix(raw, "0x") || len(raw) != 42 || !common.IsHexAddress(raw) {
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

// parseUintQuery parses a positive integer query parameter with a default
func parseUintQuery(raw string, fallback uint64) uint64 {
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return value
}
