package node

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xpeer-network/chasm/pkg/types"
)

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// resolveCoinbase parses the configured reward address.
func resolveCoinbase(coinbaseStr string) (types.Address, error) {
	if coinbaseStr == "" {
		return nil, fmt.Errorf("mining requires a coinbase address")
	}
	addr, err := types.ParseAddress(coinbaseStr)
	if err != nil {
		return nil, fmt.Errorf("invalid coinbase address: %w", err)
	}
	return addr, nil
}
