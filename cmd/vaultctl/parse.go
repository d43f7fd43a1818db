package main

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"vaultchain/crypto"
)

// parseAmount accepts integer base units written plainly, with underscores
// or in exponent form ("1e24"). Fractions and signs are rejected.
func parseAmount(name, raw string) (*big.Int, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(raw), "_", "")
	if trimmed == "" {
		return nil, fmt.Errorf("--%s is required", name)
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("--%s: %q is not a number", name, raw)
	}
	if !d.IsInteger() {
		return nil, fmt.Errorf("--%s: %q must be a whole number of base units", name, raw)
	}
	if d.Sign() < 0 {
		return nil, fmt.Errorf("--%s: %q must not be negative", name, raw)
	}
	return d.BigInt(), nil
}

func parseVaultID(raw string) (uint64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("--vault is required")
	}
	id, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("--vault: %q is not a vault id", raw)
	}
	return id, nil
}

func parseAddress(name, raw string) (crypto.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return crypto.Address{}, fmt.Errorf("--%s is required", name)
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("--%s: %w", name, err)
	}
	return addr, nil
}

// splitList turns "a, b,,c" into [a b c].
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
