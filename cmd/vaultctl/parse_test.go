package main

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"vaultchain/crypto"
)

func TestParseAmount(t *testing.T) {
	cases := map[string]string{
		"1000":    "1000",
		" 1_000 ": "1000",
		"1e24":    "1000000000000000000000000",
		"2.5e1":   "25",
		"100.000": "100",
		"000042":  "42",
		"0":       "0",
	}
	for raw, want := range cases {
		got, err := parseAmount("amount", raw)
		require.NoError(t, err, raw)
		expected, _ := new(big.Int).SetString(want, 10)
		require.Zero(t, expected.Cmp(got), "%s parsed as %s", raw, got)
	}

	for _, raw := range []string{"", "abc", "1.5", "-3", "0x10"} {
		_, err := parseAmount("amount", raw)
		require.Error(t, err, raw)
	}
}

func TestParseVaultID(t *testing.T) {
	id, err := parseVaultID(" 7 ")
	require.NoError(t, err)
	require.Equal(t, uint64(7), id)

	for _, raw := range []string{"", "-1", "seven", "18446744073709551616"} {
		_, err := parseVaultID(raw)
		require.Error(t, err, raw)
	}
}

func TestParseAddress(t *testing.T) {
	want := crypto.NewAddress(crypto.VaultPrefix, bytes.Repeat([]byte{0x01}, crypto.AddressLength))
	got, err := parseAddress("owner", want.String())
	require.NoError(t, err)
	require.True(t, got.Equal(want))

	_, err = parseAddress("owner", "")
	require.ErrorContains(t, err, "--owner")
}

func TestSplitList(t *testing.T) {
	require.Equal(t, []string{"mint", "redeem", "withdraw"}, splitList("mint, redeem,,withdraw "))
	require.Nil(t, splitList(" , "))
}
