package events

import (
	"math/big"
	"strconv"

	"vaultchain/crypto"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func uintToString(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func formatAddress(addr crypto.Address) string {
	if len(addr.Bytes()) == 0 {
		return ""
	}
	return addr.String()
}
