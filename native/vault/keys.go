package vault

import (
	"encoding/binary"

	"vaultchain/crypto"
)

var (
	vaultPrefix    = []byte("cdp/vault/record/")
	indexPrefix    = []byte("cdp/vault/index/")
	sequenceKey    = []byte("cdp/vault/sequence")
	totalSupplyKey = []byte("cdp/supply/total")
)

func vaultKey(owner crypto.Address, id uint64) []byte {
	buf := make([]byte, 0, len(vaultPrefix)+crypto.AddressLength+8)
	buf = append(buf, vaultPrefix...)
	buf = append(buf, owner.Bytes()...)
	return binary.BigEndian.AppendUint64(buf, id)
}

func indexKey(id uint64) []byte {
	buf := append([]byte(nil), indexPrefix...)
	return binary.BigEndian.AppendUint64(buf, id)
}
