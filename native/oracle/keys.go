package oracle

import "vaultchain/crypto"

var (
	memberPrefix = []byte("cdp/oracle/member/")
	quotaPrefix  = []byte("cdp/oracle/quota/")
	latestKey    = []byte("cdp/oracle/latest")
)

func memberKey(addr crypto.Address) []byte {
	return append(append([]byte(nil), memberPrefix...), addr.Bytes()...)
}

func quotaKey(addr crypto.Address) []byte {
	return append(append([]byte(nil), quotaPrefix...), addr.Bytes()...)
}
