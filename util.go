package smartwallet

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	cpy := make([]byte, len(b))
	copy(cpy, b)
	return cpy
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func emptyIfNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// Address pointers serialize as empty bytes when absent and as the
// 20-byte address otherwise.
func addressPtrToBytes(addr *common.Address) []byte {
	if addr == nil {
		return []byte{}
	}
	return addr.Bytes()
}

func addressPtrFromBytes(b []byte) *common.Address {
	if len(b) != common.AddressLength {
		return nil
	}
	addr := common.BytesToAddress(b)
	return &addr
}
