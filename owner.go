package smartwallet

import "github.com/ethereum/go-ethereum/common"

// Owner is the capability the caller supplies for the account's
// controlling key. The library never holds key material itself;
// anything that can report an address satisfies the base interface.
type Owner interface {
	Address() common.Address
}

// OwnerRawSigner is the optional raw-hash signing capability. Owners
// backed by keystores or remote signers that cannot sign arbitrary
// digests simply don't implement it, in which case every signing
// operation fails with ErrOwnerCannotSignHash rather than degrading
// silently.
type OwnerRawSigner interface {
	Owner

	// SignHash signs the 32-byte digest and returns a 65-byte
	// r || s || v secp256k1 signature.
	SignHash(hash common.Hash) ([]byte, error)
}
