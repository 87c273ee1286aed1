package smartwallet

import "errors"

var (
	ErrNoCalls                 = errors.New("no calls provided for encoding")
	ErrUnsupportedCallEncoding = errors.New("unsupported call encoding")
	ErrDecodeNotSupported      = errors.New("account implementation does not support call decoding")
	ErrRawSignNotSupported     = errors.New("raw hash signing is not supported")
	ErrOwnerCannotSignHash     = errors.New("owner does not support raw hash signing")
	ErrNotWrappedSignature     = errors.New("signature is not wrapped in an erc-6492 envelope")
	ErrNonceKeyTooLarge        = errors.New("nonce key does not fit in 192 bits")
	ErrEmptyCallResult         = errors.New("empty result from contract read")
	ErrMissingChainId          = errors.New("client has no chain id configured")
	ErrInvalidWebAuthnKey      = errors.New("webauthn public key must be 64 bytes (uncompressed P-256 x || y)")
)
