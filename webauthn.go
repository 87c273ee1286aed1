package smartwallet

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// WebAuthnAccount is the "native-webAuthn" account variant: identity
// is a P-256 public key, signing goes through a caller-supplied
// credential assertion, and there is no owner delegation and no
// deployment lifecycle. It deliberately shares no base type with the
// contract-based variant; the two have disjoint semantics and
// NewSmartAccount does not accept it.
type WebAuthnAccount struct {
	publicKey []byte
	sign      WebAuthnSignFunc
}

// WebAuthnSignFunc produces a credential assertion over a challenge.
// The returned bytes are the authenticator's signature material,
// opaque to this library.
type WebAuthnSignFunc func(ctx context.Context, challenge []byte) ([]byte, error)

// Returns a pointer to a new WebAuthnAccount for the 64-byte
// uncompressed P-256 public key (x || y, no prefix byte) and the
// given credential assertion function.
func NewWebAuthnAccount(publicKey []byte, sign WebAuthnSignFunc) (*WebAuthnAccount, error) {
	if len(publicKey) != 64 {
		return nil, ErrInvalidWebAuthnKey
	}

	return &WebAuthnAccount{
		publicKey: copyBytes(publicKey),
		sign:      sign,
	}, nil
}

func (w *WebAuthnAccount) Type() AccountType {
	return AccountTypeWebAuthn
}

func (w *WebAuthnAccount) PublicKey() []byte {
	return copyBytes(w.publicKey)
}

// Signs a raw 32-byte digest through the credential assertion.
func (w *WebAuthnAccount) SignHash(ctx context.Context, hash common.Hash) ([]byte, error) {
	sig, err := w.sign(ctx, hash[:])
	if err != nil {
		return nil, fmt.Errorf("webauthn assertion failed: %w", err)
	}

	return sig, nil
}

// Signs an arbitrary message hashed per EIP-191 personal-sign rules.
func (w *WebAuthnAccount) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	return w.SignHash(ctx, common.BytesToHash(accounts.TextHash(message)))
}

// Signs EIP-712 typed data.
func (w *WebAuthnAccount) SignTypedData(ctx context.Context, typedData apitypes.TypedData) ([]byte, error) {
	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("failed hashing typed data: %w", err)
	}

	return w.SignHash(ctx, common.BytesToHash(digest))
}
