package smartwallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/holiman/uint256"
)

// AccountType tags the disjoint account variants. The two variants
// share no deployment semantics, so there is no common base type:
// the factory only accepts the native-smart capability surface and
// webauthn accounts are a separate type entirely.
type AccountType string

const (
	AccountTypeNativeSmart AccountType = "native-smart"
	AccountTypeWebAuthn    AccountType = "native-webAuthn"
)

// Call is one element of a batched account execution. Data and Value
// may be left unset; they encode as empty bytes and zero and decode
// back the same way. Ordering within a batch is preserved verbatim
// through an encode/decode round trip.
type Call struct {
	To    common.Address
	Value *big.Int
	Data  []byte
}

// DeployerArgs carries the target deployer contract and the calldata
// that deploys the account. A nil *DeployerArgs means the account is
// already deployed and needs no deployment calldata; a non-nil value
// always has both fields populated, never one without the other.
type DeployerArgs struct {
	Deployer     common.Address
	DeployerData []byte
}

// AccountImplementation is the minimal contract an account variant
// must satisfy to be wrapped by NewSmartAccount. Implementations
// resolve their own address (possibly with a network round trip),
// encode call batches for their execution contract, produce their
// deployment calldata, and delegate cryptographic work to the owner
// capability they were constructed with.
//
// Optional capabilities are separate interfaces (CallDecoder,
// RawHashSigner, NonceReader, NonceKeySourcer, GasEstimator) that
// the wrapper detects with type assertions.
type AccountImplementation interface {
	// Client returns the network handle the implementation reads
	// chain state through.
	Client() *Client

	// GetAddress resolves the account address. It may perform a
	// deterministic counterfactual derivation against the deployer
	// contract and must cache the outcome: address derivation is a
	// pure function of its inputs.
	GetAddress(ctx context.Context) (common.Address, error)

	// EncodeCalls encodes an ordered batch of calls into calldata
	// for the account's execution contract.
	EncodeCalls(calls []Call) ([]byte, error)

	// GetDeployerArgs returns the deployer address and deployment
	// calldata for the account, regardless of deployment state.
	// Suppressing the args once deployed is the wrapper's job.
	GetDeployerArgs(ctx context.Context) (*DeployerArgs, error)

	// StubSignature returns a fixed, non-verifying signature of the
	// exact length a real one would have, for gas estimation.
	StubSignature() []byte

	SignMessage(ctx context.Context, message []byte) ([]byte, error)
	SignTypedData(ctx context.Context, typedData apitypes.TypedData) ([]byte, error)

	// SignTransaction binds the account address and chain id into
	// the transaction, then signs its canonical serialization.
	// Returns the serialized signed transaction.
	SignTransaction(ctx context.Context, tx *AccountTransaction) ([]byte, error)
}

// CallDecoder is the optional inverse of EncodeCalls.
type CallDecoder interface {
	DecodeCalls(data []byte) ([]Call, error)
}

// RawHashSigner is the optional raw-hash signing capability of an
// account implementation, distinct from the owner-level capability
// of the same shape in that implementations are expected to bind
// the digest into their replay-safe hashing scheme first.
type RawHashSigner interface {
	SignHash(ctx context.Context, hash common.Hash) ([]byte, error)
}

// NonceReader overrides the default on-chain nonce lookup. Account
// variants that pack their nonce space differently implement this
// while still participating in the wrapper's key derivation policy.
type NonceReader interface {
	Nonce(ctx context.Context, key *uint256.Int) (*big.Int, error)
}

// NonceKeySourcer lets an implementation supply its own nonce key
// source in place of the wrapper's default.
type NonceKeySourcer interface {
	NonceKeySource() NonceKeySource
}

// GasEstimator is the optional gas estimation hook.
type GasEstimator interface {
	EstimateGas(ctx context.Context, tx *AccountTransaction) (uint64, error)
}
