package smartwallet

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"
)

// SmartAccount composes an AccountImplementation with a nonce key
// source and a deployment-state cache into a value that is safe to
// use both before and after the account contract is deployed. The
// wrapper intercepts the deployment-sensitive operations (deployer
// args, signature wrapping, nonce key derivation) and delegates
// everything else to the implementation.
//
// The address is resolved exactly once at construction and the
// deployment flag only ever moves from false to true: deployment is
// irreversible, so a positive probe is cached for the lifetime of
// the value.
type SmartAccount struct {
	impl      AccountImplementation
	client    *Client
	addr      common.Address
	keySource NonceKeySource

	deployed atomic.Bool
}

type smartAccountOpts struct {
	keySource NonceKeySource
}

func defaultSmartAccountOpts() *smartAccountOpts {
	return &smartAccountOpts{}
}

type smartAccountOptFunc func(opts *smartAccountOpts)

// Configuration function that sets the nonce key source. Takes
// precedence over a source supplied by the implementation itself.
func WithNonceKeySource(src NonceKeySource) smartAccountOptFunc {
	return func(opts *smartAccountOpts) {
		opts.keySource = src
	}
}

// NewSmartAccount wraps an account implementation into a fully
// capable SmartAccount. The implementation's address must resolve
// here; a resolution failure aborts construction and no partially
// initialized account is ever returned.
//
// Returns a pointer to the new SmartAccount as well as an error on
// failure.
func NewSmartAccount(ctx context.Context, impl AccountImplementation, optFns ...smartAccountOptFunc) (*SmartAccount, error) {
	opts := defaultSmartAccountOpts()
	for _, fn := range optFns {
		fn(opts)
	}

	addr, err := impl.GetAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed resolving account address: %w", err)
	}

	keySource := opts.keySource
	if keySource == nil {
		if sourcer, ok := impl.(NonceKeySourcer); ok {
			keySource = sourcer.NonceKeySource()
		}
	}
	if keySource == nil {
		keySource = TimestampKeySource{}
	}

	return &SmartAccount{
		impl:      impl,
		client:    impl.Client(),
		addr:      addr,
		keySource: keySource,
	}, nil
}

func (a *SmartAccount) Type() AccountType {
	return AccountTypeNativeSmart
}

// Address returns the account address resolved at construction.
func (a *SmartAccount) Address() common.Address {
	return a.addr
}

func (a *SmartAccount) Client() *Client {
	return a.client
}

// Reports whether the account contract exists on chain. A positive
// result is cached and returned immediately on subsequent calls;
// concurrent probes before the first positive result may each hit
// the network, but the flag never moves back to false once set.
func (a *SmartAccount) IsDeployed(ctx context.Context) (bool, error) {
	if a.deployed.Load() {
		return true, nil
	}

	deployed, err := a.client.HasDeployedCode(ctx, a.addr)
	if err != nil {
		return false, fmt.Errorf("failed probing deployment state: %w", err)
	}

	if deployed {
		a.deployed.Store(true)
	}

	return deployed, nil
}

// Returns the deployer address and deployment calldata for the
// account, or nil once the account is deployed: a deployed account
// never needs deployment calldata, so the implementation's own
// derivation is short-circuited entirely.
func (a *SmartAccount) GetDeployerArgs(ctx context.Context) (*DeployerArgs, error) {
	deployed, err := a.IsDeployed(ctx)
	if err != nil {
		return nil, err
	}
	if deployed {
		return nil, nil
	}

	return a.impl.GetDeployerArgs(ctx)
}

type getNonceOpts struct {
	key *uint256.Int
}

type getNonceOptFunc func(opts *getNonceOpts)

// Configuration function that supplies the nonce key verbatim,
// bypassing key derivation. The caller's key always wins.
func WithNonceKey(key *uint256.Int) getNonceOptFunc {
	return func(opts *getNonceOpts) {
		opts.key = key
	}
}

// Returns the account's current nonce. Unless a key is supplied
// explicitly, one is derived from the bound key source scoped to
// (address, chain id). Implementations with their own nonce packing
// are delegated to with the derived key; otherwise the nonce is read
// from the on-chain nonce manager.
func (a *SmartAccount) GetNonce(ctx context.Context, optFns ...getNonceOptFunc) (*big.Int, error) {
	opts := &getNonceOpts{}
	for _, fn := range optFns {
		fn(opts)
	}

	key := opts.key
	if key == nil {
		derived, err := a.keySource.NonceKey(ctx, a.addr, a.client.ChainId())
		if err != nil {
			return nil, fmt.Errorf("failed deriving nonce key: %w", err)
		}
		key = derived
	}

	if err := checkNonceKey(key); err != nil {
		return nil, err
	}

	if reader, ok := a.impl.(NonceReader); ok {
		return reader.Nonce(ctx, key)
	}

	return a.client.Nonce(ctx, a.addr, key)
}

func (a *SmartAccount) EncodeCalls(calls []Call) ([]byte, error) {
	return a.impl.EncodeCalls(calls)
}

// Decodes execution calldata back into calls, if the implementation
// supports decoding.
func (a *SmartAccount) DecodeCalls(data []byte) ([]Call, error) {
	decoder, ok := a.impl.(CallDecoder)
	if !ok {
		return nil, ErrDecodeNotSupported
	}

	return decoder.DecodeCalls(data)
}

func (a *SmartAccount) StubSignature() []byte {
	return a.impl.StubSignature()
}

// signAndWrap runs the deployer-args lookup and the underlying
// signing operation concurrently, joins both results, and wraps the
// signature in the ERC-6492 envelope when the account is not yet
// deployed. The two legs are independent, so neither waits on the
// other; both must succeed before anything is returned.
func (a *SmartAccount) signAndWrap(ctx context.Context, sign func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	var (
		args *DeployerArgs
		sig  []byte
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		args, err = a.GetDeployerArgs(gctx)
		return err
	})

	g.Go(func() error {
		var err error
		sig, err = sign(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if args == nil {
		return sig, nil
	}

	return WrapSignature(args.Deployer, args.DeployerData, sig)
}

// Signs a raw 32-byte digest, wrapping the result in the ERC-6492
// envelope while the account is undeployed. Only available when the
// implementation exposes raw-hash signing at all.
func (a *SmartAccount) SignHash(ctx context.Context, hash common.Hash) ([]byte, error) {
	signer, ok := a.impl.(RawHashSigner)
	if !ok {
		return nil, ErrRawSignNotSupported
	}

	return a.signAndWrap(ctx, func(ctx context.Context) ([]byte, error) {
		return signer.SignHash(ctx, hash)
	})
}

// Signs an arbitrary message, wrapping the result in the ERC-6492
// envelope while the account is undeployed.
func (a *SmartAccount) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	return a.signAndWrap(ctx, func(ctx context.Context) ([]byte, error) {
		return a.impl.SignMessage(ctx, message)
	})
}

// Signs EIP-712 typed data, wrapping the result in the ERC-6492
// envelope while the account is undeployed.
func (a *SmartAccount) SignTypedData(ctx context.Context, typedData apitypes.TypedData) ([]byte, error) {
	return a.signAndWrap(ctx, func(ctx context.Context) ([]byte, error) {
		return a.impl.SignTypedData(ctx, typedData)
	})
}

// Signs a transaction and returns its serialized signed form.
// Transactions carry their deployment instructions in their own
// Deployer fields, so no signature wrapping applies here.
func (a *SmartAccount) SignTransaction(ctx context.Context, tx *AccountTransaction) ([]byte, error) {
	return a.impl.SignTransaction(ctx, tx)
}

// Estimates gas through the implementation's hook when present.
func (a *SmartAccount) EstimateGas(ctx context.Context, tx *AccountTransaction) (uint64, error) {
	if estimator, ok := a.impl.(GasEstimator); ok {
		return estimator.EstimateGas(ctx, tx)
	}

	return tx.VerificationGasLimit, nil
}
