package smartwallet

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// SimpleAccount is the reference AccountImplementation: a smart
// wallet contract deployed counterfactually through a deterministic
// deployer and executed through a single/batch call dispatch ABI.
// All signing delegates to the owner capability after binding the
// digest into the replay-safe EIP-712 structure.
type SimpleAccount struct {
	client   *Client
	owner    Owner
	deployer common.Address
	salt     *big.Int

	mu       sync.Mutex
	addr     common.Address
	resolved bool
}

type simpleAccountOpts struct {
	address  *common.Address
	deployer common.Address
	salt     *big.Int
}

func defaultSimpleAccountOpts() *simpleAccountOpts {
	return &simpleAccountOpts{
		deployer: DEFAULT_DEPLOYER_ADDRESS,
		salt:     new(big.Int),
	}
}

type simpleAccountOptFunc func(opts *simpleAccountOpts)

// Configuration function that pins the account address explicitly,
// skipping counterfactual derivation.
func WithAccountAddress(addr common.Address) simpleAccountOptFunc {
	return func(opts *simpleAccountOpts) {
		opts.address = &addr
	}
}

// Configuration function that overrides the deployer contract.
func WithDeployer(addr common.Address) simpleAccountOptFunc {
	return func(opts *simpleAccountOpts) {
		opts.deployer = addr
	}
}

// Configuration function that sets the deployment salt, allowing one
// owner to control multiple accounts.
func WithSalt(salt *big.Int) simpleAccountOptFunc {
	return func(opts *simpleAccountOpts) {
		opts.salt = salt
	}
}

// Returns a pointer to a new SimpleAccount bound to the given owner
// and network client, configurable with the provided configuration
// functions.
func NewSimpleAccount(client *Client, owner Owner, optFns ...simpleAccountOptFunc) *SimpleAccount {
	opts := defaultSimpleAccountOpts()
	for _, fn := range optFns {
		fn(opts)
	}

	acc := &SimpleAccount{
		client:   client,
		owner:    owner,
		deployer: opts.deployer,
		salt:     opts.salt,
	}

	if opts.address != nil {
		acc.addr = *opts.address
		acc.resolved = true
	}

	return acc
}

func (s *SimpleAccount) Type() AccountType {
	return AccountTypeNativeSmart
}

func (s *SimpleAccount) Client() *Client {
	return s.client
}

func (s *SimpleAccount) Owner() Owner {
	return s.owner
}

// Resolves the account address. When no address was supplied
// explicitly it is computed by the deployer contract's getAddress
// view function for (owner, salt) and cached: the derivation is a
// pure function of owner, salt, and deployer bytecode.
func (s *SimpleAccount) GetAddress(ctx context.Context) (common.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resolved {
		return s.addr, nil
	}

	data, err := simpleDeployerAbi.Pack("getAddress", s.owner.Address(), s.salt)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed packing getAddress call: %w", err)
	}

	res, err := s.client.Call(ctx, s.deployer, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed deriving account address: %w", err)
	}

	vals, err := simpleDeployerAbi.Unpack("getAddress", res)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed unpacking derived address: %w", err)
	}

	s.addr = vals[0].(common.Address)
	s.resolved = true

	return s.addr, nil
}

// abiCall mirrors the tuple components of the executeBatch dispatch.
type abiCall struct {
	Target common.Address
	Value  *big.Int
	Data   []byte
}

// Encodes an ordered batch of calls as calldata for the account's
// execution contract: a single call dispatches through execute, two
// or more through executeBatch. Order is preserved verbatim.
func (s *SimpleAccount) EncodeCalls(calls []Call) ([]byte, error) {
	if len(calls) == 0 {
		return nil, ErrNoCalls
	}

	if len(calls) == 1 {
		call := calls[0]
		data, err := simpleAccountAbi.Pack("execute", call.To, bigOrZero(call.Value), emptyIfNil(call.Data))
		if err != nil {
			return nil, fmt.Errorf("failed packing execute call: %w", err)
		}
		return data, nil
	}

	batch := make([]abiCall, 0, len(calls))
	for _, call := range calls {
		batch = append(batch, abiCall{
			Target: call.To,
			Value:  bigOrZero(call.Value),
			Data:   emptyIfNil(call.Data),
		})
	}

	data, err := simpleAccountAbi.Pack("executeBatch", batch)
	if err != nil {
		return nil, fmt.Errorf("failed packing executeBatch call: %w", err)
	}

	return data, nil
}

// Decodes execution calldata back into the ordered batch of calls it
// encodes. Exactly the execute and executeBatch selectors are
// recognized; anything else is a decode error naming the unrecognized
// selector, never a silent fallback.
func (s *SimpleAccount) DecodeCalls(data []byte) ([]Call, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("calldata too short: %w", ErrUnsupportedCallEncoding)
	}

	method, err := simpleAccountAbi.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("unrecognized selector %s: %w", hexutil.Encode(data[:4]), ErrUnsupportedCallEncoding)
	}

	vals, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("failed unpacking %s calldata: %w", method.Name, err)
	}

	switch method.Name {
	case "execute":
		return []Call{{
			To:    vals[0].(common.Address),
			Value: vals[1].(*big.Int),
			Data:  vals[2].([]byte),
		}}, nil

	case "executeBatch":
		batch := *abi.ConvertType(vals[0], new([]abiCall)).(*[]abiCall)

		calls := make([]Call, 0, len(batch))
		for _, c := range batch {
			calls = append(calls, Call{
				To:    c.Target,
				Value: c.Value,
				Data:  c.Data,
			})
		}
		return calls, nil
	}

	return nil, fmt.Errorf("unrecognized selector %s: %w", hexutil.Encode(data[:4]), ErrUnsupportedCallEncoding)
}

// Returns the deployer address together with the createAccount
// calldata for (owner, salt). Always populated here: suppressing the
// args once the account is deployed is the wrapper's responsibility.
func (s *SimpleAccount) GetDeployerArgs(ctx context.Context) (*DeployerArgs, error) {
	data, err := simpleDeployerAbi.Pack("createAccount", s.owner.Address(), s.salt)
	if err != nil {
		return nil, fmt.Errorf("failed packing createAccount call: %w", err)
	}

	return &DeployerArgs{
		Deployer:     s.deployer,
		DeployerData: data,
	}, nil
}

func (s *SimpleAccount) StubSignature() []byte {
	return copyBytes(stubSignature)
}

// replaySafeHash binds a raw digest into the account's EIP-712
// domain. Because the account address and the chain id are part of
// the signed structure, a signature produced for one account or
// chain cannot be replayed against another.
func (s *SimpleAccount) replaySafeHash(ctx context.Context, hash common.Hash) (common.Hash, error) {
	addr, err := s.GetAddress(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed resolving account address: %w", err)
	}

	chainId := s.client.ChainId()
	if chainId == nil {
		return common.Hash{}, ErrMissingChainId
	}

	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			REPLAY_SAFE_PRIMARY_TYPE: []apitypes.Type{
				{Name: "hash", Type: "bytes32"},
			},
		},
		PrimaryType: REPLAY_SAFE_PRIMARY_TYPE,
		Domain: apitypes.TypedDataDomain{
			Name:              REPLAY_SAFE_DOMAIN_NAME,
			Version:           REPLAY_SAFE_DOMAIN_VERSION,
			ChainId:           (*math.HexOrDecimal256)(chainId),
			VerifyingContract: addr.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"hash": hexutil.Encode(hash[:]),
		},
	}

	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed hashing replay-safe structure: %w", err)
	}

	return common.BytesToHash(digest), nil
}

func (s *SimpleAccount) ownerSignHash(hash common.Hash) ([]byte, error) {
	rawSigner, ok := s.owner.(OwnerRawSigner)
	if !ok {
		return nil, ErrOwnerCannotSignHash
	}

	sig, err := rawSigner.SignHash(hash)
	if err != nil {
		return nil, fmt.Errorf("owner failed signing hash: %w", err)
	}

	return sig, nil
}

// Signs a raw 32-byte digest through the replay-safe hash.
func (s *SimpleAccount) SignHash(ctx context.Context, hash common.Hash) ([]byte, error) {
	digest, err := s.replaySafeHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	return s.ownerSignHash(digest)
}

// Signs an arbitrary message: the message is hashed per EIP-191
// personal-sign rules, then bound into the replay-safe structure and
// signed by the owner.
func (s *SimpleAccount) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	return s.SignHash(ctx, common.BytesToHash(accounts.TextHash(message)))
}

// Signs EIP-712 typed data: the typed-data digest is bound into the
// replay-safe structure and signed by the owner.
func (s *SimpleAccount) SignTypedData(ctx context.Context, typedData apitypes.TypedData) ([]byte, error) {
	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("failed hashing typed data: %w", err)
	}

	return s.SignHash(ctx, common.BytesToHash(digest))
}

// Binds the account address and chain id into the transaction, signs
// its canonical serialization hash with the owner, and returns the
// serialized signed transaction. Transaction hashing uses the typed
// envelope directly, without EIP-712 domain wrapping.
func (s *SimpleAccount) SignTransaction(ctx context.Context, tx *AccountTransaction) ([]byte, error) {
	addr, err := s.GetAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed resolving account address: %w", err)
	}

	tx.Sender = addr
	if tx.ChainId == nil {
		if tx.ChainId = s.client.ChainId(); tx.ChainId == nil {
			return nil, ErrMissingChainId
		}
	}

	hash, err := tx.SigningHash(tx.ChainId)
	if err != nil {
		return nil, err
	}

	sig, err := s.ownerSignHash(hash)
	if err != nil {
		return nil, err
	}

	tx.Signature = sig

	return tx.MarshalBinary()
}

// Pass-through gas estimation: reinterprets a pre-set verification
// gas limit instead of computing a fresh estimate. Callers with real
// estimation flows override this in their own implementations.
func (s *SimpleAccount) EstimateGas(ctx context.Context, tx *AccountTransaction) (uint64, error) {
	return tx.VerificationGasLimit, nil
}
