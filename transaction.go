package smartwallet

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// AccountTransaction is a native account-abstraction transaction:
// the account contract itself is the sender, validation is delegated
// to its code, and deployment instructions ride along for accounts
// that do not exist yet. Serialized as an EIP-2718 typed envelope,
// ACCOUNT_TX_TYPE || rlp(payload).
type AccountTransaction struct {
	ChainId *big.Int

	// RIP-7712 two-dimensional nonce: 192-bit key, 64-bit sequence.
	NonceKey *uint256.Int
	Nonce    uint64

	Sender common.Address

	// Deployment instructions, absent for deployed accounts.
	Deployer     *common.Address
	DeployerData []byte

	Paymaster     *common.Address
	PaymasterData []byte

	// Calldata executed against the account contract.
	ExecutionData []byte

	BuilderFee           *big.Int
	MaxPriorityFeePerGas *big.Int
	MaxFeePerGas         *big.Int

	VerificationGasLimit          uint64
	PaymasterVerificationGasLimit uint64
	PostOpGasLimit                uint64
	Gas                           uint64

	Signature []byte
}

// accountTxRLP is the wire layout. Optional addresses encode as
// empty bytes when absent and as the 20-byte address otherwise.
type accountTxRLP struct {
	ChainId                       *big.Int
	NonceKey                      *uint256.Int
	Nonce                         uint64
	Sender                        common.Address
	Deployer                      []byte
	DeployerData                  []byte
	Paymaster                     []byte
	PaymasterData                 []byte
	ExecutionData                 []byte
	BuilderFee                    *big.Int
	MaxPriorityFeePerGas          *big.Int
	MaxFeePerGas                  *big.Int
	VerificationGasLimit          uint64
	PaymasterVerificationGasLimit uint64
	PostOpGasLimit                uint64
	Gas                           uint64
	Signature                     []byte
}

func (tx *AccountTransaction) toRLP() *accountTxRLP {
	return &accountTxRLP{
		ChainId:                       bigOrZero(tx.ChainId),
		NonceKey:                      tx.nonceKeyOrZero(),
		Nonce:                         tx.Nonce,
		Sender:                        tx.Sender,
		Deployer:                      addressPtrToBytes(tx.Deployer),
		DeployerData:                  tx.DeployerData,
		Paymaster:                     addressPtrToBytes(tx.Paymaster),
		PaymasterData:                 tx.PaymasterData,
		ExecutionData:                 tx.ExecutionData,
		BuilderFee:                    bigOrZero(tx.BuilderFee),
		MaxPriorityFeePerGas:          bigOrZero(tx.MaxPriorityFeePerGas),
		MaxFeePerGas:                  bigOrZero(tx.MaxFeePerGas),
		VerificationGasLimit:          tx.VerificationGasLimit,
		PaymasterVerificationGasLimit: tx.PaymasterVerificationGasLimit,
		PostOpGasLimit:                tx.PostOpGasLimit,
		Gas:                           tx.Gas,
		Signature:                     tx.Signature,
	}
}

func (tx *AccountTransaction) nonceKeyOrZero() *uint256.Int {
	if tx.NonceKey == nil {
		return uint256.NewInt(0)
	}
	return tx.NonceKey
}

func (tx *AccountTransaction) Type() byte {
	return ACCOUNT_TX_TYPE
}

// SigningHash is the digest the sender's owner signs: the keccak-256
// hash of the typed envelope over every field except the signature,
// with the chain id bound in.
func (tx *AccountTransaction) SigningHash(chainId *big.Int) (common.Hash, error) {
	payload, err := rlp.EncodeToBytes([]interface{}{
		bigOrZero(chainId),
		tx.nonceKeyOrZero(),
		tx.Nonce,
		tx.Sender,
		addressPtrToBytes(tx.Deployer),
		tx.DeployerData,
		addressPtrToBytes(tx.Paymaster),
		tx.PaymasterData,
		tx.ExecutionData,
		bigOrZero(tx.BuilderFee),
		bigOrZero(tx.MaxPriorityFeePerGas),
		bigOrZero(tx.MaxFeePerGas),
		tx.VerificationGasLimit,
		tx.PaymasterVerificationGasLimit,
		tx.PostOpGasLimit,
		tx.Gas,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed rlp encoding transaction: %w", err)
	}

	return crypto.Keccak256Hash(append([]byte{ACCOUNT_TX_TYPE}, payload...)), nil
}

// Serializes the transaction, signature included, as a typed
// transaction envelope.
func (tx *AccountTransaction) MarshalBinary() ([]byte, error) {
	payload, err := rlp.EncodeToBytes(tx.toRLP())
	if err != nil {
		return nil, fmt.Errorf("failed rlp encoding transaction: %w", err)
	}

	return append([]byte{ACCOUNT_TX_TYPE}, payload...), nil
}

// Decodes a typed transaction envelope produced by MarshalBinary.
func (tx *AccountTransaction) UnmarshalBinary(data []byte) error {
	if len(data) == 0 || data[0] != ACCOUNT_TX_TYPE {
		return fmt.Errorf("unexpected transaction envelope type")
	}

	var dec accountTxRLP
	if err := rlp.DecodeBytes(data[1:], &dec); err != nil {
		return fmt.Errorf("failed rlp decoding transaction: %w", err)
	}

	tx.ChainId = dec.ChainId
	tx.NonceKey = dec.NonceKey
	tx.Nonce = dec.Nonce
	tx.Sender = dec.Sender
	tx.Deployer = addressPtrFromBytes(dec.Deployer)
	tx.DeployerData = dec.DeployerData
	tx.Paymaster = addressPtrFromBytes(dec.Paymaster)
	tx.PaymasterData = dec.PaymasterData
	tx.ExecutionData = dec.ExecutionData
	tx.BuilderFee = dec.BuilderFee
	tx.MaxPriorityFeePerGas = dec.MaxPriorityFeePerGas
	tx.MaxFeePerGas = dec.MaxFeePerGas
	tx.VerificationGasLimit = dec.VerificationGasLimit
	tx.PaymasterVerificationGasLimit = dec.PaymasterVerificationGasLimit
	tx.PostOpGasLimit = dec.PostOpGasLimit
	tx.Gas = dec.Gas
	tx.Signature = dec.Signature

	return nil
}
