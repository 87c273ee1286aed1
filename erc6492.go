package smartwallet

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ERC-6492 lets a signature from a not-yet-deployed smart account be
// verified: the raw signature travels together with the deployer
// address and deployment calldata, and a compliant verifier deploys
// the account before checking. The wire format is
// abi.encode(deployer, deployerData, signature) with a fixed 32-byte
// magic suffix.

var (
	erc6492MagicSuffix = hexutil.MustDecode("0x6492649264926492649264926492649264926492649264926492649264926492")

	erc6492Args abi.Arguments
)

func init() {
	addressType, err := abi.NewType("address", "", nil)
	if err != nil {
		panic("failed building address abi type: " + err.Error())
	}
	bytesType, err := abi.NewType("bytes", "", nil)
	if err != nil {
		panic("failed building bytes abi type: " + err.Error())
	}

	erc6492Args = abi.Arguments{
		{Name: "deployer", Type: addressType},
		{Name: "deployerData", Type: bytesType},
		{Name: "signature", Type: bytesType},
	}
}

// Wraps a raw signature in the ERC-6492 envelope together with the
// deployer address and deployment calldata.
func WrapSignature(deployer common.Address, deployerData, signature []byte) ([]byte, error) {
	packed, err := erc6492Args.Pack(deployer, deployerData, signature)
	if err != nil {
		return nil, fmt.Errorf("failed packing erc-6492 envelope: %w", err)
	}

	return append(packed, erc6492MagicSuffix...), nil
}

// Reports whether the signature carries the ERC-6492 magic suffix.
func IsWrappedSignature(signature []byte) bool {
	if len(signature) < len(erc6492MagicSuffix) {
		return false
	}
	return bytes.Equal(signature[len(signature)-len(erc6492MagicSuffix):], erc6492MagicSuffix)
}

// Unwraps an ERC-6492 envelope into the deployer address, deployer
// calldata, and raw signature it carries.
//
// Returns ErrNotWrappedSignature if the magic suffix is missing.
func UnwrapSignature(wrapped []byte) (deployer common.Address, deployerData []byte, signature []byte, err error) {
	if !IsWrappedSignature(wrapped) {
		return common.Address{}, nil, nil, ErrNotWrappedSignature
	}

	vals, err := erc6492Args.Unpack(wrapped[:len(wrapped)-len(erc6492MagicSuffix)])
	if err != nil {
		return common.Address{}, nil, nil, fmt.Errorf("failed unpacking erc-6492 envelope: %w", err)
	}

	deployer = vals[0].(common.Address)
	deployerData = vals[1].([]byte)
	signature = vals[2].([]byte)

	return deployer, deployerData, signature, nil
}
