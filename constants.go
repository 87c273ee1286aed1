package smartwallet

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	// EIP-712 domain for replay-safe hashing. The account address
	// and chain id are bound in as verifyingContract and chainId.
	REPLAY_SAFE_DOMAIN_NAME    = "Simple Native Smart Wallet"
	REPLAY_SAFE_DOMAIN_VERSION = "1"
	REPLAY_SAFE_PRIMARY_TYPE   = "SimpleNativeSmartWalletMessage"

	// EIP-2718 envelope type for native account-abstraction
	// transactions.
	ACCOUNT_TX_TYPE byte = 0x05

	// RIP-7712 nonce keys are 192 bits wide. The remaining 64 bits
	// of the nonce word hold the sequence number.
	NONCE_KEY_BITS = 192

	// Placeholder secp256k1 signature of real-signature length,
	// for gas estimation flows that need a signature-shaped value.
	STUB_SIGNATURE_HEX = "0xfffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffe1c"

	// ABI of the batched-execution surface of the simple account
	// contract. Exactly these two dispatch functions are recognized
	// when decoding calldata back into calls.
	SIMPLE_ACCOUNT_ABI = `[
		{
			"type": "function",
			"name": "execute",
			"inputs": [
				{"name": "target", "type": "address"},
				{"name": "value", "type": "uint256"},
				{"name": "data", "type": "bytes"}
			]
		},
		{
			"type": "function",
			"name": "executeBatch",
			"inputs": [
				{
					"name": "calls",
					"type": "tuple[]",
					"components": [
						{"name": "target", "type": "address"},
						{"name": "value", "type": "uint256"},
						{"name": "data", "type": "bytes"}
					]
				}
			]
		}
	]`

	// ABI of the deterministic account deployer. getAddress is a view
	// function computing the counterfactual account address for an
	// (owner, salt) pair, createAccount deploys it.
	SIMPLE_DEPLOYER_ABI = `[
		{
			"type": "function",
			"name": "createAccount",
			"inputs": [
				{"name": "owner", "type": "address"},
				{"name": "salt", "type": "uint256"}
			],
			"outputs": [
				{"name": "account", "type": "address"}
			]
		},
		{
			"type": "function",
			"name": "getAddress",
			"stateMutability": "view",
			"inputs": [
				{"name": "owner", "type": "address"},
				{"name": "salt", "type": "uint256"}
			],
			"outputs": [
				{"name": "account", "type": "address"}
			]
		}
	]`
)

var (
	// Canonical deployer for simple native smart wallets.
	DEFAULT_DEPLOYER_ADDRESS = common.HexToAddress("0x91E60e0613810449d098b0B5Ec8b51A0fe8c8985")

	// RIP-7712 nonce manager, read for the default 2D nonce lookup.
	DEFAULT_NONCE_MANAGER_ADDRESS = common.HexToAddress("0x63f63e798f5F6A934Acf0a3FD1C01f3Fac851fF0")

	simpleAccountAbi  abi.ABI
	simpleDeployerAbi abi.ABI

	stubSignature = hexutil.MustDecode(STUB_SIGNATURE_HEX)
)

func init() {
	var err error

	simpleAccountAbi, err = abi.JSON(strings.NewReader(SIMPLE_ACCOUNT_ABI))
	if err != nil {
		panic("failed parsing simple account abi: " + err.Error())
	}

	simpleDeployerAbi, err = abi.JSON(strings.NewReader(SIMPLE_DEPLOYER_ABI))
	if err != nil {
		panic("failed parsing simple deployer abi: " + err.Error())
	}
}
