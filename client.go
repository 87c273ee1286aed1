package smartwallet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ChainReader is the read-only on-chain surface this library needs:
// a code-existence probe and eth_call style contract reads. It is
// satisfied by *ethclient.Client, simulated backends, and test fakes.
type ChainReader interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type clientOpts struct {
	nonceManager common.Address
}

func defaultClientOpts() *clientOpts {
	return &clientOpts{
		nonceManager: DEFAULT_NONCE_MANAGER_ADDRESS,
	}
}

type clientOptFunc func(opts *clientOpts)

// Configuration function that overrides the nonce manager contract
// read by the default 2D nonce lookup.
func WithNonceManager(addr common.Address) clientOptFunc {
	return func(opts *clientOpts) {
		opts.nonceManager = addr
	}
}

// Client is the opaque network handle account implementations carry.
// It pairs a ChainReader with the chain id that signatures and
// transactions are bound to. All reads run against the latest block.
type Client struct {
	reader       ChainReader
	chainId      *big.Int
	nonceManager common.Address
}

// Returns a pointer to a new Client, configurable with the provided
// configuration functions.
func NewClient(reader ChainReader, chainId *big.Int, optFns ...clientOptFunc) *Client {
	opts := defaultClientOpts()
	for _, fn := range optFns {
		fn(opts)
	}

	return &Client{
		reader:       reader,
		chainId:      chainId,
		nonceManager: opts.nonceManager,
	}
}

func (c *Client) ChainId() *big.Int {
	return copyBigInt(c.chainId)
}

// Reports whether contract code exists at the given address.
func (c *Client) HasDeployedCode(ctx context.Context, addr common.Address) (bool, error) {
	code, err := c.reader.CodeAt(ctx, addr, nil)
	if err != nil {
		return false, fmt.Errorf("failed getting code at %s: %w", addr, err)
	}

	return len(code) > 0, nil
}

// Issues a read-only contract call against the target address.
//
// Returns the raw call result as a slice of bytes as well as an
// error in the event of failure.
func (c *Client) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	msg := ethereum.CallMsg{
		To:   &to,
		Data: data,
	}

	res, err := c.reader.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed calling contract %s: %w", to, err)
	}

	return res, nil
}

// Reads the current nonce for (account, key) from the nonce manager
// contract. The calldata layout is the raw 20-byte sender followed
// by the 32-byte left-padded key, matching the nonce manager's
// fallback dispatch.
func (c *Client) Nonce(ctx context.Context, account common.Address, key *uint256.Int) (*big.Int, error) {
	if key == nil {
		key = uint256.NewInt(0)
	}

	keyBytes := key.Bytes32()

	var data []byte
	data = append(data, account.Bytes()...)
	data = append(data, keyBytes[:]...)

	res, err := c.Call(ctx, c.nonceManager, data)
	if err != nil {
		return nil, fmt.Errorf("failed reading nonce for %s: %w", account, err)
	}

	if len(res) == 0 {
		return nil, ErrEmptyCallResult
	}

	return new(big.Int).SetBytes(res), nil
}
