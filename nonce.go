package smartwallet

import (
	"context"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// NonceKeySource supplies the 192-bit key partitioning an account's
// nonce space, scoped to an (account, chain) pair.
//
// The contract is explicit so callers can pick guarantees to match
// their use: a source must return keys that fit in NONCE_KEY_BITS
// bits, and should document whether its keys are unique and whether
// they are monotonic under concurrent callers. The wrapper does not
// serialize access to the source; any atomicity needed to guarantee
// distinct keys across concurrent callers is the source's own
// responsibility.
type NonceKeySource interface {
	NonceKey(ctx context.Context, account common.Address, chainId *big.Int) (*uint256.Int, error)
}

// TimestampKeySource derives keys from the wall clock at nanosecond
// resolution. Keys are practically unique for human-driven flows but
// NOT strictly monotonic: clock rollback can repeat or reorder keys,
// and two callers in the same nanosecond collide. Use
// SequenceKeySource where uniqueness under concurrency matters.
type TimestampKeySource struct{}

func (TimestampKeySource) NonceKey(ctx context.Context, account common.Address, chainId *big.Int) (*uint256.Int, error) {
	return uint256.NewInt(uint64(time.Now().UnixNano())), nil
}

// TODO: Add a persistent sequence source so keys survive process
// restarts without falling back to the wall clock.

// SequenceKeySource derives keys from an atomic in-process counter,
// offset so independent processes started at different times do not
// trivially collide. Keys are strictly increasing and unique within
// one process even under concurrent callers.
type SequenceKeySource struct {
	next atomic.Uint64
}

// Returns a pointer to a new SequenceKeySource seeded from the
// current time.
func NewSequenceKeySource() *SequenceKeySource {
	s := &SequenceKeySource{}
	s.next.Store(uint64(time.Now().UnixNano()))
	return s
}

func (s *SequenceKeySource) NonceKey(ctx context.Context, account common.Address, chainId *big.Int) (*uint256.Int, error) {
	return uint256.NewInt(s.next.Add(1)), nil
}

// checkNonceKey rejects keys wider than the 192-bit key space the
// on-chain nonce lookup expects.
func checkNonceKey(key *uint256.Int) error {
	if key != nil && key.BitLen() > NONCE_KEY_BITS {
		return ErrNonceKeyTooLarge
	}
	return nil
}
