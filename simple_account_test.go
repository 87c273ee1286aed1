package smartwallet

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Things worth covering here:
//	- Explicit address skips derivation entirely
//	- Derived address is cached after the first read
//	- Encode/decode round trips for both dispatch paths
//	- Unrecognized selectors fail loudly
//	- Replay-safe hashing binds account address and chain id
//	- Owners without raw-hash signing fail explicitly

func derivedAddressReader(addr common.Address) *mockReader {
	return &mockReader{
		callFn: func(msg ethereum.CallMsg) ([]byte, error) {
			return common.LeftPadBytes(addr.Bytes(), 32), nil
		},
	}
}

func TestGetAddressExplicit(t *testing.T) {
	addr := common.HexToAddress("0xCC00000000000000000000000000000000000003")

	reader := &mockReader{}
	client := NewClient(reader, big.NewInt(1))

	acc := NewSimpleAccount(client, newTestOwner(t), WithAccountAddress(addr))

	got, err := acc.GetAddress(context.Background())
	if err != nil {
		t.Fatalf("failed getting address: %s", err)
	}

	if got != addr {
		t.Errorf("incorrect address, got (%s), expected (%s)", got, addr)
	}

	if reader.callCalls != 0 {
		t.Errorf("expected no network reads for explicit address, got %d", reader.callCalls)
	}
}

func TestGetAddressDerivedOnce(t *testing.T) {
	derived := common.HexToAddress("0xDD00000000000000000000000000000000000004")

	reader := derivedAddressReader(derived)
	client := NewClient(reader, big.NewInt(1))

	acc := NewSimpleAccount(client, newTestOwner(t))

	for i := 0; i < 3; i++ {
		got, err := acc.GetAddress(context.Background())
		if err != nil {
			t.Fatalf("failed getting address: %s", err)
		}
		if got != derived {
			t.Errorf("incorrect address, got (%s), expected (%s)", got, derived)
		}
	}

	if reader.callCalls != 1 {
		t.Errorf("address derivation not cached, got %d reads, expected 1", reader.callCalls)
	}

	if to := reader.lastCall.To; to == nil || *to != DEFAULT_DEPLOYER_ADDRESS {
		t.Errorf("derivation read the wrong contract: %v", to)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var (
		addrA = common.HexToAddress("0xAA00000000000000000000000000000000000001")
		addrB = common.HexToAddress("0xBB00000000000000000000000000000000000002")
	)

	var roundTripTests = []struct {
		name  string
		calls []Call
	}{
		{
			name: "single call",
			calls: []Call{
				{To: addrA, Data: hexutil.MustDecode("0x1234"), Value: big.NewInt(0)},
			},
		},
		{
			name: "single call with defaults",
			calls: []Call{
				{To: addrA},
			},
		},
		{
			name: "batch",
			calls: []Call{
				{To: addrA},
				{To: addrB, Value: big.NewInt(100)},
			},
		},
		{
			name: "larger batch preserves order",
			calls: []Call{
				{To: addrB, Data: hexutil.MustDecode("0xdeadbeef")},
				{To: addrA, Value: big.NewInt(1)},
				{To: addrB, Value: big.NewInt(2), Data: hexutil.MustDecode("0x00")},
			},
		},
	}

	acc := NewSimpleAccount(NewClient(&mockReader{}, big.NewInt(1)), newTestOwner(t))

	for _, testCase := range roundTripTests {
		t.Run(testCase.name, func(t *testing.T) {
			encoded, err := acc.EncodeCalls(testCase.calls)
			if err != nil {
				t.Fatalf("failed encoding calls: %s", err)
			}

			decoded, err := acc.DecodeCalls(encoded)
			if err != nil {
				t.Fatalf("failed decoding calls: %s", err)
			}

			if len(decoded) != len(testCase.calls) {
				t.Fatalf("incorrect call count, got (%d), expected (%d)", len(decoded), len(testCase.calls))
			}

			for i, call := range testCase.calls {
				got := decoded[i]

				if got.To != call.To {
					t.Errorf("call %d: incorrect target, got (%s), expected (%s)", i, got.To, call.To)
				}

				expectedValue := bigOrZero(call.Value)
				if got.Value == nil || got.Value.Cmp(expectedValue) != 0 {
					t.Errorf("call %d: incorrect value, got (%v), expected (%s)", i, got.Value, expectedValue)
				}

				if !bytes.Equal(got.Data, emptyIfNil(call.Data)) {
					t.Errorf("call %d: incorrect data, got (%x), expected (%x)", i, got.Data, call.Data)
				}
			}
		})
	}
}

func TestEncodeCallsEmpty(t *testing.T) {
	acc := NewSimpleAccount(NewClient(&mockReader{}, big.NewInt(1)), newTestOwner(t))

	if _, err := acc.EncodeCalls(nil); !errors.Is(err, ErrNoCalls) {
		t.Errorf("expected ErrNoCalls, got: %v", err)
	}
}

func TestDecodeCallsUnknownSelector(t *testing.T) {
	acc := NewSimpleAccount(NewClient(&mockReader{}, big.NewInt(1)), newTestOwner(t))

	var decodeTests = []struct {
		name string
		data []byte
	}{
		{"unknown selector", hexutil.MustDecode("0xdeadbeef0000000000000000000000000000000000000000000000000000000000000000")},
		{"truncated calldata", hexutil.MustDecode("0x1234")},
		{"empty calldata", []byte{}},
	}

	for _, testCase := range decodeTests {
		t.Run(testCase.name, func(t *testing.T) {
			if _, err := acc.DecodeCalls(testCase.data); !errors.Is(err, ErrUnsupportedCallEncoding) {
				t.Errorf("expected ErrUnsupportedCallEncoding, got: %v", err)
			}
		})
	}
}

func TestDeployerArgs(t *testing.T) {
	owner := newTestOwner(t)
	acc := NewSimpleAccount(NewClient(&mockReader{}, big.NewInt(1)), owner, WithSalt(big.NewInt(3)))

	args, err := acc.GetDeployerArgs(context.Background())
	if err != nil {
		t.Fatalf("failed getting deployer args: %s", err)
	}

	if args.Deployer != DEFAULT_DEPLOYER_ADDRESS {
		t.Errorf("incorrect deployer, got (%s), expected (%s)", args.Deployer, DEFAULT_DEPLOYER_ADDRESS)
	}

	expected, err := simpleDeployerAbi.Pack("createAccount", owner.Address(), big.NewInt(3))
	if err != nil {
		t.Fatalf("failed packing expected calldata: %s", err)
	}

	if !bytes.Equal(args.DeployerData, expected) {
		t.Errorf("incorrect deployer data, got (%x), expected (%x)", args.DeployerData, expected)
	}
}

func TestStubSignatureLength(t *testing.T) {

	// A real secp256k1 signature is r || s || v, 65 bytes.

	acc := NewSimpleAccount(NewClient(&mockReader{}, big.NewInt(1)), newTestOwner(t))

	stub := acc.StubSignature()
	if len(stub) != 65 {
		t.Errorf("incorrect stub signature length, got (%d), expected (65)", len(stub))
	}

	// Mutating the returned slice must not affect later calls.
	stub[0] = 0x00
	if acc.StubSignature()[0] == 0x00 {
		t.Error("stub signature aliases internal state")
	}
}

func TestReplaySafeHashDomainBinding(t *testing.T) {
	var (
		hash  = common.HexToHash("0x0102030000000000000000000000000000000000000000000000000000000000")
		addrA = common.HexToAddress("0xAA00000000000000000000000000000000000001")
		addrB = common.HexToAddress("0xBB00000000000000000000000000000000000002")
	)

	digestFor := func(addr common.Address, chainId int64) common.Hash {
		client := NewClient(&mockReader{}, big.NewInt(chainId))
		acc := NewSimpleAccount(client, newTestOwner(t), WithAccountAddress(addr))

		digest, err := acc.replaySafeHash(context.Background(), hash)
		if err != nil {
			t.Fatalf("failed computing replay-safe hash: %s", err)
		}
		return digest
	}

	// Same message, different account address.
	if digestFor(addrA, 1) == digestFor(addrB, 1) {
		t.Error("replay-safe hash does not bind the account address")
	}

	// Same message, same account, different chain.
	if digestFor(addrA, 1) == digestFor(addrA, 10) {
		t.Error("replay-safe hash does not bind the chain id")
	}

	// And it is deterministic for identical inputs.
	if digestFor(addrA, 1) != digestFor(addrA, 1) {
		t.Error("replay-safe hash is not deterministic")
	}
}

func TestSignHashRequiresRawSigningOwner(t *testing.T) {
	addr := common.HexToAddress("0xCC00000000000000000000000000000000000003")

	client := NewClient(&mockReader{}, big.NewInt(1))
	acc := NewSimpleAccount(client, addressOnlyOwner{addr: addr}, WithAccountAddress(addr))

	_, err := acc.SignHash(context.Background(), common.Hash{})
	if !errors.Is(err, ErrOwnerCannotSignHash) {
		t.Errorf("expected ErrOwnerCannotSignHash, got: %v", err)
	}

	_, err = acc.SignMessage(context.Background(), []byte("hi"))
	if !errors.Is(err, ErrOwnerCannotSignHash) {
		t.Errorf("expected ErrOwnerCannotSignHash, got: %v", err)
	}
}

func TestSignTransactionBindsSenderAndChain(t *testing.T) {
	addr := common.HexToAddress("0xCC00000000000000000000000000000000000003")
	owner := newTestOwner(t)

	client := NewClient(&mockReader{}, big.NewInt(8453))
	acc := NewSimpleAccount(client, owner, WithAccountAddress(addr))

	tx := &AccountTransaction{
		ExecutionData: hexutil.MustDecode("0x1234"),
		MaxFeePerGas:  big.NewInt(1_000_000_000),
		Gas:           100_000,
	}

	raw, err := acc.SignTransaction(context.Background(), tx)
	if err != nil {
		t.Fatalf("failed signing transaction: %s", err)
	}

	if tx.Sender != addr {
		t.Errorf("transaction sender not bound, got (%s), expected (%s)", tx.Sender, addr)
	}
	if tx.ChainId == nil || tx.ChainId.Cmp(big.NewInt(8453)) != 0 {
		t.Errorf("transaction chain id not bound, got (%v)", tx.ChainId)
	}

	var decoded AccountTransaction
	if err := decoded.UnmarshalBinary(raw); err != nil {
		t.Fatalf("failed decoding signed transaction: %s", err)
	}

	hash, err := tx.SigningHash(tx.ChainId)
	if err != nil {
		t.Fatalf("failed computing signing hash: %s", err)
	}

	expectedSig, err := owner.SignHash(hash)
	if err != nil {
		t.Fatalf("failed signing expected hash: %s", err)
	}

	if !bytes.Equal(decoded.Signature, expectedSig) {
		t.Error("serialized transaction does not carry the owner signature over the signing hash")
	}
}

func TestEstimateGasPassThrough(t *testing.T) {
	acc := NewSimpleAccount(NewClient(&mockReader{}, big.NewInt(1)), newTestOwner(t))

	gas, err := acc.EstimateGas(context.Background(), &AccountTransaction{VerificationGasLimit: 21_000})
	if err != nil {
		t.Fatalf("failed estimating gas: %s", err)
	}

	if gas != 21_000 {
		t.Errorf("incorrect gas estimate, got (%d), expected (21000)", gas)
	}
}
