package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/funmoney-network/pplp/internal/domain"
)

// ─── Pre-Flight Mint Validator ──────────────────────────────────────────────
// A sequence of read-only contract checks run before asking anyone to sign
// or submit a mint. This is an advisory layer: the check happens before the
// mint, so the contract's own revert logic remains the real authority.
//
// Infrastructure failures (wrong network, no contract code, RPC down) are
// fatal and short-circuit — later checks would be meaningless on the wrong
// chain. Contract-state failures (paused, not an attester, cap reached)
// fail their check but let the remaining checks run, so the caller sees
// the full picture.

// ValidationDetail is one pass/fail checklist row with a user-facing hint.
type ValidationDetail struct {
	Check  string `json:"check"`
	Passed bool   `json:"passed"`
	Hint   string `json:"hint,omitempty"`
}

// MintValidation is the aggregated checklist. CanMint is true iff every
// detail passed.
type MintValidation struct {
	CanMint bool               `json:"can_mint"`
	Details []ValidationDetail `json:"details"`
}

// add records a detail and folds it into CanMint.
func (v *MintValidation) add(check string, passed bool, hint string) {
	if passed {
		hint = ""
	}
	v.Details = append(v.Details, ValidationDetail{Check: check, Passed: passed, Hint: hint})
	if !passed {
		v.CanMint = false
	}
}

// Config locates the contract and pins the expected network.
type Config struct {
	Contract      string
	ChainID       uint64        // expected network (97 = BSC testnet)
	EpochDuration time.Duration // 0: read epochDuration() from the contract
}

// Validator runs the pre-flight checklist.
type Validator struct {
	reader domain.ChainReader
	config Config

	// Injectable clock for testing epoch math.
	now func() time.Time
}

// NewValidator creates a validator over any ChainReader.
func NewValidator(reader domain.ChainReader, cfg Config) *Validator {
	return &Validator{reader: reader, config: cfg, now: time.Now}
}

// WithClock overrides the clock for testing.
func (v *Validator) WithClock(clock func() time.Time) *Validator {
	v.now = clock
	return v
}

// ChainStatus reports the connected network and contract location.
type ChainStatus struct {
	ChainID  uint64 `json:"chain_id"`
	Contract string `json:"contract"`
}

// CheckContract verifies the RPC endpoint answers, the network matches and
// contract code is deployed. Failures wrap the chain sentinel errors so
// callers can classify them with errors.Is.
func (v *Validator) CheckContract(ctx context.Context) (*ChainStatus, error) {
	chainID, err := v.reader.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	if chainID != v.config.ChainID {
		return nil, fmt.Errorf("%w: chain %d, expected %d", domain.ErrWrongNetwork, chainID, v.config.ChainID)
	}
	code, err := v.reader.Code(ctx, v.config.Contract)
	if err != nil {
		return nil, err
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("%w: %s on chain %d", domain.ErrContractNotFound, v.config.Contract, chainID)
	}
	return &ChainStatus{ChainID: chainID, Contract: v.config.Contract}, nil
}

// ValidateBeforeMint runs the checklist for one attester and action type.
func (v *Validator) ValidateBeforeMint(ctx context.Context, attester, actionType string) MintValidation {
	result := MintValidation{CanMint: true}

	// 1. Network. Fatal on mismatch or RPC failure.
	chainID, err := v.reader.ChainID(ctx)
	if err != nil {
		result.add("network", false, fmt.Sprintf("RPC endpoint unreachable: %v", err))
		return result
	}
	if chainID != v.config.ChainID {
		result.add("network", false,
			fmt.Sprintf("connected to chain %d, expected %d — switch networks", chainID, v.config.ChainID))
		return result
	}
	result.add("network", true, "")

	// 2. Contract deployed. Fatal when absent.
	code, err := v.reader.Code(ctx, v.config.Contract)
	if err != nil {
		result.add("contract_deployed", false, fmt.Sprintf("could not read contract code: %v", err))
		return result
	}
	if len(code) == 0 {
		result.add("contract_deployed", false,
			fmt.Sprintf("no contract code at %s on chain %d", v.config.Contract, chainID))
		return result
	}
	result.add("contract_deployed", true, "")

	// 3. Pause state.
	paused, err := v.reader.CallBool(ctx, v.config.Contract, "pauseTransitions()")
	if err != nil {
		result.add("not_paused", false, fmt.Sprintf("pause check failed: %v", err))
		return result
	}
	result.add("not_paused", !paused, "contract transitions are paused — minting is suspended")

	// 4. Attester role.
	attesterArg, err := AddressArg(attester)
	if err != nil {
		result.add("attester_role", false, fmt.Sprintf("invalid attester address: %v", err))
		return result
	}
	isAttester, err := v.reader.CallBool(ctx, v.config.Contract, "isAttester(address)", attesterArg)
	if err != nil {
		result.add("attester_role", false, fmt.Sprintf("attester check failed: %v", err))
		return result
	}
	result.add("attester_role", isAttester,
		fmt.Sprintf("%s does not hold the attester role", attester))

	// 5. Signature threshold.
	threshold, err := v.reader.CallUint(ctx, v.config.Contract, "attesterThreshold()")
	if err != nil {
		result.add("signature_threshold", false, fmt.Sprintf("threshold read failed: %v", err))
		return result
	}
	result.add("signature_threshold", threshold.Sign() > 0,
		"attester threshold is zero — contract is misconfigured")

	// 6. Action registered.
	actionHash := keccakBytes32(actionType)
	registered, err := v.reader.CallBool(ctx, v.config.Contract, "actions(bytes32)", actionHash[:])
	if err != nil {
		result.add("action_registered", false, fmt.Sprintf("action lookup failed: %v", err))
		return result
	}
	result.add("action_registered", registered,
		fmt.Sprintf("action %q is not registered on-chain", actionType))

	// 7. Epoch cap utilization.
	cap, minted, err := v.epochUtilization(ctx)
	if err != nil {
		result.add("epoch_cap", false, fmt.Sprintf("epoch read failed: %v", err))
		return result
	}
	withinCap := cap.Sign() == 0 || minted.Cmp(cap) < 0 // zero cap means uncapped
	result.add("epoch_cap", withinCap,
		fmt.Sprintf("epoch mint cap reached (%s of %s minted)", minted, cap))

	return result
}

// epochUtilization reads the epoch mint cap and the amount minted in the
// current epoch.
func (v *Validator) epochUtilization(ctx context.Context) (cap, minted *big.Int, err error) {
	cap, err = v.reader.CallUint(ctx, v.config.Contract, "epochMintCap()")
	if err != nil {
		return nil, nil, err
	}

	duration := v.config.EpochDuration
	if duration == 0 {
		secs, err := v.reader.CallUint(ctx, v.config.Contract, "epochDuration()")
		if err != nil {
			return nil, nil, err
		}
		if secs.Sign() <= 0 {
			return cap, big.NewInt(0), nil
		}
		duration = time.Duration(secs.Int64()) * time.Second
	}

	epoch := uint64(v.now().Unix()) / uint64(duration.Seconds())
	minted, err = v.reader.CallUint(ctx, v.config.Contract, "epochs(uint256)", UintArg(epoch))
	if err != nil {
		return nil, nil, err
	}
	return cap, minted, nil
}

// keccakBytes32 hashes an action type string to its bytes32 registry key.
func keccakBytes32(s string) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(s))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
