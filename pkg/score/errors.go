package score

import (
	"errors"
	"fmt"
)

// ErrContractViolation is wrapped by every error a batch call returns for
// a batch it refuses to process.
var ErrContractViolation = errors.New("batch contract violation")

// ContractError describes why a batch call refused to run.
type ContractError struct {
	Op     string // Operation that refused the batch
	N      int    // Requested record count
	Reason string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: %s (n=%d): %s", e.Op, ErrContractViolation, e.N, e.Reason)
}

func (e *ContractError) Unwrap() error {
	return ErrContractViolation
}

// checkContract validates n against the lane width and the column lengths.
func checkContract(op string, n, scores, advWeights, restricted int) error {
	switch {
	case n <= 0:
		return &ContractError{Op: op, N: n, Reason: "record count must be positive"}
	case n%Width != 0:
		return &ContractError{Op: op, N: n, Reason: fmt.Sprintf("record count must be a multiple of %d", Width)}
	case scores < n:
		return &ContractError{Op: op, N: n, Reason: fmt.Sprintf("scores column holds %d records", scores)}
	case advWeights < n:
		return &ContractError{Op: op, N: n, Reason: fmt.Sprintf("adv weights column holds %d records", advWeights)}
	case restricted < n:
		return &ContractError{Op: op, N: n, Reason: fmt.Sprintf("view restricted column holds %d records", restricted)}
	}
	return nil
}
