package arena

import (
	"errors"
	"fmt"
)

// ErrAllocationExhausted is returned when a pool is full. It is recoverable: the caller
// receives InvalidHandle and must check validity before use.
var ErrAllocationExhausted = errors.New("allocation exhausted")

// ErrInvalidConfiguration is returned when a call would create an illegal relationship,
// such as a cross-layer transition or a second binding of the same bone. The call leaves
// all state unchanged.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ContractViolation is the panic value raised for programming errors: dereferencing an
// invalid handle or reading a typed value as the wrong type.
type ContractViolation struct {
	Msg string
}

func (c *ContractViolation) Error() string {
	return "contract violation: " + c.Msg
}

// Require panics with a *ContractViolation when cond is false and contract checks are
// compiled in. Release builds (tag oxyrelease) skip the check entirely.
//
// Parameters:
//   - cond: the condition that must hold
//   - format: a fmt format string describing the violation
//   - args: format arguments
func Require(cond bool, format string, args ...any) {
	if !ContractChecks || cond {
		return
	}
	panic(&ContractViolation{Msg: fmt.Sprintf(format, args...)})
}
