package cmd

import (
	"errors"

	"github.com/huangsam/prstats/core/policy"
	"github.com/huangsam/prstats/schema"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitBlocked = 3
	ExitAborted = 4
)

// errViolations is returned by check when a threshold is not met.
var errViolations = errors.New("data protection thresholds not met")

// ExitCode maps an error returned by Execute to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case policy.IsBlocked(err), errors.Is(err, errViolations):
		return ExitBlocked
	case errors.Is(err, schema.ErrOverrideAborted):
		return ExitAborted
	default:
		return ExitFailure
	}
}
