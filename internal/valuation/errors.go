package valuation

import (
	"errors"
	"fmt"
)

// ErrInvalidInput aborts a whole recomputation pass. Every other failure
// mode is absorbed locally as a zero value so one broken token cannot block
// the rest of the graph.
var ErrInvalidInput = errors.New("invalid input")

// ErrUnknownToken reports a pair referencing a token id missing from the
// snapshot's token map.
var ErrUnknownToken = fmt.Errorf("%w: unknown token", ErrInvalidInput)
