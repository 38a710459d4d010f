package snapshot

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// SplitBatches splits a pair address list into consecutive batches of at
// most batchSize entries, preserving order.
func SplitBatches(addresses []common.Address, batchSize int) ([][]common.Address, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}

	batches := make([][]common.Address, 0)
	for start := 0; start < len(addresses); start += batchSize {
		end := start + batchSize
		if end > len(addresses) {
			end = len(addresses)
		}
		batches = append(batches, addresses[start:end])
	}

	return batches, nil
}
