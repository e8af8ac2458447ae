package batch

import (
	"errors"
	"fmt"
)

// DefaultSize is the number of accessions sent per request when the caller
// does not choose one.
const DefaultSize = 250

// ErrInvalidSize is returned for a non-positive batch size.
var ErrInvalidSize = errors.New("batch size must be positive")

// Batch is a contiguous slice of the requested accessions.
type Batch struct {
	// Index is the 1-based position of this batch.
	Index int
	// Total is the number of batches in the partition.
	Total int
	// Start and End are the [Start, End) offsets within the original ids.
	Start int
	End   int
	// Of is the length of the original id sequence.
	Of int
	// IDs are the accessions of this batch.
	IDs []string
}

// Len returns the number of ids in the batch.
func (b Batch) Len() int {
	return len(b.IDs)
}

// String renders the batch position the way progress lines show it.
func (b Batch) String() string {
	return fmt.Sprintf("ids %d..%d out of %d (batch %d/%d)", b.Start+1, b.End, b.Of, b.Index, b.Total)
}

// Partition splits ids into ceil(len(ids)/size) batches of at most size ids,
// covering the input in order with no overlap.
func Partition(ids []string, size int) ([]Batch, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidSize, size)
	}

	total := (len(ids) + size - 1) / size
	batches := make([]Batch, 0, total)

	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, Batch{
			Index: len(batches) + 1,
			Total: total,
			Start: start,
			End:   end,
			Of:    len(ids),
			IDs:   ids[start:end:end],
		})
	}

	return batches, nil
}
