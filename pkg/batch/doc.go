// Package batch partitions an ordered accession list into bounded batches.
//
// The remote service accepts a comma-joined id list per request, and answers
// with at most retmax records. Large id sets are therefore split into
// contiguous batches of at most Size ids, fetched strictly one after another
// so that a failing batch stops the run before later ones are requested.
//
// Example usage:
//
//	batches, err := batch.Partition(ids, batch.DefaultSize)
//	for _, b := range batches {
//		fmt.Println(b) // ids 1..250 out of 1000 (batch 1/4)
//	}
//
// Each Batch carries its [Start, End) offsets within the original sequence
// and its 1-based position among all batches for progress reporting.
package batch
