package accession

import (
	"fmt"
	"strings"
)

// FindColumn returns the name of the column holding prefix-styled
// accessions. With a column hint, that column must be categorical and every
// non-missing value must carry the prefix. Without one, exactly one
// categorical column may qualify.
func FindColumn(md Metadata, column, prefix string) (string, error) {
	if column != "" {
		col, err := md.Column(column)
		if err != nil {
			return "", &ValidationError{Field: "column", Value: column, Reason: err.Error()}
		}
		if col.Type() != Categorical {
			return "", &ValidationError{Field: "column", Value: column, Reason: "not a categorical column"}
		}
		if coverage(col, prefix) != full {
			return "", &ValidationError{
				Field:  "column",
				Value:  column,
				Reason: fmt.Sprintf("does not have only %s accessions", prefix),
			}
		}
		return column, nil
	}

	var candidates, leftover []string
	for _, name := range md.ColumnNames() {
		col, err := md.Column(name)
		if err != nil {
			return "", fmt.Errorf("read column %q: %w", name, err)
		}
		if col.Type() != Categorical {
			continue
		}
		switch coverage(col, prefix) {
		case full:
			candidates = append(candidates, name)
		case partial:
			leftover = append(leftover, name)
		}
	}

	if len(candidates) == 1 {
		return candidates[0], nil
	}
	return "", &SelectionError{Prefix: prefix, Candidates: candidates, Leftover: leftover}
}

// Collect selects the run accession column and returns its values in row
// order. Missing values fail the collection unless skipMissing drops them.
func Collect(md Metadata, column string, skipMissing bool) ([]string, error) {
	name, err := FindColumn(md, column, RunPrefix)
	if err != nil {
		return nil, err
	}

	col, err := md.Column(name)
	if err != nil {
		return nil, fmt.Errorf("read column %q: %w", name, err)
	}
	if skipMissing {
		col = col.DropMissingValues()
	}
	if col.HasMissingValues() {
		return nil, &ValidationError{
			Field:  "column",
			Value:  name,
			Reason: "not all samples have an associated run accession; correct this manually or skip missing values",
		}
	}

	ids := col.Values()
	if len(ids) == 0 {
		return nil, &ValidationError{Field: "column", Value: name, Reason: "no run accessions"}
	}
	return ids, nil
}

type prefixCoverage int

const (
	none prefixCoverage = iota
	partial
	full
)

// coverage reports how many non-missing values of col carry prefix. A column
// with no values at all has no coverage.
func coverage(col Column, prefix string) prefixCoverage {
	values := col.DropMissingValues().Values()
	if len(values) == 0 {
		return none
	}

	matched := 0
	for _, v := range values {
		if strings.HasPrefix(v, prefix) {
			matched++
		}
	}
	switch {
	case matched == len(values):
		return full
	case matched > 0:
		return partial
	default:
		return none
	}
}
