package workflow

import "strings"

// Source identifies which tier supplied an authoritative value.
type Source int

const (
	SourceNone Source = iota
	SourceRequest
	SourceSession
	SourceDurable
	SourceComputed
)

func (s Source) String() string {
	switch s {
	case SourceRequest:
		return "request"
	case SourceSession:
		return "session"
	case SourceDurable:
		return "durable"
	case SourceComputed:
		return "computed"
	default:
		return "none"
	}
}

// Candidate pairs one tier's value with its origin for merging.
type Candidate[T any] struct {
	Value  T
	Source Source
}

// Merge computes the authoritative value for one logical field: candidates
// are probed in the order given (request input first, then faster to slower
// tiers, then computed fallbacks) and the first one the acceptance predicate
// admits wins. When nothing is acceptable the structural zero is returned so
// downstream rendering stays total. Merging is idempotent: identical
// candidates always produce identical results.
func Merge[T any](accept func(T) bool, zero T, candidates ...Candidate[T]) (T, Source) {
	for _, candidate := range candidates {
		if accept(candidate.Value) {
			return candidate.Value, candidate.Source
		}
	}
	return zero, SourceNone
}

func nonEmptyString(value string) bool {
	return strings.TrimSpace(value) != ""
}

func nonEmptyList(value []string) bool {
	return len(value) > 0
}
