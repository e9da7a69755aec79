package model

import (
	"encoding/json"
	"slices"
)

// LogCap is the number of entries a metadata log keeps.
const LogCap = 20

// BoundedLog is an append-only sequence that keeps only its last LogCap
// entries. The zero value is an empty log.
type BoundedLog[T any] struct {
	entries []T
}

// NewBoundedLog builds a log from entries, trimming to the cap.
func NewBoundedLog[T any](entries ...T) BoundedLog[T] {
	var l BoundedLog[T]
	for _, e := range entries {
		l.Append(e)
	}
	return l
}

// Append adds entry and evicts the oldest entries beyond LogCap.
func (l *BoundedLog[T]) Append(entry T) {
	next := make([]T, 0, len(l.entries)+1)
	next = append(next, l.entries...)
	next = append(next, entry)
	if len(next) > LogCap {
		next = next[len(next)-LogCap:]
	}
	l.entries = next
}

// Entries returns a copy of the entries, oldest first.
func (l BoundedLog[T]) Entries() []T {
	return slices.Clone(l.entries)
}

func (l BoundedLog[T]) Len() int {
	return len(l.entries)
}

// Last returns the newest entry.
func (l BoundedLog[T]) Last() (T, bool) {
	var zero T
	if len(l.entries) == 0 {
		return zero, false
	}
	return l.entries[len(l.entries)-1], true
}

func (l BoundedLog[T]) MarshalJSON() ([]byte, error) {
	if l.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.entries)
}

func (l *BoundedLog[T]) UnmarshalJSON(data []byte) error {
	var entries []T
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	if len(entries) > LogCap {
		entries = entries[len(entries)-LogCap:]
	}
	l.entries = entries
	return nil
}
