package types

import "encoding/json"

// Limit is a quantity bound that is either a concrete number or unbounded.
// Storage uses 0 for "unbounded"; that sentinel never leaves the model layer.
type Limit struct {
	n       int64
	bounded bool
}

// Bounded returns a limit of exactly n (negative values clamp to 0).
func Bounded(n int64) Limit {
	if n < 0 {
		n = 0
	}
	return Limit{n: n, bounded: true}
}

// Unbounded returns a limit without an upper bound.
func Unbounded() Limit {
	return Limit{}
}

// LimitFromColumn maps a stored limit column onto a Limit.
func LimitFromColumn(v int64) Limit {
	if v <= 0 {
		return Unbounded()
	}
	return Bounded(v)
}

// IsBounded reports whether the limit has a concrete bound.
func (l Limit) IsBounded() bool {
	return l.bounded
}

// Value returns the bound and whether it exists.
func (l Limit) Value() (int64, bool) {
	return l.n, l.bounded
}

// Column returns the storage form of the limit.
func (l Limit) Column() int64 {
	if !l.bounded {
		return 0
	}
	return l.n
}

// Remaining returns how much of the limit is left after used units. An
// unbounded limit yields ceiling untouched so every value stays finite.
func (l Limit) Remaining(used, ceiling int64) int64 {
	if !l.bounded {
		return ceiling
	}
	return l.n - used
}

// MarshalJSON renders bounded limits as numbers and unbounded ones as null.
func (l Limit) MarshalJSON() ([]byte, error) {
	if !l.bounded {
		return []byte("null"), nil
	}
	return json.Marshal(l.n)
}

// UnmarshalJSON accepts a number or null.
func (l *Limit) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = Unbounded()
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*l = Bounded(n)
	return nil
}
