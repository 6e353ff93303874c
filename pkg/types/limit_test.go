package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLimitFromColumn(t *testing.T) {
	require.False(t, LimitFromColumn(0).IsBounded())
	require.False(t, LimitFromColumn(-3).IsBounded())

	l := LimitFromColumn(4)
	n, ok := l.Value()
	require.True(t, ok)
	require.EqualValues(t, 4, n)
	require.EqualValues(t, 4, l.Column())
	require.EqualValues(t, 0, Unbounded().Column())
}

func TestLimitRemaining(t *testing.T) {
	require.EqualValues(t, -1, Bounded(2).Remaining(3, 50))
	require.EqualValues(t, 50, Unbounded().Remaining(1000, 50))
}

func TestLimitJSON(t *testing.T) {
	raw, err := json.Marshal(struct {
		A Limit `json:"a"`
		B Limit `json:"b"`
	}{A: Bounded(3), B: Unbounded()})
	require.NoError(t, err)
	require.JSONEq(t, `{"a":3,"b":null}`, string(raw))

	var decoded struct {
		A Limit `json:"a"`
		B Limit `json:"b"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.True(t, decoded.A.IsBounded())
	require.False(t, decoded.B.IsBounded())
}
