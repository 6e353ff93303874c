package pagination

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2026, 3, 2, 12, 30, 0, 123, time.UTC), ID: uuid.New()}
	encoded := in.String()
	require.NotContains(t, encoded, "=")

	out, err := Decode(encoded)
	require.NoError(t, err)
	require.True(t, out.CreatedAt.Equal(in.CreatedAt))
	require.Equal(t, in.ID, out.ID)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	c, err := Decode("  ")
	require.NoError(t, err)
	require.Nil(t, c)

	for _, value := range []string{
		"%%%",
		base64.RawURLEncoding.EncodeToString([]byte("1700000000")),
		base64.RawURLEncoding.EncodeToString([]byte("soon." + uuid.NewString())),
		base64.RawURLEncoding.EncodeToString([]byte("1700000000.not-a-uuid")),
	} {
		_, err := Decode(value)
		require.True(t, errors.Is(err, ErrInvalidCursor), "value %q", value)
	}
}

func TestClamp(t *testing.T) {
	require.Equal(t, DefaultLimit, Clamp(0))
	require.Equal(t, DefaultLimit, Clamp(-3))
	require.Equal(t, MaxLimit, Clamp(MaxLimit+1))
	require.Equal(t, 10, Clamp(10))
}

type row struct {
	id uuid.UUID
	at time.Time
}

func TestTrimReturnsNextCursorOnlyWhenMoreRemain(t *testing.T) {
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	rows := make([]row, 3)
	for i := range rows {
		rows[i] = row{id: uuid.New(), at: base.Add(-time.Duration(i) * time.Minute)}
	}
	key := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page, next := Trim(rows, 2, key)
	require.Len(t, page, 2)
	require.NotNil(t, next)
	require.Equal(t, rows[1].id, next.ID)

	page, next = Trim(rows[:2], 2, key)
	require.Len(t, page, 2)
	require.Nil(t, next)
}
