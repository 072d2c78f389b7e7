package ids

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULID_SortsByTime(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	a, err := NewULID(t0)
	require.NoError(t, err)
	b, err := NewULID(t0.Add(time.Second))
	require.NoError(t, err)

	assert.Len(t, a, 26)
	assert.Less(t, a, b)

	parsed, err := ulid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(t0), parsed.Time())
}

func TestMustULID(t *testing.T) {
	assert.Len(t, MustULID(time.Time{}), 26)
}
