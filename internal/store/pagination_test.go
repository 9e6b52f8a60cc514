package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	want := OrderCursor{CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), ID: uuid.New()}

	got, err := DecodeCursor(EncodeCursor(want))
	require.NoError(t, err)

	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, want.ID, got.ID)
}

func TestDecodeEmptyCursorStartsAtNewest(t *testing.T) {
	got, err := DecodeCursor("")
	require.NoError(t, err)

	assert.True(t, got.CreatedAt.After(time.Now()))
	assert.Equal(t, maxUUID, got.ID)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("%%%")
	assert.Error(t, err)
}

func TestNewOffsetPageRoundsUp(t *testing.T) {
	page := newOffsetPage([]int{}, 41, 1, 20)
	assert.Equal(t, 3, page.TotalPages)

	page = newOffsetPage([]int{}, 40, 2, 20)
	assert.Equal(t, 2, page.TotalPages)
}
