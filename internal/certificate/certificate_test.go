package certificate

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID_Format(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	id, err := NewID("js-fundamentals", "user-abc1234", now)
	require.NoError(t, err)

	parts := strings.Split(id, "-")
	// exam id contains a dash of its own
	require.Len(t, parts, 6)
	assert.Equal(t, "CERT", parts[0])
	assert.Equal(t, "JS", parts[1])
	assert.Equal(t, "FUNDAMENTALS", parts[2])
	assert.Equal(t, "1234", parts[3])
	assert.Equal(t, strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36)), parts[4])
	assert.Len(t, parts[5], suffixLength)
	assert.Equal(t, strings.ToUpper(id), id)
}

func TestNewID_ShortUserID(t *testing.T) {
	id, err := NewID("go", "ab", time.Now())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "CERT-GO-AB-"))
}

func TestNewID_UniqueWithinMillisecond(t *testing.T) {
	now := time.Now()
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id, err := NewID("go", "user-0001", now)
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}
