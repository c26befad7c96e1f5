// Package certificate issues certificate ids for passed attempts.
package certificate

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	prefix       = "CERT"
	suffixLength = 8
	alphabet     = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// NewID returns CERT-<EXAMID>-<last 4 of userID>-<base36 ms>-<random>,
// uppercased. The random suffix keeps ids unique for identical inputs
// within the same millisecond.
func NewID(examID, userID string, now time.Time) (string, error) {
	suffix, err := randomSuffix(suffixLength)
	if err != nil {
		return "", err
	}
	id := strings.Join([]string{
		prefix,
		examID,
		lastN(userID, 4),
		strconv.FormatInt(now.UnixMilli(), 36),
		suffix,
	}, "-")
	return strings.ToUpper(id), nil
}

func lastN(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

func randomSuffix(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	limit := big.NewInt(int64(len(alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String(), nil
}
