package utils

import (
	"crypto/rand"
	"math/big"
)

const (
	JoinCodeLength = 8
	joinCodeChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// GenerateJoinCode produces the shared secret members present to join a team.
// Ambiguous characters (0/O, 1/I) are excluded.
func GenerateJoinCode() (string, error) {
	code := make([]byte, JoinCodeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(joinCodeChars))))
		if err != nil {
			return "", err
		}
		code[i] = joinCodeChars[num.Int64()]
	}
	return string(code), nil
}
