package team

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	// 紛らわしい文字（I, O, 0, 1）を除いた英数字
	inviteAlphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	InviteCodeLength = 6
)

// GenerateInviteCode はランダムな招待コードを生成する
func GenerateInviteCode() (string, error) {
	var sb strings.Builder
	sb.Grow(InviteCodeLength)
	base := big.NewInt(int64(len(inviteAlphabet)))
	for i := 0; i < InviteCodeLength; i++ {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", err
		}
		sb.WriteByte(inviteAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// NormalizeInviteCode は入力された招待コードを比較用に正規化する
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
