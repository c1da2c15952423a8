package identity

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// SessionVerifier 校验身份服务签发的会话令牌（RS256）。
type SessionVerifier struct {
	publicKey *rsa.PublicKey
}

// NewSessionVerifier 解析 PEM 公钥；空字符串返回 nil，表示不启用校验。
func NewSessionVerifier(publicKeyPEM string) (*SessionVerifier, error) {
	if strings.TrimSpace(publicKeyPEM) == "" {
		return nil, nil
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse rsa public key: %w", err)
	}
	return &SessionVerifier{publicKey: publicKey}, nil
}

// Subject 校验令牌并返回其中的身份 ID（sub）。
func (s *SessionVerifier) Subject(tokenString string) (string, error) {
	if tokenString == "" {
		return "", errors.New("token string is empty")
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return s.publicKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid token claims")
	}
	return claims.Subject, nil
}
