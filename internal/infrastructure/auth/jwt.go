package authinfra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"oee-monitor/internal/domain/auth"

	"github.com/golang-jwt/jwt/v5"
)

// JWTIssuer 產生/驗證 access token。登入由外部身分系統負責，token 由 cmd/token 簽發給操作人員與服務帳號。
type JWTIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTIssuer 建立 JWT 簽發器。
func NewJWTIssuer(secret, issuer string, ttl time.Duration) *JWTIssuer {
	return &JWTIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Claims 定義 access token 的 payload。
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issue 為 subject 簽發指定角色的 token，回傳 token 與到期時間。
func (j *JWTIssuer) Issue(subject string, role auth.Role) (string, time.Time, error) {
	if strings.TrimSpace(subject) == "" {
		return "", time.Time{}, errors.New("subject required")
	}
	if _, err := auth.ParseRole(string(role)); err != nil {
		return "", time.Time{}, err
	}
	now := j.now()
	exp := now.Add(j.ttl)
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    j.issuer,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// ParseAccessToken 驗證並解析 access token。
func (j *JWTIssuer) ParseAccessToken(token string) (Claims, error) {
	var claims Claims
	opts := []jwt.ParserOption{jwt.WithTimeFunc(j.now)}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}
	tkn, err := jwt.ParseWithClaims(token, &claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return j.secret, nil
	}, opts...)
	if err != nil {
		return Claims{}, err
	}
	if !tkn.Valid {
		return Claims{}, errors.New("invalid token")
	}
	return claims, nil
}
