package auth

import (
	"errors"
	"strconv"
	"time"

	"ecshop/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
)

// 発行元（iss）
const accessTokenIssuer = "ecshop"

var ErrInvalidAccessToken = errors.New("invalid access token")

// AccessClaims はアクセストークンの claims。発行と検証で同じ型を使う。
// sub は user id の10進文字列、tv は users.token_version。
type AccessClaims struct {
	Role         model.Role `json:"role"`
	TokenVersion int        `json:"tv"`
	jwt.RegisteredClaims
}

func (c AccessClaims) UserID() int64 {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Valid は exp/iat/nbf に加えて中身の形を見る
func (c AccessClaims) Valid() error {
	if err := c.RegisteredClaims.Valid(); err != nil {
		return err
	}
	if !c.VerifyIssuer(accessTokenIssuer, true) {
		return ErrInvalidAccessToken
	}
	if c.UserID() <= 0 || c.TokenVersion < 0 {
		return ErrInvalidAccessToken
	}
	if c.Role != model.RoleUser && c.Role != model.RoleAdmin {
		return ErrInvalidAccessToken
	}
	return nil
}

// HS256 のアクセストークンを発行・検証する
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTIssuer(secret string, ttl time.Duration) *JWTIssuer {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &JWTIssuer{secret: []byte(secret), ttl: ttl}
}

func (i *JWTIssuer) Issue(userID int64, role model.Role, tokenVersion int, now time.Time) (string, time.Time, error) {
	exp := now.Add(i.ttl)

	claims := AccessClaims{
		Role:         role,
		TokenVersion: tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    accessTokenIssuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse は署名・アルゴリズム・claims を検証して返す。失敗は全て ErrInvalidAccessToken。
func (i *JWTIssuer) Parse(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidAccessToken
	}
	return claims, nil
}
