package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const tokenIssuer = "uno-server"

// ReconnectClaims 断线重连令牌
type ReconnectClaims struct {
	RoomCode string `json:"room_code"`
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

// TokenManager 重连令牌管理器
type TokenManager struct {
	secretKey []byte
	expiry    time.Duration
	now       func() time.Time
}

// NewTokenManager 创建令牌管理器
func NewTokenManager(secretKey string, expiry time.Duration) *TokenManager {
	return &TokenManager{
		secretKey: []byte(secretKey),
		expiry:    expiry,
		now:       time.Now,
	}
}

// Generate 为房间内的玩家签发重连令牌
func (m *TokenManager) Generate(roomCode, playerID, name string) (string, error) {
	now := m.now()
	claims := &ReconnectClaims{
		RoomCode: roomCode,
		PlayerID: playerID,
		Name:     name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   playerID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// Validate 校验令牌
func (m *TokenManager) Validate(tokenString string) (*ReconnectClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ReconnectClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, err
	}

	claims, ok := token.Claims.(*ReconnectClaims)
	if !ok || !token.Valid || claims.PlayerID == "" || claims.RoomCode == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Expiry 令牌有效期
func (m *TokenManager) Expiry() time.Duration {
	return m.expiry
}
