package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims описывает полезную нагрузку токена доступа.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenManager выпускает и проверяет подписанные HS256 токены.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(conf *Config) *TokenManager {
	return &TokenManager{
		secret: []byte(conf.JWTSecret),
		ttl:    time.Duration(conf.TokenTTLHours) * time.Hour,
	}
}

// Generate создаёт токен для пользователя с заданным сроком жизни.
func (m *TokenManager) Generate(userID int64, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse проверяет подпись и срок жизни токена.
func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

var manager *TokenManager

// Init инициализирует глобальный менеджер токенов. Вызывается один раз при старте.
func Init(conf *Config) {
	manager = NewTokenManager(conf)
}

// GenerateToken выпускает токен через глобальный менеджер.
func GenerateToken(userID int64, username string) (string, error) {
	if manager == nil {
		return "", fmt.Errorf("auth manager is not initialized")
	}
	return manager.Generate(userID, username)
}

// VerifyToken извлекает и проверяет Bearer-токен из запроса.
// Возвращает идентификатор пользователя.
func VerifyToken(r *http.Request) (int64, error) {
	if manager == nil {
		return 0, fmt.Errorf("auth manager is not initialized")
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return 0, fmt.Errorf("authorization header is missing")
	}

	tokenString := strings.TrimPrefix(header, "Bearer ")
	if tokenString == header {
		return 0, fmt.Errorf("authorization header must use Bearer scheme")
	}

	claims, err := manager.Parse(tokenString)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}
