package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken = errors.New("invalid media token")
	ErrWrongFile    = errors.New("media token is scoped to a different file")
)

const mediaScope = "stream"

// MediaTokenClaims is the payload of a scoped media-access token. The
// token authorizes streaming one specific file and nothing else, so it is
// safe to embed in player URLs.
type MediaTokenClaims struct {
	FileID string `json:"file_id"`
	Scope  string `json:"scope"`
	jwt.RegisteredClaims
}

// Auth issues and validates media tokens and API keys.
type Auth struct {
	secret []byte
	ttl    time.Duration
}

func New(secret string, mediaTokenTTL time.Duration) *Auth {
	return &Auth{secret: []byte(secret), ttl: mediaTokenTTL}
}

// IssueMediaToken creates a short-lived token scoped to one file.
func (a *Auth) IssueMediaToken(fileID uuid.UUID) (string, error) {
	now := time.Now()
	claims := MediaTokenClaims{
		FileID: fileID.String(),
		Scope:  mediaScope,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign media token: %w", err)
	}
	return signed, nil
}

// ValidateMediaToken checks signature, expiry, scope and file binding.
func (a *Auth) ValidateMediaToken(tokenString string, fileID uuid.UUID) error {
	var claims MediaTokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid || claims.Scope != mediaScope {
		return ErrInvalidToken
	}
	if claims.FileID != fileID.String() {
		return ErrWrongFile
	}
	return nil
}

// ──────────────────── API Keys ────────────────────

// GenerateAPIKey returns a new random key and its bcrypt hash for storage.
// The plain key is shown to the caller once and never persisted.
func GenerateAPIKey() (key, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	key = hex.EncodeToString(b)
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return key, string(h), nil
}

// CheckAPIKey verifies a presented key against its stored hash.
func CheckAPIKey(hash, key string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
