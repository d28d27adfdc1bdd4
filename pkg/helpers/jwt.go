package helpers

import (
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	audienceSession    = "session"
	audienceActivation = "activation"
)

// JWTManager signs session tokens and registration activation tokens.
type JWTManager struct {
	Secret        []byte
	SessionTTL    time.Duration
	ActivationTTL time.Duration
}

var defaultManager *JWTManager

func NewJWTManager(secret string, sessionTTL, activationTTL time.Duration) *JWTManager {
	m := &JWTManager{
		Secret:        []byte(secret),
		SessionTTL:    sessionTTL,
		ActivationTTL: activationTTL,
	}
	defaultManager = m
	return m
}

// DefaultJWT returns the last constructed JWTManager (used for auto-wiring routes)
func DefaultJWT() *JWTManager { return defaultManager }

type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// ActivationClaims carry a not-yet-persisted registration.
// CodeMAC is an HMAC of the email and code, so the code itself never leaves the server.
// The password hash travels sealed in SealedHash and is only set in PasswordHash after parsing.
type ActivationClaims struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	SealedHash   string `json:"pwd"`
	CodeMAC      string `json:"cmac"`
	PasswordHash string `json:"-"`
	jwt.RegisteredClaims
}

// GenerateSessionToken returns a signed token, its id (jti) and expiry.
func (m *JWTManager) GenerateSessionToken(userID string) (string, string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.SessionTTL)
	jti := uuid.NewString()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{audienceSession},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.Secret)
	return s, jti, exp, err
}

func (m *JWTManager) ParseSessionToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if err := m.parse(tokenStr, claims, audienceSession); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

func (m *JWTManager) GenerateActivationToken(name, email, passwordHash, code string) (string, time.Time, error) {
	sealed, err := m.seal(email, passwordHash)
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now()
	exp := now.Add(m.ActivationTTL)
	claims := &ActivationClaims{
		Name:       name,
		Email:      email,
		SealedHash: sealed,
		CodeMAC:    m.codeMAC(email, code),
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{audienceActivation},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.Secret)
	return s, exp, err
}

// ParseActivationToken validates the token and checks code against it.
func (m *JWTManager) ParseActivationToken(tokenStr, code string) (*ActivationClaims, error) {
	claims := &ActivationClaims{}
	if err := m.parse(tokenStr, claims, audienceActivation); err != nil {
		return nil, err
	}
	want := m.codeMAC(claims.Email, code)
	if !hmac.Equal([]byte(want), []byte(claims.CodeMAC)) {
		return nil, errors.New("code mismatch")
	}
	hash, err := m.open(claims.Email, claims.SealedHash)
	if err != nil {
		return nil, err
	}
	claims.PasswordHash = hash
	return claims, nil
}

func (m *JWTManager) activationAEAD() (cipher.AEAD, error) {
	key := sha256.Sum256(append([]byte("activation:"), m.Secret...))
	return chacha20poly1305.NewX(key[:])
}

// seal encrypts plain with the email as additional data, so a sealed value
// cannot be moved to another registration.
func (m *JWTManager) seal(email, plain string) (string, error) {
	aead, err := m.activationAEAD()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := aead.Seal(nonce, nonce, []byte(plain), []byte(strings.ToLower(email)))
	return base64.RawURLEncoding.EncodeToString(out), nil
}

func (m *JWTManager) open(email, sealed string) (string, error) {
	aead, err := m.activationAEAD()
	if err != nil {
		return "", err
	}
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize() {
		return "", errors.New("sealed value too short")
	}
	nonce, ct := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ct, []byte(strings.ToLower(email)))
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func (m *JWTManager) codeMAC(email, code string) string {
	mac := hmac.New(sha256.New, m.Secret)
	mac.Write([]byte(strings.ToLower(email) + ":" + code))
	return hex.EncodeToString(mac.Sum(nil))
}

func (m *JWTManager) parse(tokenStr string, claims jwt.Claims, audience string) error {
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.Secret, nil
	}, jwt.WithAudience(audience), jwt.WithExpirationRequired())
	if err != nil {
		return err
	}
	if !tkn.Valid {
		return errors.New("invalid token")
	}
	return nil
}
