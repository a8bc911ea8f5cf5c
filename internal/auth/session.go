// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrRoomMismatch is returned when a token was issued for a different room.
var ErrRoomMismatch = errors.New("token was issued for another room")

// Seat is what a session token binds: one player id in one room.
type Seat struct {
	PlayerID string
	RoomID   string
}

// TokenIssuer signs and verifies EdDSA session tokens.
type TokenIssuer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	ttl        time.Duration // 0 => tokens never expire
}

// NewTokenIssuer generates a fresh ed25519 key pair at runtime. Tokens do not
// survive a restart, which matches rooms living in memory only.
func NewTokenIssuer(ttl time.Duration) (*TokenIssuer, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &TokenIssuer{privateKey: privateKey, publicKey: publicKey, ttl: ttl}, nil
}

// NewTokenIssuerFromPath reads raw ed25519 private/public keys from file, so
// tokens stay valid across restarts of a server that shares the keys.
func NewTokenIssuerFromPath(privatePath, publicPath string, ttl time.Duration) (*TokenIssuer, error) {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid ed25519 key size")
	}
	return &TokenIssuer{
		privateKey: ed25519.PrivateKey(privateKeyData),
		publicKey:  ed25519.PublicKey(publicKeyData),
		ttl:        ttl,
	}, nil
}

// CreateJWT creates a signed token with "sub" = player id and "room" = room code.
func (ti *TokenIssuer) CreateJWT(seat Seat) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  seat.PlayerID,
		"room": seat.RoomID,
		"iat":  now.Unix(),
	}
	if ti.ttl > 0 {
		claims["exp"] = now.Add(ti.ttl).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(ti.privateKey)
}

// AuthenticateJWT verifies a token and returns the seat it binds.
func (ti *TokenIssuer) AuthenticateJWT(tokenString string) (Seat, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ti.publicKey, nil
	})
	if err != nil {
		return Seat{}, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return Seat{}, fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return Seat{}, fmt.Errorf("invalid jwt claims")
	}
	playerID, ok := claims["sub"].(string)
	if !ok || playerID == "" {
		return Seat{}, fmt.Errorf("missing sub in jwt")
	}
	roomID, ok := claims["room"].(string)
	if !ok || roomID == "" {
		return Seat{}, fmt.Errorf("missing room in jwt")
	}
	return Seat{PlayerID: playerID, RoomID: roomID}, nil
}

// AuthenticateForRoom is AuthenticateJWT plus a check that the token belongs to roomID.
func (ti *TokenIssuer) AuthenticateForRoom(tokenString, roomID string) (Seat, error) {
	seat, err := ti.AuthenticateJWT(tokenString)
	if err != nil {
		return seat, err
	}
	if seat.RoomID != roomID {
		return seat, ErrRoomMismatch
	}
	return seat, nil
}
