package auth

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Tokens issues and verifies session JWTs signed with ed25519. A zero
// TTL means issued tokens never expire.
type Tokens struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
	ttl     time.Duration
}

// NewTokens generates a fresh key pair. Sessions do not survive a
// restart; owners just log in again.
func NewTokens(ttl time.Duration) (*Tokens, error) {
	public, private, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Tokens{private: private, public: public, ttl: ttl}, nil
}

// NewTokensFromFiles loads a persisted key pair so sessions survive
// restarts.
func NewTokensFromFiles(privatePath, publicPath string, ttl time.Duration) (*Tokens, error) {
	privateData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	return &Tokens{
		private: ed25519.PrivateKey(privateData),
		public:  ed25519.PublicKey(publicData),
		ttl:     ttl,
	}, nil
}

// Issue signs a JWT with "sub" = userID.
func (t *Tokens) Issue(userID string) (string, error) {
	claims := jwt.MapClaims{"sub": userID}
	if t.ttl > 0 {
		claims["exp"] = time.Now().Add(t.ttl).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(t.private)
}

// Verify checks the token signature and returns the subject user id.
func (t *Tokens) Verify(tokenString string) (string, error) {
	parsed, err := jwt.Parse(tokenString, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.public, nil
	})
	if err != nil {
		return "", fmt.Errorf("jwt parse error: %w", err)
	}
	if !parsed.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid jwt claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return "", fmt.Errorf("missing sub in jwt")
	}
	return sub, nil
}
