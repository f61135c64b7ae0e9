package oauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nmehta6/dishcovery/internal/crypto"
)

// State-token errors.
var (
	ErrStateInvalid = errors.New("oauth state is invalid")
	ErrStateExpired = errors.New("oauth state has expired")
)

// stateTTL bounds how long a login redirect may sit before the
// callback returns.
const stateTTL = 10 * time.Minute

// stateClaims is the payload of the signed state token carried through
// the provider redirect. The nonce is echoed in a short-lived cookie
// so a forged callback cannot replay a state minted for another
// browser.
type stateClaims struct {
	Nonce string `json:"nonce"`
	jwt.RegisteredClaims
}

// stateCodec signs and verifies state tokens.
type stateCodec struct {
	secret []byte
}

// issue mints a fresh state token and returns it with its nonce.
func (c *stateCodec) issue(now time.Time) (token, nonce string, err error) {
	nonce, err = crypto.StateNonce()
	if err != nil {
		return "", "", fmt.Errorf("generating state nonce: %w", err)
	}
	claims := &stateClaims{
		Nonce: nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		},
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", "", fmt.Errorf("signing oauth state: %w", err)
	}
	return token, nonce, nil
}

// verify checks a returned state token and returns its nonce.
func (c *stateCodec) verify(token string) (string, error) {
	claims := &stateClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrStateExpired
		}
		return "", ErrStateInvalid
	}
	if !parsed.Valid || claims.Nonce == "" {
		return "", ErrStateInvalid
	}
	return claims.Nonce, nil
}
