package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// reserved claims are owned by the token and never taken from the directory.
var reserved = map[string]struct{}{
	"sub": {}, "email": {}, "sid": {}, "iat": {}, "exp": {}, "iss": {},
}

const issuer = "banners"

// mintToken signs an HS256 credential for op. sid ties the credential to
// one sign-in so it stops verifying once that sign-in ends.
func mintToken(secret []byte, op Operator, sid string, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{}
	for k, v := range op.Claims {
		if _, skip := reserved[k]; skip {
			continue
		}
		claims[k] = v
	}
	claims["sub"] = op.UID
	claims["email"] = op.Email
	claims["sid"] = sid
	claims["iss"] = issuer
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(ttl).Unix()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// parseToken verifies signature, issuer and expiry and returns the claims.
func parseToken(secret []byte, tokenString string, now func() time.Time) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		return nil, fmt.Errorf("JWT parse error: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type")
	}
	return claims, nil
}
