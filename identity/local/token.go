package local

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-truckdocs/users"
	"github.com/pkg/errors"
)

// IDTokenClaims are the claims carried by ID tokens the directory issues.
type IDTokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (d *Directory) issueIDToken(user *users.User, now time.Time) (string, error) {
	claims := IDTokenClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    d.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d.tokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(d.signingKey)
	if err != nil {
		return "", errors.Wrap(err, "[Directory.issueIDToken] SignedString")
	}
	return signed, nil
}

// VerifyIDToken validates the signature, issuer and expiry of a token issued by this directory.
func (d *Directory) VerifyIDToken(raw string) (*IDTokenClaims, error) {
	claims := &IDTokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return d.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(d.issuer),
		jwt.WithTimeFunc(d.nowTime),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[Directory.VerifyIDToken]")
	}
	return claims, nil
}
