package sessions

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"profilevault/internal/common"
)

// Claims carries the standard registered claims plus the owning profile id.
type Claims struct {
	jwt.RegisteredClaims
	ProfileID string
}

// GenerateAccessToken mints a short-lived HS256 token for a profile.
func GenerateAccessToken(profileID string, secretKey []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
		},
		ProfileID: profileID,
	})
	return token.SignedString(secretKey)
}

// ProfileIDFromToken validates an access token and returns the profile id it
// was minted for. Expired or malformed tokens yield common.ErrInvalidToken.
func ProfileIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", common.ErrInvalidToken
	}
	if !token.Valid {
		return "", common.ErrInvalidToken
	}
	return claims.ProfileID, nil
}
