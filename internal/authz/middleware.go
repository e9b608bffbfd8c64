package authz

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
)

// DefaultTokenTTL is how long issued device tokens stay valid.
const DefaultTokenTTL = 30 * 24 * time.Hour

// IssueToken signs an HS256 token for a device or operator.
func IssueToken(secret, subject, propertyID string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	if subject == "" {
		return "", errors.New("token subject is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(ttl).Unix(),
	}
	if propertyID != "" {
		claims["pid"] = propertyID
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return signed, nil
}

// JWTMiddleware rejects requests without a valid bearer token signed with secret.
func JWTMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(auth, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
				return
			}
			token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok || !claims.VerifyExpiresAt(time.Now().Unix(), true) {
				http.Error(w, "Token expired", http.StatusUnauthorized)
				return
			}
			subject, ok := claims["sub"].(string)
			if !ok || subject == "" {
				http.Error(w, "Missing token claim", http.StatusUnauthorized)
				return
			}
			propertyID, _ := claims["pid"].(string)

			ctx := WithIdentity(r.Context(), subject, propertyID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
