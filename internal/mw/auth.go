package mw

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"parking-backend/internal/model"
)

const (
	AuthorizationHeaderKey  = "Authorization"
	AuthorizationTypeBearer = "Bearer"
	UserIDKey               = "userID"
	UserRoleKey             = "userRole"
)

// Claims are the claims carried by an access token. The subject is the user id.
type Claims struct {
	Role model.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 access token for a user.
func IssueToken(secret string, userID int64, role model.UserRole, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies a token and returns the caller it identifies.
func ParseToken(secret, token string) (int64, model.UserRole, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return 0, "", err
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, "", fmt.Errorf("invalid subject %q", claims.Subject)
	}
	switch claims.Role {
	case model.RoleDriver, model.RoleOperator, model.RoleAdmin:
	default:
		return 0, "", errors.New("invalid role")
	}
	return userID, claims.Role, nil
}

// Authenticate rejects requests without a valid bearer token and stores the caller's
// id and role in the context.
func Authenticate(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		fields := strings.Fields(c.GetHeader(AuthorizationHeaderKey))
		if len(fields) != 2 || !strings.EqualFold(fields[0], AuthorizationTypeBearer) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed bearer token"})
			return
		}

		userID, role, err := ParseToken(secret, fields[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(UserRoleKey, role)
		c.Next()
	}
}

// RequireRole aborts with 403 unless the caller has one of roles. It must run after
// Authenticate.
func RequireRole(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := Role(c)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		log.Printf("RequireRole: role %q denied on %s (allowed: %v)", role, c.FullPath(), roles)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
	}
}

// UserID returns the authenticated caller's id, or 0.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(UserIDKey)
}

// Role returns the authenticated caller's role.
func Role(c *gin.Context) model.UserRole {
	v, _ := c.Get(UserRoleKey)
	role, _ := v.(model.UserRole)
	return role
}

// IsStaff reports whether the caller is an operator or an admin.
func IsStaff(c *gin.Context) bool {
	role := Role(c)
	return role == model.RoleOperator || role == model.RoleAdmin
}
