package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const viewerKey = "viewer"

// Claims represents the JWT claims structure
type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Auth returns a middleware that validates JWT tokens
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString := ""

		if authHeader == "" {
			// Receipt download links carry the token in the query string
			tokenString = c.Query("token")
			if tokenString == "" {
				abort(c, http.StatusUnauthorized, "unauthorized", "Authorization header is required")
				return
			}
		} else {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				abort(c, http.StatusUnauthorized, "unauthorized", "Invalid authorization header format")
				return
			}
			tokenString = parts[1]
		}

		claims, err := validateToken(tokenString, jwtSecret)
		if err != nil {
			abort(c, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}

		c.Set("userID", claims.UserID)
		c.Set(viewerKey, models.Viewer{UserID: claims.UserID, Email: claims.Email, Role: claims.Role})

		c.Next()
	}
}

// validateToken parses and validates a JWT token string
func validateToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New("token has expired")
		}
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// Viewer returns the authenticated identity, or the zero Viewer on public
// routes.
func Viewer(c *gin.Context) models.Viewer {
	v, exists := c.Get(viewerKey)
	if !exists {
		return models.Viewer{}
	}
	return v.(models.Viewer)
}

// SetViewer installs an identity on the context. Tests use it in place of
// a signed token.
func SetViewer(c *gin.Context, v models.Viewer) {
	c.Set("userID", v.UserID)
	c.Set(viewerKey, v)
}

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) uint {
	return Viewer(c).UserID
}

// RequireStaff allows staff and admin tokens only.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Viewer(c).IsStaff() {
			abort(c, http.StatusForbidden, "permission_denied", "Staff access required")
			return
		}
		c.Next()
	}
}

// RequireRole returns a middleware that requires specific roles. Staff
// always pass.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer := Viewer(c)
		if viewer.IsStaff() {
			c.Next()
			return
		}
		for _, role := range allowedRoles {
			if viewer.Role == role {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "permission_denied", "You do not have access to this resource")
	}
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": message})
}
