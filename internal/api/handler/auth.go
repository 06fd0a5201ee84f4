package handler

import (
	"complaintdesk/backend/internal/models"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer = "complaintdesk"
	agentKey    = "agent"
)

// AgentClaims identifies the agent behind a request.
type AgentClaims struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
	jwt.RegisteredClaims
}

// GenerateJWT видає токен агента, підписаний HS256.
func GenerateJWT(secret []byte, agentID, agentName string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AgentClaims{
		AgentID:   agentID,
		AgentName: agentName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   agentID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseJWT validates tokenString and returns the agent it names.
func ParseJWT(secret []byte, tokenString string) (*models.Agent, error) {
	claims := &AgentClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, err
	}
	if claims.AgentID == "" || claims.AgentName == "" {
		return nil, errors.New("token does not identify an agent")
	}
	return &models.Agent{ID: claims.AgentID, DisplayName: claims.AgentName}, nil
}

// AuthMiddleware requires a valid agent token. Browsers cannot set headers on a
// websocket handshake, so a "token" query parameter is accepted as well.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
				return
			}
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
			return
		}

		agent, err := ParseJWT(h.JWTSecret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
			return
		}
		c.Set(agentKey, agent)
		c.Next()
	}
}

func currentAgent(c *gin.Context) *models.Agent {
	v, ok := c.Get(agentKey)
	if !ok {
		return nil
	}
	agent, _ := v.(*models.Agent)
	return agent
}
