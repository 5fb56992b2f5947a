package jwt

import (
	"fmt"
	"time"

	"livechat-backend/internal/env"

	"github.com/golang-jwt/jwt"
)

type Role int

const (
	RoleAgent Role = iota
	RoleAdmin
)

// Agent is the identity carried by an access token.
type Agent struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func roleChar(role Role) string {
	switch role {
	case RoleAgent:
		return "a"
	case RoleAdmin:
		return "m"
	}
	return ""
}

func secretFor(role Role) (string, error) {
	if roleChar(role) == "" {
		return "", fmt.Errorf("invalid role specified")
	}
	secret := env.Get(env.AgentSecretKey)
	if secret == "" {
		return "", fmt.Errorf("signing secret not configured")
	}
	return secret, nil
}

// CreateToken signs an HS256 token for agent, valid for 15 minutes unless validUntil is set.
// The role is appended as a trailing character so tokens for one role fail to parse as another.
func CreateToken(agent Agent, role Role, validUntil int64) (string, error) {
	secret, err := secretFor(role)
	if err != nil {
		return "", err
	}

	if validUntil == 0 {
		validUntil = time.Now().Add(15 * time.Minute).Unix()
	}

	claims := jwt.MapClaims{
		"id":       agent.ID,
		"username": agent.Username,
		"exp":      validUntil,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}
	return tokenString + roleChar(role), nil
}

// ParseToken validates the role character, signature and expiry.
func ParseToken(tokenString string, role Role) (jwt.MapClaims, error) {
	if len(tokenString) == 0 {
		return nil, fmt.Errorf("token string is empty")
	}
	if tokenString[len(tokenString)-1:] != roleChar(role) {
		return nil, fmt.Errorf("invalid role character in token")
	}
	tokenString = tokenString[:len(tokenString)-1]

	secret, err := secretFor(role)
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("unauthorized: %v", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid - unauthorized")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("claims of unauthorized type")
	}
	return claims, nil
}

func AgentFromClaims(claims jwt.MapClaims) (Agent, error) {
	id, _ := claims["id"].(string)
	if id == "" {
		return Agent{}, fmt.Errorf("token has no subject")
	}
	username, _ := claims["username"].(string)
	return Agent{ID: id, Username: username}, nil
}
