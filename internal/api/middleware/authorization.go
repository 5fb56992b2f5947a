package middleware

import (
	"context"
	"net/http"
	"strings"

	iternal_jwt "livechat-backend/internal/jwt"
)

type agentKey struct{}

// AgentFromContext returns the authenticated agent stored by ValidateJWTMiddleware.
func AgentFromContext(ctx context.Context) (iternal_jwt.Agent, bool) {
	agent, ok := ctx.Value(agentKey{}).(iternal_jwt.Agent)
	return agent, ok
}

func WithAgent(ctx context.Context, agent iternal_jwt.Agent) context.Context {
	return context.WithValue(ctx, agentKey{}, agent)
}

func ValidateJWTMiddleware(role iternal_jwt.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || tokenString == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := iternal_jwt.ParseToken(tokenString, role)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			agent, err := iternal_jwt.AgentFromClaims(claims)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next(w, r.WithContext(WithAgent(r.Context(), agent)))
		}
	}
}

var ValidateAgentJWT = ValidateJWTMiddleware(iternal_jwt.RoleAgent)
var ValidateAdminJWT = ValidateJWTMiddleware(iternal_jwt.RoleAdmin)
