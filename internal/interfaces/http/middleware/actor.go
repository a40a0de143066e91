package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ActorClaims are the token claims the service reads
type ActorClaims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// ActorConfig configures actor resolution
type ActorConfig struct {
	// Secret verifies HS256 tokens. Empty means every request acts as System.
	Secret string
	// Issuer, when set, must match the iss claim
	Issuer string
	Logger *zap.Logger
}

// Actor resolves who is making the request from an optional bearer token.
// The name claim wins over sub. Missing or invalid tokens act as
// shared.SystemActor; the request is never rejected here.
func Actor(cfg ActorConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)
	key := []byte(cfg.Secret)

	return func(c *gin.Context) {
		actor := shared.SystemActor
		if token := bearerToken(c); token != "" && cfg.Secret != "" {
			claims := &ActorClaims{}
			_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
				return key, nil
			})
			if err != nil {
				log.Debug("Ignoring invalid bearer token",
					zap.String("request_id", GetRequestID(c)),
					zap.Error(err),
				)
			} else {
				actor = actorFromClaims(claims)
			}
		}
		c.Set(logger.GinActorKey, actor)
		c.Next()
	}
}

// GetActor returns the actor resolved by Actor, or System
func GetActor(c *gin.Context) string {
	return shared.NormalizeActor(c.GetString(logger.GinActorKey))
}

func actorFromClaims(claims *ActorClaims) string {
	if name := strings.TrimSpace(claims.Name); name != "" {
		return name
	}
	return shared.NormalizeActor(claims.Subject)
}

func bearerToken(c *gin.Context) string {
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
