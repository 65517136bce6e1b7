// File: internal/middleware/auth.go
package middleware

import (
	"carmarket_backend/internal/common"
	"carmarket_backend/internal/policy"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(tokenService TokenService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(common.AuthorizationHeader) == "" {
			logger.Debug("Authorization header missing")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header is required."))
			return
		}

		tokenString := common.GetTokenFromContext(c)
		if tokenString == "" {
			logger.Debug("Authorization header format invalid")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header format must be 'Bearer <token>'."))
			return
		}

		claims, err := tokenService.ValidateToken(tokenString)
		if err != nil {
			logger.Warn("Token validation failed", zap.Error(err))
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails(err.Error()))
			return
		}
		userID, _ := claims.UserID()
		role := claims.Role
		if role == "" {
			role = common.RoleUser
		}

		c.Set(common.UserIDKey, userID)
		c.Set(common.UserRoleKey, role)

		logger.Debug("User authenticated successfully",
			zap.String("userID", userID.String()),
			zap.String("role", role),
		)

		c.Next()
	}
}

// ActorFromContext builds the policy actor from what AuthMiddleware stored.
func ActorFromContext(c *gin.Context) policy.Actor {
	return policy.Actor{
		ID:   common.GetUserIDFromContext(c),
		Role: common.GetUserRoleFromContext(c),
	}
}

// RequireActor returns the authenticated actor or responds with 401.
func RequireActor(c *gin.Context) (policy.Actor, bool) {
	actor := ActorFromContext(c)
	if actor.ID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User not authenticated."))
		return actor, false
	}
	return actor, true
}

// RoleAuthMiddleware creates a middleware to check if the authenticated user has one of the required roles.
func RoleAuthMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := common.GetUserRoleFromContext(c)
		if userRole == "" {
			common.RespondWithError(c, common.ErrForbidden.WithDetails("User role not found in context."))
			return
		}

		isAllowed := false
		for _, role := range allowedRoles {
			if userRole == role {
				isAllowed = true
				break
			}
		}

		if !isAllowed {
			common.RespondWithError(c, common.ErrForbidden.WithDetails("You do not have sufficient permissions for this resource."))
			return
		}
		c.Next()
	}
}
