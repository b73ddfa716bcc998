package server

import (
	"errors"
	"math"
	"strconv"

	"studyhub/internal/apperr"
	"studyhub/internal/auth"
	"studyhub/internal/database"
	"studyhub/internal/database/models"
	"studyhub/internal/validation"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const currentUserKey = "currentUser"

// authenticate verifies the bearer access token and loads its user into the
// request locals.
func (s *FiberServer) authenticate() fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:     jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: s.tokens.AccessSecret()},
		Claims:         &auth.Claims{},
		ErrorHandler:   jwtError,
		SuccessHandler: s.loadUser,
	})
}

func jwtError(_ *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, jwtware.ErrJWTMissingOrMalformed):
		return apperr.Unauthorized("TOKEN_MISSING", "missing or malformed token")
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperr.Unauthorized("TOKEN_EXPIRED", "token has expired")
	default:
		return apperr.Unauthorized("TOKEN_INVALID", "invalid token")
	}
}

func (s *FiberServer) loadUser(c *fiber.Ctx) error {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return apperr.Unauthorized("TOKEN_INVALID", "invalid token")
	}
	claims, ok := token.Claims.(*auth.Claims)
	if !ok || claims.Type != auth.AccessToken {
		return apperr.Unauthorized("TOKEN_INVALID", "invalid token")
	}
	id, err := claims.UserID()
	if err != nil {
		return apperr.Unauthorized("TOKEN_INVALID", "invalid token")
	}

	user, err := s.users.GetByID(c.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		return apperr.Unauthorized("TOKEN_INVALID", "user no longer exists")
	}
	if err != nil {
		return err
	}
	if !user.IsActive {
		return apperr.Unauthorized("ACCOUNT_DISABLED", "account is disabled")
	}
	c.Locals(currentUserKey, user)
	return c.Next()
}

// authorize must run after authenticate.
func authorize(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := currentUser(c)
		for _, r := range roles {
			if user.Role == r {
				return c.Next()
			}
		}
		return apperr.Forbidden("insufficient permissions")
	}
}

func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(currentUserKey).(*models.User)
	if user == nil {
		return &models.User{}
	}
	return user
}

// ownerScope is the owner filter for repository calls: the caller's id, or
// uuid.Nil for admins.
func ownerScope(user *models.User) uuid.UUID {
	if user.IsAdmin() {
		return uuid.Nil
	}
	return user.ID
}

// attemptLimit throttles a sensitive endpoint per client IP. Limiter
// failures let the request through.
func (s *FiberServer) attemptLimit(action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := s.limiter.Allow(c.Context(), action+":"+c.IP())
		if err != nil {
			s.log.Warn("rate limiter unavailable", zap.String("action", action), zap.Error(err))
			return c.Next()
		}
		c.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			return apperr.TooManyRequests(max(1, int(math.Ceil(res.RetryAfter.Seconds()))))
		}
		return c.Next()
	}
}

func bindBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	return validation.Struct(dst)
}

func bindQuery(c *fiber.Ctx, dst interface{}) error {
	if err := c.QueryParser(dst); err != nil {
		return apperr.BadRequest("invalid query parameters")
	}
	if d, ok := dst.(interface{ Defaults() }); ok {
		d.Defaults()
	}
	return validation.Struct(dst)
}

func parseID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		return uuid.Nil, apperr.BadRequest("invalid " + param)
	}
	return id, nil
}
