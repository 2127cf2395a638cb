package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Eursukkul/rental-marketplace/internal/models"
	"github.com/Eursukkul/rental-marketplace/pkg/auth"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const actorKey = "actor"

var ErrUnauthenticated = errors.New("invalid or expired token")

// UserLookup loads the stored user behind a token subject.
type UserLookup interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

// Authenticator turns a bearer token into an actor. The role comes from the
// stored user, so role changes and deletions apply to tokens already issued.
type Authenticator struct {
	tokens *auth.TokenManager
	users  UserLookup
}

func NewAuthenticator(tokens *auth.TokenManager, users UserLookup) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

func (a *Authenticator) Authenticate(ctx context.Context, token string) (models.Actor, error) {
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return models.Actor{}, ErrUnauthenticated
	}
	userID, err := claims.UserID()
	if err != nil {
		return models.Actor{}, ErrUnauthenticated
	}
	user, err := a.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Actor{}, ErrUnauthenticated
		}
		return models.Actor{}, err
	}
	if !user.Role.Valid() {
		return models.Actor{}, ErrUnauthenticated
	}
	return models.Actor{UserID: user.ID, Role: user.Role}, nil
}

// RequireAuth resolves the bearer token into a models.Actor on the context.
func RequireAuth(authn *Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			actor, err := authn.Authenticate(c.Request().Context(), strings.TrimSpace(token))
			if err != nil {
				if errors.Is(err, ErrUnauthenticated) {
					return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
				}
				return err
			}

			SetActor(c, actor)
			return next(c)
		}
	}
}

// RequireRoles must run after RequireAuth.
func RequireRoles(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			for _, r := range roles {
				if actor.Role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
		}
	}
}

func SetActor(c echo.Context, actor models.Actor) {
	c.Set(actorKey, actor)
}

func ActorFrom(c echo.Context) (models.Actor, bool) {
	actor, ok := c.Get(actorKey).(models.Actor)
	return actor, ok
}
