package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/authz"
	"github.com/trezcool/lingo/core/user"
)

var (
	contextTokenKey = "userToken"
	contextUserKey  = "user"
)

// Claims represents the claims of the identity provider transmitted via a JWT.
// Subject is the id of the LearnerProfile.
type Claims struct {
	jwt.StandardClaims
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func (c Claims) identity() user.Identity {
	return user.Identity{Subject: c.Subject, Name: c.Name, Email: c.Email}
}

func jwtConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// GetUserClaims returns the claims the identity provider would issue for usr.
func GetUserClaims(conf *core.Config, usr user.User) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.Server.JWTIssuer,
			Audience:  conf.Server.JWTAudience,
			Subject:   usr.ID,
			ExpiresAt: now.Add(conf.Server.JWTExpiration).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:  usr.Name,
		Email: usr.Email,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	cfg := jwtConfig(conf)
	method := jwt.GetSigningMethod(cfg.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(cfg.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}

func getContextCaller(ctx echo.Context) (authz.Caller, error) {
	usr, err := getContextUser(ctx)
	if err != nil {
		return authz.Caller{}, err
	}
	return authz.CallerFrom(usr), nil
}

// profileMiddleware checks the issuer & audience of the token then loads the profile of its subject,
// creating it on first login.
func profileMiddleware(conf *core.Config, svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if iss := conf.Server.JWTIssuer; iss != "" && !claims.VerifyIssuer(iss, true) {
				return errInvalidToken
			}
			if aud := conf.Server.JWTAudience; aud != "" && !claims.VerifyAudience(aud, true) {
				return errInvalidToken
			}

			usr, err := svc.EnsureProfile(ctx.Request().Context(), claims.identity())
			if err != nil {
				if core.IsValidation(err) {
					return errInvalidToken
				}
				return err
			}
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}
