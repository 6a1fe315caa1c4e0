package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vellumcms/vellum-backend/internal/platform/cmserr"
	"github.com/vellumcms/vellum-backend/internal/platform/logger"
	"github.com/vellumcms/vellum-backend/internal/repos"
)

// TokenValidator is the injected auth capability: every protected
// operation resolves its caller through it before touching storage.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (uuid.UUID, error)
}

type jwtValidator struct {
	log    *logger.Logger
	users  repos.UserRepo
	secret []byte
}

func NewTokenValidator(baseLog *logger.Logger, users repos.UserRepo, secret string) TokenValidator {
	return &jwtValidator{
		log:    baseLog.With("service", "TokenValidator"),
		users:  users,
		secret: []byte(secret),
	}
}

func (tv *jwtValidator) Validate(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, cmserr.InvalidToken(errors.New("no token provided"))
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return tv.secret, nil
	})
	if err != nil || !parsed.Valid {
		if err == nil {
			err = errors.New("token rejected")
		}
		return uuid.Nil, cmserr.InvalidToken(err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, cmserr.InvalidToken(errors.New("unexpected claims payload"))
	}
	rawID, ok := claims["id"].(string)
	if !ok {
		return uuid.Nil, cmserr.InvalidToken(errors.New("token carries no user id"))
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, cmserr.InvalidToken(err)
	}

	exists, err := tv.users.Exists(ctx, nil, userID)
	if err != nil {
		return uuid.Nil, cmserr.Storage(err)
	}
	if !exists {
		return uuid.Nil, cmserr.NoMatchingUser()
	}
	return userID, nil
}

// SignUserToken mints a token the validator accepts. The auth collaborator
// owns sign-in; this is the shared signing contract (and the test hook).
func SignUserToken(secret string, userID uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"id":  userID.String(),
		"iat": time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
