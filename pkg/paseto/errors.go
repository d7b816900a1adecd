package pasetotoken

import (
	"errors"
	"fmt"
)

var (
	ErrMissingToken  = errors.New("missing bearer token")
	ErrWrongType     = errors.New("token is not an access token")
	ErrMissingClaims = errors.New("token has no claims")
)

type ErrConfig struct{ Msg string }

func (e ErrConfig) Error() string { return "paseto config error: " + e.Msg }

type ErrInvalidToken struct{ Err error }

func (e ErrInvalidToken) Error() string { return fmt.Sprintf("invalid token: %v", e.Err) }
func (e ErrInvalidToken) Unwrap() error { return e.Err }
