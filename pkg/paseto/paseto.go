package pasetotoken

import (
	"strings"
	"time"

	paseto "aidanwoods.dev/go-paseto"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/Alijeyrad/hairai_backend/config"
)

// CtxKeyClaims is the fiber Locals key holding *Claims after authentication.
const CtxKeyClaims = "auth.claims"

type Verifier struct {
	keys     Keys
	issuer   string
	audience string
	implicit []byte
}

func NewVerifier(keys Keys, issuer, audience string) (*Verifier, error) {
	if issuer == "" {
		return nil, ErrConfig{Msg: "issuer is required"}
	}
	if audience == "" {
		return nil, ErrConfig{Msg: "audience is required"}
	}
	return &Verifier{keys: keys, issuer: issuer, audience: audience}, nil
}

// NewFromConfig builds a Verifier from the authentication section.
func NewFromConfig(cfg *config.Config) (*Verifier, error) {
	p := cfg.Authentication.Paseto
	keys, err := LoadKeys(Mode(p.Mode), p.LocalKeyHex, p.PublicKeyHex)
	if err != nil {
		return nil, err
	}
	return NewVerifier(keys, p.Issuer, p.Audience)
}

// Verify checks signature or encryption, issuer, audience and validity window,
// then extracts the claims the API needs.
func (v *Verifier) Verify(token string) (*Claims, error) {
	p := paseto.NewParser()
	p.AddRule(paseto.IssuedBy(v.issuer))
	p.AddRule(paseto.ForAudience(v.audience))
	p.AddRule(paseto.NotExpired())
	p.AddRule(paseto.ValidAt(time.Now()))

	var (
		tok *paseto.Token
		err error
	)
	switch v.keys.Mode {
	case ModeLocal:
		if v.keys.Symmetric == nil {
			return nil, ErrConfig{Msg: "missing symmetric key"}
		}
		tok, err = p.ParseV4Local(*v.keys.Symmetric, token, v.implicit)
	case ModePublic:
		if v.keys.Public == nil {
			return nil, ErrConfig{Msg: "missing public key"}
		}
		tok, err = p.ParseV4Public(*v.keys.Public, token, v.implicit)
	default:
		return nil, ErrConfig{Msg: "unknown mode"}
	}
	if err != nil {
		return nil, ErrInvalidToken{Err: err}
	}

	claims, err := extractClaims(tok)
	if err != nil {
		return nil, ErrInvalidToken{Err: err}
	}
	return claims, nil
}

// VerifyAccess verifies an Authorization header value and requires an access token.
func (v *Verifier) VerifyAccess(header string) (*Claims, error) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}
	claims, err := v.Verify(strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeAccess {
		return nil, ErrWrongType
	}
	return claims, nil
}

func extractClaims(tok *paseto.Token) (*Claims, error) {
	if tok == nil {
		return nil, ErrMissingClaims
	}
	exp, err := tok.GetExpiration()
	if err != nil {
		return nil, err
	}
	typ, err := tok.GetString("typ")
	if err != nil {
		return nil, err
	}
	uidStr, err := tok.GetString("uid")
	if err != nil {
		return nil, err
	}
	uid, err := uuid.Parse(uidStr)
	if err != nil {
		return nil, err
	}

	out := &Claims{Type: TokenType(typ), UserID: uid, ExpiresAt: exp}
	if jti, err := tok.GetJti(); err == nil {
		out.TokenID = jti
	}
	// sid is optional; a malformed one is rejected
	if sidStr, err := tok.GetString("sid"); err == nil {
		sid, err := uuid.Parse(sidStr)
		if err != nil {
			return nil, err
		}
		out.SessionID = &sid
	}
	return out, nil
}

func ClaimsFromFiber(c fiber.Ctx) (*Claims, bool) {
	cl, ok := c.Locals(CtxKeyClaims).(*Claims)
	return cl, ok && cl != nil
}
