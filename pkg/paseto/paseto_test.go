package pasetotoken

import (
	"errors"
	"testing"
	"time"

	paseto "aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "hairai-identity"
	testAudience = "hairai-api"
)

func mint(t *testing.T, key paseto.V4SymmetricKey, mutate func(*paseto.Token)) string {
	t.Helper()
	now := time.Now()
	tok := paseto.NewToken()
	tok.SetIssuer(testIssuer)
	tok.SetAudience(testAudience)
	tok.SetJti("jti-1")
	tok.SetIssuedAt(now)
	tok.SetNotBefore(now)
	tok.SetExpiration(now.Add(time.Minute))
	tok.SetString("typ", string(TokenTypeAccess))
	tok.SetString("uid", uuid.NewString())
	if mutate != nil {
		mutate(&tok)
	}
	return tok.V4Encrypt(key, nil)
}

func localVerifier(t *testing.T) (*Verifier, paseto.V4SymmetricKey) {
	t.Helper()
	key := paseto.NewV4SymmetricKey()
	keys, err := LoadKeys(ModeLocal, key.ExportHex(), "")
	require.NoError(t, err)
	v, err := NewVerifier(keys, testIssuer, testAudience)
	require.NoError(t, err)
	return v, key
}

func TestVerifyAccess(t *testing.T) {
	v, key := localVerifier(t)
	uid := uuid.New()
	sid := uuid.New()

	token := mint(t, key, func(tok *paseto.Token) {
		tok.SetString("uid", uid.String())
		tok.SetString("sid", sid.String())
	})

	claims, err := v.VerifyAccess("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, uid, claims.UserID)
	require.NotNil(t, claims.SessionID)
	assert.Equal(t, sid, *claims.SessionID)
	assert.Equal(t, "jti-1", claims.TokenID)
	assert.False(t, claims.IsExpired())
}

func TestVerifyAccessRejects(t *testing.T) {
	v, key := localVerifier(t)
	other := paseto.NewV4SymmetricKey()

	tests := []struct {
		name   string
		header string
		want   error
	}{
		{name: "empty header", header: "", want: ErrMissingToken},
		{name: "wrong scheme", header: "Basic abc", want: ErrMissingToken},
		{name: "refresh token", header: "Bearer " + mint(t, key, func(tok *paseto.Token) {
			tok.SetString("typ", string(TokenTypeRefresh))
		}), want: ErrWrongType},
		{name: "wrong key", header: "Bearer " + mint(t, other, nil)},
		{name: "wrong audience", header: "Bearer " + mint(t, key, func(tok *paseto.Token) {
			tok.SetAudience("someone-else")
		})},
		{name: "expired", header: "Bearer " + mint(t, key, func(tok *paseto.Token) {
			tok.SetExpiration(time.Now().Add(-time.Minute))
		})},
		{name: "bad session id", header: "Bearer " + mint(t, key, func(tok *paseto.Token) {
			tok.SetString("sid", "not-a-uuid")
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.VerifyAccess(tt.header)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				return
			}
			var invalid ErrInvalidToken
			assert.True(t, errors.As(err, &invalid))
		})
	}
}

func TestVerifyPublic(t *testing.T) {
	sk := paseto.NewV4AsymmetricSecretKey()
	keys, err := LoadKeys(ModePublic, "", sk.Public().ExportHex())
	require.NoError(t, err)
	v, err := NewVerifier(keys, testIssuer, testAudience)
	require.NoError(t, err)

	tok := paseto.NewToken()
	tok.SetIssuer(testIssuer)
	tok.SetAudience(testAudience)
	tok.SetIssuedAt(time.Now())
	tok.SetNotBefore(time.Now())
	tok.SetExpiration(time.Now().Add(time.Minute))
	tok.SetString("typ", string(TokenTypeAccess))
	tok.SetString("uid", uuid.NewString())

	claims, err := v.Verify(tok.V4Sign(sk, nil))
	require.NoError(t, err)
	assert.Nil(t, claims.SessionID)
}

func TestLoadKeysErrors(t *testing.T) {
	_, err := LoadKeys(ModeLocal, "", "")
	assert.Error(t, err)
	_, err = LoadKeys(ModePublic, "", "")
	assert.Error(t, err)
	_, err = LoadKeys(ModeLocal, "zz", "")
	assert.Error(t, err)
	_, err = LoadKeys("other", "", "")
	assert.Error(t, err)

	_, err = NewVerifier(Keys{Mode: ModeLocal}, "", testAudience)
	assert.Error(t, err)
}
