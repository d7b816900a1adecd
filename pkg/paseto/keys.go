package pasetotoken

import (
	"strings"

	paseto "aidanwoods.dev/go-paseto"
)

type Mode string

const (
	ModeLocal  Mode = "local"  // v4.local, shared symmetric key
	ModePublic Mode = "public" // v4.public, identity service signs
)

// Keys holds the verification half only. In public mode that is the
// identity service's public key, so no secret ever reaches this process.
type Keys struct {
	Mode      Mode
	Symmetric *paseto.V4SymmetricKey
	Public    *paseto.V4AsymmetricPublicKey
}

func LoadKeys(mode Mode, localHex, publicHex string) (Keys, error) {
	switch mode {
	case ModeLocal:
		hex := strings.TrimSpace(localHex)
		if hex == "" {
			return Keys{}, ErrConfig{Msg: "local mode requires local_key_hex"}
		}
		k, err := paseto.V4SymmetricKeyFromHex(hex)
		if err != nil {
			return Keys{}, ErrConfig{Msg: "invalid symmetric key hex: " + err.Error()}
		}
		return Keys{Mode: ModeLocal, Symmetric: &k}, nil

	case ModePublic:
		hex := strings.TrimSpace(publicHex)
		if hex == "" {
			return Keys{}, ErrConfig{Msg: "public mode requires public_key_hex"}
		}
		pk, err := paseto.NewV4AsymmetricPublicKeyFromHex(hex)
		if err != nil {
			return Keys{}, ErrConfig{Msg: "invalid public key hex: " + err.Error()}
		}
		return Keys{Mode: ModePublic, Public: &pk}, nil

	default:
		return Keys{}, ErrConfig{Msg: "unknown mode (use local|public)"}
	}
}
