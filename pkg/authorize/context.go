package authorize

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Alijeyrad/hairai_backend/pkg/reqctx"
)

var ErrNoSubjectInContext = errors.New("no subject found in context")

// SubjectFromContext returns the authenticated user as a casbin subject.
func SubjectFromContext(ctx context.Context) (GroupSubject, error) {
	id, err := UserIDFromContext(ctx)
	if err != nil {
		return "", err
	}
	return GroupSubject(id.String()), nil
}

// UserIDFromContext returns the authenticated user id stored by the auth
// middleware, or ErrNoSubjectInContext.
func UserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	claims := reqctx.ClaimsFromContext(ctx)
	if claims == nil {
		return uuid.Nil, ErrNoSubjectInContext
	}
	id := claims.GetUserID()
	if id == uuid.Nil {
		return uuid.Nil, ErrNoSubjectInContext
	}
	return id, nil
}

// DomainForClinic returns the clinic domain, or sys for callers without a
// clinic (platform staff).
func DomainForClinic(clinicID *uuid.UUID) Domain {
	if clinicID == nil || *clinicID == uuid.Nil {
		return DomainSys
	}
	return ClinicDomain(clinicID.String())
}
