// Package tenancy decides whether a caller may touch a clinic-scoped
// resource. Every analysis operation asks it before reading or writing
// anything tenant-owned.
package tenancy

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/Alijeyrad/hairai_backend/internal/store"
	"github.com/Alijeyrad/hairai_backend/pkg/authorize"
	"github.com/Alijeyrad/hairai_backend/pkg/metrics"
)

// RoleChecker is the slice of authorize.IAuthorization the gate needs.
type RoleChecker interface {
	IsSuperAdmin(ctx context.Context, subject authorize.GroupSubject) (bool, error)
	HasRoleInDomain(ctx context.Context, subject authorize.GroupSubject, role authorize.Role, domain authorize.Domain) (bool, error)
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Gate answers tenant questions with plain booleans. A resource or caller
// that cannot be resolved, and any lookup failure, yields false.
type Gate interface {
	CanAccessClinic(ctx context.Context, clinicID, callerID uuid.UUID) bool
	CanAccessPatient(ctx context.Context, patientID, callerID uuid.UUID) bool
	CanAccessSession(ctx context.Context, sessionID, callerID uuid.UUID) bool
	CanAccessCalibrationProfile(ctx context.Context, profileID, callerID uuid.UUID) bool

	IsSuperAdmin(ctx context.Context, callerID uuid.UUID) bool
	IsClinicAdmin(ctx context.Context, callerID uuid.UUID) bool

	GetUserClinicID(ctx context.Context, callerID uuid.UUID) ClinicScope
	GetAccessibleClinics(ctx context.Context, callerID uuid.UUID) []uuid.UUID
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type gate struct {
	lookup  store.TenantLookup
	roles   RoleChecker
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(lookup store.TenantLookup, roles RoleChecker, logger *slog.Logger, m *metrics.Metrics) Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &gate{lookup: lookup, roles: roles, logger: logger, metrics: m}
}

func (g *gate) CanAccessClinic(ctx context.Context, clinicID, callerID uuid.UUID) bool {
	return g.authorize(ctx, "clinic", callerID, func(context.Context) (uuid.UUID, error) {
		return clinicID, nil
	})
}

func (g *gate) CanAccessPatient(ctx context.Context, patientID, callerID uuid.UUID) bool {
	return g.authorize(ctx, "patient", callerID, func(ctx context.Context) (uuid.UUID, error) {
		return g.lookup.PatientClinicID(ctx, patientID)
	})
}

func (g *gate) CanAccessSession(ctx context.Context, sessionID, callerID uuid.UUID) bool {
	return g.authorize(ctx, "session", callerID, func(ctx context.Context) (uuid.UUID, error) {
		return g.lookup.SessionClinicID(ctx, sessionID)
	})
}

func (g *gate) CanAccessCalibrationProfile(ctx context.Context, profileID, callerID uuid.UUID) bool {
	return g.authorize(ctx, "calibration_profile", callerID, func(ctx context.Context) (uuid.UUID, error) {
		return g.lookup.CalibrationProfileClinicID(ctx, profileID)
	})
}

// authorize resolves the caller's clinic and the resource's clinic afresh on
// every call and compares them.
func (g *gate) authorize(ctx context.Context, kind string, callerID uuid.UUID, resolve func(context.Context) (uuid.UUID, error)) bool {
	if callerID == uuid.Nil {
		g.deny(ctx, kind, callerID, "anonymous caller")
		return false
	}
	if g.IsSuperAdmin(ctx, callerID) {
		return true
	}

	scope := g.GetUserClinicID(ctx, callerID)
	if !scope.HasClinic() {
		g.deny(ctx, kind, callerID, "caller has no clinic")
		return false
	}

	resourceClinic, err := resolve(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			g.logger.ErrorContext(ctx, "tenancy: resolve resource clinic", "resource", kind, "error", err)
		}
		g.deny(ctx, kind, callerID, "resource clinic unresolved")
		return false
	}

	if !scope.Contains(resourceClinic) {
		g.deny(ctx, kind, callerID, "clinic mismatch")
		return false
	}
	return true
}

func (g *gate) deny(ctx context.Context, kind string, callerID uuid.UUID, reason string) {
	g.metrics.IncTenantDenial(kind)
	g.logger.DebugContext(ctx, "tenancy: access denied", "resource", kind, "caller_id", callerID, "reason", reason)
}

func (g *gate) IsSuperAdmin(ctx context.Context, callerID uuid.UUID) bool {
	if callerID == uuid.Nil || g.roles == nil {
		return false
	}
	ok, err := g.roles.IsSuperAdmin(ctx, authorize.GroupSubject(callerID.String()))
	if err != nil {
		g.logger.ErrorContext(ctx, "tenancy: superadmin check", "caller_id", callerID, "error", err)
		return false
	}
	return ok
}

// IsClinicAdmin reports whether the caller administers their own clinic.
// Superadmins count as administrators everywhere.
func (g *gate) IsClinicAdmin(ctx context.Context, callerID uuid.UUID) bool {
	if g.IsSuperAdmin(ctx, callerID) {
		return true
	}
	clinicID, ok := g.GetUserClinicID(ctx, callerID).ClinicID()
	if !ok || g.roles == nil {
		return false
	}
	isAdmin, err := g.roles.HasRoleInDomain(ctx,
		authorize.GroupSubject(callerID.String()),
		authorize.RoleClinicAdmin,
		authorize.ClinicDomain(clinicID.String()))
	if err != nil {
		g.logger.ErrorContext(ctx, "tenancy: clinic admin check", "caller_id", callerID, "error", err)
		return false
	}
	return isAdmin
}

func (g *gate) GetUserClinicID(ctx context.Context, callerID uuid.UUID) ClinicScope {
	if callerID == uuid.Nil {
		return NoClinic()
	}
	id, err := g.lookup.UserClinicID(ctx, callerID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			g.logger.ErrorContext(ctx, "tenancy: resolve caller clinic", "caller_id", callerID, "error", err)
		}
		return NoClinic()
	}
	return InClinic(id)
}

// GetAccessibleClinics returns every clinic for a superadmin, the caller's
// own clinic otherwise, and nothing for a caller without one.
func (g *gate) GetAccessibleClinics(ctx context.Context, callerID uuid.UUID) []uuid.UUID {
	if g.IsSuperAdmin(ctx, callerID) {
		ids, err := g.lookup.ClinicIDs(ctx)
		if err != nil {
			g.logger.ErrorContext(ctx, "tenancy: list clinics", "error", err)
			return []uuid.UUID{}
		}
		ids = slices.Clone(ids)
		slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
		return slices.CompactFunc(ids, func(a, b uuid.UUID) bool { return a == b })
	}
	if id, ok := g.GetUserClinicID(ctx, callerID).ClinicID(); ok {
		return []uuid.UUID{id}
	}
	return []uuid.UUID{}
}
