package authorize

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// DefaultPolicies is the baseline RBAC for the analysis pipeline. Clinic roles
// are granted on the wildcard domain and bound per clinic by grouping rows.
func DefaultPolicies() []PermissionPolicy {
	return []PermissionPolicy{
		{RoleSysSuperAdmin, DomainSys, WildcardResource, WildcardAction, EffectAllow},
		{RoleSysSupport, DomainSys, ResourceAudit, ActionRead, EffectAllow},
		{RoleSysSupport, DomainSys, ResourceAnalysisSession, ActionRead, EffectAllow},

		// Clinic admin: everything inside the clinic, including role grants.
		{RoleClinicAdmin, WildcardDomain, ResourceAnalysisSession, ActionManage, EffectAllow},
		{RoleClinicAdmin, WildcardDomain, ResourceAnalysisJob, ActionManage, EffectAllow},
		{RoleClinicAdmin, WildcardDomain, ResourceAnalysisReport, ActionExecute, EffectAllow},
		{RoleClinicAdmin, WildcardDomain, ResourceDoctorNotes, ActionUpdate, EffectAllow},
		{RoleClinicAdmin, WildcardDomain, ResourceCalibrationProfile, ActionManage, EffectAllow},
		{RoleClinicAdmin, WildcardDomain, ResourcePatient, ActionRead, EffectAllow},
		{RoleClinicAdmin, WildcardDomain, ResourceRBAC, ActionGrant, EffectAllow},

		// Doctor: runs sessions, writes notes, generates reports.
		{RoleClinicDoctor, WildcardDomain, ResourceAnalysisSession, ActionManage, EffectAllow},
		{RoleClinicDoctor, WildcardDomain, ResourceAnalysisJob, ActionManage, EffectAllow},
		{RoleClinicDoctor, WildcardDomain, ResourceAnalysisReport, ActionExecute, EffectAllow},
		{RoleClinicDoctor, WildcardDomain, ResourceDoctorNotes, ActionUpdate, EffectAllow},
		{RoleClinicDoctor, WildcardDomain, ResourcePatient, ActionRead, EffectAllow},

		// Technician: captures images, cannot annotate or report.
		{RoleClinicTechnician, WildcardDomain, ResourceAnalysisSession, ActionRead, EffectAllow},
		{RoleClinicTechnician, WildcardDomain, ResourceAnalysisSession, ActionList, EffectAllow},
		{RoleClinicTechnician, WildcardDomain, ResourceAnalysisJob, ActionCreate, EffectAllow},
		{RoleClinicTechnician, WildcardDomain, ResourceAnalysisJob, ActionRead, EffectAllow},
	}
}

// SeedDefaultPolicies writes DefaultPolicies. Existing rows are left alone.
func SeedDefaultPolicies(ctx context.Context, auth IAuthorization, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	policies := DefaultPolicies()
	for _, p := range policies {
		added, err := auth.AddPermission(ctx, p.Subject, p.Domain, p.Object, p.Action, p.Effect)
		if err != nil {
			logger.Error("failed to add policy", "policy", p, "error", err)
			return err
		}
		if added {
			logger.Debug("added policy", "role", p.Subject, "domain", p.Domain, "resource", p.Object, "action", p.Action)
		}
	}

	logger.Info("seeded default RBAC policies", "count", len(policies))
	return nil
}

// AssignClinicRole binds userID to role inside the clinic's domain.
func AssignClinicRole(ctx context.Context, auth IAuthorization, userID, clinicID uuid.UUID, role Role) error {
	if !isClinicRole(role) {
		return ErrInvalidArgs
	}
	_, err := auth.AddRoleForUserInDomain(ctx, GroupSubject(userID.String()), role, ClinicDomain(clinicID.String()))
	return err
}

func RemoveClinicRole(ctx context.Context, auth IAuthorization, userID, clinicID uuid.UUID, role Role) error {
	_, err := auth.RemoveRoleForUserInDomain(ctx, GroupSubject(userID.String()), role, ClinicDomain(clinicID.String()))
	return err
}

// AssignSuperAdmin grants the platform role that bypasses tenant scoping.
func AssignSuperAdmin(ctx context.Context, auth IAuthorization, userID uuid.UUID) error {
	_, err := auth.AddRoleForUserInDomain(ctx, GroupSubject(userID.String()), RoleSysSuperAdmin, DomainSys)
	return err
}

func isClinicRole(role Role) bool {
	for _, r := range ClinicRoles {
		if r == role {
			return true
		}
	}
	return false
}
