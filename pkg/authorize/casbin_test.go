package authorize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	casbin "github.com/casbin/casbin/v2"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/google/uuid"
)

const testModel = `[request_definition]
r = sub, dom, obj, act

[policy_definition]
p = sub, dom, obj, act, eft

[role_definition]
g = _, _, _

[policy_effect]
e = some(where (p.eft == allow)) && !some(where (p.eft == deny))

[matchers]
m = g(r.sub, p.sub, r.dom) && (p.dom == "*" || p.dom == r.dom) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act || p.act == "manage")
`

// createTestEnforcer builds an enforcer backed by an empty policy file.
func createTestEnforcer(t *testing.T) *casbin.DistributedEnforcer {
	t.Helper()

	tmpDir := t.TempDir()
	modelPath := filepath.Join(tmpDir, "model.conf")
	if err := os.WriteFile(modelPath, []byte(testModel), 0o644); err != nil {
		t.Fatalf("failed to write model file: %v", err)
	}
	policyPath := filepath.Join(tmpDir, "policy.csv")
	if err := os.WriteFile(policyPath, nil, 0o644); err != nil {
		t.Fatalf("failed to write policy file: %v", err)
	}

	e, err := casbin.NewDistributedEnforcer(modelPath, fileadapter.NewAdapter(policyPath))
	if err != nil {
		t.Fatalf("failed to create enforcer: %v", err)
	}
	e.EnableAutoSave(false)
	e.EnableEnforce(true)
	return e
}

func newTestAuth(t *testing.T) IAuthorization {
	t.Helper()
	auth, err := NewAuthorization(createTestEnforcer(t))
	if err != nil {
		t.Fatalf("NewAuthorization: %v", err)
	}
	return auth
}

func TestNewAuthorization(t *testing.T) {
	if _, err := NewAuthorization(nil); err == nil {
		t.Error("expected error for nil enforcer")
	}
}

func TestEnforceClinicRoles(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()

	if err := SeedDefaultPolicies(ctx, auth, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	doctor := uuid.New()
	technician := uuid.New()
	clinicA := uuid.New()
	clinicB := uuid.New()
	if err := AssignClinicRole(ctx, auth, doctor, clinicA, RoleClinicDoctor); err != nil {
		t.Fatalf("assign doctor: %v", err)
	}
	if err := AssignClinicRole(ctx, auth, technician, clinicA, RoleClinicTechnician); err != nil {
		t.Fatalf("assign technician: %v", err)
	}

	domA := ClinicDomain(clinicA.String())
	domB := ClinicDomain(clinicB.String())

	tests := []struct {
		name     string
		subject  uuid.UUID
		domain   Domain
		resource Resource
		action   Action
		want     bool
	}{
		{"doctor generates report in own clinic", doctor, domA, ResourceAnalysisReport, ActionExecute, true},
		{"doctor writes notes", doctor, domA, ResourceDoctorNotes, ActionUpdate, true},
		{"doctor has no role in other clinic", doctor, domB, ResourceAnalysisSession, ActionRead, false},
		{"technician uploads", technician, domA, ResourceAnalysisJob, ActionCreate, true},
		{"technician cannot report", technician, domA, ResourceAnalysisReport, ActionExecute, false},
		{"technician cannot write notes", technician, domA, ResourceDoctorNotes, ActionUpdate, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := auth.Enforce(ctx, GroupSubject(tt.subject.String()), tt.domain, tt.resource, tt.action)
			if err != nil {
				t.Fatalf("Enforce: %v", err)
			}
			if got != tt.want {
				t.Errorf("Enforce() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnforceValidation(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()
	dom := ClinicDomain(uuid.NewString())

	tests := []struct {
		name     string
		subject  GroupSubject
		domain   Domain
		resource Resource
		action   Action
	}{
		{"empty subject", "", dom, ResourceAnalysisJob, ActionRead},
		{"invalid domain", "u", Domain("invalid"), ResourceAnalysisJob, ActionRead},
		{"unknown resource", "u", dom, Resource("chat"), ActionRead},
		{"unknown action", "u", dom, ResourceAnalysisJob, Action("delete")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Enforce(ctx, tt.subject, tt.domain, tt.resource, tt.action)
			if !errors.Is(err, ErrInvalidArgs) {
				t.Errorf("expected ErrInvalidArgs, got %v", err)
			}
		})
	}
}

func TestMustEnforce(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()

	user := uuid.New()
	clinic := uuid.New()
	dom := ClinicDomain(clinic.String())
	_ = AssignClinicRole(ctx, auth, user, clinic, RoleClinicAdmin)
	_, _ = auth.AddPermission(ctx, RoleClinicAdmin, WildcardDomain, ResourceCalibrationProfile, ActionManage, EffectAllow)

	if err := auth.MustEnforce(ctx, GroupSubject(user.String()), dom, ResourceCalibrationProfile, ActionUpdate); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := auth.MustEnforce(ctx, GroupSubject(user.String()), dom, ResourceAudit, ActionRead); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestSuperAdmin(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()

	admin := uuid.New()
	if err := AssignSuperAdmin(ctx, auth, admin); err != nil {
		t.Fatalf("assign superadmin: %v", err)
	}

	ok, err := auth.IsSuperAdmin(ctx, GroupSubject(admin.String()))
	if err != nil || !ok {
		t.Fatalf("IsSuperAdmin() = %v, %v", ok, err)
	}

	ok, _ = auth.IsSuperAdmin(ctx, GroupSubject(uuid.NewString()))
	if ok {
		t.Error("regular user reported as superadmin")
	}

	allowed, err := auth.Enforce(ctx, GroupSubject(admin.String()), ClinicDomain(uuid.NewString()), ResourceAnalysisReport, ActionExecute)
	if err != nil || !allowed {
		t.Errorf("superadmin bypass: allowed=%v err=%v", allowed, err)
	}

	t.Run("bypass disabled", func(t *testing.T) {
		strict := WithoutSuperAdminBypass(newTestAuth(t))
		_ = AssignSuperAdmin(ctx, strict, admin)

		allowed, err := strict.Enforce(ctx, GroupSubject(admin.String()), ClinicDomain(uuid.NewString()), ResourceAnalysisReport, ActionExecute)
		if err != nil || allowed {
			t.Errorf("expected deny without bypass, allowed=%v err=%v", allowed, err)
		}
		if ok, _ := strict.IsSuperAdmin(ctx, GroupSubject(admin.String())); !ok {
			t.Error("IsSuperAdmin must not depend on the bypass")
		}
	})
}

func TestRoleManagement(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()

	user := uuid.New()
	clinic := uuid.New()
	dom := ClinicDomain(clinic.String())

	if err := AssignClinicRole(ctx, auth, user, clinic, RoleClinicDoctor); err != nil {
		t.Fatalf("assign: %v", err)
	}
	roles, err := auth.GetRolesForUserInDomain(ctx, GroupSubject(user.String()), dom)
	if err != nil {
		t.Fatalf("get roles: %v", err)
	}
	if len(roles) != 1 || roles[0] != RoleClinicDoctor {
		t.Errorf("roles = %v, want [%s]", roles, RoleClinicDoctor)
	}

	if err := RemoveClinicRole(ctx, auth, user, clinic, RoleClinicDoctor); err != nil {
		t.Fatalf("remove: %v", err)
	}
	roles, _ = auth.GetRolesForUserInDomain(ctx, GroupSubject(user.String()), dom)
	if len(roles) != 0 {
		t.Errorf("expected no roles after removal, got %v", roles)
	}

	if err := AssignClinicRole(ctx, auth, user, clinic, RoleSysSuperAdmin); !errors.Is(err, ErrInvalidArgs) {
		t.Errorf("platform role must not be assignable as clinic role, got %v", err)
	}
}

func TestPermissionManagement(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()

	added, err := auth.AddPermission(ctx, RoleSysSupport, DomainSys, ResourceAudit, ActionRead, EffectAllow)
	if err != nil || !added {
		t.Fatalf("add permission: added=%v err=%v", added, err)
	}
	removed, err := auth.RemovePermission(ctx, RoleSysSupport, DomainSys, ResourceAudit, ActionRead, EffectAllow)
	if err != nil || !removed {
		t.Fatalf("remove permission: removed=%v err=%v", removed, err)
	}

	if _, err := auth.AddPermission(ctx, RoleSysSupport, DomainSys, ResourceAudit, ActionRead, PolicyEffect("maybe")); err == nil {
		t.Error("expected error for invalid effect")
	}
}
