package authorize

import (
	"fmt"
	"regexp"
)

type Action string
type Resource string
type Role string
type Domain string

// ----------------------------
// Actions
// ----------------------------

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionList   Action = "list"

	ActionManage  Action = "manage"  // create + read + update + list
	ActionExecute Action = "execute" // generate a report, re-dispatch a job

	ActionGrant  Action = "grant"
	ActionRevoke Action = "revoke"
)

const (
	WildcardAction Action = "*"
)

var KnownActions = map[Action]struct{}{
	ActionCreate: {}, ActionRead: {}, ActionUpdate: {}, ActionList: {},
	ActionManage: {}, ActionExecute: {},
	ActionGrant: {}, ActionRevoke: {},
}

// ----------------------------
// Resources
// ----------------------------

const (
	WildcardResource Resource = "*"

	// Tenant
	ResourceClinic             Resource = "clinic"
	ResourcePatient            Resource = "patient"
	ResourceCalibrationProfile Resource = "calibration_profile"

	// Analysis pipeline
	ResourceAnalysisSession Resource = "analysis_session"
	ResourceAnalysisJob     Resource = "analysis_job"
	ResourceAnalysisReport  Resource = "analysis_report"
	ResourceDoctorNotes     Resource = "doctor_notes"

	// Platform
	ResourceSystem Resource = "system"
	ResourceAudit  Resource = "audit"
	ResourceRBAC   Resource = "rbac"
)

var KnownResources = map[Resource]struct{}{
	ResourceClinic: {}, ResourcePatient: {}, ResourceCalibrationProfile: {},
	ResourceAnalysisSession: {}, ResourceAnalysisJob: {}, ResourceAnalysisReport: {}, ResourceDoctorNotes: {},
	ResourceSystem: {}, ResourceAudit: {}, ResourceRBAC: {},
}

// ----------------------------
// Roles
// ----------------------------
//
// Roles are the policy subjects assigned to users through grouping rows.

const (
	WildcardRole Role = "*"

	// Platform roles (domain = sys)
	RoleSysSuperAdmin Role = "role:sys:superadmin"
	RoleSysSupport    Role = "role:sys:support"

	// Clinic roles (domain = clinic:<uuid>)
	RoleClinicAdmin      Role = "role:clinic:admin"
	RoleClinicDoctor     Role = "role:clinic:doctor"
	RoleClinicTechnician Role = "role:clinic:technician"
)

var KnownRoles = map[Role]struct{}{
	RoleSysSuperAdmin:    {},
	RoleSysSupport:       {},
	RoleClinicAdmin:      {},
	RoleClinicDoctor:     {},
	RoleClinicTechnician: {},
}

// ClinicRoles lists the roles that may be granted inside a clinic domain.
var ClinicRoles = []Role{RoleClinicAdmin, RoleClinicDoctor, RoleClinicTechnician}

// ----------------------------
// Domains
// ----------------------------

const (
	DomainSys      Domain = "sys"
	WildcardDomain Domain = "*"
)

const (
	DomainPrefixClinic Domain = "clinic:"
	DomainPrefixUser   Domain = "user:"
)

var reUUID = regexp.MustCompile(`^[0-9a-fA-F-]{36}$`)

func ClinicDomain(clinicID string) Domain {
	return Domain(fmt.Sprintf("%s%s", DomainPrefixClinic, clinicID))
}

func UserDomain(userID string) Domain {
	return Domain(fmt.Sprintf("%s%s", DomainPrefixUser, userID))
}

// IsValidDomain checks whether d is a recognised domain string.
func IsValidDomain(d Domain) bool {
	if d == DomainSys || d == WildcardDomain {
		return true
	}
	for _, prefix := range []Domain{DomainPrefixClinic, DomainPrefixUser} {
		p := string(prefix)
		if s := string(d); len(s) > len(p) && s[:len(p)] == p {
			return reUUID.MatchString(s[len(p):])
		}
	}
	return false
}

// ----------------------------
// Casbin tuple helpers
// ----------------------------

type PolicyEffect string

const (
	EffectAllow PolicyEffect = "allow"
	EffectDeny  PolicyEffect = "deny"
)

// GroupSubject is the g.sub in Casbin: a concrete user id.
type GroupSubject string

// Grouping rows: g, user_id, role, domain
type GroupingPolicy struct {
	Subject GroupSubject
	Role    Role
	Domain  Domain
}

// Permission rows: p, role, domain, resource, action, eft
type PermissionPolicy struct {
	Subject Role
	Domain  Domain
	Object  Resource
	Action  Action
	Effect  PolicyEffect
}
