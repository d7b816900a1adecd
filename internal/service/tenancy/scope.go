package tenancy

import "github.com/google/uuid"

// ClinicScope is the tenant a caller belongs to. Platform staff have no
// clinic; the zero value is that "no tenant" variant.
type ClinicScope struct {
	id  uuid.UUID
	set bool
}

func NoClinic() ClinicScope {
	return ClinicScope{}
}

func InClinic(id uuid.UUID) ClinicScope {
	if id == uuid.Nil {
		return ClinicScope{}
	}
	return ClinicScope{id: id, set: true}
}

// ClinicID returns the clinic and whether there is one.
func (s ClinicScope) ClinicID() (uuid.UUID, bool) {
	return s.id, s.set
}

func (s ClinicScope) HasClinic() bool { return s.set }

// Contains reports whether clinicID is this scope's clinic. A scope without
// a clinic contains nothing.
func (s ClinicScope) Contains(clinicID uuid.UUID) bool {
	return s.set && s.id == clinicID
}

func (s ClinicScope) String() string {
	if !s.set {
		return "none"
	}
	return s.id.String()
}
