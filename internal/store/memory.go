package store

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Alijeyrad/hairai_backend/internal/domain"
)

// Memory is an in-process Store used by tests and local tooling. Entities are
// kept in independent maps keyed by id.
type Memory struct {
	mu       sync.RWMutex
	clinics  map[uuid.UUID]domain.Clinic
	users    map[uuid.UUID]domain.User
	patients map[uuid.UUID]domain.Patient
	profiles map[uuid.UUID]domain.CalibrationProfile
	sessions map[uuid.UUID]domain.AnalysisSession
	jobs     map[uuid.UUID]domain.AnalysisJob
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		clinics:  make(map[uuid.UUID]domain.Clinic),
		users:    make(map[uuid.UUID]domain.User),
		patients: make(map[uuid.UUID]domain.Patient),
		profiles: make(map[uuid.UUID]domain.CalibrationProfile),
		sessions: make(map[uuid.UUID]domain.AnalysisSession),
		jobs:     make(map[uuid.UUID]domain.AnalysisJob),
	}
}

func (m *Memory) PutClinic(c domain.Clinic) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clinics[c.ID] = c
}

func (m *Memory) PutUser(u domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *Memory) PutPatient(p domain.Patient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patients[p.ID] = p
}

func (m *Memory) PutCalibrationProfile(p domain.CalibrationProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
}

func (m *Memory) PutSession(s domain.AnalysisSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

func (m *Memory) PutJob(j domain.AnalysisJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = j
}

func (m *Memory) JobCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.jobs)
}

func (m *Memory) UserClinicID(_ context.Context, userID uuid.UUID) (uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok || u.ClinicID == nil {
		return uuid.Nil, ErrNotFound
	}
	return *u.ClinicID, nil
}

func (m *Memory) PatientClinicID(_ context.Context, patientID uuid.UUID) (uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patients[patientID]
	if !ok {
		return uuid.Nil, ErrNotFound
	}
	return p.ClinicID, nil
}

func (m *Memory) SessionClinicID(_ context.Context, sessionID uuid.UUID) (uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return uuid.Nil, ErrNotFound
	}
	p, ok := m.patients[s.PatientID]
	if !ok {
		return uuid.Nil, ErrNotFound
	}
	return p.ClinicID, nil
}

func (m *Memory) CalibrationProfileClinicID(_ context.Context, profileID uuid.UUID) (uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[profileID]
	if !ok {
		return uuid.Nil, ErrNotFound
	}
	return p.ClinicID, nil
}

func (m *Memory) ClinicIDs(_ context.Context) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(m.clinics))
	for id := range m.clinics {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *Memory) GetSession(_ context.Context, id uuid.UUID) (*domain.AnalysisSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *Memory) CreateSession(_ context.Context, s *domain.AnalysisSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *Memory) ListSessions(_ context.Context, f SessionFilter) ([]domain.SessionSummary, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []domain.SessionSummary
	for _, s := range m.sessions {
		p, ok := m.patients[s.PatientID]
		if !ok || !m.matches(s, p, f) {
			continue
		}
		rows = append(rows, m.summarize(s, p))
	}

	field, desc := NormalizeSort(f.SortBy, f.SortDirection)
	sort.SliceStable(rows, func(i, j int) bool {
		c := compareSummaries(rows[i], rows[j], field)
		if desc {
			return c > 0
		}
		return c < 0
	})

	total := len(rows)
	page, size := NormalizePage(f.Page, f.PageSize)
	start := (page - 1) * size
	if start >= total {
		return []domain.SessionSummary{}, total, nil
	}
	end := min(start+size, total)
	return rows[start:end], total, nil
}

func (m *Memory) matches(s domain.AnalysisSession, p domain.Patient, f SessionFilter) bool {
	if f.ClinicID != nil && p.ClinicID != *f.ClinicID {
		return false
	}
	if f.PatientID != nil && s.PatientID != *f.PatientID {
		return false
	}
	if f.Status != nil && s.Status != *f.Status {
		return false
	}
	day := DateOnly(s.SessionDate)
	if f.FromDate != nil && day.Before(DateOnly(*f.FromDate)) {
		return false
	}
	if f.ToDate != nil && day.After(DateOnly(*f.ToDate)) {
		return false
	}
	return true
}

func (m *Memory) summarize(s domain.AnalysisSession, p domain.Patient) domain.SessionSummary {
	sum := domain.SessionSummary{
		ID:                s.ID,
		PatientID:         s.PatientID,
		PatientName:       p.FirstName + " " + p.LastName,
		CreatedByUserID:   s.CreatedByUserID,
		CreatedByUserName: "Unknown User",
		SessionDate:       s.SessionDate,
		Status:            s.Status,
		CreatedAt:         s.CreatedAt,
		LocationTags:      []string{},
	}
	if u, ok := m.users[s.CreatedByUserID]; ok {
		sum.CreatedByUserName = u.FirstName + " " + u.LastName
	}

	tags := map[string]struct{}{}
	for _, j := range m.jobs {
		if j.SessionID != s.ID {
			continue
		}
		sum.TotalJobs++
		switch j.Status {
		case domain.JobStatusCompleted:
			sum.CompletedJobs++
		case domain.JobStatusPending, domain.JobStatusProcessing:
			sum.PendingJobs++
		}
		tags[j.LocationTag] = struct{}{}
	}
	for t := range tags {
		sum.LocationTags = append(sum.LocationTags, t)
	}
	sort.Strings(sum.LocationTags)
	if len(sum.LocationTags) > domain.MaxSessionLocationTags {
		sum.LocationTags = sum.LocationTags[:domain.MaxSessionLocationTags]
	}
	return sum
}

func compareSummaries(a, b domain.SessionSummary, field string) int {
	var c int
	switch field {
	case SortCreatedAt:
		c = a.CreatedAt.Compare(b.CreatedAt)
	case SortPatientName:
		c = strings.Compare(a.PatientName, b.PatientName)
	case SortStatus:
		c = strings.Compare(string(a.Status), string(b.Status))
	default:
		c = a.SessionDate.Compare(b.SessionDate)
	}
	if c != 0 {
		return c
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}

func (m *Memory) SaveFinalReport(_ context.Context, sessionID uuid.UUID, report string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.FinalReportData = &report
	s.Status = domain.SessionStatusCompleted
	m.sessions[sessionID] = s
	return nil
}

func (m *Memory) CreateJob(_ context.Context, j *domain.AnalysisJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = *j
	return nil
}

func (m *Memory) GetJob(_ context.Context, id uuid.UUID) (*domain.AnalysisJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &j, nil
}

func (m *Memory) CountJobs(_ context.Context, f JobFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, j := range m.jobs {
		if jobMatches(j, f) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) ListJobs(_ context.Context, f JobFilter) ([]domain.AnalysisJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := []domain.AnalysisJob{}
	for _, j := range m.jobs {
		if jobMatches(j, f) {
			jobs = append(jobs, j)
		}
	}
	sort.SliceStable(jobs, func(a, b int) bool {
		if c := jobs[a].CreatedAt.Compare(jobs[b].CreatedAt); c != 0 {
			if f.NewestFirst {
				return c > 0
			}
			return c < 0
		}
		return jobs[a].ID.String() < jobs[b].ID.String()
	})
	if f.Limit > 0 && len(jobs) > f.Limit {
		jobs = jobs[:f.Limit]
	}
	return jobs, nil
}

func jobMatches(j domain.AnalysisJob, f JobFilter) bool {
	if j.SessionID != f.SessionID {
		return false
	}
	return f.Status == nil || j.Status == *f.Status
}

func (m *Memory) UpdateDoctorNotes(_ context.Context, jobID uuid.UUID, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	j.DoctorNotes = &notes
	m.jobs[jobID] = j
	return nil
}

func (m *Memory) GetPatient(_ context.Context, id uuid.UUID) (*domain.Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *Memory) GetUser(_ context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}
