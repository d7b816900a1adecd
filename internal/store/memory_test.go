package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/Alijeyrad/hairai_backend/internal/domain"
)

type MemoryStoreSuite struct {
	suite.Suite
	store   *Memory
	ctx     context.Context
	clinicA uuid.UUID
	clinicB uuid.UUID
	patient domain.Patient
	other   domain.Patient
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemory()
	s.ctx = context.Background()
	s.clinicA = uuid.New()
	s.clinicB = uuid.New()
	s.store.PutClinic(domain.Clinic{ID: s.clinicA, Name: "A"})
	s.store.PutClinic(domain.Clinic{ID: s.clinicB, Name: "B"})

	s.patient = domain.Patient{ID: uuid.New(), ClinicID: s.clinicA, FirstName: "Sara", LastName: "Ahmadi"}
	s.other = domain.Patient{ID: uuid.New(), ClinicID: s.clinicB, FirstName: "Omid", LastName: "Karimi"}
	s.store.PutPatient(s.patient)
	s.store.PutPatient(s.other)
}

func (s *MemoryStoreSuite) addSession(p domain.Patient, day time.Time) domain.AnalysisSession {
	sess := domain.AnalysisSession{
		ID:          uuid.New(),
		PatientID:   p.ID,
		SessionDate: day,
		Status:      domain.SessionStatusInProgress,
		CreatedAt:   day,
	}
	s.store.PutSession(sess)
	return sess
}

func (s *MemoryStoreSuite) TestTenantLookups() {
	sess := s.addSession(s.patient, time.Now())

	got, err := s.store.SessionClinicID(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(s.clinicA, got)

	_, err = s.store.PatientClinicID(s.ctx, uuid.New())
	s.ErrorIs(err, ErrNotFound)

	s.store.PutUser(domain.User{ID: uuid.New()})
	ids, err := s.store.ClinicIDs(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]uuid.UUID{s.clinicA, s.clinicB}, ids)
}

func (s *MemoryStoreSuite) TestUserWithoutClinicIsNotFound() {
	u := domain.User{ID: uuid.New()}
	s.store.PutUser(u)

	_, err := s.store.UserClinicID(s.ctx, u.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *MemoryStoreSuite) TestListSessions() {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		s.addSession(s.patient, base.AddDate(0, 0, i))
	}
	s.addSession(s.other, base)

	s.Run("scopes by clinic and counts total", func() {
		rows, total, err := s.store.ListSessions(s.ctx, SessionFilter{ClinicID: &s.clinicA, Page: 1, PageSize: 2})
		s.Require().NoError(err)
		s.Equal(5, total)
		s.Len(rows, 2)
		s.True(rows[0].SessionDate.After(rows[1].SessionDate), "default order is session date descending")
	})

	s.Run("inclusive date range", func() {
		from := base.AddDate(0, 0, 1).Add(13 * time.Hour)
		to := base.AddDate(0, 0, 3)
		_, total, err := s.store.ListSessions(s.ctx, SessionFilter{ClinicID: &s.clinicA, FromDate: &from, ToDate: &to, PageSize: 10})
		s.Require().NoError(err)
		s.Equal(3, total)
	})

	s.Run("page past the end is empty", func() {
		rows, total, err := s.store.ListSessions(s.ctx, SessionFilter{ClinicID: &s.clinicA, Page: 9, PageSize: 10})
		s.Require().NoError(err)
		s.Equal(5, total)
		s.Empty(rows)
	})
}

func (s *MemoryStoreSuite) TestSummaryAggregates() {
	sess := s.addSession(s.patient, time.Now())
	statuses := []domain.JobStatus{
		domain.JobStatusCompleted, domain.JobStatusCompleted,
		domain.JobStatusPending, domain.JobStatusProcessing, domain.JobStatusError,
	}
	for i, st := range statuses {
		s.store.PutJob(domain.AnalysisJob{
			ID:          uuid.New(),
			SessionID:   sess.ID,
			PatientID:   s.patient.ID,
			LocationTag: fmt.Sprintf("zone-%d", i%3),
			Status:      st,
			CreatedAt:   time.Now(),
		})
	}

	rows, _, err := s.store.ListSessions(s.ctx, SessionFilter{PatientID: &s.patient.ID, PageSize: 10})
	s.Require().NoError(err)
	s.Require().Len(rows, 1)

	row := rows[0]
	s.Equal(5, row.TotalJobs)
	s.Equal(2, row.CompletedJobs)
	s.Equal(2, row.PendingJobs)
	s.Equal([]string{"zone-0", "zone-1", "zone-2"}, row.LocationTags)
	s.Equal("Unknown User", row.CreatedByUserName)
	s.Equal("Sara Ahmadi", row.PatientName)
}

func (s *MemoryStoreSuite) TestSaveFinalReport() {
	sess := s.addSession(s.patient, time.Now())

	s.Require().NoError(s.store.SaveFinalReport(s.ctx, sess.ID, `{"totalAnalyzedAreas":1}`))

	got, err := s.store.GetSession(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(domain.SessionStatusCompleted, got.Status)
	s.Require().NotNil(got.FinalReportData)
	s.JSONEq(`{"totalAnalyzedAreas":1}`, *got.FinalReportData)

	s.ErrorIs(s.store.SaveFinalReport(s.ctx, uuid.New(), "{}"), ErrNotFound)
}

func (s *MemoryStoreSuite) TestListJobsOrderAndLimit() {
	sess := s.addSession(s.patient, time.Now())
	base := time.Now()
	var ids []uuid.UUID
	for i := range 3 {
		id := uuid.New()
		ids = append(ids, id)
		s.store.PutJob(domain.AnalysisJob{ID: id, SessionID: sess.ID, Status: domain.JobStatusCompleted, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}

	jobs, err := s.store.ListJobs(s.ctx, JobFilter{SessionID: sess.ID, NewestFirst: true, Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(jobs, 2)
	s.Equal(ids[2], jobs[0].ID)
	s.Equal(ids[1], jobs[1].ID)

	completed := domain.JobStatusCompleted
	n, err := s.store.CountJobs(s.ctx, JobFilter{SessionID: sess.ID, Status: &completed})
	s.Require().NoError(err)
	s.Equal(3, n)
}

func (s *MemoryStoreSuite) TestListSessionsTiedDatesPageStably() {
	day := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)
	for range 9 {
		s.addSession(s.patient, day)
	}

	seen := map[uuid.UUID]bool{}
	for page := 1; page <= 5; page++ {
		rows, total, err := s.store.ListSessions(s.ctx, SessionFilter{Page: page, PageSize: 2})
		s.Require().NoError(err)
		s.Equal(9, total)
		for _, r := range rows {
			s.False(seen[r.ID], "session %s repeated on page %d", r.ID, page)
			seen[r.ID] = true
		}
	}
	s.Len(seen, 9)
}
