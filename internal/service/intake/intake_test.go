package intake

//go:generate mockgen -source=intake.go -destination=mocks/mocks.go -package=mocks Dispatcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/Alijeyrad/hairai_backend/internal/domain"
	eventmocks "github.com/Alijeyrad/hairai_backend/internal/events/mocks"
	"github.com/Alijeyrad/hairai_backend/internal/result"
	"github.com/Alijeyrad/hairai_backend/internal/service/intake/mocks"
	"github.com/Alijeyrad/hairai_backend/internal/service/tenancy"
	"github.com/Alijeyrad/hairai_backend/internal/store"
	"github.com/Alijeyrad/hairai_backend/pkg/authorize"
)

type noRoles struct{}

func (noRoles) IsSuperAdmin(context.Context, authorize.GroupSubject) (bool, error) { return false, nil }
func (noRoles) HasRoleInDomain(context.Context, authorize.GroupSubject, authorize.Role, authorize.Domain) (bool, error) {
	return false, nil
}

type failingJobs struct{ store.JobStore }

func (failingJobs) CreateJob(context.Context, *domain.AnalysisJob) error {
	return errors.New("unique violation")
}

// =============================================================================
// Upload Test Suite
// =============================================================================

type UploadSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	dispatcher *mocks.MockDispatcher
	events     *eventmocks.MockPublisher
	store      *store.Memory
	service    Service

	clinic     uuid.UUID
	other      uuid.UUID
	user       uuid.UUID
	outsider   uuid.UUID
	patient    uuid.UUID
	session    uuid.UUID
	profile    uuid.UUID
	farProfile uuid.UUID
}

func TestUploadSuite(t *testing.T) {
	suite.Run(t, new(UploadSuite))
}

func (s *UploadSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.dispatcher = mocks.NewMockDispatcher(s.ctrl)
	s.events = eventmocks.NewMockPublisher(s.ctrl)
	s.store = store.NewMemory()

	s.clinic, s.other = uuid.New(), uuid.New()
	s.user, s.outsider = uuid.New(), uuid.New()
	s.patient, s.session = uuid.New(), uuid.New()
	s.profile, s.farProfile = uuid.New(), uuid.New()

	s.store.PutClinic(domain.Clinic{ID: s.clinic})
	s.store.PutClinic(domain.Clinic{ID: s.other})
	s.store.PutUser(domain.User{ID: s.user, ClinicID: &s.clinic})
	s.store.PutUser(domain.User{ID: s.outsider, ClinicID: &s.other})
	s.store.PutPatient(domain.Patient{ID: s.patient, ClinicID: s.clinic})
	s.store.PutCalibrationProfile(domain.CalibrationProfile{ID: s.profile, ClinicID: s.clinic, IsActive: true})
	s.store.PutCalibrationProfile(domain.CalibrationProfile{ID: s.farProfile, ClinicID: s.other, IsActive: true})
	s.store.PutSession(domain.AnalysisSession{ID: s.session, PatientID: s.patient, CreatedByUserID: s.user, Status: domain.SessionStatusInProgress})

	s.service = s.newService(s.store)
}

func (s *UploadSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *UploadSuite) newService(jobs store.JobStore) Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gate := tenancy.New(s.store, noRoles{}, logger, nil)
	return New(s.store, jobs, gate, s.dispatcher, s.events, logger, nil)
}

func (s *UploadSuite) request() UploadRequest {
	return UploadRequest{
		SessionID:            s.session,
		PatientID:            s.patient,
		CalibrationProfileID: s.profile,
		ImageStorageKey:      "uploads/analysis_images/" + uuid.NewString() + ".jpg",
		LocationTag:          "crown",
		CreatedByUserID:      s.user,
	}
}

func (s *UploadSuite) assertRejected(res result.Result[*UploadResponse], want *result.Error) {
	s.False(res.Success)
	s.Equal([]string{want.Code}, res.Errors)
	s.Equal(want.Kind, res.Kind)
	s.Nil(res.Data)
	s.Zero(s.store.JobCount())
}

// =============================================================================
// Success paths
// =============================================================================

func (s *UploadSuite) TestUploadQueuesJob() {
	var published uuid.UUID
	s.events.EXPECT().JobCreated(gomock.Any(), s.session, gomock.Any()).Return(nil)
	s.dispatcher.EXPECT().Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id uuid.UUID) error {
			published = id
			return nil
		})

	before := time.Now().UTC()
	res := s.service.Upload(context.Background(), s.request())

	s.Require().True(res.Success)
	s.Empty(res.Warnings)
	s.Require().NotNil(res.Data)
	s.Equal(published, res.Data.JobID)

	job, err := s.store.GetJob(context.Background(), res.Data.JobID)
	s.Require().NoError(err)
	s.Equal(domain.JobStatusPending, job.Status)
	s.Equal(s.patient, job.PatientID)
	s.Equal(s.session, job.SessionID)
	s.Equal("crown", job.LocationTag)
	s.False(job.CreatedAt.Before(before))
}

func (s *UploadSuite) TestDispatchFailureStillSucceeds() {
	s.events.EXPECT().JobCreated(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	s.dispatcher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("queue: broker unavailable"))

	res := s.service.Upload(context.Background(), s.request())

	s.True(res.Success)
	s.Equal([]string{ErrDispatchFailed.Code}, res.Warnings)
	s.Contains(res.Message, "contact administrator")
	s.Require().NotNil(res.Data)
	s.Equal(1, s.store.JobCount())

	job, err := s.store.GetJob(context.Background(), res.Data.JobID)
	s.Require().NoError(err)
	s.Equal(domain.JobStatusPending, job.Status)
}

func (s *UploadSuite) TestEventFailureDoesNotAffectUpload() {
	s.events.EXPECT().JobCreated(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("nats down"))
	s.dispatcher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	res := s.service.Upload(context.Background(), s.request())
	s.True(res.Success)
	s.Empty(res.Warnings)
}

// =============================================================================
// Rejections, in validation order
// =============================================================================

func (s *UploadSuite) TestNilIDs() {
	req := s.request()
	req.CalibrationProfileID = uuid.Nil
	s.assertRejected(s.service.Upload(context.Background(), req), ErrInvalidRequest)
}

func (s *UploadSuite) TestPatientAccessDenied() {
	req := s.request()
	req.CreatedByUserID = s.outsider
	// every later check would fail too; the first one wins
	req.ImageStorageKey = "../etc/passwd"
	s.assertRejected(s.service.Upload(context.Background(), req), ErrPatientAccessDenied)
}

func (s *UploadSuite) TestUnknownUserIsDenied() {
	req := s.request()
	req.CreatedByUserID = uuid.New()
	s.assertRejected(s.service.Upload(context.Background(), req), ErrPatientAccessDenied)
}

func (s *UploadSuite) TestMissingSession() {
	req := s.request()
	req.SessionID = uuid.New()
	s.assertRejected(s.service.Upload(context.Background(), req), ErrSessionPatientMismatch)
}

func (s *UploadSuite) TestSessionForAnotherPatient() {
	otherPatient := uuid.New()
	s.store.PutPatient(domain.Patient{ID: otherPatient, ClinicID: s.clinic})

	req := s.request()
	req.PatientID = otherPatient
	s.assertRejected(s.service.Upload(context.Background(), req), ErrSessionPatientMismatch)
}

func (s *UploadSuite) TestForeignCalibrationProfile() {
	req := s.request()
	req.CalibrationProfileID = s.farProfile
	req.LocationTag = ""
	s.assertRejected(s.service.Upload(context.Background(), req), ErrProfileAccessDenied)
}

func (s *UploadSuite) TestInvalidStorageKeys() {
	for _, key := range []string{
		"",
		"uploads/../secrets.jpg",
		`uploads\analysis_images\a.jpg`,
		strings.Repeat("k", 256),
	} {
		req := s.request()
		req.ImageStorageKey = key
		req.LocationTag = ""
		s.assertRejected(s.service.Upload(context.Background(), req), ErrInvalidStorageKey)
	}
}

func (s *UploadSuite) TestInvalidLocationTags() {
	for _, tag := range []string{"", strings.Repeat("t", 101)} {
		req := s.request()
		req.LocationTag = tag
		s.assertRejected(s.service.Upload(context.Background(), req), ErrInvalidLocationTag)
	}
}

func (s *UploadSuite) TestBoundaryLengthsAccepted() {
	s.events.EXPECT().JobCreated(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	s.dispatcher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	req := s.request()
	req.ImageStorageKey = strings.Repeat("k", 255)
	req.LocationTag = strings.Repeat("t", 100)
	s.True(s.service.Upload(context.Background(), req).Success)
}

func (s *UploadSuite) TestPersistenceFailure() {
	svc := s.newService(failingJobs{s.store})

	res := svc.Upload(context.Background(), s.request())
	s.assertRejected(res, ErrPersistenceFailed)
}

type panickingJobs struct{ store.JobStore }

func (panickingJobs) CreateJob(context.Context, *domain.AnalysisJob) error {
	panic("driver bug")
}

func (s *UploadSuite) TestPanicBecomesInternalError() {
	svc := s.newService(panickingJobs{s.store})

	res := svc.Upload(context.Background(), s.request())
	s.False(res.Success)
	s.Equal(result.KindInternal, res.Kind)
	s.Equal([]string{result.ErrInternal.Code}, res.Errors)
}

func (s *UploadSuite) TestPrecheckWritesNothing() {
	req := s.request()
	req.ImageStorageKey = ""

	res := s.service.Precheck(context.Background(), req)
	s.True(res.Success, res.Message)
	s.Nil(res.Data)
	s.Zero(s.store.JobCount())
}

func (s *UploadSuite) TestPrecheckDenials() {
	outsider := s.request()
	outsider.CreatedByUserID = s.outsider
	s.assertRejected(s.service.Precheck(context.Background(), outsider), ErrPatientAccessDenied)

	missing := s.request()
	missing.SessionID = uuid.New()
	s.assertRejected(s.service.Precheck(context.Background(), missing), ErrSessionPatientMismatch)

	far := s.request()
	far.CalibrationProfileID = s.farProfile
	s.assertRejected(s.service.Precheck(context.Background(), far), ErrProfileAccessDenied)

	s.Zero(s.store.JobCount())
}
