package job

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/hairai_backend/internal/domain"
	"github.com/Alijeyrad/hairai_backend/internal/service/tenancy"
	"github.com/Alijeyrad/hairai_backend/internal/store"
	"github.com/Alijeyrad/hairai_backend/pkg/authorize"
)

type noRoles struct{}

func (noRoles) IsSuperAdmin(context.Context, authorize.GroupSubject) (bool, error) { return false, nil }
func (noRoles) HasRoleInDomain(context.Context, authorize.GroupSubject, authorize.Role, authorize.Domain) (bool, error) {
	return false, nil
}

type fakePresigner struct {
	err  error
	keys []string
}

func (f *fakePresigner) PresignGet(_ context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return "https://objects.test/" + key + "?sig=abc", nil
}

type env struct {
	store    *store.Memory
	presign  *fakePresigner
	svc      Service
	user     uuid.UUID
	outsider uuid.UUID
	pending  uuid.UUID
	done     uuid.UUID
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		store:    store.NewMemory(),
		presign:  &fakePresigner{},
		user:     uuid.New(),
		outsider: uuid.New(),
		pending:  uuid.New(),
		done:     uuid.New(),
	}
	clinic, other, patient := uuid.New(), uuid.New(), uuid.New()
	e.store.PutClinic(domain.Clinic{ID: clinic})
	e.store.PutClinic(domain.Clinic{ID: other})
	e.store.PutUser(domain.User{ID: e.user, ClinicID: &clinic})
	e.store.PutUser(domain.User{ID: e.outsider, ClinicID: &other})
	e.store.PutPatient(domain.Patient{ID: patient, ClinicID: clinic})

	started := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	completed := started.Add(4 * time.Second)
	ms := 4000
	res := `{"hair_count":140,"density":31.2}`
	annotated := "uploads/annotated/" + e.done.String() + ".png"

	e.store.PutJob(domain.AnalysisJob{ID: e.pending, PatientID: patient, Status: domain.JobStatusPending, CreatedAt: started})
	e.store.PutJob(domain.AnalysisJob{
		ID:                e.done,
		PatientID:         patient,
		Status:            domain.JobStatusCompleted,
		AnalysisResult:    &res,
		AnnotatedImageKey: &annotated,
		StartedAt:         &started,
		CompletedAt:       &completed,
		ProcessingTimeMs:  &ms,
		CreatedAt:         started,
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e.svc = New(e.store, tenancy.New(e.store, noRoles{}, logger, nil), e.presign, logger)
	return e
}

func TestGetJobStatus(t *testing.T) {
	e := newEnv(t)

	res := e.svc.GetJobStatus(context.Background(), e.done, e.user)
	require.True(t, res.Success)
	assert.Equal(t, domain.JobStatusCompleted, res.Data.Status)
	require.NotNil(t, res.Data.ProcessingTimeMs)
	assert.Equal(t, 4000, *res.Data.ProcessingTimeMs)
	assert.NotNil(t, res.Data.CompletedAt)
}

func TestDeniedLooksLikeMissing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	denied := e.svc.GetJobStatus(ctx, e.done, e.outsider)
	missing := e.svc.GetJobStatus(ctx, uuid.New(), e.user)

	assert.False(t, denied.Success)
	assert.Equal(t, missing.Errors, denied.Errors)
	assert.Equal(t, missing.Message, denied.Message)
	assert.Equal(t, missing.Kind, denied.Kind)
	assert.Equal(t, []string{ErrJobNotFound.Code}, denied.Errors)

	assert.False(t, e.svc.GetJobResult(ctx, e.done, e.outsider).Success)
	assert.False(t, e.svc.AddDoctorNotes(ctx, e.done, "x", e.outsider).Success)
}

func TestGetJobResult(t *testing.T) {
	e := newEnv(t)

	res := e.svc.GetJobResult(context.Background(), e.done, e.user)
	require.True(t, res.Success)
	assert.Empty(t, res.Warnings)
	assert.Contains(t, *res.Data.AnalysisResult, "hair_count")
	assert.True(t, strings.HasPrefix(res.Data.AnnotatedImageURL, "https://objects.test/uploads/annotated/"))
	assert.Len(t, e.presign.keys, 1)
}

func TestGetJobResultBeforeCompletion(t *testing.T) {
	e := newEnv(t)

	res := e.svc.GetJobResult(context.Background(), e.pending, e.user)
	assert.False(t, res.Success)
	assert.Equal(t, []string{ErrJobNotCompleted.Code}, res.Errors)
	assert.Empty(t, e.presign.keys)
}

func TestGetJobResultPresignFailure(t *testing.T) {
	e := newEnv(t)
	e.presign.err = errors.New("signature expired")

	res := e.svc.GetJobResult(context.Background(), e.done, e.user)
	assert.True(t, res.Success)
	assert.Equal(t, []string{ErrPresignFailed.Code}, res.Warnings)
	assert.Empty(t, res.Data.AnnotatedImageURL)
	assert.NotNil(t, res.Data.AnalysisResult)
}

func TestAddDoctorNotes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.True(t, e.svc.AddDoctorNotes(ctx, e.pending, "first", e.user).Success)
	require.True(t, e.svc.AddDoctorNotes(ctx, e.pending, strings.Repeat("é", domain.MaxDoctorNotesLength), e.user).Success)

	j, err := e.store.GetJob(ctx, e.pending)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxDoctorNotesLength, len([]rune(*j.DoctorNotes)))

	res := e.svc.AddDoctorNotes(ctx, e.pending, strings.Repeat("n", domain.MaxDoctorNotesLength+1), e.user)
	assert.False(t, res.Success)
	assert.Equal(t, []string{ErrNotesTooLong.Code}, res.Errors)

	res = e.svc.AddDoctorNotes(ctx, uuid.New(), "x", e.user)
	assert.Equal(t, []string{ErrJobNotFound.Code}, res.Errors)
}
