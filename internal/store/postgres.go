package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Alijeyrad/hairai_backend/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var sessionColumns = []string{
	"id", "patient_id", "created_by_user_id", "session_date", "status", "final_report_data", "created_at",
}

var jobColumns = []string{
	"id", "session_id", "patient_id", "calibration_profile_id", "created_by_user_id",
	"location_tag", "image_storage_key", "annotated_image_key", "status", "analysis_result",
	"doctor_notes", "created_at", "started_at", "completed_at", "error_message", "processing_time_ms",
}

// Postgres implements Store on top of sqlx, building statements with squirrel.
type Postgres struct {
	db *sqlx.DB
}

var _ Store = (*Postgres)(nil)

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// ---------------------------------------------------------------------------
// Tenant lookups
// ---------------------------------------------------------------------------

func (p *Postgres) UserClinicID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	return p.clinicID(ctx, psql.Select("clinic_id").From("users").Where(sq.Eq{"id": userID}))
}

func (p *Postgres) PatientClinicID(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error) {
	return p.clinicID(ctx, psql.Select("clinic_id").From("patients").Where(sq.Eq{"id": patientID}))
}

func (p *Postgres) SessionClinicID(ctx context.Context, sessionID uuid.UUID) (uuid.UUID, error) {
	return p.clinicID(ctx, psql.Select("p.clinic_id").
		From("analysis_sessions s").
		Join("patients p ON p.id = s.patient_id").
		Where(sq.Eq{"s.id": sessionID}))
}

func (p *Postgres) CalibrationProfileClinicID(ctx context.Context, profileID uuid.UUID) (uuid.UUID, error) {
	return p.clinicID(ctx, psql.Select("clinic_id").From("calibration_profiles").Where(sq.Eq{"id": profileID}))
}

func (p *Postgres) ClinicIDs(ctx context.Context) ([]uuid.UUID, error) {
	query, args, err := psql.Select("id").From("clinics").OrderBy("created_at").ToSql()
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	if err := p.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("list clinic ids: %w", err)
	}
	return ids, nil
}

func (p *Postgres) clinicID(ctx context.Context, q sq.SelectBuilder) (uuid.UUID, error) {
	query, args, err := q.Limit(1).ToSql()
	if err != nil {
		return uuid.Nil, err
	}
	var id uuid.NullUUID
	if err := p.db.GetContext(ctx, &id, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("resolve clinic: %w", err)
	}
	if !id.Valid {
		return uuid.Nil, ErrNotFound
	}
	return id.UUID, nil
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func (p *Postgres) GetSession(ctx context.Context, id uuid.UUID) (*domain.AnalysisSession, error) {
	query, args, err := psql.Select(sessionColumns...).From("analysis_sessions").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var s domain.AnalysisSession
	if err := p.db.GetContext(ctx, &s, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

func (p *Postgres) CreateSession(ctx context.Context, s *domain.AnalysisSession) error {
	query, args, err := psql.Insert("analysis_sessions").
		Columns(sessionColumns...).
		Values(s.ID, s.PatientID, s.CreatedByUserID, s.SessionDate, s.Status, s.FinalReportData, s.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

type sessionRow struct {
	domain.SessionSummary
	Tags pq.StringArray `db:"location_tags"`
}

func (p *Postgres) ListSessions(ctx context.Context, f SessionFilter) ([]domain.SessionSummary, int, error) {
	countQ, listQ := buildSessionQueries(f)

	query, args, err := countQ.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := p.db.GetContext(ctx, &total, query, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	if total == 0 {
		return []domain.SessionSummary{}, 0, nil
	}

	query, args, err = listQ.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var rows []sessionRow
	if err := p.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	out := make([]domain.SessionSummary, 0, len(rows))
	for _, r := range rows {
		s := r.SessionSummary
		s.LocationTags = []string(r.Tags)
		if s.LocationTags == nil {
			s.LocationTags = []string{}
		}
		out = append(out, s)
	}
	return out, total, nil
}

// buildSessionQueries returns the count and page statements for f. Job
// aggregates are scalar subqueries so a page never loads job rows.
func buildSessionQueries(f SessionFilter) (sq.SelectBuilder, sq.SelectBuilder) {
	where := sq.And{}
	if f.ClinicID != nil {
		where = append(where, sq.Eq{"p.clinic_id": *f.ClinicID})
	}
	if f.PatientID != nil {
		where = append(where, sq.Eq{"s.patient_id": *f.PatientID})
	}
	if f.Status != nil {
		where = append(where, sq.Eq{"s.status": string(*f.Status)})
	}
	if f.FromDate != nil {
		where = append(where, sq.GtOrEq{"s.session_date": DateOnly(*f.FromDate)})
	}
	if f.ToDate != nil {
		where = append(where, sq.LtOrEq{"s.session_date": DateOnly(*f.ToDate)})
	}

	countQ := psql.Select("COUNT(*)").
		From("analysis_sessions s").
		Join("patients p ON p.id = s.patient_id").
		Where(where)

	page, size := NormalizePage(f.Page, f.PageSize)

	listQ := psql.Select(
		"s.id",
		"s.patient_id",
		"CONCAT(p.first_name, ' ', p.last_name) AS patient_name",
		"s.created_by_user_id",
		"CASE WHEN u.id IS NULL THEN 'Unknown User' ELSE CONCAT(u.first_name, ' ', u.last_name) END AS created_by_user_name",
		"s.session_date",
		"s.status",
		"s.created_at",
		"(SELECT COUNT(*) FROM analysis_jobs j WHERE j.session_id = s.id) AS total_jobs",
		"(SELECT COUNT(*) FROM analysis_jobs j WHERE j.session_id = s.id AND j.status = 'Completed') AS completed_jobs",
		"(SELECT COUNT(*) FROM analysis_jobs j WHERE j.session_id = s.id AND j.status IN ('Pending', 'Processing')) AS pending_jobs",
		fmt.Sprintf("ARRAY(SELECT DISTINCT j.location_tag FROM analysis_jobs j WHERE j.session_id = s.id ORDER BY j.location_tag LIMIT %d) AS location_tags", domain.MaxSessionLocationTags),
	).
		From("analysis_sessions s").
		Join("patients p ON p.id = s.patient_id").
		LeftJoin("users u ON u.id = s.created_by_user_id").
		Where(where).
		OrderBy(sessionOrderBy(f.SortBy, f.SortDirection)...).
		Limit(uint64(size)).
		Offset(uint64((page - 1) * size))

	return countQ, listQ
}

func sessionOrderBy(sortBy, direction string) []string {
	field, desc := NormalizeSort(sortBy, direction)
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	// s.id keeps pages stable when the sort key ties.
	switch field {
	case SortCreatedAt:
		return []string{"s.created_at " + dir, "s.id " + dir}
	case SortPatientName:
		return []string{"p.last_name " + dir, "p.first_name " + dir, "s.id " + dir}
	case SortStatus:
		return []string{"s.status " + dir, "s.id " + dir}
	default:
		return []string{"s.session_date " + dir, "s.id " + dir}
	}
}

func (p *Postgres) SaveFinalReport(ctx context.Context, sessionID uuid.UUID, report string) error {
	query, args, err := psql.Update("analysis_sessions").
		Set("final_report_data", report).
		Set("status", string(domain.SessionStatusCompleted)).
		Where(sq.Eq{"id": sessionID}).
		ToSql()
	if err != nil {
		return err
	}
	return p.execOne(ctx, "save final report", query, args...)
}

// ---------------------------------------------------------------------------
// Jobs
// ---------------------------------------------------------------------------

func (p *Postgres) CreateJob(ctx context.Context, j *domain.AnalysisJob) error {
	query, args, err := psql.Insert("analysis_jobs").
		Columns(jobColumns...).
		Values(
			j.ID, j.SessionID, j.PatientID, j.CalibrationProfileID, j.CreatedByUserID,
			j.LocationTag, j.ImageStorageKey, j.AnnotatedImageKey, j.Status, j.AnalysisResult,
			j.DoctorNotes, j.CreatedAt, j.StartedAt, j.CompletedAt, j.ErrorMessage, j.ProcessingTimeMs,
		).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (p *Postgres) GetJob(ctx context.Context, id uuid.UUID) (*domain.AnalysisJob, error) {
	query, args, err := psql.Select(jobColumns...).From("analysis_jobs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var j domain.AnalysisJob
	if err := p.db.GetContext(ctx, &j, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &j, nil
}

func (p *Postgres) CountJobs(ctx context.Context, f JobFilter) (int, error) {
	query, args, err := psql.Select("COUNT(*)").From("analysis_jobs").Where(jobWhere(f)).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := p.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return n, nil
}

func (p *Postgres) ListJobs(ctx context.Context, f JobFilter) ([]domain.AnalysisJob, error) {
	order := "created_at ASC"
	if f.NewestFirst {
		order = "created_at DESC"
	}
	q := psql.Select(jobColumns...).From("analysis_jobs").Where(jobWhere(f)).OrderBy(order, "id")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	jobs := []domain.AnalysisJob{}
	if err := p.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

func jobWhere(f JobFilter) sq.And {
	where := sq.And{sq.Eq{"session_id": f.SessionID}}
	if f.Status != nil {
		where = append(where, sq.Eq{"status": string(*f.Status)})
	}
	return where
}

func (p *Postgres) UpdateDoctorNotes(ctx context.Context, jobID uuid.UUID, notes string) error {
	query, args, err := psql.Update("analysis_jobs").
		Set("doctor_notes", notes).
		Where(sq.Eq{"id": jobID}).
		ToSql()
	if err != nil {
		return err
	}
	return p.execOne(ctx, "update doctor notes", query, args...)
}

// ---------------------------------------------------------------------------
// Patients & users
// ---------------------------------------------------------------------------

func (p *Postgres) GetPatient(ctx context.Context, id uuid.UUID) (*domain.Patient, error) {
	query, args, err := psql.Select("id", "clinic_id", "first_name", "last_name", "created_at").
		From("patients").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var pt domain.Patient
	if err := p.db.GetContext(ctx, &pt, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return &pt, nil
}

func (p *Postgres) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query, args, err := psql.Select("id", "clinic_id", "email", "first_name", "last_name").
		From("users").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var u domain.User
	if err := p.db.GetContext(ctx, &u, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (p *Postgres) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
