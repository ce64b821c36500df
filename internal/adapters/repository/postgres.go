package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/pressly/goose/v3"

	"github.com/okian/apas/internal/domain/model"
	"github.com/okian/apas/internal/domain/pipeline"
	"github.com/okian/apas/pkg/metrics"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const uniqueViolation = "23505"

// OpenPostgres connects, tunes the pool and applies pending migrations.
func OpenPostgres(ctx context.Context, url string, opts ...PostgresOption) (*sql.DB, error) {
	s := postgresSettings{
		maxOpenConns:    25,
		maxIdleConns:    5,
		connMaxLifetime: 30 * time.Minute,
		migrate:         true,
	}
	for _, opt := range opts {
		opt(&s)
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(s.maxOpenConns)
	db.SetMaxIdleConns(s.maxIdleConns)
	db.SetConnMaxLifetime(s.connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if s.migrate {
		if err := migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func observeWrite(start time.Time) {
	metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Nanoseconds()) / 1e6)
}

func observeRead(start time.Time) {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Nanoseconds()) / 1e6)
}

// PostgresUsers is a UserStore on database/sql.
type PostgresUsers struct{ db *sql.DB }

// NewPostgresUsers wraps db.
func NewPostgresUsers(db *sql.DB) *PostgresUsers { return &PostgresUsers{db: db} }

const userColumns = `id, first_name, last_name, gmail, aadhaar, phone, password_hash,
	state, district, city, pincode, phone_verified, registered_at`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Gmail, &u.Aadhaar, &u.Phone, &u.PasswordHash,
		&u.State, &u.District, &u.City, &u.Pincode, &u.PhoneVerified, &u.RegisteredAt)
	return u, err
}

func (r *PostgresUsers) Create(ctx context.Context, u model.User) error {
	defer observeWrite(time.Now())
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		u.ID, u.FirstName, u.LastName, u.Gmail, u.Aadhaar, u.Phone, u.PasswordHash,
		u.State, u.District, u.City, u.Pincode, u.PhoneVerified, u.RegisteredAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user with given aadhaar or gmail: %w", ErrConflict)
		}
		return fmt.Errorf("PostgresUsers.Create: %w", err)
	}
	return nil
}

func (r *PostgresUsers) Get(ctx context.Context, id string) (model.User, error) {
	defer observeRead(time.Now())
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return model.User{}, fmt.Errorf("PostgresUsers.Get: %w", err)
	}
	return u, nil
}

// Update rewrites the mutable columns. Aadhaar and Gmail never change.
func (r *PostgresUsers) Update(ctx context.Context, u model.User) error {
	defer observeWrite(time.Now())
	res, err := r.db.ExecContext(ctx, `UPDATE users SET first_name = $2, last_name = $3, phone = $4,
		password_hash = $5, state = $6, district = $7, city = $8, pincode = $9, phone_verified = $10
		WHERE id = $1`,
		u.ID, u.FirstName, u.LastName, u.Phone, u.PasswordHash, u.State, u.District, u.City, u.Pincode, u.PhoneVerified)
	if err != nil {
		return fmt.Errorf("PostgresUsers.Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", u.ID, ErrNotFound)
	}
	return nil
}

func (r *PostgresUsers) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("PostgresUsers.Count: %w", err)
	}
	return n, nil
}

func (r *PostgresUsers) ByAadhaar(ctx context.Context, aadhaar string) (model.User, bool, error) {
	defer observeRead(time.Now())
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE aadhaar = $1`, aadhaar))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, false, nil
		}
		return model.User{}, false, fmt.Errorf("PostgresUsers.ByAadhaar: %w", err)
	}
	return u, true, nil
}

func (r *PostgresUsers) ByFirstName(ctx context.Context, firstName string) ([]model.User, error) {
	defer observeRead(time.Now())
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users
		WHERE lower(first_name) = lower(trim($1)) ORDER BY registered_at`, firstName)
	if err != nil {
		return nil, fmt.Errorf("PostgresUsers.ByFirstName: %w", err)
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("PostgresUsers.ByFirstName: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// PostgresAthletes is an AthleteStore on database/sql.
type PostgresAthletes struct{ db *sql.DB }

// NewPostgresAthletes wraps db.
func NewPostgresAthletes(db *sql.DB) *PostgresAthletes { return &PostgresAthletes{db: db} }

const athleteColumns = `id, first_name, last_name, sport, state, district, registration_date,
	validation_status, excellence_score, fitness_score, video_analysis_score, overall_score,
	tier, age, phone, email, aadhaar, health_status`

func scanAthlete(row interface{ Scan(...any) error }) (model.Athlete, error) {
	var a model.Athlete
	err := row.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Sport, &a.State, &a.District, &a.RegistrationDate,
		&a.ValidationStatus, &a.ExcellenceScore, &a.FitnessScore, &a.VideoAnalysisScore, &a.OverallScore,
		&a.Tier, &a.Age, &a.Phone, &a.Email, &a.Aadhaar, &a.HealthStatus)
	return a, err
}

func (r *PostgresAthletes) Upsert(ctx context.Context, a model.Athlete) error {
	if a.ID == "" {
		return fmt.Errorf("athlete id: %w", ErrInvalidEntry)
	}
	defer observeWrite(time.Now())
	_, err := r.db.ExecContext(ctx, `INSERT INTO athletes (`+athleteColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name, sport = EXCLUDED.sport,
			state = EXCLUDED.state, district = EXCLUDED.district,
			registration_date = EXCLUDED.registration_date, validation_status = EXCLUDED.validation_status,
			excellence_score = EXCLUDED.excellence_score, fitness_score = EXCLUDED.fitness_score,
			video_analysis_score = EXCLUDED.video_analysis_score, overall_score = EXCLUDED.overall_score,
			tier = EXCLUDED.tier, age = EXCLUDED.age, phone = EXCLUDED.phone, email = EXCLUDED.email,
			aadhaar = EXCLUDED.aadhaar, health_status = EXCLUDED.health_status`,
		a.ID, a.FirstName, a.LastName, a.Sport, a.State, a.District, a.RegistrationDate,
		string(a.ValidationStatus), a.ExcellenceScore, a.FitnessScore, a.VideoAnalysisScore, a.OverallScore,
		a.Tier, a.Age, a.Phone, a.Email, a.Aadhaar, string(a.HealthStatus))
	if err != nil {
		return fmt.Errorf("PostgresAthletes.Upsert: %w", err)
	}
	return nil
}

func (r *PostgresAthletes) Get(ctx context.Context, id string) (model.Athlete, error) {
	defer observeRead(time.Now())
	a, err := scanAthlete(r.db.QueryRowContext(ctx, `SELECT `+athleteColumns+` FROM athletes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Athlete{}, fmt.Errorf("athlete %s: %w", id, ErrNotFound)
		}
		return model.Athlete{}, fmt.Errorf("PostgresAthletes.Get: %w", err)
	}
	return a, nil
}

func (r *PostgresAthletes) List(ctx context.Context) ([]model.Athlete, error) {
	defer observeRead(time.Now())
	rows, err := r.db.QueryContext(ctx, `SELECT `+athleteColumns+` FROM athletes ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("PostgresAthletes.List: %w", err)
	}
	defer rows.Close()
	out := []model.Athlete{}
	for rows.Next() {
		a, err := scanAthlete(rows)
		if err != nil {
			return nil, fmt.Errorf("PostgresAthletes.List: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresAthletes) SetStatus(ctx context.Context, id string, status model.ValidationStatus) (model.Athlete, error) {
	defer observeWrite(time.Now())
	a, err := scanAthlete(r.db.QueryRowContext(ctx, `UPDATE athletes SET validation_status = $2
		WHERE id = $1 RETURNING `+athleteColumns, id, string(status)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Athlete{}, fmt.Errorf("athlete %s: %w", id, ErrNotFound)
		}
		return model.Athlete{}, fmt.Errorf("PostgresAthletes.SetStatus: %w", err)
	}
	return a, nil
}

// PostgresSelections is a SelectionStore on database/sql.
type PostgresSelections struct{ db *sql.DB }

// NewPostgresSelections wraps db.
func NewPostgresSelections(db *sql.DB) *PostgresSelections { return &PostgresSelections{db: db} }

func (r *PostgresSelections) Put(ctx context.Context, s model.Selection) error {
	defer observeWrite(time.Now())
	_, err := r.db.ExecContext(ctx, `INSERT INTO selections (user_id, sport_id, sport_name, skill_level, selected_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET sport_id = EXCLUDED.sport_id, sport_name = EXCLUDED.sport_name,
			skill_level = EXCLUDED.skill_level, selected_at = EXCLUDED.selected_at`,
		s.UserID, s.SportID, s.SportName, s.SkillLevel, s.SelectedAt)
	if err != nil {
		return fmt.Errorf("PostgresSelections.Put: %w", err)
	}
	return nil
}

func (r *PostgresSelections) Get(ctx context.Context, userID string) (model.Selection, error) {
	defer observeRead(time.Now())
	s := model.Selection{UserID: userID}
	err := r.db.QueryRowContext(ctx, `SELECT sport_id, sport_name, skill_level, selected_at
		FROM selections WHERE user_id = $1`, userID).Scan(&s.SportID, &s.SportName, &s.SkillLevel, &s.SelectedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Selection{}, fmt.Errorf("selection for %s: %w", userID, ErrNotFound)
		}
		return model.Selection{}, fmt.Errorf("PostgresSelections.Get: %w", err)
	}
	return s, nil
}

// PostgresProgress is a ProgressStore on database/sql. Apply locks the row.
type PostgresProgress struct{ db *sql.DB }

// NewPostgresProgress wraps db.
func NewPostgresProgress(db *sql.DB) *PostgresProgress { return &PostgresProgress{db: db} }

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getProgress(ctx context.Context, q querier, userID, suffix string) (model.Progress, error) {
	p := model.Progress{UserID: userID}
	var stage string
	err := q.QueryRowContext(ctx, `SELECT stage, sport, updated_at FROM progress WHERE user_id = $1`+suffix, userID).
		Scan(&stage, &p.Sport, &p.UpdatedAt)
	p.Stage = pipeline.Stage(stage)
	return p, err
}

func putProgress(ctx context.Context, q querier, p model.Progress) error {
	_, err := q.ExecContext(ctx, `INSERT INTO progress (user_id, stage, sport, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET stage = EXCLUDED.stage, sport = EXCLUDED.sport,
			updated_at = EXCLUDED.updated_at`,
		p.UserID, string(p.Stage), p.Sport, p.UpdatedAt)
	return err
}

func (r *PostgresProgress) Get(ctx context.Context, userID string) (model.Progress, error) {
	defer observeRead(time.Now())
	p, err := getProgress(ctx, r.db, userID, "")
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Progress{}, fmt.Errorf("progress for %s: %w", userID, ErrNotFound)
		}
		return model.Progress{}, fmt.Errorf("PostgresProgress.Get: %w", err)
	}
	return p, nil
}

func (r *PostgresProgress) Put(ctx context.Context, p model.Progress) error {
	defer observeWrite(time.Now())
	if err := putProgress(ctx, r.db, p); err != nil {
		return fmt.Errorf("PostgresProgress.Put: %w", err)
	}
	return nil
}

func (r *PostgresProgress) Apply(ctx context.Context, userID string, fn func(model.Progress) (model.Progress, error)) (model.Progress, error) {
	defer observeWrite(time.Now())
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Progress{}, fmt.Errorf("PostgresProgress.Apply: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := getProgress(ctx, tx, userID, " FOR UPDATE")
	switch {
	case errors.Is(err, sql.ErrNoRows):
		cur = model.Progress{UserID: userID}
	case err != nil:
		return model.Progress{}, fmt.Errorf("PostgresProgress.Apply: %w", err)
	}

	next, err := fn(cur)
	if err != nil {
		return cur, err
	}
	next.UserID = userID
	if err := putProgress(ctx, tx, next); err != nil {
		return cur, fmt.Errorf("PostgresProgress.Apply: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return cur, fmt.Errorf("PostgresProgress.Apply: %w", err)
	}
	return next, nil
}
