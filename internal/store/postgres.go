package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/directory-cli/internal/db"
	"github.com/sells-group/directory-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const pgProviderColumns = `id, npi, first_name, last_name, middle_name, specialty, practice_name,
	phone, email, address_line1, address_line2, city, state, zip_code,
	license_number, license_state, credentials, status, created_at, updated_at`

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_provider":        `SELECT ` + pgProviderColumns + ` FROM providers WHERE id = $1`,
	"get_provider_by_npi": `SELECT ` + pgProviderColumns + ` FROM providers WHERE npi = $1`,
	"update_status":       `UPDATE providers SET status = $1, updated_at = $2 WHERE id = $3`,
	"insert_validation": `INSERT INTO validation_results
		 (id, provider_id, field_name, original_value, validated_value, confidence, source, status, discrepancy_reason, validated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
	"list_validations": `SELECT id, provider_id, field_name, original_value, validated_value, confidence, source, status, discrepancy_reason, validated_at
		 FROM validation_results WHERE provider_id = $1 ORDER BY validated_at, id`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Tests hand in a pgxmock pool
// through this constructor.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (bulk roster import).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS providers (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	npi            TEXT,
	first_name     TEXT NOT NULL,
	last_name      TEXT NOT NULL,
	middle_name    TEXT,
	specialty      TEXT,
	practice_name  TEXT,
	phone          TEXT,
	email          TEXT,
	address_line1  TEXT,
	address_line2  TEXT,
	city           TEXT,
	state          TEXT,
	zip_code       TEXT,
	license_number TEXT,
	license_state  TEXT,
	credentials    JSONB,
	status         TEXT NOT NULL DEFAULT 'pending',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS validation_results (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	provider_id        TEXT NOT NULL REFERENCES providers(id),
	field_name         TEXT NOT NULL,
	original_value     TEXT,
	validated_value    TEXT,
	confidence         DOUBLE PRECISION NOT NULL,
	source             TEXT NOT NULL,
	status             TEXT NOT NULL,
	discrepancy_reason TEXT,
	validated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS validation_batches (
	id                  TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name                TEXT NOT NULL,
	total_providers     INTEGER NOT NULL DEFAULT 0,
	processed_providers INTEGER NOT NULL DEFAULT 0,
	validated_providers INTEGER NOT NULL DEFAULT 0,
	needs_review_count  INTEGER NOT NULL DEFAULT 0,
	status              TEXT NOT NULL DEFAULT 'pending',
	average_confidence  DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at          TIMESTAMPTZ,
	completed_at        TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_providers_npi ON providers(npi) WHERE npi IS NOT NULL AND npi != '';
CREATE INDEX IF NOT EXISTS idx_providers_status ON providers(status);
CREATE INDEX IF NOT EXISTS idx_providers_state ON providers(state);
CREATE INDEX IF NOT EXISTS idx_validation_results_provider ON validation_results(provider_id);
CREATE INDEX IF NOT EXISTS idx_validation_batches_status ON validation_batches(status);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateProvider(ctx context.Context, p *model.Provider) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = model.ProviderStatusPending
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	creds, err := marshalCredentials(p)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO providers (`+pgProviderColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		p.ID, p.NPI, p.FirstName, p.LastName, p.MiddleName, p.Specialty, p.PracticeName,
		p.Phone, p.Email, p.AddressLine1, p.AddressLine2, p.City, p.State, p.ZipCode,
		p.LicenseNumber, p.LicenseState, []byte(creds), string(p.Status), p.CreatedAt, p.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: insert provider %s", p.ID)
}

func (s *PostgresStore) GetProvider(ctx context.Context, id string) (*model.Provider, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgProviderColumns+` FROM providers WHERE id = $1`, id)
	return scanPgProvider(row)
}

func (s *PostgresStore) GetProviderByNPI(ctx context.Context, npi string) (*model.Provider, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgProviderColumns+` FROM providers WHERE npi = $1`, npi)
	return scanPgProvider(row)
}

func (s *PostgresStore) ListProviders(ctx context.Context, filter ProviderFilter) ([]model.Provider, error) {
	query := `SELECT ` + pgProviderColumns + ` FROM providers WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.State != "" {
		query += fmt.Sprintf(` AND state = $%d`, argIdx)
		args = append(args, filter.State)
		argIdx++
	}
	if filter.Specialty != "" {
		query += fmt.Sprintf(` AND specialty ILIKE $%d`, argIdx)
		args = append(args, "%"+filter.Specialty+"%")
		argIdx++
	}
	query += ` ORDER BY last_name, first_name`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list providers")
	}
	defer rows.Close()

	var providers []model.Provider
	for rows.Next() {
		p, err := scanPgProvider(rows)
		if err != nil {
			return nil, err
		}
		providers = append(providers, *p)
	}
	return providers, eris.Wrap(rows.Err(), "postgres: list providers iterate")
}

func (s *PostgresStore) UpdateProvider(ctx context.Context, p *model.Provider) error {
	p.UpdatedAt = time.Now().UTC()

	creds, err := marshalCredentials(p)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE providers SET
			npi = $1, first_name = $2, last_name = $3, middle_name = $4, specialty = $5, practice_name = $6,
			phone = $7, email = $8, address_line1 = $9, address_line2 = $10, city = $11, state = $12, zip_code = $13,
			license_number = $14, license_state = $15, credentials = $16, status = $17, updated_at = $18
		 WHERE id = $19`,
		p.NPI, p.FirstName, p.LastName, p.MiddleName, p.Specialty, p.PracticeName,
		p.Phone, p.Email, p.AddressLine1, p.AddressLine2, p.City, p.State, p.ZipCode,
		p.LicenseNumber, p.LicenseState, []byte(creds), string(p.Status), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update provider %s", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("provider not found: %s", p.ID)
	}
	return nil
}

func (s *PostgresStore) UpdateProviderStatus(ctx context.Context, id string, status model.ProviderStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE providers SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update provider status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("provider not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) SaveValidations(ctx context.Context, providerID string, validations []model.FieldValidation) error {
	if len(validations) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin validations tx")
	}
	defer tx.Rollback(ctx)

	for _, v := range validations {
		id := v.ID
		if id == "" {
			id = uuid.New().String()
		}
		validatedAt := v.ValidatedAt
		if validatedAt.IsZero() {
			validatedAt = time.Now().UTC()
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO validation_results
			 (id, provider_id, field_name, original_value, validated_value, confidence, source, status, discrepancy_reason, validated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			id, providerID, v.FieldName, v.OriginalValue, v.ValidatedValue,
			v.Confidence, v.Source, string(v.Status), v.DiscrepancyReason, validatedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert validation %s for provider %s", v.FieldName, providerID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit validations")
}

func (s *PostgresStore) ListValidations(ctx context.Context, providerID string) ([]model.FieldValidation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, provider_id, field_name, original_value, validated_value, confidence, source, status, discrepancy_reason, validated_at
		 FROM validation_results WHERE provider_id = $1 ORDER BY validated_at, id`,
		providerID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list validations")
	}
	defer rows.Close()

	var validations []model.FieldValidation
	for rows.Next() {
		var v model.FieldValidation
		var original, validated, reason *string
		if err := rows.Scan(&v.ID, &v.ProviderID, &v.FieldName, &original, &validated,
			&v.Confidence, &v.Source, &v.Status, &reason, &v.ValidatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan validation")
		}
		if original != nil {
			v.OriginalValue = *original
		}
		if validated != nil {
			v.ValidatedValue = *validated
		}
		if reason != nil {
			v.DiscrepancyReason = *reason
		}
		validations = append(validations, v)
	}
	return validations, eris.Wrap(rows.Err(), "postgres: list validations iterate")
}

func (s *PostgresStore) CreateBatch(ctx context.Context, name string, totalProviders int) (*model.ValidationBatch, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO validation_batches (id, name, total_providers, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, name, totalProviders, string(model.BatchPending), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert batch")
	}

	return &model.ValidationBatch{
		ID:             id,
		Name:           name,
		TotalProviders: totalProviders,
		Status:         model.BatchPending,
		CreatedAt:      now,
	}, nil
}

func (s *PostgresStore) StartBatch(ctx context.Context, batchID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE validation_batches SET status = $1, started_at = $2 WHERE id = $3`,
		string(model.BatchProcessing), time.Now().UTC(), batchID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: start batch %s", batchID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("batch not found: %s", batchID)
	}
	return nil
}

func (s *PostgresStore) ReportBatchProgress(ctx context.Context, batchID string, progress model.BatchProgress) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE validation_batches
		 SET processed_providers = $1, validated_providers = $2, needs_review_count = $3, average_confidence = $4
		 WHERE id = $5`,
		progress.Processed, progress.Validated, progress.NeedsReview, progress.AverageConfidence, batchID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: report batch progress %s", batchID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("batch not found: %s", batchID)
	}
	return nil
}

func (s *PostgresStore) CompleteBatch(ctx context.Context, batchID string, status model.BatchStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE validation_batches SET status = $1, completed_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), batchID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete batch %s", batchID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("batch not found: %s", batchID)
	}
	return nil
}

func (s *PostgresStore) GetBatch(ctx context.Context, batchID string) (*model.ValidationBatch, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, total_providers, processed_providers, validated_providers, needs_review_count,
		        status, average_confidence, created_at, started_at, completed_at
		 FROM validation_batches WHERE id = $1`,
		batchID,
	)
	return scanPgBatch(row)
}

func (s *PostgresStore) ListBatches(ctx context.Context, limit int) ([]model.ValidationBatch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, total_providers, processed_providers, validated_providers, needs_review_count,
		        status, average_confidence, created_at, started_at, completed_at
		 FROM validation_batches ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list batches")
	}
	defer rows.Close()

	var batches []model.ValidationBatch
	for rows.Next() {
		b, err := scanPgBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, *b)
	}
	return batches, eris.Wrap(rows.Err(), "postgres: list batches iterate")
}

// BulkImportProviders upserts a roster of providers keyed on npi using the
// COPY-based temp-table path. Providers without an npi are inserted
// one-at-a-time since they have no conflict key.
func (s *PostgresStore) BulkImportProviders(ctx context.Context, providers []model.Provider) (int64, error) {
	now := time.Now().UTC()
	columns := []string{
		"id", "npi", "first_name", "last_name", "middle_name", "specialty", "practice_name",
		"phone", "email", "address_line1", "address_line2", "city", "state", "zip_code",
		"license_number", "license_state", "credentials", "status", "created_at", "updated_at",
	}

	var rows [][]any
	var inserted int64
	for i := range providers {
		p := &providers[i]
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		if p.Status == "" {
			p.Status = model.ProviderStatusPending
		}
		creds, err := marshalCredentials(p)
		if err != nil {
			return inserted, err
		}
		if p.NPI == "" {
			if err := s.CreateProvider(ctx, p); err != nil {
				return inserted, err
			}
			inserted++
			continue
		}
		rows = append(rows, []any{
			p.ID, p.NPI, p.FirstName, p.LastName, p.MiddleName, p.Specialty, p.PracticeName,
			p.Phone, p.Email, p.AddressLine1, p.AddressLine2, p.City, p.State, p.ZipCode,
			p.LicenseNumber, p.LicenseState, []byte(creds), string(p.Status), now, now,
		})
	}

	if len(rows) == 0 {
		return inserted, nil
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "providers",
		Columns:      columns,
		ConflictKeys: []string{"npi"},
		UpdateCols: []string{
			"first_name", "last_name", "middle_name", "specialty", "practice_name",
			"phone", "email", "address_line1", "address_line2", "city", "state", "zip_code",
			"license_number", "license_state", "credentials", "updated_at",
		},
	}, rows)
	if err != nil {
		return inserted, eris.Wrap(err, "postgres: bulk import providers")
	}
	return inserted + n, nil
}

func scanPgProvider(row pgx.Row) (*model.Provider, error) {
	var p model.Provider
	var npi, middle, specialty, practice, phone, email *string
	var line1, line2, city, state, zip, license, licenseState *string
	var creds []byte

	err := row.Scan(&p.ID, &npi, &p.FirstName, &p.LastName, &middle, &specialty, &practice,
		&phone, &email, &line1, &line2, &city, &state, &zip,
		&license, &licenseState, &creds, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.New("provider not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan provider")
	}

	deref := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	deref(&p.NPI, npi)
	deref(&p.MiddleName, middle)
	deref(&p.Specialty, specialty)
	deref(&p.PracticeName, practice)
	deref(&p.Phone, phone)
	deref(&p.Email, email)
	deref(&p.AddressLine1, line1)
	deref(&p.AddressLine2, line2)
	deref(&p.City, city)
	deref(&p.State, state)
	deref(&p.ZipCode, zip)
	deref(&p.LicenseNumber, license)
	deref(&p.LicenseState, licenseState)

	if err := unmarshalCredentials(string(creds), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPgBatch(row pgx.Row) (*model.ValidationBatch, error) {
	var b model.ValidationBatch
	var started, completed *time.Time

	err := row.Scan(&b.ID, &b.Name, &b.TotalProviders, &b.ProcessedProviders,
		&b.ValidatedProviders, &b.NeedsReviewCount, &b.Status, &b.AverageConfidence,
		&b.CreatedAt, &started, &completed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.New("batch not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan batch")
	}

	b.StartedAt = started
	b.CompletedAt = completed
	if b.StartedAt != nil && b.CompletedAt != nil {
		b.ProcessingSeconds = b.CompletedAt.Sub(*b.StartedAt).Seconds()
	}
	return &b, nil
}
