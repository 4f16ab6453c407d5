package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/directory-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS providers (
	id             TEXT PRIMARY KEY,
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
	credentials    TEXT,
	status         TEXT NOT NULL DEFAULT 'pending',
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS validation_results (
	id                 TEXT PRIMARY KEY,
	provider_id        TEXT NOT NULL REFERENCES providers(id),
	field_name         TEXT NOT NULL,
	original_value     TEXT,
	validated_value    TEXT,
	confidence         REAL NOT NULL,
	source             TEXT NOT NULL,
	status             TEXT NOT NULL,
	discrepancy_reason TEXT,
	validated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS validation_batches (
	id                  TEXT PRIMARY KEY,
	name                TEXT NOT NULL,
	total_providers     INTEGER NOT NULL DEFAULT 0,
	processed_providers INTEGER NOT NULL DEFAULT 0,
	validated_providers INTEGER NOT NULL DEFAULT 0,
	needs_review_count  INTEGER NOT NULL DEFAULT 0,
	status              TEXT NOT NULL DEFAULT 'pending',
	average_confidence  REAL NOT NULL DEFAULT 0,
	created_at          DATETIME NOT NULL DEFAULT (datetime('now')),
	started_at          DATETIME,
	completed_at        DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_providers_npi ON providers(npi) WHERE npi IS NOT NULL AND npi != '';
CREATE INDEX IF NOT EXISTS idx_providers_status ON providers(status);
CREATE INDEX IF NOT EXISTS idx_providers_state ON providers(state);
CREATE INDEX IF NOT EXISTS idx_validation_results_provider ON validation_results(provider_id);
CREATE INDEX IF NOT EXISTS idx_validation_batches_status ON validation_batches(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const providerColumns = `id, npi, first_name, last_name, middle_name, specialty, practice_name,
	phone, email, address_line1, address_line2, city, state, zip_code,
	license_number, license_state, credentials, status, created_at, updated_at`

// credentials groups the collection fields into one JSON column so the
// provider row stays flat.
type credentials struct {
	BoardCertifications []string `json:"board_certifications,omitempty"`
	Education           []string `json:"education,omitempty"`
	InsuranceNetworks   []string `json:"insurance_networks,omitempty"`
	Affiliations        []string `json:"affiliations,omitempty"`
}

func marshalCredentials(p *model.Provider) (string, error) {
	b, err := json.Marshal(credentials{
		BoardCertifications: p.BoardCertifications,
		Education:           p.Education,
		InsuranceNetworks:   p.InsuranceNetworks,
		Affiliations:        p.Affiliations,
	})
	if err != nil {
		return "", eris.Wrap(err, "store: marshal credentials")
	}
	return string(b), nil
}

func unmarshalCredentials(raw string, p *model.Provider) error {
	if raw == "" {
		return nil
	}
	var c credentials
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return eris.Wrap(err, "store: unmarshal credentials")
	}
	p.BoardCertifications = c.BoardCertifications
	p.Education = c.Education
	p.InsuranceNetworks = c.InsuranceNetworks
	p.Affiliations = c.Affiliations
	return nil
}

func (s *SQLiteStore) CreateProvider(ctx context.Context, p *model.Provider) error {
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

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO providers (`+providerColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.NPI, p.FirstName, p.LastName, p.MiddleName, p.Specialty, p.PracticeName,
		p.Phone, p.Email, p.AddressLine1, p.AddressLine2, p.City, p.State, p.ZipCode,
		p.LicenseNumber, p.LicenseState, creds, string(p.Status), p.CreatedAt, p.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert provider %s", p.ID)
}

func (s *SQLiteStore) GetProvider(ctx context.Context, id string) (*model.Provider, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+providerColumns+` FROM providers WHERE id = ?`, id)
	return scanProvider(row)
}

func (s *SQLiteStore) GetProviderByNPI(ctx context.Context, npi string) (*model.Provider, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+providerColumns+` FROM providers WHERE npi = ?`, npi)
	return scanProvider(row)
}

func (s *SQLiteStore) ListProviders(ctx context.Context, filter ProviderFilter) ([]model.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.State != "" {
		query += ` AND state = ?`
		args = append(args, filter.State)
	}
	if filter.Specialty != "" {
		query += ` AND specialty LIKE ?`
		args = append(args, "%"+filter.Specialty+"%")
	}
	query += ` ORDER BY last_name, first_name`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list providers")
	}
	defer rows.Close()

	var providers []model.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		providers = append(providers, *p)
	}
	return providers, eris.Wrap(rows.Err(), "sqlite: list providers iterate")
}

func (s *SQLiteStore) UpdateProvider(ctx context.Context, p *model.Provider) error {
	p.UpdatedAt = time.Now().UTC()

	creds, err := marshalCredentials(p)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE providers SET
			npi = ?, first_name = ?, last_name = ?, middle_name = ?, specialty = ?, practice_name = ?,
			phone = ?, email = ?, address_line1 = ?, address_line2 = ?, city = ?, state = ?, zip_code = ?,
			license_number = ?, license_state = ?, credentials = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		p.NPI, p.FirstName, p.LastName, p.MiddleName, p.Specialty, p.PracticeName,
		p.Phone, p.Email, p.AddressLine1, p.AddressLine2, p.City, p.State, p.ZipCode,
		p.LicenseNumber, p.LicenseState, creds, string(p.Status), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update provider %s", p.ID)
	}
	return checkRowsAffected(res, "provider", p.ID)
}

func (s *SQLiteStore) UpdateProviderStatus(ctx context.Context, id string, status model.ProviderStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE providers SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update provider status %s", id)
	}
	return checkRowsAffected(res, "provider", id)
}

func (s *SQLiteStore) SaveValidations(ctx context.Context, providerID string, validations []model.FieldValidation) error {
	if len(validations) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin validations tx")
	}
	defer tx.Rollback()

	for _, v := range validations {
		id := v.ID
		if id == "" {
			id = uuid.New().String()
		}
		validatedAt := v.ValidatedAt
		if validatedAt.IsZero() {
			validatedAt = time.Now().UTC()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO validation_results
			 (id, provider_id, field_name, original_value, validated_value, confidence, source, status, discrepancy_reason, validated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, providerID, v.FieldName, v.OriginalValue, v.ValidatedValue,
			v.Confidence, v.Source, string(v.Status), v.DiscrepancyReason, validatedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert validation %s for provider %s", v.FieldName, providerID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit validations")
}

func (s *SQLiteStore) ListValidations(ctx context.Context, providerID string) ([]model.FieldValidation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, provider_id, field_name, original_value, validated_value, confidence, source, status, discrepancy_reason, validated_at
		 FROM validation_results WHERE provider_id = ? ORDER BY validated_at, id`,
		providerID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list validations")
	}
	defer rows.Close()

	var validations []model.FieldValidation
	for rows.Next() {
		var v model.FieldValidation
		var original, validated, reason sql.NullString
		if err := rows.Scan(&v.ID, &v.ProviderID, &v.FieldName, &original, &validated,
			&v.Confidence, &v.Source, &v.Status, &reason, &v.ValidatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan validation")
		}
		v.OriginalValue = original.String
		v.ValidatedValue = validated.String
		v.DiscrepancyReason = reason.String
		validations = append(validations, v)
	}
	return validations, eris.Wrap(rows.Err(), "sqlite: list validations iterate")
}

func (s *SQLiteStore) CreateBatch(ctx context.Context, name string, totalProviders int) (*model.ValidationBatch, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO validation_batches (id, name, total_providers, status, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, name, totalProviders, string(model.BatchPending), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert batch")
	}

	return &model.ValidationBatch{
		ID:             id,
		Name:           name,
		TotalProviders: totalProviders,
		Status:         model.BatchPending,
		CreatedAt:      now,
	}, nil
}

func (s *SQLiteStore) StartBatch(ctx context.Context, batchID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE validation_batches SET status = ?, started_at = ? WHERE id = ?`,
		string(model.BatchProcessing), time.Now().UTC(), batchID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: start batch %s", batchID)
	}
	return checkRowsAffected(res, "batch", batchID)
}

func (s *SQLiteStore) ReportBatchProgress(ctx context.Context, batchID string, progress model.BatchProgress) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE validation_batches
		 SET processed_providers = ?, validated_providers = ?, needs_review_count = ?, average_confidence = ?
		 WHERE id = ?`,
		progress.Processed, progress.Validated, progress.NeedsReview, progress.AverageConfidence, batchID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: report batch progress %s", batchID)
	}
	return checkRowsAffected(res, "batch", batchID)
}

func (s *SQLiteStore) CompleteBatch(ctx context.Context, batchID string, status model.BatchStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE validation_batches SET status = ?, completed_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), batchID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete batch %s", batchID)
	}
	return checkRowsAffected(res, "batch", batchID)
}

func (s *SQLiteStore) GetBatch(ctx context.Context, batchID string) (*model.ValidationBatch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, total_providers, processed_providers, validated_providers, needs_review_count,
		        status, average_confidence, created_at, started_at, completed_at
		 FROM validation_batches WHERE id = ?`,
		batchID,
	)
	return scanBatch(row)
}

func (s *SQLiteStore) ListBatches(ctx context.Context, limit int) ([]model.ValidationBatch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, total_providers, processed_providers, validated_providers, needs_review_count,
		        status, average_confidence, created_at, started_at, completed_at
		 FROM validation_batches ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list batches")
	}
	defer rows.Close()

	var batches []model.ValidationBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, *b)
	}
	return batches, eris.Wrap(rows.Err(), "sqlite: list batches iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanProvider(row scannable) (*model.Provider, error) {
	var p model.Provider
	var npi, middle, specialty, practice, phone, email sql.NullString
	var line1, line2, city, state, zip, license, licenseState, creds sql.NullString

	err := row.Scan(&p.ID, &npi, &p.FirstName, &p.LastName, &middle, &specialty, &practice,
		&phone, &email, &line1, &line2, &city, &state, &zip,
		&license, &licenseState, &creds, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("provider not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan provider")
	}

	p.NPI = npi.String
	p.MiddleName = middle.String
	p.Specialty = specialty.String
	p.PracticeName = practice.String
	p.Phone = phone.String
	p.Email = email.String
	p.AddressLine1 = line1.String
	p.AddressLine2 = line2.String
	p.City = city.String
	p.State = state.String
	p.ZipCode = zip.String
	p.LicenseNumber = license.String
	p.LicenseState = licenseState.String

	if err := unmarshalCredentials(creds.String, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanBatch(row scannable) (*model.ValidationBatch, error) {
	var b model.ValidationBatch
	var started, completed sql.NullTime

	err := row.Scan(&b.ID, &b.Name, &b.TotalProviders, &b.ProcessedProviders,
		&b.ValidatedProviders, &b.NeedsReviewCount, &b.Status, &b.AverageConfidence,
		&b.CreatedAt, &started, &completed)
	if err == sql.ErrNoRows {
		return nil, eris.New("batch not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan batch")
	}

	if started.Valid {
		b.StartedAt = &started.Time
	}
	if completed.Valid {
		b.CompletedAt = &completed.Time
	}
	if b.StartedAt != nil && b.CompletedAt != nil {
		b.ProcessingSeconds = b.CompletedAt.Sub(*b.StartedAt).Seconds()
	}
	return &b, nil
}
