// Package postgres implements the storage gateway on PostgreSQL via sqlx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/woofinder/bot/geo"
	"github.com/m3rciful/woofinder/bot/models"
	"github.com/m3rciful/woofinder/bot/storage"
	"github.com/m3rciful/woofinder/core/logger"
)

// Store is the sqlx-backed gateway. Schema lives in migrations/.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ storage.Store = (*Store)(nil)

// New wraps an open connection pool.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) clock() time.Time {
	return s.now().UTC()
}

func observe(ctx context.Context, op string, start time.Time, err error) {
	attrs := []slog.Attr{
		slog.String("op", op),
		slog.String("status", logger.Status(err)),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		attrs = append(attrs, logger.Err(err))
		logger.Warn(ctx, "db", "db.query", attrs...)
		return
	}
	if logger.ShouldSampleDebug() {
		logger.Debug(ctx, "db", "db.query", attrs...)
	}
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func acknowledged(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotAcknowledged
	}
	return nil
}

// UpsertUser implements storage.Users.
func (s *Store) UpsertUser(ctx context.Context, u models.User) (err error) {
	start := time.Now()
	defer func() { observe(ctx, "users.upsert", start, err) }()
	now := s.clock()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (id) DO UPDATE SET
			chat_id = EXCLUDED.chat_id,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			username = EXCLUDED.username,
			language_code = EXCLUDED.language_code,
			is_bot = EXCLUDED.is_bot,
			is_premium = EXCLUDED.is_premium,
			updated_at = EXCLUDED.updated_at`,
		u.ID, u.ChatID, u.FirstName, u.LastName, u.Username, u.LanguageCode, u.IsBot, u.IsPremium, now)
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", u.ID, err)
	}
	return nil
}

// GetUser implements storage.Users.
func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, storage.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return row.model(), nil
}

// GetUsers implements storage.Users.
func (s *Store) GetUsers(ctx context.Context, ids []int64) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []userRow
	err := s.db.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, pq.Int64Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	out := make([]models.User, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

// ListSpecies implements storage.Species.
func (s *Store) ListSpecies(ctx context.Context) ([]models.Species, error) {
	var rows []speciesRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, name FROM species ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list species: %w", err)
	}
	out := make([]models.Species, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Species{ID: r.ID, Name: r.Name})
	}
	return out, nil
}

// GetSpecies implements storage.Species.
func (s *Store) GetSpecies(ctx context.Context, id string) (models.Species, error) {
	if !validID(id) {
		return models.Species{}, storage.ErrNotFound
	}
	var row speciesRow
	err := s.db.GetContext(ctx, &row, `SELECT id, name FROM species WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Species{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Species{}, fmt.Errorf("get species %s: %w", id, err)
	}
	return models.Species{ID: row.ID, Name: row.Name}, nil
}

// SeedSpecies implements storage.SpeciesSeeder. Existing ids are left untouched.
func (s *Store) SeedSpecies(ctx context.Context, species ...models.Species) (added int, err error) {
	start := time.Now()
	defer func() { observe(ctx, "species.seed", start, err) }()
	for _, sp := range species {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO species (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, sp.ID, sp.Name)
		if err != nil {
			return added, fmt.Errorf("seed species %s: %w", sp.Name, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}
	return added, nil
}

// InsertPet implements storage.Pets.
func (s *Store) InsertPet(ctx context.Context, p models.Pet) (_ models.Pet, err error) {
	start := time.Now()
	defer func() { observe(ctx, "pets.insert", start, err) }()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.clock()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pets (id, owners, name, other_names, birth_date, species_id, size, weight, description, picture_remote_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, pq.Int64Array(p.Owners), p.Name, pq.StringArray(p.OtherNames), p.BirthDate,
		p.SpeciesID, string(p.Size), p.Weight, p.Description, p.PictureRemoteID, p.CreatedAt)
	if err != nil {
		return models.Pet{}, fmt.Errorf("insert pet: %w", err)
	}
	return p, nil
}

// GetPet implements storage.Pets.
func (s *Store) GetPet(ctx context.Context, id string) (models.Pet, error) {
	if !validID(id) {
		return models.Pet{}, storage.ErrNotFound
	}
	var row petRow
	err := s.db.GetContext(ctx, &row, `SELECT `+petColumns+` FROM pets WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Pet{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Pet{}, fmt.Errorf("get pet %s: %w", id, err)
	}
	return row.model(), nil
}

func (s *Store) selectPets(ctx context.Context, query string, args ...any) ([]models.Pet, error) {
	var rows []petRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]models.Pet, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

// ListPetsByOwner implements storage.Pets.
func (s *Store) ListPetsByOwner(ctx context.Context, userID int64, primaryOnly bool) ([]models.Pet, error) {
	cond := `$1 = ANY(owners)`
	if primaryOnly {
		cond = `owners[1] = $1`
	}
	pets, err := s.selectPets(ctx, `SELECT `+petColumns+` FROM pets WHERE `+cond+` ORDER BY lower(name), id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list pets of %d: %w", userID, err)
	}
	return pets, nil
}

// ListPetsByIDs implements storage.Pets.
func (s *Store) ListPetsByIDs(ctx context.Context, ids []string) ([]models.Pet, error) {
	ids = keepValid(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	pets, err := s.selectPets(ctx, `SELECT `+petColumns+` FROM pets WHERE id = ANY($1::uuid[]) ORDER BY lower(name), id`, pq.StringArray(ids))
	if err != nil {
		return nil, fmt.Errorf("list pets by ids: %w", err)
	}
	return pets, nil
}

func keepValid(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			out = append(out, id)
		}
	}
	return out
}

// UpdatePet implements storage.Pets.
func (s *Store) UpdatePet(ctx context.Context, id string, patch storage.PetPatch) (err error) {
	start := time.Now()
	defer func() { observe(ctx, "pets.update", start, err) }()
	if !validID(id) {
		return storage.ErrNotAcknowledged
	}
	sets := []string{"updated_at = $1"}
	args := []any{s.clock()}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.OtherNames != nil {
		add("other_names", pq.StringArray(*patch.OtherNames))
	}
	if patch.BirthDate != nil {
		add("birth_date", *patch.BirthDate)
	}
	if patch.SpeciesID != nil {
		add("species_id", *patch.SpeciesID)
	}
	if patch.Size != nil {
		add("size", string(*patch.Size))
	}
	if patch.Weight != nil {
		add("weight", *patch.Weight)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.PictureRemoteID != nil {
		add("picture_remote_id", *patch.PictureRemoteID)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE pets SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update pet %s: %w", id, err)
	}
	return acknowledged(res)
}

// SetPetOwners implements storage.Pets.
func (s *Store) SetPetOwners(ctx context.Context, id string, owners []int64) (err error) {
	start := time.Now()
	defer func() { observe(ctx, "pets.owners", start, err) }()
	if !validID(id) {
		return storage.ErrNotAcknowledged
	}
	res, err := s.db.ExecContext(ctx, `UPDATE pets SET owners = $1, updated_at = $2 WHERE id = $3`,
		pq.Int64Array(owners), s.clock(), id)
	if err != nil {
		return fmt.Errorf("set owners of %s: %w", id, err)
	}
	return acknowledged(res)
}

// DeletePet implements storage.Pets.
func (s *Store) DeletePet(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { observe(ctx, "pets.delete", start, err) }()
	if !validID(id) {
		return storage.ErrNotAcknowledged
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM pets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete pet %s: %w", id, err)
	}
	return acknowledged(res)
}

// CountPets implements storage.Pets.
func (s *Store) CountPets(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT count(*) FROM pets`); err != nil {
		return 0, fmt.Errorf("count pets: %w", err)
	}
	return n, nil
}

// InsertReport implements storage.Reports.
func (s *Store) InsertReport(ctx context.Context, r models.Report) (_ models.Report, err error) {
	start := time.Now()
	defer func() { observe(ctx, "reports.insert", start, err) }()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.clock()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (id, pet_id, is_active, last_seen_lat, last_seen_lon, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.PetID, r.IsActive, r.LastSeen.Lat, r.LastSeen.Lon, r.CreatedAt)
	if err != nil {
		return models.Report{}, fmt.Errorf("insert report: %w", err)
	}
	return r, nil
}

// GetReport implements storage.Reports.
func (s *Store) GetReport(ctx context.Context, id string) (models.Report, error) {
	if !validID(id) {
		return models.Report{}, storage.ErrNotFound
	}
	var row reportRow
	err := s.db.GetContext(ctx, &row, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Report{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Report{}, fmt.Errorf("get report %s: %w", id, err)
	}
	return row.model(), nil
}

// CountActiveReports implements storage.Reports.
func (s *Store) CountActiveReports(ctx context.Context, petID string) (int, error) {
	if !validID(petID) {
		return 0, nil
	}
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT count(*) FROM reports WHERE pet_id = $1 AND is_active`, petID)
	if err != nil {
		return 0, fmt.Errorf("count active reports of %s: %w", petID, err)
	}
	return n, nil
}

// ActiveReportForPet implements storage.Reports.
func (s *Store) ActiveReportForPet(ctx context.Context, petID string) (models.Report, error) {
	if !validID(petID) {
		return models.Report{}, storage.ErrNotFound
	}
	var row reportRow
	err := s.db.GetContext(ctx, &row, `
		SELECT `+reportColumns+` FROM reports
		WHERE pet_id = $1 AND is_active
		ORDER BY COALESCE(updated_at, created_at) DESC
		LIMIT 1`, petID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Report{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Report{}, fmt.Errorf("active report of %s: %w", petID, err)
	}
	return row.model(), nil
}

func (s *Store) selectReports(ctx context.Context, query string, args ...any) ([]models.Report, error) {
	var rows []reportRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]models.Report, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

// ListReportsForPets implements storage.Reports.
func (s *Store) ListReportsForPets(ctx context.Context, petIDs []string, activeOnly bool) ([]models.Report, error) {
	petIDs = keepValid(petIDs)
	if len(petIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + reportColumns + ` FROM reports WHERE pet_id = ANY($1::uuid[])`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY COALESCE(updated_at, created_at) DESC`
	reports, err := s.selectReports(ctx, query, pq.StringArray(petIDs))
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// haversine angular distance in radians between ($1, $2) and the report's last seen point.
const angularDistanceSQL = `2 * asin(least(1, sqrt(
	power(sin((radians(last_seen_lat) - radians($1)) / 2), 2) +
	cos(radians($1)) * cos(radians(last_seen_lat)) *
	power(sin((radians(last_seen_lon) - radians($2)) / 2), 2))))`

// FindActiveReportsNear implements storage.Reports.
func (s *Store) FindActiveReportsNear(ctx context.Context, q storage.NearQuery) (_ []models.Report, err error) {
	start := time.Now()
	defer func() { observe(ctx, "reports.near", start, err) }()
	args := []any{q.Center.Lat, q.Center.Lon, geo.AngularRadius(q.RadiusKm)}
	conds := []string{"is_active", angularDistanceSQL + " <= $3"}
	if ex := keepValid(q.ExcludePetIDs); len(ex) > 0 {
		args = append(args, pq.StringArray(ex))
		conds = append(conds, fmt.Sprintf("NOT (pet_id = ANY($%d::uuid[]))", len(args)))
	}
	query := `SELECT ` + reportColumns + ` FROM reports WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY COALESCE(updated_at, created_at) DESC`
	reports, err := s.selectReports(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find reports near: %w", err)
	}
	return reports, nil
}

// UpdateReportLocation implements storage.Reports.
func (s *Store) UpdateReportLocation(ctx context.Context, id string, p geo.Point) (err error) {
	start := time.Now()
	defer func() { observe(ctx, "reports.location", start, err) }()
	if !validID(id) {
		return storage.ErrNotAcknowledged
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE reports SET last_seen_lat = $1, last_seen_lon = $2, updated_at = $3 WHERE id = $4`,
		p.Lat, p.Lon, s.clock(), id)
	if err != nil {
		return fmt.Errorf("update report location %s: %w", id, err)
	}
	return acknowledged(res)
}

// SetReportActive implements storage.Reports.
func (s *Store) SetReportActive(ctx context.Context, id string, active bool) (err error) {
	start := time.Now()
	defer func() { observe(ctx, "reports.active", start, err) }()
	if !validID(id) {
		return storage.ErrNotAcknowledged
	}
	res, err := s.db.ExecContext(ctx, `UPDATE reports SET is_active = $1, updated_at = $2 WHERE id = $3`,
		active, s.clock(), id)
	if err != nil {
		return fmt.Errorf("set report %s active: %w", id, err)
	}
	return acknowledged(res)
}

// DeleteReport implements storage.Reports.
func (s *Store) DeleteReport(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { observe(ctx, "reports.delete", start, err) }()
	if !validID(id) {
		return storage.ErrNotAcknowledged
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete report %s: %w", id, err)
	}
	return acknowledged(res)
}

// DeleteReportsForPet implements storage.Reports.
func (s *Store) DeleteReportsForPet(ctx context.Context, petID string) (int, error) {
	if !validID(petID) {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE pet_id = $1`, petID)
	if err != nil {
		return 0, fmt.Errorf("delete reports of %s: %w", petID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// CountReports implements storage.Reports.
func (s *Store) CountReports(ctx context.Context, activeOnly bool) (int, error) {
	query := `SELECT count(*) FROM reports`
	if activeOnly {
		query += ` WHERE is_active`
	}
	var n int
	if err := s.db.GetContext(ctx, &n, query); err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return n, nil
}
