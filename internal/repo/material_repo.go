package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/coursepilot/backend/internal/model"
	appErr "github.com/coursepilot/backend/internal/pkg/errors"
)

// MaterialRepo uses hand-written SQL: the tags array and the partial-update
// paths do not map onto the query builder cleanly.
type MaterialRepo struct {
	db *sql.DB
}

func NewMaterialRepo(db *sql.DB) *MaterialRepo {
	return &MaterialRepo{db: db}
}

const materialColumns = `id, title, description, file_path, file_name, file_type, file_size_bytes,
	category, topic, week_number, tags, content_type, is_indexed, uploaded_by, ctime, mtime`

func (r *MaterialRepo) Create(ctx context.Context, m *model.Material) error {
	const query = `
		INSERT INTO course_materials
			(id, title, description, file_path, file_name, file_type, file_size_bytes,
			 category, topic, week_number, tags, content_type, is_indexed, uploaded_by, ctime, mtime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.Title, m.Description, m.FilePath, m.FileName, m.FileType, m.FileSizeBytes,
		m.Category, m.Topic, nullableInt(m.WeekNumber), pq.Array(m.Tags), m.ContentType,
		m.IsIndexed, m.UploadedBy, m.Ctime, m.Mtime,
	)
	return err
}

func (r *MaterialRepo) GetByID(ctx context.Context, materialID string) (*model.Material, error) {
	query := fmt.Sprintf("SELECT %s FROM course_materials WHERE id = $1", materialColumns)
	row := r.db.QueryRowContext(ctx, query, materialID)
	m, err := scanMaterial(row)
	if err == sql.ErrNoRows {
		return nil, appErr.ErrNotFound
	}
	return m, err
}

// MaterialFilter narrows List results; zero values mean "no filter".
type MaterialFilter struct {
	Category  string
	Week      *int
	Tag       string
	Search    string
	IndexedAt *bool
	Limit     int
	Offset    int
}

func (r *MaterialRepo) List(ctx context.Context, filter MaterialFilter) ([]model.Material, error) {
	conds := []string{"TRUE"}
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Category != "" {
		conds = append(conds, "category = "+arg(filter.Category))
	}
	if filter.Week != nil {
		conds = append(conds, "week_number = "+arg(*filter.Week))
	}
	if filter.Tag != "" {
		conds = append(conds, arg(filter.Tag)+" = ANY(tags)")
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		p := arg(like)
		conds = append(conds, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s OR topic ILIKE %s)", p, p, p))
	}
	if filter.IndexedAt != nil {
		conds = append(conds, "is_indexed = "+arg(*filter.IndexedAt))
	}
	query := fmt.Sprintf("SELECT %s FROM course_materials WHERE %s ORDER BY week_number NULLS LAST, ctime DESC",
		materialColumns, strings.Join(conds, " AND "))
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit) + " OFFSET " + arg(filter.Offset)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	materials := make([]model.Material, 0)
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		materials = append(materials, *m)
	}
	return materials, rows.Err()
}

// Update rewrites the mutable metadata fields; file identity fields are
// immutable after upload.
func (r *MaterialRepo) Update(ctx context.Context, m *model.Material) error {
	const query = `
		UPDATE course_materials
		SET title = $1, description = $2, category = $3, topic = $4,
			week_number = $5, tags = $6, mtime = $7
		WHERE id = $8
	`
	result, err := r.db.ExecContext(ctx, query,
		m.Title, m.Description, m.Category, m.Topic,
		nullableInt(m.WeekNumber), pq.Array(m.Tags), m.Mtime, m.ID,
	)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *MaterialRepo) UpdateIndexed(ctx context.Context, materialID string, indexed bool, mtime int64) error {
	const query = `UPDATE course_materials SET is_indexed = $1, mtime = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, indexed, mtime, materialID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *MaterialRepo) Delete(ctx context.Context, materialID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM course_materials WHERE id = $1", materialID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *MaterialRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM course_materials").Scan(&count)
	return count, err
}

func (r *MaterialRepo) CountIndexed(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM course_materials WHERE is_indexed").Scan(&count)
	return count, err
}

// ListUnindexed returns indexable-candidate materials that have not been
// indexed yet, oldest first.
func (r *MaterialRepo) ListUnindexed(ctx context.Context, limit int) ([]model.Material, error) {
	indexed := false
	return r.List(ctx, MaterialFilter{IndexedAt: &indexed, Limit: limit})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMaterial(row rowScanner) (*model.Material, error) {
	var m model.Material
	var description, topic, contentType, uploadedBy sql.NullString
	var week sql.NullInt64
	var size sql.NullInt64
	err := row.Scan(&m.ID, &m.Title, &description, &m.FilePath, &m.FileName, &m.FileType, &size,
		&m.Category, &topic, &week, pq.Array(&m.Tags), &contentType, &m.IsIndexed, &uploadedBy,
		&m.Ctime, &m.Mtime)
	if err != nil {
		return nil, err
	}
	m.Description = description.String
	m.Topic = topic.String
	m.ContentType = contentType.String
	m.UploadedBy = uploadedBy.String
	m.FileSizeBytes = size.Int64
	if week.Valid {
		w := int(week.Int64)
		m.WeekNumber = &w
	}
	return &m, nil
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}
