package skill

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"skillswap/internal/db"
)

var ErrNotFound = errors.New("skill not found")

const skillColumns = `id, title, description, category, level, can_teach, want_learn, created_at, updated_at`

type Repository struct {
	db db.DBTX
}

func NewRepository(database db.DBTX) *Repository {
	return &Repository{db: database}
}

func (r *Repository) List(ctx context.Context, filter Filter) ([]Skill, error) {
	var (
		conditions []string
		args       []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if filter.Category != nil {
		add("category", string(*filter.Category))
	}
	if filter.Level != nil {
		add("level", string(*filter.Level))
	}
	if filter.CanTeach != nil {
		add("can_teach", *filter.CanTeach)
	}
	if filter.WantLearn != nil {
		add("want_learn", *filter.WantLearn)
	}

	query := `SELECT ` + skillColumns + ` FROM skills`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query skills: %w", err)
	}
	defer rows.Close()

	skills := make([]Skill, 0)
	for rows.Next() {
		s, err := scanSkill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		skills = append(skills, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skills: %w", err)
	}

	return skills, nil
}

func (r *Repository) Get(ctx context.Context, id string) (Skill, error) {
	row := r.db.QueryRow(ctx, `SELECT `+skillColumns+` FROM skills WHERE id = $1`, id)
	s, err := scanSkill(row)
	if err != nil {
		return Skill{}, notFoundOr(err, "get skill")
	}
	return s, nil
}

// Create inserts the skill and links it to ownerID in one statement.
func (r *Repository) Create(ctx context.Context, ownerID string, input Input) (Skill, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Skill{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := time.Now().UTC()
	row := r.db.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO skills (id, title, description, category, level, can_teach, want_learn, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
			RETURNING `+skillColumns+`
		), link AS (
			INSERT INTO user_skills (user_id, skill_id)
			SELECT $9, id FROM inserted
		)
		SELECT `+skillColumns+` FROM inserted
	`, id.String(), input.Title, input.Description, string(input.Category), string(input.Level), input.CanTeach, input.WantLearn, now, ownerID)

	s, err := scanSkill(row)
	if err != nil {
		return Skill{}, fmt.Errorf("insert skill: %w", err)
	}
	return s, nil
}

func (r *Repository) Update(ctx context.Context, id string, patch Patch) (Skill, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE skills
		SET title = COALESCE($2, title),
			description = COALESCE($3, description),
			category = COALESCE($4, category),
			level = COALESCE($5, level),
			can_teach = COALESCE($6, can_teach),
			want_learn = COALESCE($7, want_learn),
			updated_at = $8
		WHERE id = $1
		RETURNING `+skillColumns,
		id, patch.Title, patch.Description, categoryArg(patch.Category), levelArg(patch.Level), patch.CanTeach, patch.WantLearn, time.Now().UTC())

	s, err := scanSkill(row)
	if err != nil {
		return Skill{}, notFoundOr(err, "update skill")
	}
	return s, nil
}

// Delete returns the row it removed.
func (r *Repository) Delete(ctx context.Context, id string) (Skill, error) {
	row := r.db.QueryRow(ctx, `DELETE FROM skills WHERE id = $1 RETURNING `+skillColumns, id)
	s, err := scanSkill(row)
	if err != nil {
		return Skill{}, notFoundOr(err, "delete skill")
	}
	return s, nil
}

func scanSkill(row pgx.Row) (Skill, error) {
	var s Skill
	var category, level string
	err := row.Scan(&s.ID, &s.Title, &s.Description, &category, &level, &s.CanTeach, &s.WantLearn, &s.CreatedAt, &s.UpdatedAt)
	s.Category = Category(category)
	s.Level = Level(level)
	return s, err
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func categoryArg(c *Category) *string {
	if c == nil {
		return nil
	}
	v := string(*c)
	return &v
}

func levelArg(l *Level) *string {
	if l == nil {
		return nil
	}
	v := string(*l)
	return &v
}
