package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"cfcatalyst/internal/domain/model"
)

// ProblemFilter narrows the archive pool before sampling. Tags match any-of;
// ExcludeIDs removes already-solved or already-selected problems.
type ProblemFilter struct {
	MinRating  int
	MaxRating  int
	Tags       []string
	ExcludeIDs []string
	Limit      int
}

type ProblemRepository interface {
	UpsertProblems(ctx context.Context, problems []model.Problem) error
	// SampleProblems draws up to filter.Limit problems uniformly at random
	// from the filtered pool. Unrated problems never match.
	SampleProblems(ctx context.Context, filter ProblemFilter) ([]model.Problem, error)
	// ListProblems pages deterministically through the filtered pool for the
	// browse endpoint. filter.Limit is the page size.
	ListProblems(ctx context.Context, filter ProblemFilter, offset int) ([]model.Problem, int, error)
	CountProblems(ctx context.Context) (int, error)

	UpsertContests(ctx context.Context, contests []model.Contest) error
	// RecentFinishedContestsByFormat returns the most recent finished contests
	// of a format, newest first, with their linked problems populated.
	RecentFinishedContestsByFormat(ctx context.Context, format string, limit int) ([]model.Contest, error)
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

// Tags are stored as a comma-joined TEXT column of slugs and filtered with
// string_to_array overlap, which keeps the driver on plain database/sql types.
func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func splitTags(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, ",")
}

func (r *pgProblemRepository) UpsertProblems(ctx context.Context, problems []model.Problem) error {
	if len(problems) == 0 {
		return nil
	}
	query := `INSERT INTO problems (id, contest_id, problem_index, name, rating, tags, solved_count, synced_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
	          ON CONFLICT (id) DO UPDATE SET
	            name = EXCLUDED.name, rating = EXCLUDED.rating, tags = EXCLUDED.tags,
	            solved_count = EXCLUDED.solved_count, synced_at = CURRENT_TIMESTAMP`
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.UpsertProblems prepare: %w", err)
	}
	defer stmt.Close()

	for _, p := range problems {
		if _, err := stmt.ExecContext(ctx, p.ID, p.ContestID, p.Index, p.Name, p.Rating, joinTags(p.Tags), p.SolvedCount); err != nil {
			return fmt.Errorf("pgProblemRepository.UpsertProblems exec for %s: %w", p.ID, err)
		}
	}
	return nil
}

func (r *pgProblemRepository) SampleProblems(ctx context.Context, filter ProblemFilter) ([]model.Problem, error) {
	var query strings.Builder
	query.WriteString(`SELECT id, contest_id, problem_index, name, rating, tags, solved_count, synced_at
	    FROM problems WHERE rating IS NOT NULL AND rating BETWEEN $1 AND $2`)

	args := []interface{}{filter.MinRating, filter.MaxRating}
	argID := 3

	if len(filter.Tags) > 0 {
		query.WriteString(fmt.Sprintf(" AND string_to_array(tags, ',') && string_to_array($%d, ',')", argID))
		args = append(args, joinTags(filter.Tags))
		argID++
	}
	if len(filter.ExcludeIDs) > 0 {
		query.WriteString(fmt.Sprintf(" AND NOT (id = ANY(string_to_array($%d, ',')))", argID))
		args = append(args, strings.Join(filter.ExcludeIDs, ","))
		argID++
	}

	// Uniform random draw without replacement from the filtered pool.
	query.WriteString(fmt.Sprintf(" ORDER BY random() LIMIT $%d", argID))
	args = append(args, filter.Limit)

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.SampleProblems query: %w", err)
	}
	defer rows.Close()

	return scanProblems(rows)
}

func scanProblems(rows *sql.Rows) ([]model.Problem, error) {
	problems := []model.Problem{}
	for rows.Next() {
		var p model.Problem
		var tags string
		if err := rows.Scan(&p.ID, &p.ContestID, &p.Index, &p.Name, &p.Rating, &tags, &p.SolvedCount, &p.SyncedAt); err != nil {
			return nil, fmt.Errorf("pgProblemRepository scan: %w", err)
		}
		p.Tags = splitTags(tags)
		problems = append(problems, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository rows.Err: %w", err)
	}
	return problems, nil
}

func (r *pgProblemRepository) ListProblems(ctx context.Context, filter ProblemFilter, offset int) ([]model.Problem, int, error) {
	var conditions strings.Builder
	conditions.WriteString(` WHERE rating IS NOT NULL AND rating BETWEEN $1 AND $2`)
	args := []interface{}{filter.MinRating, filter.MaxRating}
	argID := 3

	if len(filter.Tags) > 0 {
		conditions.WriteString(fmt.Sprintf(" AND string_to_array(tags, ',') && string_to_array($%d, ',')", argID))
		args = append(args, joinTags(filter.Tags))
		argID++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM problems`+conditions.String(), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems count: %w", err)
	}

	query := `SELECT id, contest_id, problem_index, name, rating, tags, solved_count, synced_at FROM problems` +
		conditions.String() +
		fmt.Sprintf(" ORDER BY rating ASC, id ASC LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, filter.Limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems query: %w", err)
	}
	defer rows.Close()

	problems, err := scanProblems(rows)
	if err != nil {
		return nil, 0, err
	}
	return problems, total, nil
}

func (r *pgProblemRepository) CountProblems(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM problems`).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgProblemRepository.CountProblems: %w", err)
	}
	return n, nil
}

func (r *pgProblemRepository) UpsertContests(ctx context.Context, contests []model.Contest) error {
	if len(contests) == 0 {
		return nil
	}
	query := `INSERT INTO contests (id, name, format, phase, starts_at)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (id) DO UPDATE SET
	            name = EXCLUDED.name, format = EXCLUDED.format, phase = EXCLUDED.phase, starts_at = EXCLUDED.starts_at`
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.UpsertContests prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range contests {
		if _, err := stmt.ExecContext(ctx, c.ID, c.Name, c.Format, c.Phase, c.StartsAt); err != nil {
			return fmt.Errorf("pgProblemRepository.UpsertContests exec for %d: %w", c.ID, err)
		}
	}
	return nil
}

func (r *pgProblemRepository) RecentFinishedContestsByFormat(ctx context.Context, format string, limit int) ([]model.Contest, error) {
	query := `SELECT id, name, format, phase, starts_at FROM contests
	          WHERE format = $1 AND phase = 'FINISHED'
	          ORDER BY starts_at DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, format, limit)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.RecentFinishedContestsByFormat query: %w", err)
	}
	defer rows.Close()

	contests := []model.Contest{}
	byID := map[int]int{} // contest id -> slice index
	ids := []string{}
	for rows.Next() {
		var c model.Contest
		if err := rows.Scan(&c.ID, &c.Name, &c.Format, &c.Phase, &c.StartsAt); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.RecentFinishedContestsByFormat scan: %w", err)
		}
		byID[c.ID] = len(contests)
		ids = append(ids, strconv.Itoa(c.ID))
		contests = append(contests, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.RecentFinishedContestsByFormat rows.Err: %w", err)
	}
	if len(contests) == 0 {
		return contests, nil
	}

	// Second pass loads all linked problems in one query, avoiding N+1.
	pq := `SELECT id, contest_id, problem_index, name, rating, tags, solved_count, synced_at
	       FROM problems
	       WHERE contest_id = ANY(string_to_array($1, ',')::int[])
	       ORDER BY contest_id, problem_index`
	prows, err := r.db.QueryContext(ctx, pq, strings.Join(ids, ","))
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.RecentFinishedContestsByFormat problems query: %w", err)
	}
	defer prows.Close()

	problems, err := scanProblems(prows)
	if err != nil {
		return nil, err
	}
	for _, p := range problems {
		if i, ok := byID[p.ContestID]; ok {
			contests[i].Problems = append(contests[i].Problems, p)
		}
	}
	return contests, nil
}
