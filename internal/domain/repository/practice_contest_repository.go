package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"cfcatalyst/internal/common"
	"cfcatalyst/internal/domain/model"
)

type PracticeContestRepository interface {
	Create(ctx context.Context, tx *sql.Tx, c *model.PracticeContest) error
	FindByID(ctx context.Context, id string) (*model.PracticeContest, error)
	// FindByIDForUpdate locks the contest row for the duration of the
	// transaction so concurrent completions and syncs serialize.
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.PracticeContest, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.PracticeContest, int, error)
	UpdateLifecycle(ctx context.Context, tx *sql.Tx, c *model.PracticeContest) error
	// MarkProblemSolved records a solve; a problem already solved is never
	// overwritten, so replayed syncs keep the earliest solve time.
	MarkProblemSolved(ctx context.Context, tx *sql.Tx, contestID, problemID string, solveTimeSeconds int) error
	// MarkEditorialAccessed is one-way; the flag is never cleared.
	MarkEditorialAccessed(ctx context.Context, contestID, problemID string) error
	ListOngoingIDs(ctx context.Context) ([]string, error)
}

type pgPracticeContestRepository struct {
	db *sql.DB
}

func NewPgPracticeContestRepository(db *sql.DB) PracticeContestRepository {
	return &pgPracticeContestRepository{db: db}
}

func (r *pgPracticeContestRepository) Create(ctx context.Context, tx *sql.Tx, c *model.PracticeContest) error {
	params, err := json.Marshal(c.Params)
	if err != nil {
		return fmt.Errorf("pgPracticeContestRepository.Create marshal params: %w", err)
	}

	query := `INSERT INTO practice_contests (id, user_id, status, duration_minutes, params)
	          VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, query, c.ID, c.UserID, c.Status, c.DurationMinutes, params); err != nil {
		return fmt.Errorf("pgPracticeContestRepository.Create contest: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO practice_problems (contest_id, problem_id, position, solved, editorial_accessed)
	                                     VALUES ($1, $2, $3, FALSE, FALSE)`)
	if err != nil {
		return fmt.Errorf("pgPracticeContestRepository.Create prepare problems: %w", err)
	}
	defer stmt.Close()

	for _, p := range c.Problems {
		if _, err := stmt.ExecContext(ctx, c.ID, p.ProblemID, p.Position); err != nil {
			return fmt.Errorf("pgPracticeContestRepository.Create problem %s: %w", p.ProblemID, err)
		}
	}
	return nil
}

const contestColumns = `id, user_id, status, duration_minutes, started_at, ends_at, completed_at,
	performance, rating_delta, params, leaderboard, created_at, updated_at`

func (r *pgPracticeContestRepository) FindByID(ctx context.Context, id string) (*model.PracticeContest, error) {
	query := fmt.Sprintf(`SELECT %s FROM practice_contests WHERE id = $1`, contestColumns)
	c, err := r.scanContest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadProblems(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *pgPracticeContestRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.PracticeContest, error) {
	query := fmt.Sprintf(`SELECT %s FROM practice_contests WHERE id = $1 FOR UPDATE`, contestColumns)
	c, err := r.scanContest(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadProblems(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *pgPracticeContestRepository) scanContest(row rowScanner) (*model.PracticeContest, error) {
	c := &model.PracticeContest{}
	var params []byte
	var leaderboard []byte
	err := row.Scan(
		&c.ID, &c.UserID, &c.Status, &c.DurationMinutes, &c.StartedAt, &c.EndsAt, &c.CompletedAt,
		&c.Performance, &c.RatingDelta, &params, &leaderboard, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgPracticeContestRepository.scanContest: %w", err)
	}
	if err := json.Unmarshal(params, &c.Params); err != nil {
		return nil, fmt.Errorf("pgPracticeContestRepository.scanContest params: %w", err)
	}
	if len(leaderboard) > 0 {
		c.Leaderboard = &model.LeaderboardEntry{}
		if err := json.Unmarshal(leaderboard, c.Leaderboard); err != nil {
			return nil, fmt.Errorf("pgPracticeContestRepository.scanContest leaderboard: %w", err)
		}
	}
	return c, nil
}

func (r *pgPracticeContestRepository) loadProblems(ctx context.Context, c *model.PracticeContest) error {
	query := `SELECT pp.problem_id, pp.position, pp.solved, pp.solve_time_seconds, pp.editorial_accessed,
	                 p.contest_id, p.problem_index, p.name, p.rating, p.tags, p.solved_count, p.synced_at
	          FROM practice_problems pp
	          JOIN problems p ON pp.problem_id = p.id
	          WHERE pp.contest_id = $1
	          ORDER BY pp.position ASC`
	rows, err := r.db.QueryContext(ctx, query, c.ID)
	if err != nil {
		return fmt.Errorf("pgPracticeContestRepository.loadProblems query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pp model.PracticeProblem
		var tags string
		if err := rows.Scan(&pp.ProblemID, &pp.Position, &pp.Solved, &pp.SolveTimeSeconds, &pp.EditorialAccessed,
			&pp.Problem.ContestID, &pp.Problem.Index, &pp.Problem.Name, &pp.Problem.Rating, &tags,
			&pp.Problem.SolvedCount, &pp.Problem.SyncedAt); err != nil {
			return fmt.Errorf("pgPracticeContestRepository.loadProblems scan: %w", err)
		}
		pp.Problem.ID = pp.ProblemID
		pp.Problem.Tags = splitTags(tags)
		c.Problems = append(c.Problems, pp)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("pgPracticeContestRepository.loadProblems rows.Err: %w", err)
	}
	return nil
}

func (r *pgPracticeContestRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.PracticeContest, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM practice_contests WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgPracticeContestRepository.ListByUser count: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM practice_contests WHERE user_id = $1
	                      ORDER BY created_at DESC LIMIT $2 OFFSET $3`, contestColumns)
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgPracticeContestRepository.ListByUser query: %w", err)
	}
	defer rows.Close()

	contests := []model.PracticeContest{}
	for rows.Next() {
		c, err := r.scanContest(rows)
		if err != nil {
			return nil, 0, err
		}
		contests = append(contests, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgPracticeContestRepository.ListByUser rows.Err: %w", err)
	}
	return contests, total, nil
}

func (r *pgPracticeContestRepository) UpdateLifecycle(ctx context.Context, tx *sql.Tx, c *model.PracticeContest) error {
	var leaderboard []byte
	if c.Leaderboard != nil {
		var err error
		leaderboard, err = json.Marshal(c.Leaderboard)
		if err != nil {
			return fmt.Errorf("pgPracticeContestRepository.UpdateLifecycle marshal leaderboard: %w", err)
		}
	}
	params, err := json.Marshal(c.Params)
	if err != nil {
		return fmt.Errorf("pgPracticeContestRepository.UpdateLifecycle marshal params: %w", err)
	}

	query := `UPDATE practice_contests SET
	            status = $1, started_at = $2, ends_at = $3, completed_at = $4,
	            performance = $5, rating_delta = $6, params = $7, leaderboard = $8,
	            updated_at = CURRENT_TIMESTAMP
	          WHERE id = $9`
	if _, err := tx.ExecContext(ctx, query, c.Status, c.StartedAt, c.EndsAt, c.CompletedAt,
		c.Performance, c.RatingDelta, params, leaderboard, c.ID); err != nil {
		return fmt.Errorf("pgPracticeContestRepository.UpdateLifecycle: %w", err)
	}
	return nil
}

func (r *pgPracticeContestRepository) MarkProblemSolved(ctx context.Context, tx *sql.Tx, contestID, problemID string, solveTimeSeconds int) error {
	query := `UPDATE practice_problems SET solved = TRUE, solve_time_seconds = $3
	          WHERE contest_id = $1 AND problem_id = $2 AND solved = FALSE`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, contestID, problemID, solveTimeSeconds)
	} else {
		_, err = r.db.ExecContext(ctx, query, contestID, problemID, solveTimeSeconds)
	}
	if err != nil {
		return fmt.Errorf("pgPracticeContestRepository.MarkProblemSolved: %w", err)
	}
	return nil
}

func (r *pgPracticeContestRepository) MarkEditorialAccessed(ctx context.Context, contestID, problemID string) error {
	query := `UPDATE practice_problems SET editorial_accessed = TRUE
	          WHERE contest_id = $1 AND problem_id = $2`
	if _, err := r.db.ExecContext(ctx, query, contestID, problemID); err != nil {
		return fmt.Errorf("pgPracticeContestRepository.MarkEditorialAccessed: %w", err)
	}
	return nil
}

func (r *pgPracticeContestRepository) ListOngoingIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM practice_contests WHERE status = $1`, model.ContestOngoing)
	if err != nil {
		return nil, fmt.Errorf("pgPracticeContestRepository.ListOngoingIDs query: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgPracticeContestRepository.ListOngoingIDs scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgPracticeContestRepository.ListOngoingIDs rows.Err: %w", err)
	}
	return ids, nil
}
