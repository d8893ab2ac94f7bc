package store

import (
	"fmt"

	"github.com/pavelanni/examprep/internal/model"
)

// RecordQuizResult stores a finished quiz attempt.
func (s *Store) RecordQuizResult(r model.QuizResult) error {
	_, err := s.db.Exec(
		`INSERT INTO quiz_results (attempt_id, device, course_id, course_name, difficulty,
			total, correct, incorrect, percentage, tier, elapsed_seconds, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(attempt_id) DO NOTHING`,
		r.AttemptID, r.Device, r.CourseID, r.CourseName, r.Difficulty,
		r.Total, r.Correct, r.Incorrect, r.Percentage, r.Tier, r.Elapsed, r.FinishedAt,
	)
	return err
}

// ListQuizResults returns recorded attempts, oldest first. An empty course
// ID returns attempts for every course.
func (s *Store) ListQuizResults(courseID string) ([]model.QuizResult, error) {
	query := `SELECT attempt_id, device, course_id, course_name, difficulty, total, correct,
		incorrect, percentage, tier, elapsed_seconds, finished_at FROM quiz_results`
	var args []any
	if courseID != "" {
		query += ` WHERE course_id = ?`
		args = append(args, courseID)
	}
	query += ` ORDER BY finished_at, attempt_id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query quiz results: %w", err)
	}
	defer rows.Close()

	var results []model.QuizResult
	for rows.Next() {
		var r model.QuizResult
		if err := rows.Scan(&r.AttemptID, &r.Device, &r.CourseID, &r.CourseName, &r.Difficulty,
			&r.Total, &r.Correct, &r.Incorrect, &r.Percentage, &r.Tier, &r.Elapsed, &r.FinishedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
