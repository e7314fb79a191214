package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/homeroom/internal/model"
	"github.com/google/uuid"
)

type StudentStore struct {
	db *sql.DB
}

func NewStudentStore(db *sql.DB) *StudentStore {
	return &StudentStore{db: db}
}

func scanStudent(s scanner) (*model.Student, error) {
	var st model.Student
	var userID sql.NullString
	err := s.Scan(&st.ID, &st.ParentID, &userID, &st.StudentName, &st.StudentEmail, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		st.UserID = &userID.String
	}
	return &st, nil
}

const studentCols = `id, parent_id, user_id, student_name, student_email, created_at, updated_at`

func (s *StudentStore) Create(ctx context.Context, st model.Student) (*model.Student, error) {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	var userID sql.NullString
	if st.UserID != nil {
		userID = sql.NullString{String: *st.UserID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO students (id, parent_id, user_id, student_name, student_email) VALUES (?, ?, ?, ?, ?)`,
		st.ID, st.ParentID, userID, st.StudentName, st.StudentEmail,
	)
	if err != nil {
		return nil, fmt.Errorf("insert student: %w", err)
	}
	return s.GetByID(ctx, st.ID)
}

func (s *StudentStore) GetByID(ctx context.Context, id string) (*model.Student, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+studentCols+` FROM students WHERE id = ?`, id)
	st, err := scanStudent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	return st, nil
}

func (s *StudentStore) findUnlinked(ctx context.Context, where string, args ...any) (*model.Student, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+studentCols+` FROM students WHERE user_id IS NULL AND `+where+` ORDER BY created_at ASC LIMIT 1`,
		args...,
	)
	st, err := scanStudent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// FindUnlinkedByEmail matches student_email exactly among the parent's
// unclaimed student records.
func (s *StudentStore) FindUnlinkedByEmail(ctx context.Context, parentID, email string) (*model.Student, error) {
	st, err := s.findUnlinked(ctx, `parent_id = ? AND student_email = ?`, parentID, email)
	if err != nil {
		return nil, fmt.Errorf("find student by email: %w", err)
	}
	return st, nil
}

// FindUnlinkedByName matches student_name ignoring case among the parent's
// unclaimed student records. Folding happens in Go because SQLite's NOCASE
// only folds ASCII.
func (s *StudentStore) FindUnlinkedByName(ctx context.Context, parentID, name string) (*model.Student, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+studentCols+` FROM students WHERE user_id IS NULL AND parent_id = ? ORDER BY created_at ASC`,
		parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("find student by name: %w", err)
	}
	defer rows.Close()

	want := strings.TrimSpace(name)
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		if strings.EqualFold(strings.TrimSpace(st.StudentName), want) {
			return st, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find student by name: %w", err)
	}
	return nil, nil
}

// LinkAccount is the link_student_account function: it claims an unlinked
// student record for userID.
func (s *StudentStore) LinkAccount(ctx context.Context, studentID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE students SET user_id = ? WHERE id = ? AND user_id IS NULL`,
		userID, studentID,
	)
	if err != nil {
		return fmt.Errorf("link student account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("unlinked student %s: %w", studentID, ErrNotFound)
	}
	return nil
}

func (s *StudentStore) ListByParent(ctx context.Context, parentID string) ([]model.Student, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+studentCols+` FROM students WHERE parent_id = ? ORDER BY student_name ASC`,
		parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, *st)
	}
	return students, rows.Err()
}
