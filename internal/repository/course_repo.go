package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/models"
)

const courseColumns = `id, coach_id, title, description, price, approval_status, admin_notes, rejection_reason, created_at, updated_at`

type CourseInput struct {
	Title       string
	Description *string
	Price       float64
}

type CourseListFilter struct {
	CoachID        int64
	ApprovalStatus string
	Search         string
	Offset         int
	Limit          int
}

type CourseRepository struct {
	db DBTX
}

func NewCourseRepository(db DBTX) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) Create(
	ctx context.Context,
	coachID int64,
	input CourseInput,
) (*models.Course, error) {
	query := fmt.Sprintf(`
		INSERT INTO courses (coach_id, title, description, price, approval_status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING %s
	`, courseColumns)
	return r.scanOne(ctx, query, coachID, input.Title, input.Description, input.Price)
}

// Update rewrites the course content and sends it back through approval.
func (r *CourseRepository) Update(
	ctx context.Context,
	courseID int64,
	input CourseInput,
) (*models.Course, error) {
	query := fmt.Sprintf(`
		UPDATE courses
		SET title = $2, description = $3, price = $4, approval_status = 'pending',
		    admin_notes = NULL, rejection_reason = NULL, updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, courseColumns)
	return r.scanOne(ctx, query, courseID, input.Title, input.Description, input.Price)
}

func (r *CourseRepository) GetByID(ctx context.Context, courseID int64) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1`, courseColumns)
	return r.scanOne(ctx, query, courseID)
}

func (r *CourseRepository) List(
	ctx context.Context,
	filter CourseListFilter,
) ([]models.Course, int, error) {
	args := []any{}
	whereParts := []string{}

	if filter.CoachID > 0 {
		args = append(args, filter.CoachID)
		whereParts = append(whereParts, fmt.Sprintf("coach_id = $%d", len(args)))
	}
	if status := strings.TrimSpace(filter.ApprovalStatus); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("approval_status = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		whereParts = append(whereParts, fmt.Sprintf("title ILIKE $%d", len(args)))
	}

	whereClause := ""
	if len(whereParts) > 0 {
		whereClause = "WHERE " + strings.Join(whereParts, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM courses %s`, whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM courses
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, courseColumns, whereClause, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	courses := make([]models.Course, 0)
	for rows.Next() {
		var course models.Course
		if err := rows.Scan(
			&course.ID,
			&course.CoachID,
			&course.Title,
			&course.Description,
			&course.Price,
			&course.ApprovalStatus,
			&course.AdminNotes,
			&course.RejectionReason,
			&course.CreatedAt,
			&course.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		courses = append(courses, course)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return courses, total, nil
}

func (r *CourseRepository) UpdateApprovalIfPending(
	ctx context.Context,
	courseID int64,
	status string,
	adminNotes *string,
	rejectionReason *string,
) (*models.Course, error) {
	query := fmt.Sprintf(`
		UPDATE courses
		SET approval_status = $2, admin_notes = $3, rejection_reason = $4, updated_at = NOW()
		WHERE id = $1 AND approval_status = 'pending'
		RETURNING %s
	`, courseColumns)
	return r.scanOne(ctx, query, courseID, status, adminNotes, rejectionReason)
}

func (r *CourseRepository) scanOne(
	ctx context.Context,
	query string,
	args ...any,
) (*models.Course, error) {
	var course models.Course
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&course.ID,
		&course.CoachID,
		&course.Title,
		&course.Description,
		&course.Price,
		&course.ApprovalStatus,
		&course.AdminNotes,
		&course.RejectionReason,
		&course.CreatedAt,
		&course.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &course, nil
}
