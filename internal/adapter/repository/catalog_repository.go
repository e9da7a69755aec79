package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/repository"
)

type catalogRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewCatalogRepository reads courses and users from the shared database
func NewCatalogRepository(db *gorm.DB, logger *zap.Logger) repository.CatalogRepository {
	return &catalogRepository{db: db, logger: logger}
}

func (r *catalogRepository) GetCourse(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	if err := conn(ctx, r.db).Where("id = ?", id).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return &course, nil
}

func (r *catalogRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := conn(ctx, r.db).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

type enrollmentRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewEnrollmentRepository creates a new enrollment repository
func NewEnrollmentRepository(db *gorm.DB, logger *zap.Logger) repository.EnrollmentRepository {
	return &enrollmentRepository{db: db, logger: logger}
}

// UpsertPaused creates a paused enrollment or relinks an existing one to
// the order. The status of an existing enrollment is left alone.
func (r *enrollmentRepository) UpsertPaused(ctx context.Context, userID, courseID, orderID string) error {
	enrollment := model.Enrollment{
		ID:       uuid.NewString(),
		UserID:   userID,
		CourseID: courseID,
		OrderID:  &orderID,
		Status:   model.EnrollmentStatusPaused,
	}

	err := conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"order_id":   orderID,
			"updated_at": time.Now(),
		}),
	}).Create(&enrollment).Error
	if err != nil {
		r.logger.Error("Failed to upsert enrollment",
			zap.String("user_id", userID),
			zap.String("course_id", courseID),
			zap.Error(err))
		return fmt.Errorf("failed to upsert enrollment: %w", err)
	}
	return nil
}
