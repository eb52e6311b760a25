package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/site-reservation/internal/metrics"
	"github.com/iliyamo/site-reservation/internal/model"
	"github.com/iliyamo/site-reservation/internal/repository"
)

// CourseRegistrar enrols a user in a course atomically.
type CourseRegistrar interface {
	Register(ctx context.Context, courseID, userID uint64) (*model.Course, error)
}

// CourseService wraps registration with logging and metrics.
type CourseService struct {
	store   CourseRegistrar
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewCourseService(store CourseRegistrar, logger *zap.Logger, m *metrics.Metrics) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{store: store, logger: logger, metrics: m}
}

// Register returns the repository sentinels unchanged: ErrNotFound,
// ErrAlreadyRegistered, ErrCourseClosed and ErrCourseFull.
func (s *CourseService) Register(ctx context.Context, courseID, userID uint64) (*model.Course, error) {
	c, err := s.store.Register(ctx, courseID, userID)
	label := registrationOutcome(err)
	s.metrics.RegistrationOutcome(label)
	if label == "error" {
		s.logger.Error("course registration failed",
			zap.Uint64("course_id", courseID), zap.Uint64("user_id", userID), zap.Error(err))
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("course registration",
		zap.Uint64("course_id", courseID), zap.Uint64("user_id", userID),
		zap.Uint32("total_registered", c.TotalRegistered))
	return c, nil
}

func registrationOutcome(err error) string {
	switch {
	case err == nil:
		return "registered"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, repository.ErrCourseFull):
		return "full"
	case errors.Is(err, repository.ErrCourseClosed):
		return "closed"
	}
	return "error"
}
