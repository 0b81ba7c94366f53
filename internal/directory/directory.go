// Package directory answers course, lesson and enrollment lookups for the
// assessment service, optionally through a Redis cache.
package directory

import (
	"context"

	"github.com/abhisek/assessd/internal/store"
)

// Directory is the read side of the course directory.
type Directory interface {
	Course(ctx context.Context, id string) (store.Course, error)
	Lesson(ctx context.Context, id string) (store.Lesson, error)
	IsEnrolled(ctx context.Context, courseID, userID string) (bool, error)
}
