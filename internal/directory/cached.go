package directory

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/abhisek/assessd/internal/store"
)

// Cached is a cache-aside Directory. Courses and lessons are kept in Redis
// hashes; enrollment always goes to the backing directory because a stale
// answer would let an unenrolled user write attempts.
//
//	HSET course:{id} title {title} instructor_id {id}
//	HSET lesson:{id} course_id {id} title {title} summary {summary}
type Cached struct {
	client *redis.Client
	next   Directory
	ttl    time.Duration
	log    *slog.Logger
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewCached wraps next. A ttl of zero stores entries without expiry.
func NewCached(client *redis.Client, next Directory, ttl time.Duration, log *slog.Logger) *Cached {
	if log == nil {
		log = slog.Default()
	}
	return &Cached{
		client: client,
		next:   next,
		ttl:    ttl,
		log:    log,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Cached) Course(ctx context.Context, id string) (store.Course, error) {
	key := courseKey(id)
	if fields, ok := c.lookup(ctx, key); ok {
		return store.Course{ID: id, Title: fields["title"], InstructorID: fields["instructor_id"]}, nil
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		// The result is shared with every waiter, so the first caller
		// canceling must not fail the others.
		ctx := context.WithoutCancel(ctx)
		if fields, ok := c.lookup(ctx, key); ok {
			return store.Course{ID: id, Title: fields["title"], InstructorID: fields["instructor_id"]}, nil
		}
		course, err := c.next.Course(ctx, id)
		if err != nil {
			return store.Course{}, err
		}
		c.fill(ctx, key, "title", course.Title, "instructor_id", course.InstructorID)
		return course, nil
	})
	if err != nil {
		return store.Course{}, err
	}
	return v.(store.Course), nil
}

func (c *Cached) Lesson(ctx context.Context, id string) (store.Lesson, error) {
	key := lessonKey(id)
	if fields, ok := c.lookup(ctx, key); ok {
		return lessonFrom(id, fields), nil
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		if fields, ok := c.lookup(ctx, key); ok {
			return lessonFrom(id, fields), nil
		}
		lesson, err := c.next.Lesson(ctx, id)
		if err != nil {
			return store.Lesson{}, err
		}
		c.fill(ctx, key, "course_id", lesson.CourseID, "title", lesson.Title, "summary", lesson.Summary)
		return lesson, nil
	})
	if err != nil {
		return store.Lesson{}, err
	}
	return v.(store.Lesson), nil
}

func (c *Cached) IsEnrolled(ctx context.Context, courseID, userID string) (bool, error) {
	return c.next.IsEnrolled(ctx, courseID, userID)
}

// Invalidate drops cached entries for the given course and lessons.
func (c *Cached) Invalidate(ctx context.Context, courseIDs, lessonIDs []string) error {
	keys := make([]string, 0, len(courseIDs)+len(lessonIDs))
	for _, id := range courseIDs {
		keys = append(keys, courseKey(id))
	}
	for _, id := range lessonIDs {
		keys = append(keys, lessonKey(id))
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// lookup reads a cached hash. Redis errors count as a miss.
func (c *Cached) lookup(ctx context.Context, key string) (map[string]string, bool) {
	fields, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		c.log.Warn("directory cache read failed", "key", key, "error", err)
		return nil, false
	}
	return fields, len(fields) > 0
}

func (c *Cached) fill(ctx context.Context, key string, values ...string) {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, args...)
	if ttl := c.ttlWithJitter(); ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("directory cache write failed", "key", key, "error", err)
	}
}

func (c *Cached) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func lessonFrom(id string, fields map[string]string) store.Lesson {
	return store.Lesson{ID: id, CourseID: fields["course_id"], Title: fields["title"], Summary: fields["summary"]}
}

func courseKey(id string) string { return "course:" + id }
func lessonKey(id string) string { return "lesson:" + id }
