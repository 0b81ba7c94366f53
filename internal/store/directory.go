package store

import (
	"context"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/assessd/internal/quiz"
)

const (
	tableCourses     = "courses"
	tableLessons     = "lessons"
	tableEnrollments = "enrollments"
)

func (c *conn) PutCourse(ctx context.Context, course Course) error {
	query, args := c.builder().Insert(tableCourses).
		Columns("id", "title", "instructor_id").
		Values(course.ID, course.Title, course.InstructorID).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := c.exec(ctx, query, args); err != nil {
		return unavailable("put course", err)
	}
	return nil
}

func (c *conn) PutLesson(ctx context.Context, l Lesson) error {
	query, args := c.builder().Insert(tableLessons).
		Columns("id", "course_id", "title", "summary").
		Values(l.ID, l.CourseID, l.Title, l.Summary).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := c.exec(ctx, query, args); err != nil {
		return unavailable("put lesson", err)
	}
	return nil
}

func (c *conn) Enroll(ctx context.Context, courseID, userID string) error {
	query, args := c.builder().Insert(tableEnrollments).
		Columns("course_id", "user_id").
		Values(courseID, userID).
		OnConflict(
			entsql.ConflictColumns("course_id", "user_id"),
			entsql.DoNothing(),
		).
		Query()
	if _, err := c.exec(ctx, query, args); err != nil {
		return unavailable("enroll", err)
	}
	return nil
}

func (c *conn) Course(ctx context.Context, id string) (Course, error) {
	b := c.builder()
	query, args := b.Select("id", "title", "instructor_id").
		From(b.Table(tableCourses)).
		Where(entsql.EQ("id", id)).
		Query()

	var course Course
	found, err := c.queryOne(ctx, query, args, &course.ID, &course.Title, &course.InstructorID)
	if err != nil {
		return Course{}, unavailable("load course", err)
	}
	if !found {
		return Course{}, quiz.ErrCourseNotFound
	}
	return course, nil
}

func (c *conn) Lesson(ctx context.Context, id string) (Lesson, error) {
	b := c.builder()
	query, args := b.Select("id", "course_id", "title", "summary").
		From(b.Table(tableLessons)).
		Where(entsql.EQ("id", id)).
		Query()

	var l Lesson
	found, err := c.queryOne(ctx, query, args, &l.ID, &l.CourseID, &l.Title, &l.Summary)
	if err != nil {
		return Lesson{}, unavailable("load lesson", err)
	}
	if !found {
		return Lesson{}, quiz.ErrLessonNotFound
	}
	return l, nil
}

func (c *conn) IsEnrolled(ctx context.Context, courseID, userID string) (bool, error) {
	b := c.builder()
	query, args := b.Select("course_id").
		From(b.Table(tableEnrollments)).
		Where(entsql.And(
			entsql.EQ("course_id", courseID),
			entsql.EQ("user_id", userID),
		)).
		Limit(1).
		Query()

	var got string
	found, err := c.queryOne(ctx, query, args, &got)
	if err != nil {
		return false, unavailable("check enrollment", err)
	}
	return found, nil
}
