package store

import "github.com/coursehub/apiserver/internal/query"

// Declared query fields per resource. Every declared field can be used as
// an exact-match filter and is covered by search; only id is sortable.
var (
	AccountSchema = query.MustSchema("accounts",
		query.PrimaryKey(),
		query.TextField("username", "username"),
	)

	CourseSchema = query.MustSchema("courses",
		query.PrimaryKey(),
		query.TextField("name", "name"),
		query.TextField("description", "description"),
		query.TextField("author", "author"),
	)

	UserProfileSchema = query.MustSchema("user_profiles",
		query.PrimaryKey(),
		query.TextField("name", "name"),
		query.TextField("teacher", "teacher"),
		query.IntField("user", "user_id"),
	)

	LessonSchema = query.MustSchema("lessons",
		query.PrimaryKey(),
		query.TextField("name", "name"),
		query.TextField("text", "text"),
		query.TextField("lesson_recording_url", "lesson_recording_url"),
	)

	EnrollmentSchema = query.MustSchema("enrollments",
		query.PrimaryKey(),
		query.SetField("course", "enrollment_courses", "enrollment_id", "course_id"),
		query.IntField("user", "user_id"),
	)

	ReviewSchema = query.MustSchema("reviews",
		query.PrimaryKey(),
		query.IntField("course", "course_id"),
		query.IntField("user", "user_id"),
		query.TextField("text", "text"),
		query.IntField("rate", "rate"),
	)

	CategorySchema = query.MustSchema("categories",
		query.PrimaryKey(),
		query.SetField("course", "category_courses", "category_id", "course_id"),
		query.TextField("name", "name"),
	)
)
