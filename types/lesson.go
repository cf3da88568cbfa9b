package types

// Lesson is a single lecture with its text and a link to the recording.
type Lesson struct {
	ID int `json:"id" db:"id"`

	// Name is unique across lessons and limited to 20 characters.
	Name string `json:"name" db:"name" validate:"required,max=20"`

	Text string `json:"text" db:"text" validate:"required"`

	// LessonRecordingURL points at the recorded lecture over http, https,
	// ftp or ftps. Uploading a recording through the API rewrites it to the
	// object storage URL.
	LessonRecordingURL string `json:"lesson_recording_url" db:"lesson_recording_url" validate:"required,recording_url,max=200"`
}

func (l Lesson) PrimaryKey() int { return l.ID }

func (l Lesson) WithPrimaryKey(id int) Lesson {
	l.ID = id
	return l
}
