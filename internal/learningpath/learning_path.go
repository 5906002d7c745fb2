package learningpath

import (
	"context"
	"errors"
	"time"

	"github.com/pot-code/learning-path/internal/infrastructure/validate"
)

// LearningPath an ordered collection of lessons, the aggregate root
type LearningPath struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Lessons     []Lesson  `json:"lessons"`
	Progress    float64   `json:"progress"` // completed/total in [0,1]
}

// Lesson a trackable item of a learning path
type Lesson struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Content     string     `json:"content"`
	Duration    float64    `json:"duration"` // minutes
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// PathUpdate partial fields of a learning path, nil fields are left untouched
type PathUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// LessonInput fields of a new lesson
type LessonInput struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description"`
	Content     string  `json:"content"`
	Duration    float64 `json:"duration" validate:"finite,min=0"`
}

// LessonUpdate partial fields of a lesson, nil fields are left untouched
type LessonUpdate struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Content     *string  `json:"content,omitempty"`
	Duration    *float64 `json:"duration,omitempty"`
	Completed   *bool    `json:"completed,omitempty"`
}

var (
	// ErrPersistenceCorrupt the stored collection can not be decoded
	ErrPersistenceCorrupt = errors.New("learning path collection is corrupt")
	// ErrPersistenceUnavailable the key-value substrate failed to read or write
	ErrPersistenceUnavailable = errors.New("learning path storage is unavailable")
)

// PersistenceError wraps a substrate or codec failure with its kind
type PersistenceError struct {
	Kind error
	Err  error
}

func (e *PersistenceError) Error() string {
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is report whether target is the kind of e
func (e *PersistenceError) Is(target error) bool {
	return target == e.Kind
}

// ValidationError invalid input, carrying every failed field
type ValidationError struct {
	Fields validate.FieldErrors
}

func (e *ValidationError) Error() string {
	return "invalid learning path input: " + e.Fields.Error()
}

// LearningPathRepository persisted learning path collection
//
// Not found ids are reported by nil or false results, never by error.
type LearningPathRepository interface {
	List(ctx context.Context) ([]LearningPath, error)
	Create(ctx context.Context, name string) (*LearningPath, error)
	Update(ctx context.Context, id string, update *PathUpdate) (*LearningPath, error)
	Delete(ctx context.Context, id string) (bool, error)
	AddLesson(ctx context.Context, pathID string, lesson *LessonInput) (*Lesson, error)
	UpdateLesson(ctx context.Context, pathID, lessonID string, update *LessonUpdate) (*Lesson, error)
	DeleteLesson(ctx context.Context, pathID, lessonID string) (bool, error)
}

// LearningPathUseCase the consumer facing API of the distribution layer
type LearningPathUseCase interface {
	Snapshot() Snapshot
	LearningPaths() []LearningPath
	LearningPath(id string) *LearningPath
	IsLoading() bool
	LastError() error
	Subscribe(listener Listener) (unsubscribe func())

	CreateLearningPath(ctx context.Context, name string) (*LearningPath, error)
	UpdateLearningPath(ctx context.Context, id string, update *PathUpdate) (*LearningPath, error)
	DeleteLearningPath(ctx context.Context, id string) (bool, error)
	AddLessonToPath(ctx context.Context, pathID string, lesson *LessonInput) (*Lesson, error)
	UpdateLessonInPath(ctx context.Context, pathID, lessonID string, update *LessonUpdate) (*Lesson, error)
	DeleteLessonFromPath(ctx context.Context, pathID, lessonID string) (bool, error)
	RefreshLearningPaths(ctx context.Context) error
}

// TotalLessonCount number of lessons
func (lp *LearningPath) TotalLessonCount() int {
	return len(lp.Lessons)
}

// CompletedLessonCount number of completed lessons
func (lp *LearningPath) CompletedLessonCount() int {
	n := 0
	for i := range lp.Lessons {
		if lp.Lessons[i].Completed {
			n++
		}
	}
	return n
}

// TotalDuration sum of lesson durations in minutes
func (lp *LearningPath) TotalDuration() float64 {
	var d float64
	for i := range lp.Lessons {
		d += lp.Lessons[i].Duration
	}
	return d
}

// recomputeProgress must run after any change of lesson count or completion
func (lp *LearningPath) recomputeProgress() {
	total := lp.TotalLessonCount()
	if total == 0 {
		lp.Progress = 0
		return
	}
	lp.Progress = float64(lp.CompletedLessonCount()) / float64(total)
}

func (lp *LearningPath) lessonIndex(id string) int {
	for i := range lp.Lessons {
		if lp.Lessons[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone deep copy
func (lp LearningPath) Clone() LearningPath {
	lessons := make([]Lesson, len(lp.Lessons))
	for i, l := range lp.Lessons {
		lessons[i] = l.Clone()
	}
	lp.Lessons = lessons
	return lp
}

// Clone deep copy
func (l Lesson) Clone() Lesson {
	if l.CompletedAt != nil {
		at := *l.CompletedAt
		l.CompletedAt = &at
	}
	return l
}

func clonePaths(paths []LearningPath) []LearningPath {
	out := make([]LearningPath, len(paths))
	for i := range paths {
		out[i] = paths[i].Clone()
	}
	return out
}
