package learningpath

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/pot-code/learning-path/internal/infrastructure/driver"
	"github.com/pot-code/learning-path/internal/infrastructure/logging"
	"github.com/pot-code/learning-path/internal/infrastructure/uuid"
	"github.com/pot-code/learning-path/internal/infrastructure/validate"
	"go.elastic.co/apm"
	"go.uber.org/zap"
)

// DefaultKey key holding the collection when none is configured
const DefaultKey = "learning_paths"

// LearningPathKV LearningPathRepository persisting the whole collection
// as one JSON blob under a single key.
//
// Every call is a read-modify-write of the blob without locking, two concurrent
// writers race and the last one wins.
type LearningPathKV struct {
	KV            driver.KeyValueDB
	Key           string
	UUIDGenerator uuid.Generator
	Validator     validate.Validator
	Logger        *zap.Logger
	now           func() time.Time
}

var _ LearningPathRepository = &LearningPathKV{}

// NewLearningPathKV create a LearningPathKV
func NewLearningPathKV(
	KV driver.KeyValueDB,
	Key string,
	UUIDGenerator uuid.Generator,
	Validator validate.Validator,
	Logger *zap.Logger,
) *LearningPathKV {
	if Key == "" {
		Key = DefaultKey
	}
	if Logger == nil {
		Logger = zap.NewNop()
	}
	if UUIDGenerator == nil {
		UUIDGenerator = uuid.NewNanoIDGenerator(21)
	}
	if Validator == nil {
		Validator = validate.NewValidator()
	}
	return &LearningPathKV{
		KV:            KV,
		Key:           Key,
		UUIDGenerator: UUIDGenerator,
		Validator:     Validator,
		Logger:        Logger,
		now:           time.Now,
	}
}

// WithClock replace the time source
func (repo *LearningPathKV) WithClock(now func() time.Time) *LearningPathKV {
	repo.now = now
	return repo
}

// List returns the stored collection; a missing or corrupt blob yields an empty one
func (repo *LearningPathKV) List(ctx context.Context) ([]LearningPath, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "LearningPathKV.List", "repository")
	defer apmSpan.End()

	return repo.loadOrEmpty(ctx)
}

// Create append a new learning path with no lessons
func (repo *LearningPathKV) Create(ctx context.Context, name string) (*LearningPath, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "LearningPathKV.Create", "repository")
	defer apmSpan.End()

	if errs := repo.Validator.Var("name", name, "required"); errs != nil {
		return nil, &ValidationError{errs}
	}
	paths, err := repo.loadOrEmpty(ctx)
	if err != nil {
		return nil, err
	}
	id, err := repo.UUIDGenerator.Generate()
	if err != nil {
		return nil, err
	}

	now := repo.timestamp()
	path := LearningPath{
		ID:        id,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Lessons:   []Lesson{},
		Progress:  0,
	}
	paths = append(paths, path)
	if err := repo.save(ctx, paths); err != nil {
		return nil, err
	}
	result := path.Clone()
	return &result, nil
}

// Update merge non-nil fields of update into the path, nil result if id is unknown
func (repo *LearningPathKV) Update(ctx context.Context, id string, update *PathUpdate) (*LearningPath, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "LearningPathKV.Update", "repository")
	defer apmSpan.End()

	if update == nil {
		update = new(PathUpdate)
	}
	if update.Name != nil {
		if errs := repo.Validator.Var("name", *update.Name, "required"); errs != nil {
			return nil, &ValidationError{errs}
		}
	}
	paths, err := repo.loadOrEmpty(ctx)
	if err != nil {
		return nil, err
	}
	index := findPath(paths, id)
	if index == -1 {
		return nil, nil
	}

	path := &paths[index]
	if update.Name != nil {
		path.Name = *update.Name
	}
	if update.Description != nil {
		path.Description = *update.Description
	}
	path.UpdatedAt = repo.timestamp()
	path.recomputeProgress()
	if err := repo.save(ctx, paths); err != nil {
		return nil, err
	}
	result := path.Clone()
	return &result, nil
}

// Delete remove the path and its lessons, false if id is unknown
func (repo *LearningPathKV) Delete(ctx context.Context, id string) (bool, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "LearningPathKV.Delete", "repository")
	defer apmSpan.End()

	paths, err := repo.loadOrEmpty(ctx)
	if err != nil {
		return false, err
	}
	index := findPath(paths, id)
	if index == -1 {
		return false, nil
	}
	paths = append(paths[:index], paths[index+1:]...)
	if err := repo.save(ctx, paths); err != nil {
		return false, err
	}
	return true, nil
}

// AddLesson append a new incomplete lesson, nil result if pathID is unknown
func (repo *LearningPathKV) AddLesson(ctx context.Context, pathID string, input *LessonInput) (*Lesson, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "LearningPathKV.AddLesson", "repository")
	defer apmSpan.End()

	if input == nil {
		input = new(LessonInput)
	}
	if errs := repo.Validator.Struct(input); errs != nil {
		return nil, &ValidationError{errs}
	}
	paths, err := repo.loadOrEmpty(ctx)
	if err != nil {
		return nil, err
	}
	index := findPath(paths, pathID)
	if index == -1 {
		return nil, nil
	}
	id, err := repo.UUIDGenerator.Generate()
	if err != nil {
		return nil, err
	}

	path := &paths[index]
	lesson := Lesson{
		ID:          id,
		Title:       input.Title,
		Description: input.Description,
		Content:     input.Content,
		Duration:    input.Duration,
		Completed:   false,
	}
	path.Lessons = append(path.Lessons, lesson)
	path.UpdatedAt = repo.timestamp()
	path.recomputeProgress()
	if err := repo.save(ctx, paths); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// UpdateLesson merge non-nil fields into the lesson and recompute the path progress,
// nil result if either id is unknown
func (repo *LearningPathKV) UpdateLesson(ctx context.Context, pathID, lessonID string, update *LessonUpdate) (*Lesson, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "LearningPathKV.UpdateLesson", "repository")
	defer apmSpan.End()

	if update == nil {
		update = new(LessonUpdate)
	}
	if errs := repo.validateLessonUpdate(update); errs != nil {
		return nil, &ValidationError{errs}
	}
	paths, err := repo.loadOrEmpty(ctx)
	if err != nil {
		return nil, err
	}
	index := findPath(paths, pathID)
	if index == -1 {
		return nil, nil
	}
	path := &paths[index]
	lessonIndex := path.lessonIndex(lessonID)
	if lessonIndex == -1 {
		return nil, nil
	}

	now := repo.timestamp()
	lesson := &path.Lessons[lessonIndex]
	if update.Title != nil {
		lesson.Title = *update.Title
	}
	if update.Description != nil {
		lesson.Description = *update.Description
	}
	if update.Content != nil {
		lesson.Content = *update.Content
	}
	if update.Duration != nil {
		lesson.Duration = *update.Duration
	}
	if update.Completed != nil {
		switch {
		case *update.Completed && !lesson.Completed:
			lesson.CompletedAt = &now
		case !*update.Completed:
			lesson.CompletedAt = nil
		}
		lesson.Completed = *update.Completed
	}
	path.UpdatedAt = now
	path.recomputeProgress()
	if err := repo.save(ctx, paths); err != nil {
		return nil, err
	}
	result := lesson.Clone()
	return &result, nil
}

// DeleteLesson remove the lesson and recompute the path progress,
// false if either id is unknown
func (repo *LearningPathKV) DeleteLesson(ctx context.Context, pathID, lessonID string) (bool, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "LearningPathKV.DeleteLesson", "repository")
	defer apmSpan.End()

	paths, err := repo.loadOrEmpty(ctx)
	if err != nil {
		return false, err
	}
	index := findPath(paths, pathID)
	if index == -1 {
		return false, nil
	}
	path := &paths[index]
	lessonIndex := path.lessonIndex(lessonID)
	if lessonIndex == -1 {
		return false, nil
	}

	path.Lessons = append(path.Lessons[:lessonIndex], path.Lessons[lessonIndex+1:]...)
	path.UpdatedAt = repo.timestamp()
	path.recomputeProgress()
	if err := repo.save(ctx, paths); err != nil {
		return false, err
	}
	return true, nil
}

func (repo *LearningPathKV) validateLessonUpdate(update *LessonUpdate) validate.FieldErrors {
	var errs validate.FieldErrors
	if update.Title != nil {
		errs = append(errs, repo.Validator.Var("title", *update.Title, "required")...)
	}
	if update.Duration != nil {
		errs = append(errs, repo.Validator.Var("duration", *update.Duration, "finite,min=0")...)
	}
	return errs
}

// timestamp UTC without monotonic reading, so values survive a JSON round trip unchanged
func (repo *LearningPathKV) timestamp() time.Time {
	return repo.now().UTC()
}

// loadOrEmpty load the collection, treating a corrupt blob as empty
func (repo *LearningPathKV) loadOrEmpty(ctx context.Context) ([]LearningPath, error) {
	paths, err := repo.load(ctx)
	if errors.Is(err, ErrPersistenceCorrupt) {
		logging.ExtractLoggerFromContext(ctx, repo.Logger).Warn("Discard corrupt learning path collection",
			zap.String("kv.key", repo.Key),
			zap.Error(err),
		)
		return []LearningPath{}, nil
	}
	return paths, err
}

func (repo *LearningPathKV) load(ctx context.Context) ([]LearningPath, error) {
	blob, err := repo.KV.Get(ctx, repo.Key)
	if errors.Is(err, driver.ErrNil) {
		return []LearningPath{}, nil
	}
	if err != nil {
		return nil, &PersistenceError{ErrPersistenceUnavailable, err}
	}
	if blob == "" {
		return []LearningPath{}, nil
	}

	var paths []LearningPath
	if err := json.Unmarshal([]byte(blob), &paths); err != nil {
		return nil, &PersistenceError{ErrPersistenceCorrupt, err}
	}
	if paths == nil {
		paths = []LearningPath{}
	}
	for i := range paths {
		if paths[i].Lessons == nil {
			paths[i].Lessons = []Lesson{}
		}
	}
	return paths, nil
}

func (repo *LearningPathKV) save(ctx context.Context, paths []LearningPath) error {
	blob, err := json.Marshal(paths)
	if err != nil {
		return err
	}
	if err := repo.KV.Set(ctx, repo.Key, string(blob)); err != nil {
		return &PersistenceError{ErrPersistenceUnavailable, err}
	}
	return nil
}

func findPath(paths []LearningPath, id string) int {
	for i := range paths {
		if paths[i].ID == id {
			return i
		}
	}
	return -1
}
