package learningpath

import (
	"context"
	"sync"

	"github.com/pot-code/learning-path/internal/infrastructure/logging"
	"go.elastic.co/apm"
	"go.uber.org/zap"
)

// Snapshot the state every consumer observes, treat it as read-only
type Snapshot struct {
	LearningPaths []LearningPath
	IsLoading     bool
	LastError     error
	Version       uint64 // increased on every published state
}

// Listener receives every published snapshot.
// It runs synchronously inside the publishing call and must not call
// mutation methods of the same Provider.
type Listener func(Snapshot)

type subscription struct {
	id       uint64
	listener Listener
}

// Provider distribution layer in front of a LearningPathRepository.
//
// It caches one snapshot of the collection. Each mutation calls the repository,
// reloads the whole collection and publishes the new snapshot to all listeners.
// A failed repository call is recorded in LastError and leaves the snapshot as is.
type Provider struct {
	repo   LearningPathRepository
	logger *zap.Logger

	// serializes mutations and refreshes
	writeMu sync.Mutex

	mu    sync.RWMutex
	state Snapshot

	subMu  sync.Mutex
	nextID uint64
	subs   []subscription
}

var _ LearningPathUseCase = &Provider{}

// NewProvider create a Provider, it reports IsLoading until the first load settles
func NewProvider(repo LearningPathRepository, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		repo:   repo,
		logger: logger,
		state: Snapshot{
			LearningPaths: []LearningPath{},
			IsLoading:     true,
		},
	}
}

// Start performs the initial load
func (p *Provider) Start(ctx context.Context) error {
	return p.RefreshLearningPaths(ctx)
}

// Snapshot current state
func (p *Provider) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := p.state
	s.LearningPaths = clonePaths(p.state.LearningPaths)
	return s
}

// LearningPaths last successfully loaded collection
func (p *Provider) LearningPaths() []LearningPath {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return clonePaths(p.state.LearningPaths)
}

// LearningPath lookup a path of the cached collection, nil if absent
func (p *Provider) LearningPath(id string) *LearningPath {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if i := findPath(p.state.LearningPaths, id); i != -1 {
		path := p.state.LearningPaths[i].Clone()
		return &path
	}
	return nil
}

// IsLoading whether a load is in flight
func (p *Provider) IsLoading() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.state.IsLoading
}

// LastError error of the last failed operation, cleared by a refresh
func (p *Provider) LastError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.state.LastError
}

// Subscribe register listener, the returned function removes it
func (p *Provider) Subscribe(listener Listener) (unsubscribe func()) {
	p.subMu.Lock()
	p.nextID++
	id := p.nextID
	p.subs = append(p.subs, subscription{id, listener})
	p.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.subMu.Lock()
			defer p.subMu.Unlock()
			for i, s := range p.subs {
				if s.id == id {
					p.subs = append(p.subs[:i:i], p.subs[i+1:]...)
					break
				}
			}
		})
	}
}

// RefreshLearningPaths reload the collection from the repository unconditionally
func (p *Provider) RefreshLearningPaths(ctx context.Context) error {
	apmSpan, ctx := apm.StartSpan(ctx, "Provider.RefreshLearningPaths", "service")
	defer apmSpan.End()

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	return p.refresh(ctx)
}

// CreateLearningPath create a path and refresh
func (p *Provider) CreateLearningPath(ctx context.Context, name string) (*LearningPath, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "Provider.CreateLearningPath", "service")
	defer apmSpan.End()

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	path, err := p.repo.Create(ctx, name)
	if err != nil {
		p.fail(ctx, "Failed to create learning path", err)
		return nil, err
	}
	p.refreshAfter(ctx, "CreateLearningPath")
	return path, nil
}

// UpdateLearningPath update a path and refresh, nil if id is unknown
func (p *Provider) UpdateLearningPath(ctx context.Context, id string, update *PathUpdate) (*LearningPath, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "Provider.UpdateLearningPath", "service")
	defer apmSpan.End()

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	path, err := p.repo.Update(ctx, id, update)
	if err != nil {
		p.fail(ctx, "Failed to update learning path", err)
		return nil, err
	}
	p.refreshAfter(ctx, "UpdateLearningPath")
	return path, nil
}

// DeleteLearningPath delete a path and refresh, false if id is unknown
func (p *Provider) DeleteLearningPath(ctx context.Context, id string) (bool, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "Provider.DeleteLearningPath", "service")
	defer apmSpan.End()

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	deleted, err := p.repo.Delete(ctx, id)
	if err != nil {
		p.fail(ctx, "Failed to delete learning path", err)
		return false, err
	}
	p.refreshAfter(ctx, "DeleteLearningPath")
	return deleted, nil
}

// AddLessonToPath add a lesson and refresh, nil if pathID is unknown
func (p *Provider) AddLessonToPath(ctx context.Context, pathID string, lesson *LessonInput) (*Lesson, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "Provider.AddLessonToPath", "service")
	defer apmSpan.End()

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	added, err := p.repo.AddLesson(ctx, pathID, lesson)
	if err != nil {
		p.fail(ctx, "Failed to add lesson", err)
		return nil, err
	}
	p.refreshAfter(ctx, "AddLessonToPath")
	return added, nil
}

// UpdateLessonInPath update a lesson and refresh, nil if either id is unknown
func (p *Provider) UpdateLessonInPath(ctx context.Context, pathID, lessonID string, update *LessonUpdate) (*Lesson, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "Provider.UpdateLessonInPath", "service")
	defer apmSpan.End()

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	updated, err := p.repo.UpdateLesson(ctx, pathID, lessonID, update)
	if err != nil {
		p.fail(ctx, "Failed to update lesson", err)
		return nil, err
	}
	p.refreshAfter(ctx, "UpdateLessonInPath")
	return updated, nil
}

// DeleteLessonFromPath delete a lesson and refresh, false if either id is unknown
func (p *Provider) DeleteLessonFromPath(ctx context.Context, pathID, lessonID string) (bool, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "Provider.DeleteLessonFromPath", "service")
	defer apmSpan.End()

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	deleted, err := p.repo.DeleteLesson(ctx, pathID, lessonID)
	if err != nil {
		p.fail(ctx, "Failed to delete lesson", err)
		return false, err
	}
	p.refreshAfter(ctx, "DeleteLessonFromPath")
	return deleted, nil
}

// refreshAfter the mutation already succeeded, a reload failure is only recorded
func (p *Provider) refreshAfter(ctx context.Context, op string) {
	if err := p.refresh(ctx); err == nil {
		p.logger.Debug("Learning paths refreshed", zap.String("op", op))
	}
}

// refresh must be called with writeMu held
func (p *Provider) refresh(ctx context.Context) error {
	p.mu.Lock()
	p.state.IsLoading = true
	p.state.LastError = nil
	p.mu.Unlock()

	paths, err := p.repo.List(ctx)
	if err != nil {
		p.fail(ctx, "Failed to load learning paths", err)
		return err
	}

	p.mu.Lock()
	p.state.LearningPaths = paths
	p.state.IsLoading = false
	p.state.Version++
	snapshot := p.snapshotLocked()
	p.mu.Unlock()

	p.publish(snapshot)
	return nil
}

// fail record err, keeping the cached collection
func (p *Provider) fail(ctx context.Context, msg string, err error) {
	logging.ExtractLoggerFromContext(ctx, p.logger).Error(msg, zap.Error(err))

	p.mu.Lock()
	p.state.IsLoading = false
	p.state.LastError = err
	p.state.Version++
	snapshot := p.snapshotLocked()
	p.mu.Unlock()

	p.publish(snapshot)
}

func (p *Provider) snapshotLocked() Snapshot {
	s := p.state
	s.LearningPaths = clonePaths(p.state.LearningPaths)
	return s
}

// publish hand the same snapshot to every listener in subscription order
func (p *Provider) publish(snapshot Snapshot) {
	p.subMu.Lock()
	subs := make([]subscription, len(p.subs))
	copy(subs, p.subs)
	p.subMu.Unlock()

	for _, s := range subs {
		s.listener(snapshot)
	}
}
