package stores

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/flowmaster/internal/models"
)

// TaskListStore partitions the user's tasks into the todo, watch and later buckets.
//
// After every operation each held task sits in exactly the bucket named by its ListType.
// Local state changes only from a confirmed server response.
type TaskListStore struct {
	remote

	api TaskAPI

	buckets map[models.ListType][]models.Task
}

// NewTaskListStore creates an empty TaskListStore authenticated through session.
func NewTaskListStore(api TaskAPI, session Session, logger *log.Logger) *TaskListStore {
	return &TaskListStore{
		remote:  remote{session: session, logger: storeLogger(logger, "tasks")},
		api:     api,
		buckets: emptyBuckets(),
	}
}

func emptyBuckets() map[models.ListType][]models.Task {
	b := make(map[models.ListType][]models.Task, 3)
	for _, lt := range models.ListTypes() {
		b[lt] = []models.Task{}
	}
	return b
}

// Todo returns a copy of the todo bucket.
func (s *TaskListStore) Todo() []models.Task { return s.Bucket(models.ListTodo) }

// Watch returns a copy of the watch bucket.
func (s *TaskListStore) Watch() []models.Task { return s.Bucket(models.ListWatch) }

// Later returns a copy of the later bucket.
func (s *TaskListStore) Later() []models.Task { return s.Bucket(models.ListLater) }

// Bucket returns a copy of the bucket for lt. Unknown list types yield nil.
func (s *TaskListStore) Bucket(lt models.ListType) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, ok := s.buckets[lt]
	if !ok {
		return nil
	}
	out := make([]models.Task, len(src))
	for i, t := range src {
		out[i] = t.Clone()
	}
	return out
}

// GetTaskByID looks id up across the buckets in todo, watch, later order.
func (s *TaskListStore) GetTaskByID(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lt, i := s.locate(id)
	if i < 0 {
		return models.Task{}, false
	}
	return s.buckets[lt][i].Clone(), true
}

// locate returns the bucket and index holding id, or index -1. Callers hold mu.
func (s *TaskListStore) locate(id string) (models.ListType, int) {
	for _, lt := range models.ListTypes() {
		for i, t := range s.buckets[lt] {
			if t.ID == id {
				return lt, i
			}
		}
	}
	return "", -1
}

// FetchTasks replaces all three buckets with the server's task list.
func (s *TaskListStore) FetchTasks(ctx context.Context) {
	s.start()

	token, ok := s.token()
	if !ok {
		return
	}

	tasks, err := s.api.ListTasks(ctx, token)
	if err != nil {
		s.remoteFailure(ctx, MsgFetchTasksFailed, err)
		return
	}

	next := emptyBuckets()
	for _, t := range tasks {
		if !t.ListType.Valid() {
			s.logger.Warn("dropping task with unknown list type", "id", t.ID, "list_type", t.ListType)
			continue
		}
		next[t.ListType] = append(next[t.ListType], t)
	}

	s.mu.Lock()
	s.buckets = next
	s.loading = false
	s.mu.Unlock()
	s.logger.Debug("tasks fetched", "todo", len(next[models.ListTodo]), "watch", len(next[models.ListWatch]), "later", len(next[models.ListLater]))
}

// CreateTask submits data and appends the created task to the tail of its bucket.
func (s *TaskListStore) CreateTask(ctx context.Context, data models.TaskCreate) *models.Task {
	s.start()

	token, ok := s.token()
	if !ok {
		return nil
	}

	task, err := s.api.CreateTask(ctx, token, data)
	if err != nil {
		s.remoteFailure(ctx, MsgCreateTaskFailed, err)
		return nil
	}
	if !task.ListType.Valid() {
		s.fail(MsgCreateTaskFailed)
		s.logger.Error("server returned task with unknown list type", "id", task.ID, "list_type", task.ListType)
		return nil
	}

	s.mu.Lock()
	s.place(*task)
	s.loading = false
	s.mu.Unlock()

	out := task.Clone()
	return &out
}

// UpdateTask submits patch for id and reconciles the server's version of the task.
//
// A task that stays in its bucket keeps its position. A task whose list type changed moves to the tail of its new bucket.
func (s *TaskListStore) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) *models.Task {
	s.start()

	token, ok := s.token()
	if !ok {
		return nil
	}

	task, err := s.api.UpdateTask(ctx, token, id, patch)
	if err != nil {
		s.remoteFailure(ctx, MsgUpdateTaskFailed, err)
		return nil
	}
	if !task.ListType.Valid() {
		s.fail(MsgUpdateTaskFailed)
		s.logger.Error("server returned task with unknown list type", "id", task.ID, "list_type", task.ListType)
		return nil
	}

	s.mu.Lock()
	old, i := s.locate(id)
	if i >= 0 && old == task.ListType {
		s.buckets[old][i] = *task
	} else {
		s.place(*task)
	}
	s.loading = false
	s.mu.Unlock()

	if i >= 0 && old != task.ListType {
		s.logger.Debug("task moved", "id", id, "from", old, "to", task.ListType)
	}

	out := task.Clone()
	return &out
}

// place removes every copy of t from the buckets and appends it to the tail of its own. Callers hold mu.
func (s *TaskListStore) place(t models.Task) {
	s.remove(t.ID)
	s.buckets[t.ListType] = append(s.buckets[t.ListType], t)
}

// remove drops id from every bucket. Callers hold mu.
func (s *TaskListStore) remove(id string) {
	for _, lt := range models.ListTypes() {
		src := s.buckets[lt]
		kept := make([]models.Task, 0, len(src))
		for _, t := range src {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		s.buckets[lt] = kept
	}
}

// DeleteTask deletes id on the server and drops it locally.
//
// An id that is not held locally fails without calling the server.
func (s *TaskListStore) DeleteTask(ctx context.Context, id string) bool {
	s.start()

	if _, found := s.GetTaskByID(id); !found {
		s.fail(MsgTaskNotFound)
		s.logger.Warn("delete of unknown task", "id", id)
		return false
	}

	token, ok := s.token()
	if !ok {
		return false
	}

	if err := s.api.DeleteTask(ctx, token, id); err != nil {
		s.remoteFailure(ctx, MsgDeleteTaskFailed, err)
		return false
	}

	s.mu.Lock()
	s.remove(id)
	s.loading = false
	s.mu.Unlock()
	return true
}

// CompleteTask marks id completed.
func (s *TaskListStore) CompleteTask(ctx context.Context, id string) *models.Task {
	return s.UpdateTask(ctx, id, models.CompletedPatch())
}

// MoveTask moves id to the bucket lt. Unknown ids and list types fail without calling the server.
func (s *TaskListStore) MoveTask(ctx context.Context, id string, lt models.ListType) *models.Task {
	if _, found := s.GetTaskByID(id); !found {
		s.reject(MsgTaskNotFound)
		s.logger.Warn("move of unknown task", "id", id)
		return nil
	}
	if !lt.Valid() {
		s.reject(MsgInvalidListType)
		s.logger.Warn("move to unknown list type", "id", id, "list_type", lt)
		return nil
	}
	return s.UpdateTask(ctx, id, models.MovePatch(lt))
}
