// package stores holds the client-side state containers kept in sync with the FlowMaster API
package stores

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/flowmaster/internal/models"
	"github.com/desertthunder/flowmaster/internal/services"
	"github.com/desertthunder/flowmaster/internal/shared"
)

// Error messages recorded on a store when an operation fails.
const (
	MsgLoginFailed    = "login failed, please check your credentials"
	MsgRegisterFailed = "registration failed, please try again later"
	MsgProfileFailed  = "failed to fetch user profile"

	MsgFetchTasksFailed = "failed to fetch tasks"
	MsgCreateTaskFailed = "failed to create task"
	MsgUpdateTaskFailed = "failed to update task"
	MsgDeleteTaskFailed = "failed to delete task"
	MsgTaskNotFound     = "task not found"
	MsgInvalidListType  = "invalid list type"

	MsgFetchCardFailed         = "failed to fetch today's card"
	MsgCreateCardFailed        = "failed to create daily card"
	MsgUpdateCardFailed        = "failed to update daily card"
	MsgAddAccomplishmentFailed = "failed to add accomplishment"
	MsgNoCardToUpdate          = "no card to update"
	MsgNoCardForAccomplishment = "no card to add accomplishment to"
	MsgNoCardForTask           = "no card to update task on"
	MsgCardTaskNotFound        = "task not on card"

	MsgNotAuthenticated = "not authenticated"
)

// Session is the view of [SessionStore] that sibling stores depend on.
type Session interface {
	// Token returns the current bearer token, or "" when logged out.
	Token() string

	// FetchUserProfile revalidates the token; a 401 tears the session down.
	FetchUserProfile(ctx context.Context)
}

// TokenPersister is the durable slot the session token is mirrored into.
type TokenPersister interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// AuthAPI is the part of [services.Service] used by [SessionStore].
type AuthAPI interface {
	Login(ctx context.Context, creds models.Credentials) (string, error)
	Register(ctx context.Context, reg models.Registration) (string, error)
	CurrentUser(ctx context.Context, token string) (*models.User, error)
}

// TaskAPI is the part of [services.Service] used by [TaskListStore].
type TaskAPI interface {
	ListTasks(ctx context.Context, token string) ([]models.Task, error)
	CreateTask(ctx context.Context, token string, data models.TaskCreate) (*models.Task, error)
	UpdateTask(ctx context.Context, token, id string, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, token, id string) error
}

// CardAPI is the part of [services.Service] used by [DailyCardStore].
type CardAPI interface {
	TodayCard(ctx context.Context, token string) (*models.DailyCard, error)
	CreateCard(ctx context.Context, token string, data models.CardCreate) (*models.DailyCard, error)
	UpdateCard(ctx context.Context, token, id string, patch models.CardUpdate) (*models.DailyCard, error)
	AddAccomplishment(ctx context.Context, token, cardID string, data models.AccomplishmentCreate) (*models.Accomplishment, error)
}

var (
	_ AuthAPI = (services.Service)(nil)
	_ TaskAPI = (services.Service)(nil)
	_ CardAPI = (services.Service)(nil)
	_ Session = (*SessionStore)(nil)
)

// status is the loading flag and last error shared by every store.
//
// mu also guards the embedding store's own fields. It is never held across a remote call.
type status struct {
	mu      sync.RWMutex
	loading bool
	err     string
}

// Loading reports whether an operation is in flight. Overlapping calls share the flag; the last to finish clears it.
func (s *status) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// LastError returns the message recorded by the most recent failed operation, or "".
func (s *status) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// start marks an operation as in flight and clears the previous error.
func (s *status) start() {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()
}

// finish clears the loading flag.
func (s *status) finish() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

// fail records msg and clears the loading flag.
func (s *status) fail(msg string) {
	s.mu.Lock()
	s.err = msg
	s.loading = false
	s.mu.Unlock()
}

// reject records a local precondition failure without touching the loading flag.
func (s *status) reject(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
}

// remote is the state shared by stores that call the API with the session's token.
type remote struct {
	status

	session Session
	logger  *log.Logger
}

// token returns the session token, recording a local failure when there is none.
func (r *remote) token() (string, bool) {
	token := r.session.Token()
	if token == "" {
		r.fail(MsgNotAuthenticated)
		r.logger.Warn("no session token")
		return "", false
	}
	return token, true
}

// remoteFailure records msg for err and asks the session to revalidate a rejected token.
//
// Only the profile fetch decides whether the session is torn down.
func (r *remote) remoteFailure(ctx context.Context, msg string, err error) {
	r.fail(msg)
	r.logger.Error(msg, "error", err)
	if errors.Is(err, shared.ErrUnauthorized) {
		r.session.FetchUserProfile(ctx)
	}
}

// detailOr returns the server's detail message carried by err, or fallback.
func detailOr(err error, fallback string) string {
	if d := services.Detail(err); d != "" {
		return d
	}
	return fallback
}

func storeLogger(l *log.Logger, name string) *log.Logger {
	if l == nil {
		l = log.Default()
	}
	return shared.WithLogger(l, "store", name)
}
