// package services implements the HTTP client for the FlowMaster remote API
package services

import (
	"context"

	"github.com/desertthunder/flowmaster/internal/models"
)

// Service defines the remote FlowMaster API contract consumed by the client stores.
//
// Every method except Login and Register requires a bearer token.
type Service interface {
	// Login exchanges credentials for a bearer token (POST /auth/login).
	Login(ctx context.Context, creds models.Credentials) (string, error)

	// Register creates an account and returns its bearer token (POST /auth/register).
	Register(ctx context.Context, reg models.Registration) (string, error)

	// CurrentUser fetches the profile of the token's owner (GET /auth/me).
	CurrentUser(ctx context.Context, token string) (*models.User, error)

	ListTasks(ctx context.Context, token string) ([]models.Task, error)
	CreateTask(ctx context.Context, token string, data models.TaskCreate) (*models.Task, error)
	UpdateTask(ctx context.Context, token, id string, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, token, id string) error

	// TodayCard fetches today's card. A missing card is reported as an [*APIError] with status 404.
	TodayCard(ctx context.Context, token string) (*models.DailyCard, error)
	CreateCard(ctx context.Context, token string, data models.CardCreate) (*models.DailyCard, error)
	UpdateCard(ctx context.Context, token, id string, patch models.CardUpdate) (*models.DailyCard, error)
	AddAccomplishment(ctx context.Context, token, cardID string, data models.AccomplishmentCreate) (*models.Accomplishment, error)
}
