// FlowMaster API implementation of [Service]
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/desertthunder/flowmaster/internal/models"
	"github.com/desertthunder/flowmaster/internal/shared"
	"golang.org/x/oauth2"
)

var _ Service = (*FlowService)(nil)

// FlowService implements [Service] on top of [APIService].
//
// Login uses the OAuth2 resource-owner password grant, which is the form the API's token endpoint accepts.
type FlowService struct {
	api   *APIService
	oauth *oauth2.Config
}

// NewFlowService creates a FlowService sending requests through api.
func NewFlowService(api *APIService) *FlowService {
	return &FlowService{
		api: api,
		oauth: &oauth2.Config{
			Endpoint: oauth2.Endpoint{
				TokenURL:  api.BaseURL() + "/auth/login",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges credentials for an access token.
func (f *FlowService) Login(ctx context.Context, creds models.Credentials) (string, error) {
	if err := f.api.Wait(ctx); err != nil {
		return "", err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.api.HTTPClient())
	tok, err := f.oauth.PasswordCredentialsToken(ctx, creds.Username, creds.Password)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return "", newAPIError(re.Response.StatusCode, re.Body)
		}
		return "", fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	return tok.AccessToken, nil
}

// Register creates an account and returns its access token.
func (f *FlowService) Register(ctx context.Context, reg models.Registration) (string, error) {
	var tok tokenResponse
	resp, err := f.api.Post(ctx, "/auth/register", "", reg)
	if err := decodeInto(resp, err, &tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: response missing access_token", shared.ErrAuthFailed)
	}
	return tok.AccessToken, nil
}

func (f *FlowService) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	resp, err := f.api.Get(ctx, "/auth/me", token)
	if err := decodeInto(resp, err, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (f *FlowService) ListTasks(ctx context.Context, token string) ([]models.Task, error) {
	var tasks []models.Task
	resp, err := f.api.Get(ctx, "/tasks", token)
	if err := decodeInto(resp, err, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (f *FlowService) CreateTask(ctx context.Context, token string, data models.TaskCreate) (*models.Task, error) {
	var task models.Task
	resp, err := f.api.Post(ctx, "/tasks", token, data)
	if err := decodeInto(resp, err, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (f *FlowService) UpdateTask(ctx context.Context, token, id string, patch models.TaskPatch) (*models.Task, error) {
	var task models.Task
	resp, err := f.api.Put(ctx, "/tasks/"+url.PathEscape(id), token, patch)
	if err := decodeInto(resp, err, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (f *FlowService) DeleteTask(ctx context.Context, token, id string) error {
	resp, err := f.api.Delete(ctx, "/tasks/"+url.PathEscape(id), token)
	return decodeInto(resp, err, nil)
}

func (f *FlowService) TodayCard(ctx context.Context, token string) (*models.DailyCard, error) {
	var card models.DailyCard
	resp, err := f.api.Get(ctx, "/daily-cards/today", token)
	if err := decodeInto(resp, err, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

func (f *FlowService) CreateCard(ctx context.Context, token string, data models.CardCreate) (*models.DailyCard, error) {
	var card models.DailyCard
	resp, err := f.api.Post(ctx, "/daily-cards", token, data)
	if err := decodeInto(resp, err, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

func (f *FlowService) UpdateCard(ctx context.Context, token, id string, patch models.CardUpdate) (*models.DailyCard, error) {
	var card models.DailyCard
	resp, err := f.api.Put(ctx, "/daily-cards/"+url.PathEscape(id), token, patch)
	if err := decodeInto(resp, err, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

func (f *FlowService) AddAccomplishment(ctx context.Context, token, cardID string, data models.AccomplishmentCreate) (*models.Accomplishment, error) {
	var acc models.Accomplishment
	path := "/daily-cards/" + url.PathEscape(cardID) + "/accomplishments"
	resp, err := f.api.Post(ctx, path, token, data)
	if err := decodeInto(resp, err, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// decodeInto turns the result of an [APIService] request into an error and decodes a 2xx body into out when out is
// non-nil.
func decodeInto(resp *APIResponse, err error, out any) error {
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	if err := resp.Err(); err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	return resp.Decode(out)
}
