package testing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/flowmaster/internal/models"
)

// RecordedRequest is a request seen by [FakeAPI].
type RecordedRequest struct {
	Method        string
	Path          string
	Pattern       string // route pattern that matched, e.g. "PUT /tasks/{id}"
	Authorization string
	RequestID     string
	Body          []byte
}

type failure struct {
	status int
	detail string
}

type fakeUser struct {
	user     models.User
	password string
}

// FakeAPI is an in-memory implementation of the FlowMaster API served by [httptest.Server].
//
// It holds a single account's tasks and daily card, records every request, and can be told to fail
// specific routes with a status code.
type FakeAPI struct {
	server *httptest.Server

	mu       sync.Mutex
	users    map[string]fakeUser // username -> account
	tokens   map[string]string   // token -> username
	tasks    []models.Task
	card     *models.DailyCard
	failures map[string]failure
	requests []RecordedRequest
	seq      int
	now      func() time.Time
}

// NewFakeAPI starts a FakeAPI that is shut down when the test ends.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		users:    make(map[string]fakeUser),
		tokens:   make(map[string]string),
		failures: make(map[string]failure),
		now:      time.Now,
	}

	mux := http.NewServeMux()
	f.route(mux, "POST /auth/login", false, f.login)
	f.route(mux, "POST /auth/register", false, f.register)
	f.route(mux, "GET /auth/me", true, f.me)
	f.route(mux, "GET /tasks", true, f.listTasks)
	f.route(mux, "POST /tasks", true, f.createTask)
	f.route(mux, "PUT /tasks/{id}", true, f.updateTask)
	f.route(mux, "DELETE /tasks/{id}", true, f.deleteTask)
	f.route(mux, "GET /daily-cards/today", true, f.todayCard)
	f.route(mux, "POST /daily-cards", true, f.createCard)
	f.route(mux, "PUT /daily-cards/{id}", true, f.updateCard)
	f.route(mux, "POST /daily-cards/{id}/accomplishments", true, f.addAccomplishment)

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the API root to hand to a client.
func (f *FakeAPI) URL() string {
	return f.server.URL
}

// AddUser registers an account and returns its profile.
func (f *FakeAPI) AddUser(username, password string) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addUserLocked(username, username+"@example.com", password)
}

// IssueToken returns a valid token for username, creating the account if needed.
func (f *FakeAPI) IssueToken(username string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[username]; !ok {
		f.addUserLocked(username, username+"@example.com", "password")
	}
	return f.issueLocked(username)
}

// RevokeToken makes token invalid so authenticated routes answer 401.
func (f *FakeAPI) RevokeToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
}

// SeedTasks replaces the server's tasks.
func (f *FakeAPI) SeedTasks(tasks ...models.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append([]models.Task(nil), tasks...)
}

// SeedCard sets today's card. Nil removes it.
func (f *FakeAPI) SeedCard(card *models.DailyCard) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.card = card.Clone()
}

// Tasks returns the server's tasks.
func (f *FakeAPI) Tasks() []models.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Task(nil), f.tasks...)
}

// Card returns the server's card for today, if any.
func (f *FakeAPI) Card() *models.DailyCard {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.card.Clone()
}

// Fail makes every request matching pattern answer status with detail until [FakeAPI.Recover] is called.
// An empty detail yields a body without a detail field.
func (f *FakeAPI) Fail(pattern string, status int, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[pattern] = failure{status: status, detail: detail}
}

// Recover removes the failure registered for pattern.
func (f *FakeAPI) Recover(pattern string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, pattern)
}

// Requests returns every request received so far.
func (f *FakeAPI) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// Count returns how many requests matched pattern.
func (f *FakeAPI) Count(pattern string) int {
	n := 0
	for _, r := range f.Requests() {
		if r.Pattern == pattern {
			n++
		}
	}
	return n
}

// LastRequest returns the most recent request matching pattern.
func (f *FakeAPI) LastRequest(pattern string) (RecordedRequest, bool) {
	reqs := f.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Pattern == pattern {
			return reqs[i], true
		}
	}
	return RecordedRequest{}, false
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, user *models.User)

func (f *FakeAPI) route(mux *http.ServeMux, pattern string, auth bool, h handlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Pattern:       pattern,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
			Body:          body,
		})
		fail, failing := f.failures[pattern]
		f.mu.Unlock()

		if failing {
			if fail.detail == "" {
				writeJSON(w, fail.status, map[string]string{})
			} else {
				writeDetail(w, fail.status, fail.detail)
			}
			return
		}

		var user *models.User
		if auth {
			user = f.authorize(r)
			if user == nil {
				writeDetail(w, http.StatusUnauthorized, "could not validate credentials")
				return
			}
		}
		h(w, r, user)
	})
}

func (f *FakeAPI) authorize(r *http.Request) *models.User {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	username, ok := f.tokens[token]
	if !ok {
		return nil
	}
	u := f.users[username].user
	return &u
}

func (f *FakeAPI) login(w http.ResponseWriter, r *http.Request, _ *models.User) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "malformed form")
		return
	}
	if r.PostForm.Get("grant_type") != "password" {
		writeDetail(w, http.StatusBadRequest, "unsupported grant type")
		return
	}

	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")

	f.mu.Lock()
	defer f.mu.Unlock()
	acct, ok := f.users[username]
	if !ok {
		for name, u := range f.users {
			if u.user.Email == username {
				acct, ok, username = u, true, name
				break
			}
		}
	}
	if !ok || acct.password != password {
		writeDetail(w, http.StatusUnauthorized, "incorrect username or password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": f.issueLocked(username), "token_type": "bearer"})
}

func (f *FakeAPI) register(w http.ResponseWriter, r *http.Request, _ *models.User) {
	var reg models.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil || reg.Username == "" || reg.Password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[reg.Username]; exists {
		writeDetail(w, http.StatusBadRequest, "username already taken")
		return
	}
	f.addUserLocked(reg.Username, reg.Email, reg.Password)
	writeJSON(w, http.StatusCreated, map[string]string{"access_token": f.issueLocked(reg.Username), "token_type": "bearer"})
}

func (f *FakeAPI) me(w http.ResponseWriter, _ *http.Request, user *models.User) {
	writeJSON(w, http.StatusOK, user)
}

func (f *FakeAPI) listTasks(w http.ResponseWriter, _ *http.Request, _ *models.User) {
	writeJSON(w, http.StatusOK, f.Tasks())
}

func (f *FakeAPI) createTask(w http.ResponseWriter, r *http.Request, user *models.User) {
	var data models.TaskCreate
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil || data.Title == "" || data.ListType == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "title and list_type are required")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	now := f.now().UTC()
	task := models.Task{
		ID:          fmt.Sprintf("task-%d", f.seq),
		UserID:      user.ID,
		Title:       data.Title,
		Description: data.Description,
		ListType:    data.ListType,
		Priority:    data.Priority,
		DueDate:     data.DueDate,
		Tags:        data.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.tasks = append(f.tasks, task)
	writeJSON(w, http.StatusCreated, task)
}

func (f *FakeAPI) updateTask(w http.ResponseWriter, r *http.Request, _ *models.User) {
	var patch models.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "malformed body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexLocked(r.PathValue("id"))
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "task does not exist")
		return
	}

	t := &f.tasks[i]
	now := f.now().UTC()
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.ListType != nil {
		t.ListType = *patch.ListType
	}
	if patch.Priority != nil {
		t.Priority = patch.Priority
	}
	if patch.DueDate != nil {
		t.DueDate = patch.DueDate
	}
	if patch.Tags != nil {
		t.Tags = patch.Tags
	}
	if patch.IsCompleted != nil {
		if *patch.IsCompleted && !t.IsCompleted {
			t.CompletedAt = &now
		}
		t.IsCompleted = *patch.IsCompleted
	}
	t.UpdatedAt = now
	writeJSON(w, http.StatusOK, *t)
}

func (f *FakeAPI) deleteTask(w http.ResponseWriter, r *http.Request, _ *models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexLocked(r.PathValue("id"))
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "task does not exist")
		return
	}
	f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeAPI) todayCard(w http.ResponseWriter, _ *http.Request, _ *models.User) {
	card := f.Card()
	if card == nil {
		writeDetail(w, http.StatusNotFound, "today's card does not exist")
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (f *FakeAPI) createCard(w http.ResponseWriter, r *http.Request, user *models.User) {
	var data models.CardCreate
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "malformed body")
		return
	}
	if len(data.Tasks) < 1 || len(data.Tasks) > 5 {
		writeDetail(w, http.StatusBadRequest, "a daily card holds 1-5 tasks")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.card != nil {
		writeDetail(w, http.StatusBadRequest, "a card already exists for this date")
		return
	}

	f.seq++
	now := f.now().UTC()
	date := data.Date
	if date == "" {
		date = now.Format(time.DateOnly)
	}
	f.card = &models.DailyCard{
		ID:              fmt.Sprintf("card-%d", f.seq),
		UserID:          user.ID,
		Date:            date,
		Tasks:           data.Tasks,
		Accomplishments: []models.Accomplishment{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	writeJSON(w, http.StatusCreated, f.card)
}

func (f *FakeAPI) updateCard(w http.ResponseWriter, r *http.Request, _ *models.User) {
	var patch models.CardUpdate
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "malformed body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.card == nil || f.card.ID != r.PathValue("id") {
		writeDetail(w, http.StatusNotFound, "card does not exist")
		return
	}
	if patch.Tasks != nil {
		if len(patch.Tasks) < 1 || len(patch.Tasks) > 5 {
			writeDetail(w, http.StatusBadRequest, "a daily card holds 1-5 tasks")
			return
		}
		f.card.Tasks = patch.Tasks
	}
	f.card.UpdatedAt = f.now().UTC()
	writeJSON(w, http.StatusOK, f.card)
}

func (f *FakeAPI) addAccomplishment(w http.ResponseWriter, r *http.Request, _ *models.User) {
	var data models.AccomplishmentCreate
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil || data.Title == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "title is required")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.card == nil || f.card.ID != r.PathValue("id") {
		writeDetail(w, http.StatusNotFound, "card does not exist")
		return
	}
	acc := models.Accomplishment{Title: data.Title, Source: data.Source, TaskID: data.TaskID}
	f.card.Accomplishments = append(f.card.Accomplishments, acc)
	f.card.UpdatedAt = f.now().UTC()
	writeJSON(w, http.StatusOK, acc)
}

func (f *FakeAPI) addUserLocked(username, email, password string) models.User {
	f.seq++
	u := models.User{ID: fmt.Sprintf("user-%d", f.seq), Email: email, Username: username}
	f.users[username] = fakeUser{user: u, password: password}
	return u
}

func (f *FakeAPI) issueLocked(username string) string {
	f.seq++
	token := fmt.Sprintf("token-%d-%s", f.seq, username)
	f.tokens[token] = username
	return token
}

func (f *FakeAPI) indexLocked(id string) int {
	for i, t := range f.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
