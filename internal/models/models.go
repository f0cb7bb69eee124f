// package models defines the data model shared by the FlowMaster client stores and API client
package models

import (
	"fmt"
	"time"
)

// ListType names the bucket a task belongs to.
type ListType string

const (
	ListTodo  ListType = "todo"
	ListWatch ListType = "watch"
	ListLater ListType = "later"
)

// ListTypes returns the buckets in their canonical lookup order.
func ListTypes() []ListType {
	return []ListType{ListTodo, ListWatch, ListLater}
}

// Valid reports whether l is one of the three known buckets.
func (l ListType) Valid() bool {
	switch l {
	case ListTodo, ListWatch, ListLater:
		return true
	default:
		return false
	}
}

func (l ListType) String() string { return string(l) }

// ParseListType converts user input into a [ListType].
func ParseListType(s string) (ListType, error) {
	l := ListType(s)
	if !l.Valid() {
		return "", fmt.Errorf("unknown list type %q (want todo, watch or later)", s)
	}
	return l, nil
}

// User is the profile returned by GET /auth/me.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
}

// Credentials are submitted to the login endpoint. Username may also be an email address.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is submitted to the registration endpoint.
type Registration struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Task is a single entry in one of the three buckets.
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id,omitempty"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	ListType    ListType   `json:"list_type"`
	Priority    *int       `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	IsCompleted bool       `json:"is_completed"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a copy of t that shares no slices or pointers with it.
func (t Task) Clone() Task {
	c := t
	if t.Priority != nil {
		p := *t.Priority
		c.Priority = &p
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.CompletedAt != nil {
		d := *t.CompletedAt
		c.CompletedAt = &d
	}
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	return c
}

// TaskCreate is the payload for POST /tasks.
type TaskCreate struct {
	Title       string     `json:"title"`
	ListType    ListType   `json:"list_type"`
	Description string     `json:"description,omitempty"`
	Priority    *int       `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
}

// TaskPatch is the partial payload for PUT /tasks/{id}. Nil fields are left untouched by the server.
type TaskPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	ListType    *ListType  `json:"list_type,omitempty"`
	Priority    *int       `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	IsCompleted *bool      `json:"is_completed,omitempty"`
}

// CompletedPatch returns the patch that marks a task completed.
func CompletedPatch() TaskPatch {
	done := true
	return TaskPatch{IsCompleted: &done}
}

// MovePatch returns the patch that moves a task to list.
func MovePatch(list ListType) TaskPatch {
	return TaskPatch{ListType: &list}
}

// CardTask is a task reference held on a daily card.
type CardTask struct {
	TaskID      string `json:"task_id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"is_completed"`
}

// Accomplishment is an entry recorded on a daily card.
type Accomplishment struct {
	Title  string  `json:"title"`
	Source string  `json:"source"`
	TaskID *string `json:"task_id,omitempty"`
}

// DailyCard is the aggregate record for one day.
type DailyCard struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id,omitempty"`
	Date            string           `json:"date"`
	Tasks           []CardTask       `json:"tasks"`
	Accomplishments []Accomplishment `json:"accomplishments"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Clone returns a deep copy of c.
func (c *DailyCard) Clone() *DailyCard {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Tasks != nil {
		cp.Tasks = append([]CardTask(nil), c.Tasks...)
	}
	if c.Accomplishments != nil {
		cp.Accomplishments = make([]Accomplishment, len(c.Accomplishments))
		for i, a := range c.Accomplishments {
			cp.Accomplishments[i] = a.clone()
		}
	}
	return &cp
}

func (a Accomplishment) clone() Accomplishment {
	if a.TaskID != nil {
		id := *a.TaskID
		a.TaskID = &id
	}
	return a
}

// FindTask returns the index of the card task referencing taskID, or -1.
func (c *DailyCard) FindTask(taskID string) int {
	for i, t := range c.Tasks {
		if t.TaskID == taskID {
			return i
		}
	}
	return -1
}

// CardCreate is the payload for POST /daily-cards. An empty Date means today on the server.
type CardCreate struct {
	Tasks []CardTask `json:"tasks"`
	Date  string     `json:"date,omitempty"`
}

// CardUpdate is the payload for PUT /daily-cards/{id}.
type CardUpdate struct {
	Tasks []CardTask `json:"tasks,omitempty"`
}

// AccomplishmentCreate is the payload for POST /daily-cards/{id}/accomplishments.
type AccomplishmentCreate struct {
	Title  string  `json:"title"`
	Source string  `json:"source"`
	TaskID *string `json:"task_id,omitempty"`
}
