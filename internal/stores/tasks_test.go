package stores

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/desertthunder/flowmaster/internal/models"
	"github.com/desertthunder/flowmaster/internal/services"
	tu "github.com/desertthunder/flowmaster/internal/testing"
)

func seedTasks() []models.Task {
	return []models.Task{
		{ID: "t1", Title: "write report", ListType: models.ListTodo},
		{ID: "t2", Title: "read paper", ListType: models.ListWatch},
		{ID: "t3", Title: "call bank", ListType: models.ListTodo},
		{ID: "t4", Title: "learn rust", ListType: models.ListLater},
		{ID: "t5", Title: "renew passport", ListType: models.ListTodo},
	}
}

func ids(tasks []models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func equalIDs(t *testing.T, label string, got []models.Task, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Errorf("%s: expected %v, got %v", label, want, g)
		return
	}
	for i := range want {
		if g[i] != want[i] {
			t.Errorf("%s: expected %v, got %v", label, want, g)
			return
		}
	}
}

// assertPartition checks every held task sits in exactly one bucket, the one named by its list type.
func assertPartition(t *testing.T, s *TaskListStore) {
	t.Helper()
	seen := make(map[string]models.ListType)
	for _, lt := range models.ListTypes() {
		for _, task := range s.Bucket(lt) {
			if task.ListType != lt {
				t.Errorf("task %s has list type %s but sits in %s", task.ID, task.ListType, lt)
			}
			if prev, dup := seen[task.ID]; dup {
				t.Errorf("task %s appears in both %s and %s", task.ID, prev, lt)
			}
			seen[task.ID] = lt
		}
	}
}

func fetched(t *testing.T) *harness {
	t.Helper()
	h := signedIn(t)
	h.fake.SeedTasks(seedTasks()...)
	h.tasks.FetchTasks(context.Background())
	if h.tasks.LastError() != "" {
		t.Fatalf("fetch failed: %s", h.tasks.LastError())
	}
	return h
}

func TestTaskListStore(t *testing.T) {
	ctx := context.Background()

	t.Run("FetchTasks", func(t *testing.T) {
		t.Run("Partitions By List Type", func(t *testing.T) {
			h := fetched(t)

			equalIDs(t, "todo", h.tasks.Todo(), "t1", "t3", "t5")
			equalIDs(t, "watch", h.tasks.Watch(), "t2")
			equalIDs(t, "later", h.tasks.Later(), "t4")
			assertPartition(t, h.tasks)

			if h.tasks.Loading() {
				t.Error("expected loading to be cleared")
			}
		})

		t.Run("Replaces Wholesale", func(t *testing.T) {
			h := fetched(t)
			h.fake.SeedTasks(models.Task{ID: "t9", ListType: models.ListWatch})

			h.tasks.FetchTasks(ctx)

			equalIDs(t, "todo", h.tasks.Todo())
			equalIDs(t, "watch", h.tasks.Watch(), "t9")
			equalIDs(t, "later", h.tasks.Later())
		})

		t.Run("Drops Unknown List Types", func(t *testing.T) {
			h := signedIn(t)
			h.fake.SeedTasks(
				models.Task{ID: "t1", ListType: models.ListTodo},
				models.Task{ID: "t2", ListType: "someday"},
			)

			h.tasks.FetchTasks(ctx)

			if _, ok := h.tasks.GetTaskByID("t2"); ok {
				t.Error("expected task with unknown list type to be dropped")
			}
			assertPartition(t, h.tasks)
		})

		t.Run("Failure Keeps Previous Buckets", func(t *testing.T) {
			h := fetched(t)
			h.fake.Fail("GET /tasks", http.StatusInternalServerError, "database is down")

			h.tasks.FetchTasks(ctx)

			if h.tasks.LastError() != MsgFetchTasksFailed {
				t.Errorf("expected fixed message, got %q", h.tasks.LastError())
			}
			equalIDs(t, "todo", h.tasks.Todo(), "t1", "t3", "t5")
			if h.tasks.Loading() {
				t.Error("expected loading to be cleared")
			}
		})

		t.Run("Without Token", func(t *testing.T) {
			h := newHarness(t)

			h.tasks.FetchTasks(ctx)

			if h.tasks.LastError() != MsgNotAuthenticated {
				t.Errorf("expected not authenticated, got %q", h.tasks.LastError())
			}
			if len(h.fake.Requests()) != 0 {
				t.Error("expected no request without a token")
			}
		})

		t.Run("Unauthorized Tears Down Session Through Profile Fetch", func(t *testing.T) {
			h := fetched(t)
			h.fake.RevokeToken(h.session.Token())

			h.tasks.FetchTasks(ctx)

			if h.fake.Count("GET /auth/me") != 1 {
				t.Errorf("expected one profile revalidation, got %d", h.fake.Count("GET /auth/me"))
			}
			if h.session.IsAuthenticated() {
				t.Error("expected session to be logged out")
			}
			if h.tasks.LastError() != MsgFetchTasksFailed {
				t.Errorf("expected fetch error, got %q", h.tasks.LastError())
			}
		})

		t.Run("Unauthorized With Live Profile Keeps Session", func(t *testing.T) {
			h := fetched(t)
			h.fake.Fail("GET /tasks", http.StatusUnauthorized, "")

			h.tasks.FetchTasks(ctx)

			if !h.session.IsAuthenticated() {
				t.Error("expected session to survive when the profile fetch succeeds")
			}
		})

		t.Run("Other Failures Do Not Revalidate", func(t *testing.T) {
			session := &fakeSession{token: "tok"}
			fake := tu.NewFakeAPI(t)
			fake.Fail("GET /tasks", http.StatusServiceUnavailable, "")
			api := services.NewFlowService(services.NewAPIService(fake.URL(), nil))
			s := NewTaskListStore(api, session, quietLogger())

			s.FetchTasks(ctx)

			if session.Revalidations() != 0 {
				t.Errorf("expected no revalidation, got %d", session.Revalidations())
			}
		})
	})

	t.Run("CreateTask", func(t *testing.T) {
		t.Run("Appends To Tail Of Its Bucket", func(t *testing.T) {
			h := fetched(t)

			task := h.tasks.CreateTask(ctx, models.TaskCreate{Title: "documentary", ListType: models.ListWatch})
			if task == nil {
				t.Fatalf("expected task, error %q", h.tasks.LastError())
			}

			equalIDs(t, "watch", h.tasks.Watch(), "t2", task.ID)
			equalIDs(t, "todo", h.tasks.Todo(), "t1", "t3", "t5")
			equalIDs(t, "later", h.tasks.Later(), "t4")
			assertPartition(t, h.tasks)
		})

		t.Run("Failure", func(t *testing.T) {
			h := fetched(t)
			h.fake.Fail("POST /tasks", http.StatusUnprocessableEntity, "title is required")

			if h.tasks.CreateTask(ctx, models.TaskCreate{ListType: models.ListTodo}) != nil {
				t.Fatal("expected nil on failure")
			}
			if h.tasks.LastError() != MsgCreateTaskFailed {
				t.Errorf("expected fixed message, got %q", h.tasks.LastError())
			}
			equalIDs(t, "todo", h.tasks.Todo(), "t1", "t3", "t5")
		})
	})

	t.Run("UpdateTask", func(t *testing.T) {
		t.Run("Same Bucket Keeps Position", func(t *testing.T) {
			h := fetched(t)
			title := "call the bank"

			task := h.tasks.UpdateTask(ctx, "t3", models.TaskPatch{Title: &title})
			if task == nil {
				t.Fatalf("expected task, error %q", h.tasks.LastError())
			}

			todo := h.tasks.Todo()
			equalIDs(t, "todo", todo, "t1", "t3", "t5")
			if todo[1].Title != title {
				t.Errorf("expected title to be replaced, got %q", todo[1].Title)
			}
		})

		t.Run("List Change Moves To Tail", func(t *testing.T) {
			h := fetched(t)
			later := models.ListLater

			if h.tasks.UpdateTask(ctx, "t1", models.TaskPatch{ListType: &later}) == nil {
				t.Fatalf("expected task, error %q", h.tasks.LastError())
			}

			equalIDs(t, "todo", h.tasks.Todo(), "t3", "t5")
			equalIDs(t, "later", h.tasks.Later(), "t4", "t1")
			assertPartition(t, h.tasks)
		})

		t.Run("Unknown Locally Is Placed", func(t *testing.T) {
			h := fetched(t)
			h.fake.SeedTasks(append(seedTasks(), models.Task{ID: "t6", ListType: models.ListWatch})...)
			title := "added elsewhere"

			if h.tasks.UpdateTask(ctx, "t6", models.TaskPatch{Title: &title}) == nil {
				t.Fatalf("expected task, error %q", h.tasks.LastError())
			}

			equalIDs(t, "watch", h.tasks.Watch(), "t2", "t6")
			assertPartition(t, h.tasks)
		})

		t.Run("Failure Leaves Buckets Untouched", func(t *testing.T) {
			h := fetched(t)
			h.fake.Fail("PUT /tasks/{id}", http.StatusInternalServerError, "")
			later := models.ListLater

			if h.tasks.UpdateTask(ctx, "t1", models.TaskPatch{ListType: &later}) != nil {
				t.Fatal("expected nil on failure")
			}

			equalIDs(t, "todo", h.tasks.Todo(), "t1", "t3", "t5")
			equalIDs(t, "later", h.tasks.Later(), "t4")
			if h.tasks.LastError() != MsgUpdateTaskFailed {
				t.Errorf("expected fixed message, got %q", h.tasks.LastError())
			}
		})
	})

	t.Run("MoveTask", func(t *testing.T) {
		t.Run("Moves Between Buckets", func(t *testing.T) {
			h := fetched(t)

			if h.tasks.MoveTask(ctx, "t2", models.ListTodo) == nil {
				t.Fatalf("expected task, error %q", h.tasks.LastError())
			}

			task, ok := h.tasks.GetTaskByID("t2")
			if !ok || task.ListType != models.ListTodo {
				t.Fatalf("expected t2 in todo, got %+v", task)
			}
			equalIDs(t, "watch", h.tasks.Watch())
			equalIDs(t, "todo", h.tasks.Todo(), "t1", "t3", "t5", "t2")
		})

		t.Run("Sends Only List Type", func(t *testing.T) {
			h := fetched(t)
			h.tasks.MoveTask(ctx, "t1", models.ListWatch)

			req, _ := h.fake.LastRequest("PUT /tasks/{id}")
			var body map[string]any
			if err := json.Unmarshal(req.Body, &body); err != nil {
				t.Fatalf("bad body: %v", err)
			}
			if len(body) != 1 || body["list_type"] != "watch" {
				t.Errorf("expected only list_type, got %v", body)
			}
		})

		t.Run("Unknown Task", func(t *testing.T) {
			h := fetched(t)

			if h.tasks.MoveTask(ctx, "nope", models.ListTodo) != nil {
				t.Fatal("expected nil")
			}
			if h.tasks.LastError() != MsgTaskNotFound {
				t.Errorf("expected task not found, got %q", h.tasks.LastError())
			}
			if h.fake.Count("PUT /tasks/{id}") != 0 {
				t.Error("expected no request")
			}
		})

		t.Run("Invalid List Type", func(t *testing.T) {
			h := fetched(t)

			if h.tasks.MoveTask(ctx, "t1", "someday") != nil {
				t.Fatal("expected nil")
			}
			if h.tasks.LastError() != MsgInvalidListType {
				t.Errorf("expected invalid list type, got %q", h.tasks.LastError())
			}
			if h.fake.Count("PUT /tasks/{id}") != 0 {
				t.Error("expected no request")
			}
		})
	})

	t.Run("CompleteTask", func(t *testing.T) {
		h := fetched(t)

		task := h.tasks.CompleteTask(ctx, "t3")
		if task == nil || !task.IsCompleted {
			t.Fatalf("expected completed task, got %+v", task)
		}

		got, _ := h.tasks.GetTaskByID("t3")
		if !got.IsCompleted || got.CompletedAt == nil {
			t.Errorf("expected stored task to be completed, got %+v", got)
		}
		equalIDs(t, "todo", h.tasks.Todo(), "t1", "t3", "t5")

		req, _ := h.fake.LastRequest("PUT /tasks/{id}")
		if string(req.Body) != `{"is_completed":true}` {
			t.Errorf("unexpected patch %s", req.Body)
		}
	})

	t.Run("DeleteTask", func(t *testing.T) {
		t.Run("Removes From Its Bucket", func(t *testing.T) {
			h := fetched(t)

			if !h.tasks.DeleteTask(ctx, "t3") {
				t.Fatalf("expected delete to succeed, error %q", h.tasks.LastError())
			}
			equalIDs(t, "todo", h.tasks.Todo(), "t1", "t5")
			if _, ok := h.tasks.GetTaskByID("t3"); ok {
				t.Error("expected task to be gone")
			}
		})

		t.Run("Unknown Id Makes No Request", func(t *testing.T) {
			h := fetched(t)

			if h.tasks.DeleteTask(ctx, "nope") {
				t.Fatal("expected delete to fail")
			}
			if h.tasks.LastError() != MsgTaskNotFound {
				t.Errorf("expected task not found, got %q", h.tasks.LastError())
			}
			if h.fake.Count("DELETE /tasks/{id}") != 0 {
				t.Error("expected no request")
			}
			if h.tasks.Loading() {
				t.Error("expected loading to be cleared")
			}
		})

		t.Run("Failure Keeps Task", func(t *testing.T) {
			h := fetched(t)
			h.fake.Fail("DELETE /tasks/{id}", http.StatusInternalServerError, "")

			if h.tasks.DeleteTask(ctx, "t1") {
				t.Fatal("expected delete to fail")
			}
			if h.tasks.LastError() != MsgDeleteTaskFailed {
				t.Errorf("expected fixed message, got %q", h.tasks.LastError())
			}
			if _, ok := h.tasks.GetTaskByID("t1"); !ok {
				t.Error("expected task to be kept")
			}
		})
	})

	t.Run("GetTaskByID", func(t *testing.T) {
		h := fetched(t)

		task, ok := h.tasks.GetTaskByID("t4")
		if !ok || task.Title != "learn rust" {
			t.Errorf("expected t4, got %+v", task)
		}
		if _, ok := h.tasks.GetTaskByID("missing"); ok {
			t.Error("expected miss")
		}
	})

	t.Run("Getters Return Copies", func(t *testing.T) {
		h := fetched(t)

		todo := h.tasks.Todo()
		todo[0].Title = "mutated"
		todo[0].Tags = append(todo[0].Tags, "x")

		task, _ := h.tasks.GetTaskByID("t1")
		if task.Title != "write report" || len(task.Tags) != 0 {
			t.Errorf("expected store to be unaffected, got %+v", task)
		}
		if h.tasks.Bucket("someday") != nil {
			t.Error("expected nil for unknown bucket")
		}
	})
}
