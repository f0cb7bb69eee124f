package stores

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/desertthunder/flowmaster/internal/models"
)

func seedCard() *models.DailyCard {
	return &models.DailyCard{
		ID:   "card-1",
		Date: "2026-10-16",
		Tasks: []models.CardTask{
			{TaskID: "t1", Title: "write report"},
			{TaskID: "t2", Title: "read paper", IsCompleted: true},
			{TaskID: "t3", Title: "call bank"},
		},
		Accomplishments: []models.Accomplishment{{Title: "inbox zero", Source: "manual"}},
	}
}

// withCard returns a harness holding the seeded card.
func withCard(t *testing.T) *harness {
	t.Helper()
	h := signedIn(t)
	h.fake.SeedCard(seedCard())
	h.cards.FetchTodayCard(context.Background())
	if h.cards.TodayCard() == nil {
		t.Fatalf("fetch failed: %s", h.cards.LastError())
	}
	return h
}

func TestDailyCardStore(t *testing.T) {
	ctx := context.Background()

	t.Run("FetchTodayCard", func(t *testing.T) {
		t.Run("Loads Card", func(t *testing.T) {
			h := withCard(t)

			card := h.cards.TodayCard()
			if card.ID != "card-1" || len(card.Tasks) != 3 {
				t.Errorf("unexpected card %+v", card)
			}
			if len(h.cards.CardTasks()) != 3 || len(h.cards.Accomplishments()) != 1 {
				t.Error("expected getters to expose the card's contents")
			}
		})

		t.Run("Not Found Is Not An Error", func(t *testing.T) {
			h := withCard(t)
			h.fake.SeedCard(nil)

			h.cards.FetchTodayCard(ctx)

			if h.cards.TodayCard() != nil {
				t.Error("expected no card")
			}
			if h.cards.LastError() != "" {
				t.Errorf("expected no error, got %q", h.cards.LastError())
			}
			if h.cards.Loading() {
				t.Error("expected loading to be cleared")
			}
			if len(h.cards.CardTasks()) != 0 || len(h.cards.Accomplishments()) != 0 {
				t.Error("expected empty getters without a card")
			}
		})

		t.Run("Other Failure Keeps Card", func(t *testing.T) {
			h := withCard(t)
			h.fake.Fail("GET /daily-cards/today", http.StatusInternalServerError, "")

			h.cards.FetchTodayCard(ctx)

			if h.cards.LastError() != MsgFetchCardFailed {
				t.Errorf("expected fixed message, got %q", h.cards.LastError())
			}
			if h.cards.TodayCard() == nil {
				t.Error("expected previous card to be kept")
			}
		})

		t.Run("Unauthorized Revalidates Session", func(t *testing.T) {
			h := withCard(t)
			h.fake.RevokeToken(h.session.Token())

			h.cards.FetchTodayCard(ctx)

			if h.session.IsAuthenticated() {
				t.Error("expected session to be logged out")
			}
		})
	})

	t.Run("CreateDailyCard", func(t *testing.T) {
		t.Run("Holds Server Version", func(t *testing.T) {
			h := signedIn(t)

			card := h.cards.CreateDailyCard(ctx, models.CardCreate{Tasks: []models.CardTask{{TaskID: "t1", Title: "one"}}})
			if card == nil {
				t.Fatalf("expected card, error %q", h.cards.LastError())
			}
			if card.ID == "" || card.Date == "" {
				t.Errorf("expected server-assigned fields, got %+v", card)
			}
			if h.cards.TodayCard().ID != card.ID {
				t.Error("expected created card to be held")
			}
		})

		t.Run("Failure", func(t *testing.T) {
			h := signedIn(t)

			if h.cards.CreateDailyCard(ctx, models.CardCreate{}) != nil {
				t.Fatal("expected nil for an empty card")
			}
			if h.cards.LastError() != MsgCreateCardFailed {
				t.Errorf("expected fixed message, got %q", h.cards.LastError())
			}
			if h.cards.TodayCard() != nil {
				t.Error("expected no card")
			}
		})
	})

	t.Run("UpdateDailyCard", func(t *testing.T) {
		t.Run("Without Card", func(t *testing.T) {
			h := signedIn(t)

			if h.cards.UpdateDailyCard(ctx, models.CardUpdate{}) != nil {
				t.Fatal("expected nil")
			}
			if h.cards.LastError() != MsgNoCardToUpdate {
				t.Errorf("expected local error, got %q", h.cards.LastError())
			}
			if len(h.fake.Requests()) != 0 {
				t.Error("expected no request")
			}
		})

		t.Run("Replaces Card", func(t *testing.T) {
			h := withCard(t)
			tasks := []models.CardTask{{TaskID: "t9", Title: "only this"}}

			card := h.cards.UpdateDailyCard(ctx, models.CardUpdate{Tasks: tasks})
			if card == nil {
				t.Fatalf("expected card, error %q", h.cards.LastError())
			}

			held := h.cards.CardTasks()
			if len(held) != 1 || held[0].TaskID != "t9" {
				t.Errorf("expected card tasks to be replaced, got %+v", held)
			}
			req, _ := h.fake.LastRequest("PUT /daily-cards/{id}")
			if req.Path != "/daily-cards/card-1" {
				t.Errorf("expected update of held card, got %s", req.Path)
			}
		})

		t.Run("Failure Keeps Card", func(t *testing.T) {
			h := withCard(t)
			h.fake.Fail("PUT /daily-cards/{id}", http.StatusInternalServerError, "")

			if h.cards.UpdateDailyCard(ctx, models.CardUpdate{Tasks: []models.CardTask{{TaskID: "x"}}}) != nil {
				t.Fatal("expected nil")
			}
			if h.cards.LastError() != MsgUpdateCardFailed {
				t.Errorf("expected fixed message, got %q", h.cards.LastError())
			}
			if len(h.cards.CardTasks()) != 3 {
				t.Error("expected previous card to be kept")
			}
		})
	})

	t.Run("AddAccomplishment", func(t *testing.T) {
		t.Run("Without Card", func(t *testing.T) {
			h := signedIn(t)

			if h.cards.AddAccomplishment(ctx, models.AccomplishmentCreate{Title: "x"}) != nil {
				t.Fatal("expected nil")
			}
			if h.cards.LastError() != MsgNoCardForAccomplishment {
				t.Errorf("expected local error, got %q", h.cards.LastError())
			}
			if len(h.fake.Requests()) != 0 {
				t.Error("expected no request")
			}
		})

		t.Run("Appends Locally", func(t *testing.T) {
			h := withCard(t)
			before := h.fake.Count("GET /daily-cards/today")

			acc := h.cards.AddAccomplishment(ctx, models.AccomplishmentCreate{Title: "shipped", Source: "manual"})
			if acc == nil {
				t.Fatalf("expected accomplishment, error %q", h.cards.LastError())
			}

			got := h.cards.Accomplishments()
			if len(got) != 2 || got[1].Title != "shipped" {
				t.Errorf("expected accomplishment appended, got %+v", got)
			}
			if h.fake.Count("GET /daily-cards/today") != before {
				t.Error("expected no refetch")
			}
		})

		t.Run("Initializes Empty List", func(t *testing.T) {
			h := signedIn(t)
			card := seedCard()
			card.Accomplishments = nil
			h.fake.SeedCard(card)
			h.cards.FetchTodayCard(ctx)

			if h.cards.AddAccomplishment(ctx, models.AccomplishmentCreate{Title: "first"}) == nil {
				t.Fatalf("expected accomplishment, error %q", h.cards.LastError())
			}
			if len(h.cards.Accomplishments()) != 1 {
				t.Errorf("expected one accomplishment, got %d", len(h.cards.Accomplishments()))
			}
		})

		t.Run("Failure", func(t *testing.T) {
			h := withCard(t)
			h.fake.Fail("POST /daily-cards/{id}/accomplishments", http.StatusInternalServerError, "")

			if h.cards.AddAccomplishment(ctx, models.AccomplishmentCreate{Title: "x"}) != nil {
				t.Fatal("expected nil")
			}
			if h.cards.LastError() != MsgAddAccomplishmentFailed {
				t.Errorf("expected fixed message, got %q", h.cards.LastError())
			}
			if len(h.cards.Accomplishments()) != 1 {
				t.Error("expected accomplishments to be unchanged")
			}
		})
	})

	t.Run("CompleteCardTask", func(t *testing.T) {
		t.Run("Flips Only That Task", func(t *testing.T) {
			h := withCard(t)

			if !h.cards.CompleteCardTask(ctx, "t3") {
				t.Fatalf("expected success, error %q", h.cards.LastError())
			}

			req, ok := h.fake.LastRequest("PUT /daily-cards/{id}")
			if !ok {
				t.Fatal("expected update request")
			}
			var sent models.CardUpdate
			if err := json.Unmarshal(req.Body, &sent); err != nil {
				t.Fatalf("bad body: %v", err)
			}

			want := seedCard().Tasks
			want[2].IsCompleted = true
			if len(sent.Tasks) != len(want) {
				t.Fatalf("expected %d tasks, got %d", len(want), len(sent.Tasks))
			}
			for i := range want {
				if sent.Tasks[i] != want[i] {
					t.Errorf("task %d: expected %+v, got %+v", i, want[i], sent.Tasks[i])
				}
			}

			card := h.cards.TodayCard()
			if !card.Tasks[2].IsCompleted || card.Tasks[0].IsCompleted {
				t.Errorf("unexpected held tasks %+v", card.Tasks)
			}
			if len(card.Accomplishments) != 1 || card.Date != "2026-10-16" {
				t.Errorf("expected non-task fields unchanged, got %+v", card)
			}
		})

		t.Run("Does Not Mutate Held Card Before Confirmation", func(t *testing.T) {
			h := withCard(t)
			h.fake.Fail("PUT /daily-cards/{id}", http.StatusInternalServerError, "")

			if h.cards.CompleteCardTask(ctx, "t1") {
				t.Fatal("expected failure")
			}
			if h.cards.CardTasks()[0].IsCompleted {
				t.Error("expected held card to be unchanged")
			}
			if h.cards.LastError() != MsgUpdateCardFailed {
				t.Errorf("expected update error, got %q", h.cards.LastError())
			}
		})

		t.Run("Without Card", func(t *testing.T) {
			h := signedIn(t)

			if h.cards.CompleteCardTask(ctx, "t1") {
				t.Fatal("expected failure")
			}
			if h.cards.LastError() != MsgNoCardForTask {
				t.Errorf("expected local error, got %q", h.cards.LastError())
			}
		})

		t.Run("Task Not On Card", func(t *testing.T) {
			h := withCard(t)

			if h.cards.CompleteCardTask(ctx, "t42") {
				t.Fatal("expected failure")
			}
			if h.cards.LastError() != MsgCardTaskNotFound {
				t.Errorf("expected local error, got %q", h.cards.LastError())
			}
			if h.fake.Count("PUT /daily-cards/{id}") != 0 {
				t.Error("expected no request")
			}
		})
	})

	t.Run("Getters Return Copies", func(t *testing.T) {
		h := withCard(t)

		card := h.cards.TodayCard()
		card.Tasks[0].Title = "mutated"
		card.Accomplishments[0].Title = "mutated"
		tasks := h.cards.CardTasks()
		tasks[1].IsCompleted = false

		held := h.cards.TodayCard()
		if held.Tasks[0].Title != "write report" || held.Accomplishments[0].Title != "inbox zero" || !held.Tasks[1].IsCompleted {
			t.Errorf("expected store to be unaffected, got %+v", held)
		}
	})
}
