package stores

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/flowmaster/internal/models"
	"github.com/desertthunder/flowmaster/internal/shared"
)

// DailyCardStore holds today's card. A nil card means none has been created yet and is not an error.
type DailyCardStore struct {
	remote

	api CardAPI

	card *models.DailyCard
}

// NewDailyCardStore creates a DailyCardStore with no card, authenticated through session.
func NewDailyCardStore(api CardAPI, session Session, logger *log.Logger) *DailyCardStore {
	return &DailyCardStore{
		remote: remote{session: session, logger: storeLogger(logger, "daily_card")},
		api:    api,
	}
}

// TodayCard returns a copy of today's card, or nil.
func (s *DailyCardStore) TodayCard() *models.DailyCard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.card.Clone()
}

// CardTasks returns a copy of the card's tasks. Empty when there is no card.
func (s *DailyCardStore) CardTasks() []models.CardTask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.card == nil {
		return []models.CardTask{}
	}
	return append([]models.CardTask{}, s.card.Tasks...)
}

// Accomplishments returns a copy of the card's accomplishments. Empty when there is no card.
func (s *DailyCardStore) Accomplishments() []models.Accomplishment {
	c := s.TodayCard()
	if c == nil || c.Accomplishments == nil {
		return []models.Accomplishment{}
	}
	return c.Accomplishments
}

// FetchTodayCard loads today's card. A 404 clears the card without recording an error.
func (s *DailyCardStore) FetchTodayCard(ctx context.Context) {
	s.start()

	token, ok := s.token()
	if !ok {
		return
	}

	card, err := s.api.TodayCard(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.mu.Lock()
			s.card = nil
			s.loading = false
			s.mu.Unlock()
			s.logger.Debug("no card for today")
			return
		}
		s.remoteFailure(ctx, MsgFetchCardFailed, err)
		return
	}

	s.replace(card)
}

// CreateDailyCard creates today's card and holds the server's version.
func (s *DailyCardStore) CreateDailyCard(ctx context.Context, data models.CardCreate) *models.DailyCard {
	s.start()

	token, ok := s.token()
	if !ok {
		return nil
	}

	card, err := s.api.CreateCard(ctx, token, data)
	if err != nil {
		s.remoteFailure(ctx, MsgCreateCardFailed, err)
		return nil
	}
	return s.replace(card)
}

// UpdateDailyCard submits patch for the held card and replaces it with the server's version.
//
// Fails without calling the server when no card is held.
func (s *DailyCardStore) UpdateDailyCard(ctx context.Context, patch models.CardUpdate) *models.DailyCard {
	cardID, ok := s.cardID(MsgNoCardToUpdate)
	if !ok {
		return nil
	}

	s.start()
	token, ok := s.token()
	if !ok {
		return nil
	}

	card, err := s.api.UpdateCard(ctx, token, cardID, patch)
	if err != nil {
		s.remoteFailure(ctx, MsgUpdateCardFailed, err)
		return nil
	}
	return s.replace(card)
}

// AddAccomplishment records data on the held card and appends the result locally.
//
// Fails without calling the server when no card is held.
func (s *DailyCardStore) AddAccomplishment(ctx context.Context, data models.AccomplishmentCreate) *models.Accomplishment {
	cardID, ok := s.cardID(MsgNoCardForAccomplishment)
	if !ok {
		return nil
	}

	s.start()
	token, ok := s.token()
	if !ok {
		return nil
	}

	acc, err := s.api.AddAccomplishment(ctx, token, cardID, data)
	if err != nil {
		s.remoteFailure(ctx, MsgAddAccomplishmentFailed, err)
		return nil
	}

	s.mu.Lock()
	// The card may have been replaced while the request was in flight.
	if s.card != nil && s.card.ID == cardID {
		s.card.Accomplishments = append(s.card.Accomplishments, *acc)
	}
	s.loading = false
	s.mu.Unlock()

	out := *acc
	return &out
}

// CompleteCardTask marks the card task referencing taskID completed by resubmitting the card's task list.
func (s *DailyCardStore) CompleteCardTask(ctx context.Context, taskID string) bool {
	s.mu.RLock()
	card := s.card.Clone()
	s.mu.RUnlock()

	if card == nil {
		s.reject(MsgNoCardForTask)
		s.logger.Warn("complete task without a card", "task_id", taskID)
		return false
	}

	i := card.FindTask(taskID)
	if i < 0 {
		s.reject(MsgCardTaskNotFound)
		s.logger.Warn("task not on card", "task_id", taskID, "card_id", card.ID)
		return false
	}

	tasks := card.Tasks
	tasks[i].IsCompleted = true
	return s.UpdateDailyCard(ctx, models.CardUpdate{Tasks: tasks}) != nil
}

// cardID returns the held card's ID, recording msg as a local failure when there is no card.
func (s *DailyCardStore) cardID(msg string) (string, bool) {
	s.mu.RLock()
	card := s.card
	s.mu.RUnlock()

	if card == nil {
		s.reject(msg)
		s.logger.Warn(msg)
		return "", false
	}
	return card.ID, true
}

func (s *DailyCardStore) replace(card *models.DailyCard) *models.DailyCard {
	s.mu.Lock()
	s.card = card.Clone()
	s.loading = false
	s.mu.Unlock()
	return card.Clone()
}
