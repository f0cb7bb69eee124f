package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/flowmaster/internal/formatter"
	"github.com/desertthunder/flowmaster/internal/models"
	"github.com/desertthunder/flowmaster/internal/shared"
	"github.com/urfave/cli/v3"
)

// loadCard fetches today's card into the card store. A missing card is not an error.
func (r *Runner) loadCard(ctx context.Context) error {
	if err := r.requireSession(); err != nil {
		return err
	}
	r.cards.FetchTodayCard(ctx)
	return r.storeError(r.cards.LastError())
}

// CardShow prints today's card.
func (r *Runner) CardShow(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if err := r.loadCard(ctx); err != nil {
		return err
	}

	data, err := formatter.CardTo(format, r.cards.TodayCard())
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

// CardPlan puts the given task ids on today's card.
func (r *Runner) CardPlan(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one task id", shared.ErrMissingArgument)
	}
	if _, err := r.refresh(ctx, nil); err != nil {
		return err
	}

	progress, stop := r.printProgress()
	card, err := r.engine.PlanDay(ctx, ids, progress)
	stop()
	if err != nil {
		return err
	}

	r.writePlainln("✓ Planned %d tasks for %s", len(card.Tasks), card.Date)
	data, _ := formatter.CardToText(card)
	_, err = r.output.Write(data)
	return err
}

// CardAccomplish records an accomplishment on today's card.
func (r *Runner) CardAccomplish(ctx context.Context, cmd *cli.Command) error {
	title := strings.TrimSpace(cmd.StringArg("title"))
	if title == "" {
		return fmt.Errorf("%w: title", shared.ErrMissingArgument)
	}
	if err := r.loadCard(ctx); err != nil {
		return err
	}
	if r.cards.TodayCard() == nil {
		return fmt.Errorf("%w: plan one with 'flowmaster card plan'", shared.ErrNoCard)
	}

	data := models.AccomplishmentCreate{Title: title, Source: cmd.String("source")}
	if id := cmd.String("task-id"); id != "" {
		data.TaskID = &id
	}

	acc := r.cards.AddAccomplishment(ctx, data)
	if acc == nil {
		return r.storeError(r.cards.LastError())
	}
	return r.writePlain("✓ Recorded: %s\n", acc.Title)
}
