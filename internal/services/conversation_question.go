package services

import (
	"context"

	"srh_chat_go_backend/internal/models"

	"golang.org/x/sync/errgroup"
)

func (t *turn) answerQuestion(ctx context.Context, question string) error {
	lang := t.lang()

	if res := t.cs.filter.Check(ctx, question, lang, t.session.Gender); res.Rejected {
		return t.send(ctx, withMenu(res.Message, lang))
	}

	var history []models.Message
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := t.cs.store.AppendMessage(gctx, t.session, models.SenderUser, question, lang, nil)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = t.cs.store.RecentMessages(gctx, t.session.ID, HistoryLimit, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return t.fail(ctx, err)
	}

	prompt := BuildAnswerPrompt(profileOf(t.session), history, question)
	answer := SmartTruncate(t.cs.completer.Complete(ctx, prompt, AnswerTemperature), MaxMessageLength, t.lang())

	if err := t.send(ctx, withMenu(answer, lang)); err != nil {
		return err
	}

	// The answer is out; failures past this point are logged only.
	ctx = context.WithoutCancel(ctx)
	if _, err := t.cs.store.AppendMessage(ctx, t.session, models.SenderBot, answer, lang, map[string]interface{}{"prompt": prompt}); err != nil {
		t.log.Error().Err(err).Msg("Failed to save bot message")
	}
	count, err := t.cs.store.CountUserMessages(ctx, t.session.ID)
	if err != nil {
		t.log.Error().Err(err).Msg("Failed to count user messages")
		return nil
	}
	t.cs.analyses.Dispatch(ctx, t.session)

	if !IsFeedbackMilestone(count) {
		return nil
	}
	t.log.Info().Int("questions", count).Msg("Feedback milestone reached")
	if err := t.setState(ctx, StateFeedback, nil); err != nil {
		t.log.Error().Err(err).Msg("Failed to enter feedback state")
		return nil
	}
	return t.send(ctx, feedbackMessage(lang))
}
