package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"srh_chat_go_backend/internal/models"

	"github.com/rs/zerolog"
)

// ConversationState is the persisted position of a session in the chat flow.
type ConversationState string

const (
	StateLanguageSelect ConversationState = "LANGUAGE_SELECT"
	StateAge            ConversationState = "AGE"
	StateGender         ConversationState = "GENDER"
	StateInterest       ConversationState = "INTEREST"
	StateRegion         ConversationState = "REGION"
	StateQuestion       ConversationState = "QUESTION"
	StateFeedback       ConversationState = "FEEDBACK"
	StateSettings       ConversationState = "SETTINGS"
	StateFAQBrowse      ConversationState = "FAQ_BROWSE"
)

func (s ConversationState) onboarding() bool {
	switch s {
	case StateLanguageSelect, StateAge, StateGender, StateInterest, StateRegion:
		return true
	}
	return false
}

func stateOf(session *models.Session) ConversationState {
	if session.ConversationState == "" {
		return StateLanguageSelect
	}
	return ConversationState(session.ConversationState)
}

// ConversationService routes transport events through the conversation
// state machine. Events of one user are handled one at a time, in the
// order they arrive.
type ConversationService struct {
	store     SessionStore
	completer Completer
	filter    ContentFilter
	geo       Geolocator
	analyses  AnalysisScheduler
	faq       *FAQ
	log       zerolog.Logger
	metrics   *Metrics

	locksMu   sync.Mutex
	turnLocks map[string]*turnLock
}

// turnLock serializes one user's turns. refs counts the holder plus the
// waiters; the entry is dropped when it reaches zero.
type turnLock struct {
	mu   sync.Mutex
	refs int
}

func NewConversationService(
	store SessionStore,
	completer Completer,
	filter ContentFilter,
	geo Geolocator,
	analyses AnalysisScheduler,
	faq *FAQ,
	log zerolog.Logger,
) *ConversationService {
	if faq == nil {
		faq = DefaultFAQ()
	}
	return &ConversationService{
		store:     store,
		completer: completer,
		filter:    filter,
		geo:       geo,
		analyses:  analyses,
		faq:       faq,
		log:       log.With().Str("component", "conversation_service").Logger(),
		metrics:   NewMetrics(),
		turnLocks: make(map[string]*turnLock),
	}
}

func (cs *ConversationService) lockUser(userID string) func() {
	cs.locksMu.Lock()
	l, ok := cs.turnLocks[userID]
	if !ok {
		l = &turnLock{}
		cs.turnLocks[userID] = l
	}
	l.refs++
	cs.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		cs.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(cs.turnLocks, userID)
		}
		cs.locksMu.Unlock()
	}
}

// heldUserLocks is the number of users with a turn running or waiting.
func (cs *ConversationService) heldUserLocks() int {
	cs.locksMu.Lock()
	defer cs.locksMu.Unlock()
	return len(cs.turnLocks)
}

// HandleEvent processes one event and sends every reply through reply.
// Returned errors are transport or storage failures; the user has already
// been sent a generic error message when possible.
func (cs *ConversationService) HandleEvent(ctx context.Context, ev Event, reply Replier) error {
	unlock := cs.lockUser(ev.UserID)
	defer unlock()

	log := cs.log.With().Str("userID", ev.UserID).Str("kind", string(ev.Kind)).Logger()

	if ev.Kind == EventText && strings.TrimSpace(ev.Text) == restartCommand {
		cs.metrics.Turns.WithLabelValues("restart").Inc()
		return cs.restart(ctx, ev.UserID, reply)
	}

	session, err := cs.store.GetOrCreateActiveSession(ctx, ev.UserID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load session")
		return cs.replyError(ctx, reply, models.LangEnglish, err)
	}
	state := stateOf(session)
	cs.metrics.Turns.WithLabelValues(string(state)).Inc()

	t := &turn{
		cs:      cs,
		session: session,
		state:   state,
		ev:      ev,
		reply:   reply,
		log:     log.With().Str("sessionID", session.ID.String()).Str("state", string(state)).Logger(),
	}

	switch ev.Kind {
	case EventMedia:
		return t.send(ctx, OutgoingMessage{Text: msgMedia.in(session.Lang())})
	case EventCallback:
		return t.handleCallback(ctx)
	default:
		return t.handleText(ctx)
	}
}

// restart keeps a session that has not left language selection and
// replaces any other with a fresh one.
func (cs *ConversationService) restart(ctx context.Context, userID string, reply Replier) error {
	session, err := cs.store.GetOrCreateActiveSession(ctx, userID)
	if err != nil {
		return cs.replyError(ctx, reply, models.LangEnglish, err)
	}
	if stateOf(session) != StateLanguageSelect {
		if session, err = cs.freshSession(ctx, session); err != nil {
			return cs.replyError(ctx, reply, session.Lang(), err)
		}
	}
	return reply.Reply(ctx, OutgoingMessage{
		Text:       msgChooseLanguage,
		Buttons:    languageButtons(cbLanguage),
		RemoveMenu: true,
	})
}

func (cs *ConversationService) freshSession(ctx context.Context, old *models.Session) (*models.Session, error) {
	if err := cs.store.DeactivateSession(ctx, old); err != nil {
		return old, err
	}
	session, err := cs.store.GetOrCreateActiveSession(ctx, old.UserID)
	if err != nil {
		return old, err
	}
	return session, nil
}

func (cs *ConversationService) replyError(ctx context.Context, reply Replier, lang string, cause error) error {
	if err := reply.Reply(ctx, OutgoingMessage{Text: msgGenericError.in(lang)}); err != nil {
		cs.log.Warn().Err(err).Msg("Failed to deliver error message")
	}
	return cause
}

// turn carries the state of one event while it is being handled.
type turn struct {
	cs      *ConversationService
	session *models.Session
	state   ConversationState
	ev      Event
	reply   Replier
	log     zerolog.Logger
}

func (t *turn) lang() string { return t.session.Lang() }

func (t *turn) send(ctx context.Context, msg OutgoingMessage) error {
	return t.reply.Reply(ctx, msg)
}

func (t *turn) fail(ctx context.Context, err error) error {
	t.log.Error().Err(err).Msg("Turn failed")
	return t.cs.replyError(ctx, t.reply, t.lang(), err)
}

// setState persists fields together with the next state.
func (t *turn) setState(ctx context.Context, next ConversationState, fields map[string]interface{}) error {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["conversation_state"] = string(next)
	if err := t.cs.store.UpdateSessionFields(ctx, t.session, fields); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	t.session.ConversationState = string(next)
	t.state = next
	return nil
}

func (t *turn) handleText(ctx context.Context) error {
	switch {
	case t.state.onboarding():
		return t.send(ctx, stepPrompt(t.state, t.lang()))
	case t.state == StateFeedback:
		return t.send(ctx, feedbackMessage(t.lang()))
	}

	switch matchMenuCommand(strings.TrimSpace(t.ev.Text), t.lang()) {
	case cmdNewChat:
		return t.newChat(ctx)
	case cmdFAQ:
		if err := t.setState(ctx, StateFAQBrowse, nil); err != nil {
			return t.fail(ctx, err)
		}
		return t.send(ctx, t.cs.faq.sectionsMessage(t.lang()))
	case cmdSettings:
		if err := t.setState(ctx, StateSettings, nil); err != nil {
			return t.fail(ctx, err)
		}
		return t.send(ctx, settingsMessage(t.lang()))
	case cmdEndChat:
		return t.endChat(ctx)
	case cmdHelp:
		return t.send(ctx, withMenu(msgHelp.in(t.lang()), t.lang()))
	}

	question := strings.TrimSpace(t.ev.Text)
	if question == "" {
		return t.send(ctx, withMenu(msgHelp.in(t.lang()), t.lang()))
	}
	if t.state != StateQuestion {
		if err := t.setState(ctx, StateQuestion, nil); err != nil {
			return t.fail(ctx, err)
		}
	}
	return t.answerQuestion(ctx, question)
}

func (t *turn) handleCallback(ctx context.Context) error {
	code, value, _ := strings.Cut(t.ev.Data, "|")

	if code == cbStartOver {
		return t.startOver(ctx)
	}
	if t.state.onboarding() {
		return t.handleOnboarding(ctx, code, value)
	}

	switch code {
	case cbRating:
		return t.rate(ctx, value)
	case cbFeedbackSettings:
		if err := t.setState(ctx, StateSettings, nil); err != nil {
			return t.fail(ctx, err)
		}
		return t.send(ctx, settingsMessage(t.lang()))
	case cbLanguageChange:
		return t.changeLanguage(ctx, value)
	case cbFAQSection:
		if err := t.setState(ctx, StateFAQBrowse, nil); err != nil {
			return t.fail(ctx, err)
		}
		return t.send(ctx, t.cs.faq.sectionMessage(value, t.lang()))
	case cbFAQBackSections:
		if err := t.setState(ctx, StateFAQBrowse, nil); err != nil {
			return t.fail(ctx, err)
		}
		return t.send(ctx, t.cs.faq.sectionsMessage(t.lang()))
	case cbFAQBackMenu:
		if err := t.setState(ctx, StateQuestion, nil); err != nil {
			return t.fail(ctx, err)
		}
		return t.send(ctx, withMenu(msgBackToMenu.in(t.lang()), t.lang()))
	}
	t.log.Debug().Str("data", t.ev.Data).Msg("Ignoring callback")
	return nil
}

func (t *turn) rate(ctx context.Context, value string) error {
	if !models.RatingChoices.Contains(value) {
		if t.state == StateFeedback {
			return t.send(ctx, feedbackMessage(t.lang()))
		}
		t.log.Debug().Str("rating", value).Msg("Ignoring unknown rating")
		return nil
	}
	last, err := t.cs.store.LastBotMessage(ctx, t.session.ID)
	if err != nil {
		return t.fail(ctx, err)
	}
	if last != nil {
		if _, err := t.cs.store.SaveFeedback(ctx, last.ID, value); err != nil {
			return t.fail(ctx, err)
		}
	} else {
		t.log.Warn().Msg("Rating without a bot message to attach it to")
	}
	t.cs.metrics.FeedbackRatings.WithLabelValues(value).Inc()
	if err := t.setState(ctx, StateQuestion, nil); err != nil {
		return t.fail(ctx, err)
	}
	return t.send(ctx, withMenu(msgFeedbackThanks.in(t.lang()), t.lang()))
}

func (t *turn) changeLanguage(ctx context.Context, lang string) error {
	if lang != models.LangEnglish && lang != models.LangAmharic {
		return t.send(ctx, settingsMessage(t.lang()))
	}
	if err := t.setState(ctx, StateQuestion, map[string]interface{}{"language": lang}); err != nil {
		return t.fail(ctx, err)
	}
	t.session.Language = lang
	t.log.Info().Str("language", lang).Msg("Changed language")
	return t.send(ctx, withMenu(msgLanguageChanged.in(lang), lang))
}

func (t *turn) newChat(ctx context.Context) error {
	if err := t.cs.store.ClearMessages(ctx, t.session.ID); err != nil {
		return t.fail(ctx, err)
	}
	if err := t.setState(ctx, StateQuestion, nil); err != nil {
		return t.fail(ctx, err)
	}
	return t.send(ctx, withMenu(msgNewChat.in(t.lang()), t.lang()))
}

func (t *turn) endChat(ctx context.Context) error {
	lang := t.lang()
	if err := t.cs.store.DeactivateSession(ctx, t.session); err != nil {
		return t.fail(ctx, err)
	}
	return t.send(ctx, OutgoingMessage{Text: msgEndChat.in(lang), RemoveMenu: true})
}

func (t *turn) startOver(ctx context.Context) error {
	if _, err := t.cs.freshSession(ctx, t.session); err != nil {
		return t.fail(ctx, err)
	}
	return t.send(ctx, OutgoingMessage{
		Text:       msgChooseLanguage,
		Buttons:    languageButtons(cbLanguage),
		RemoveMenu: true,
	})
}
