package services

import (
	"context"

	"srh_chat_go_backend/internal/models"
)

// stepPrompt is the question asked in an onboarding state. It doubles as
// the re-prompt after invalid input.
func stepPrompt(state ConversationState, lang string) OutgoingMessage {
	switch state {
	case StateAge:
		return OutgoingMessage{Text: msgWelcome.in(lang), Buttons: choiceButtons(cbAge, models.AgeRanges, lang)}
	case StateGender:
		return OutgoingMessage{Text: msgGenderPrompt.in(lang), Buttons: choiceButtons(cbGender, models.Genders, lang)}
	case StateInterest:
		return OutgoingMessage{Text: msgInterestPrompt.in(lang), Buttons: choiceButtons(cbInterest, models.InterestAreas, lang)}
	case StateRegion:
		return OutgoingMessage{Text: msgRegionPrompt.in(lang), Buttons: regionButtons(lang)}
	}
	return OutgoingMessage{Text: msgChooseLanguage, Buttons: languageButtons(cbLanguage), RemoveMenu: true}
}

type onboardingStep struct {
	callback string
	choices  models.ChoiceSet
	column   string
	next     ConversationState
}

var onboardingSteps = map[ConversationState]onboardingStep{
	StateAge:      {cbAge, models.AgeRanges, "age_range", StateGender},
	StateGender:   {cbGender, models.Genders, "gender", StateInterest},
	StateInterest: {cbInterest, models.InterestAreas, "interest_area", StateRegion},
}

func (t *turn) handleOnboarding(ctx context.Context, code, value string) error {
	switch t.state {
	case StateLanguageSelect:
		if code != cbLanguage || (value != models.LangEnglish && value != models.LangAmharic) {
			return t.send(ctx, stepPrompt(t.state, t.lang()))
		}
		if err := t.setState(ctx, StateAge, map[string]interface{}{"language": value}); err != nil {
			return t.fail(ctx, err)
		}
		t.session.Language = value
		return t.send(ctx, stepPrompt(StateAge, value))

	case StateRegion:
		if code != cbRegion {
			return t.send(ctx, stepPrompt(t.state, t.lang()))
		}
		if value == regionAutoDetect {
			return t.autoDetectRegion(ctx)
		}
		if !models.Regions.Contains(value) {
			return t.send(ctx, stepPrompt(t.state, t.lang()))
		}
		if err := t.setState(ctx, StateQuestion, regionFields(value, models.DefaultLatitude, models.DefaultLongitude)); err != nil {
			return t.fail(ctx, err)
		}
		return t.send(ctx, withMenu(msgOnboardingDone.in(t.lang()), t.lang()))
	}

	step, ok := onboardingSteps[t.state]
	if !ok || code != step.callback || !step.choices.Contains(value) {
		return t.send(ctx, stepPrompt(t.state, t.lang()))
	}
	if err := t.setState(ctx, step.next, map[string]interface{}{step.column: value}); err != nil {
		return t.fail(ctx, err)
	}
	return t.send(ctx, stepPrompt(step.next, t.lang()))
}

// autoDetectRegion always completes onboarding; a failed lookup stores the
// default location.
func (t *turn) autoDetectRegion(ctx context.Context) error {
	lang := t.lang()
	text := ""
	loc, err := t.cs.geo.DetectLocation(ctx, t.ev.ClientIP)
	if err != nil {
		t.log.Warn().Err(err).Msg("Auto-detect failed, using default location")
		loc = DefaultLocation()
		text = msgAutoDetectFailed.in(lang)
	} else {
		text = autoDetectedText(lang, loc.Region)
	}
	if err := t.setState(ctx, StateQuestion, regionFields(loc.Region, loc.Latitude, loc.Longitude)); err != nil {
		return t.fail(ctx, err)
	}
	return t.send(ctx, withMenu(text, lang))
}

func regionFields(region string, lat, lon float64) map[string]interface{} {
	return map[string]interface{}{
		"region":    region,
		"latitude":  lat,
		"longitude": lon,
	}
}
