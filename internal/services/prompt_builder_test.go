package services

import (
	"strings"
	"testing"

	"srh_chat_go_backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestBuildAnswerPrompt_English(t *testing.T) {
	profile := PromptProfile{Language: "en", AgeRange: "A20_24", Gender: "F", Interest: "PREGNANCY", Region: "AMHARA"}
	history := []models.Message{
		{Sender: models.SenderUser, Text: "Is it normal to have cramps?"},
		{Sender: models.SenderBot, Text: "Yes, mild cramps are common."},
		{Sender: models.SenderUser, Text: "When should I test?"},
	}

	prompt := BuildAnswerPrompt(profile, history, "When should I test?")

	assert.True(t, strings.HasPrefix(prompt, "User context:\n- Age range: 20–24\n- Gender: Female\n- Interest: Pregnancy\n- Region: Amhara Region\n- Language: English\n"))
	assert.Contains(t, prompt, "Identity Instructions:")
	assert.Contains(t, prompt, "Recent conversation:\nuser: Is it normal to have cramps?\nbot: Yes, mild cramps are common.\n")
	assert.True(t, strings.HasSuffix(prompt, "\nUser's question: When should I test?"))
	assert.Equal(t, 1, strings.Count(prompt, "When should I test?"), "question appears once, last")
	assert.NotContains(t, prompt, "under 15")

	profileAt := strings.Index(prompt, "User context:")
	directivesAt := strings.Index(prompt, "MEDICATION SAFETY:")
	historyAt := strings.Index(prompt, "Recent conversation:")
	questionAt := strings.Index(prompt, "User's question:")
	assert.True(t, profileAt < directivesAt && directivesAt < historyAt && historyAt < questionAt)
}

func TestBuildAnswerPrompt_Amharic(t *testing.T) {
	profile := PromptProfile{Language: "am", AgeRange: "A15_19", Gender: "M", Interest: "STI_HIV"}
	prompt := BuildAnswerPrompt(profile, nil, "ኤችአይቪ እንዴት ይተላለፋል?")

	assert.True(t, strings.HasPrefix(prompt, "የተጠቃሚ መረጃ:\n- የእድሜ ክልል: 15–19\n- ጾታ: ወንድ\n"))
	assert.Contains(t, prompt, "- ክልል: ልዩ አልተጠቀሰም\n")
	assert.Contains(t, prompt, "- ቋንቋ: አማርኛ\n")
	assert.NotContains(t, prompt, "ቅርብ ውይይት:", "no history section without history")
	assert.True(t, strings.HasSuffix(prompt, "የተጠቃሚ ጥያቄ: ኤችአይቪ እንዴት ይተላለፋል?"))
}

func TestBuildAnswerPrompt_UnderFifteen(t *testing.T) {
	for _, lang := range []string{"en", "am"} {
		prompt := BuildAnswerPrompt(PromptProfile{Language: lang, AgeRange: "U15"}, nil, "q")
		assert.Contains(t, prompt, answerPromptText[lang].underFifteen, lang)
	}
}

func TestBuildAnswerPrompt_UnknownLanguageUsesEnglish(t *testing.T) {
	prompt := BuildAnswerPrompt(PromptProfile{Language: "fr"}, nil, "q")
	assert.True(t, strings.HasPrefix(prompt, "User context:"))
	assert.Contains(t, prompt, "- Region: Not specified\n")
}

func TestWithoutTrailingQuestion(t *testing.T) {
	history := []models.Message{
		{Sender: models.SenderUser, Text: "a"},
		{Sender: models.SenderBot, Text: "b"},
	}
	assert.Len(t, withoutTrailingQuestion(history, "b"), 2, "bot text equal to the question is kept")
	history = append(history, models.Message{Sender: models.SenderUser, Text: "c"})
	assert.Len(t, withoutTrailingQuestion(history, "c"), 2)
	assert.Len(t, withoutTrailingQuestion(history, "d"), 3)
}
