package services

import (
	"fmt"
	"strings"

	"srh_chat_go_backend/internal/models"
)

var intentDescriptions = map[string]string{
	"ASK_INFO":            "User is asking for information, facts, explanations, or knowledge about sexual and reproductive health topics",
	"ASK_ACTION":          "User is asking for specific help, actions to take, recommendations, or requesting assistance with a problem",
	"REPORT_INCIDENT":     "User is reporting an incident, abuse, assault, harassment, or describing a harmful experience",
	"EXPRESS_EMOTION":     "User is primarily expressing emotions, feelings, concerns, fears, anxiety, or emotional distress",
	"ASK_CONFIDENTIALITY": "User is asking about privacy, confidentiality, or expressing concerns about information being shared",
	"SEEK_VALIDATION":     "User is seeking reassurance, validation, confirmation that their feelings/experiences are normal or valid",
	"REFUSE_HELP":         "User is declining help, refusing assistance, or expressing that they don't want support",
	"OTHER":               "Message doesn't clearly fit into other categories or contains mixed/unclear intent",
}

// IntentKind classifies the primary intent of the recent conversation.
type IntentKind struct{}

func (IntentKind) Kind() AnalysisKind   { return KindIntent }
func (IntentKind) Cadence() Cadence     { return IntentCadence }
func (IntentKind) Window() int          { return 10 }
func (IntentKind) Temperature() float32 { return 0.1 }

func (IntentKind) BuildPrompt(in AnalysisInput) string {
	var options strings.Builder
	for _, c := range models.IntentChoices {
		fmt.Fprintf(&options, "- %s: %s (%s)\n", c.Code, c.EN, intentDescriptions[c.Code])
	}
	messages := numberedMessages(in.Messages)

	if in.Language == models.LangAmharic {
		return fmt.Sprintf(`
የተጠቃሚ መልእክቶችን በመተንተን የዋናውን ዓላማ (intent) ይለዩ።

የተጠቃሚ መልእክቶች:
%s
የሚቻሉ ዓላማዎች:
%s
እባክዎ የተጠቃሚውን ዋና ዓላማ ይለዩ እና ከ0-1 መካከል የመተማመኛ ደረጃ ይስጡ።

መልስዎን በሚከተለው JSON ቅርጸት ይመልሱ:
{
    "intent": "INTENT_CODE",
    "confidence": 0.85,
    "reasoning": "የምርጫው ምክንያት በአማርኛ"
}
`, messages, options.String())
	}
	return fmt.Sprintf(`
Analyze the following user messages and classify the primary intent of the conversation.

User Messages:
%s
Available Intent Categories:
%s
Based on the messages above, determine the user's primary intent and provide a confidence score between 0-1.

Respond in the following JSON format:
{
    "intent": "INTENT_CODE",
    "confidence": 0.85,
    "reasoning": "Brief explanation of why this intent was chosen"
}

Important:
- Consider the overall pattern across all messages
- If multiple intents are present, choose the most prominent one
- Provide confidence based on how clear the intent is
- Focus on sexual and reproductive health context
`, messages, options.String())
}

// Validate falls back to OTHER for unknown intent codes.
func (IntentKind) Validate(obj map[string]interface{}, in AnalysisInput) AnalysisOutcome {
	intent := stringField(obj, "intent")
	if !models.IntentChoices.Contains(intent) {
		intent = "OTHER"
	}
	confidence := confidenceField(obj, "confidence")
	return AnalysisOutcome{
		Record:     &models.Classification{Intent: intent},
		Label:      intent,
		Confidence: confidence,
		Summary:    models.IntentChoices.Label(intent, models.LangEnglish),
		Fields: map[string]interface{}{
			"intent":     intent,
			"confidence": confidence,
			"reasoning":  stringField(obj, "reasoning"),
		},
	}
}
