package services

import (
	"fmt"
	"strings"

	"srh_chat_go_backend/internal/models"

	"gorm.io/datatypes"
)

var emotionDescriptions = map[string]string{
	"FEAR":         "Fear, anxiety, worry, nervousness, or apprehension about health, pregnancy, STIs, or safety",
	"SHAME":        "Shame, embarrassment, guilt, or self-blame related to sexual health, experiences, or body",
	"CONFUSION":    "Confusion, uncertainty, lack of understanding, or feeling lost about sexual/reproductive health",
	"SADNESS":      "Sadness, depression, grief, disappointment, or feeling down about health or relationships",
	"ANGER":        "Anger, frustration, irritation, or feeling upset about treatment, relationships, or circumstances",
	"HELPLESSNESS": "Helplessness, powerlessness, feeling stuck, or unable to control health/relationship situations",
	"NEUTRAL":      "Calm, neutral, matter-of-fact tone without strong emotional content",
}

const emotionExample = `{
    "emotion_ratings": {
        "FEAR": 0,
        "SHAME": 1,
        "CONFUSION": 0,
        "SADNESS": 2,
        "ANGER": 0,
        "HELPLESSNESS": 1,
        "NEUTRAL": 0
    },
    "primary_emotion": "SADNESS",
    "confidence": 0.85,
    "reasoning": "%s"
}`

// EmotionKind rates each emotion 0-2 and picks the primary one.
type EmotionKind struct{}

func (EmotionKind) Kind() AnalysisKind   { return KindEmotion }
func (EmotionKind) Cadence() Cadence     { return EmotionCadence }
func (EmotionKind) Window() int          { return 10 }
func (EmotionKind) Temperature() float32 { return 0.1 }

func (EmotionKind) BuildPrompt(in AnalysisInput) string {
	var options strings.Builder
	for _, c := range models.EmotionChoices {
		fmt.Fprintf(&options, "- %s: %s (%s)\n", c.Code, c.EN, emotionDescriptions[c.Code])
	}
	messages := numberedMessages(in.Messages)

	if in.Language == models.LangAmharic {
		return fmt.Sprintf(`
የተጠቃሚ መልእክቶችን በመተንተን ስሜቶችን ይለዩ እና ይገምግሙ።

የተጠቃሚ መልእክቶች:
%s
የሚለዩ ስሜቶች:
%s
ለእያንዳንዱ ስሜት ደረጃ ይስጡ:
- 0: የለም (ስሜቱ በፍጹም አይታይም)
- 1: መካከለኛ (ስሜቱ ትንሽ ይታያል)
- 2: ጠንካራ (ስሜቱ በግልጽ እና በጠንካራ ሁኔታ ይታያል)

እንዲሁም በጣም ጠንካራውን ስሜት (primary_emotion) እና አጠቃላይ የመተማመኛ ደረጃ (0-1) ይስጡ።

መልስዎን በሚከተለው JSON ቅርጸት ይመልሱ:
%s
`, messages, options.String(), fmt.Sprintf(emotionExample, "የምርጫው ምክንያት በአማርኛ"))
	}
	return fmt.Sprintf(`
Analyze the following user messages and detect emotions present in the conversation. Rate each emotion on a scale of 0-2.

User Messages:
%s
Emotions to Detect:
%s
Rating Scale:
- 0: Not Present (emotion is not detected in the messages)
- 1: Mild (emotion is subtly present or hinted at)
- 2: Strong (emotion is clearly and strongly expressed)

Also identify the primary (strongest) emotion and provide an overall confidence score (0-1).

Respond in the following JSON format:
%s

Important:
- Rate ALL emotions (including NEUTRAL)
- Only one emotion should be marked as primary_emotion
- Consider the overall emotional tone across all messages
- Focus on sexual and reproductive health context
- If no strong emotions are detected, NEUTRAL should have the highest rating
`, messages, options.String(), fmt.Sprintf(emotionExample, "Brief explanation of the emotional analysis"))
}

// Validate rates every known emotion, zeroing ratings outside {0,1,2}. An
// unknown primary emotion becomes the highest rated one, ties going to the
// earliest in choice order.
func (EmotionKind) Validate(obj map[string]interface{}, in AnalysisInput) AnalysisOutcome {
	raw, _ := obj["emotion_ratings"].(map[string]interface{})
	ratings := make(map[string]int, len(models.EmotionChoices))
	for _, c := range models.EmotionChoices {
		r, ok := intField(raw, c.Code)
		if !ok || r < 0 || r > 2 {
			r = 0
		}
		ratings[c.Code] = r
	}

	primary := stringField(obj, "primary_emotion")
	if !models.EmotionChoices.Contains(primary) {
		best := -1
		for _, c := range models.EmotionChoices {
			if ratings[c.Code] > best {
				best = ratings[c.Code]
				primary = c.Code
			}
		}
	}
	confidence := confidenceField(obj, "confidence")

	record := &models.Emotion{
		EmotionRatings: datatypes.NewJSONType(ratings),
		PrimaryEmotion: primary,
	}
	return AnalysisOutcome{
		Record:     record,
		Label:      primary,
		Confidence: confidence,
		Summary:    record.Summary(),
		Fields: map[string]interface{}{
			"emotion_ratings": ratings,
			"primary_emotion": primary,
			"confidence":      confidence,
			"reasoning":       stringField(obj, "reasoning"),
		},
	}
}
