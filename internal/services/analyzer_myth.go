package services

import (
	"fmt"

	"srh_chat_go_backend/internal/models"
)

// MythKind looks for SRH myths and misconceptions. Each record points at
// the latest user message.
type MythKind struct{}

func (MythKind) Kind() AnalysisKind   { return KindMyth }
func (MythKind) Cadence() Cadence     { return MythCadence }
func (MythKind) Window() int          { return 5 }
func (MythKind) Temperature() float32 { return 0.2 }
func (MythKind) Anchored() bool       { return true }

func (MythKind) BuildPrompt(in AnalysisInput) string {
	return fmt.Sprintf(`
You are an AI myth detection specialist for sexual and reproductive health (SRH) conversations.
Analyze the following user messages for myths, misconceptions, and misinformation.

CATEGORIES TO DETECT:

CULTURAL/TRADITIONAL MYTHS:
- CULTURAL_HYMEN: Beliefs about hymens proving virginity
- CULTURAL_MENSTRUATION: Traditional taboos about menstruation
- CULTURAL_FERTILITY: Cultural beliefs about fertility/infertility
- CULTURAL_PREGNANCY: Traditional pregnancy beliefs
- CULTURAL_CONTRACEPTION: Cultural myths about contraception

MEDICAL MISCONCEPTIONS:
- MEDICAL_CONTRACEPTION: Wrong medical facts about contraception
- MEDICAL_STI: Incorrect information about STI/HIV transmission/prevention
- MEDICAL_PREGNANCY: Medical misinformation about pregnancy
- MEDICAL_ANATOMY: Wrong understanding of sexual/reproductive anatomy
- MEDICAL_PUBERTY: Misconceptions about puberty and development
- MEDICAL_MENSTRUATION: Medical misinformation about menstrual health

NO_MYTH: No myths or misconceptions detected

DETECTION GUIDELINES:
1. Look for statements that contain factually incorrect information
2. Identify cultural beliefs that may contradict medical evidence
3. Focus on SRH-related myths only
4. Consider Ethiopian cultural context
5. Differentiate between cultural myths (harder to correct) and medical misconceptions (easier to educate)
6. Assess severity based on potential health impact

COMMON ETHIOPIAN SRH MYTHS TO WATCH FOR:
- Hymen/virginity misconceptions
- Menstrual taboos and restrictions
- Contraception side effects fears
- STI transmission myths
- Pregnancy and birth beliefs
- Fertility misconceptions

USER MESSAGES:
%s
SESSION LANGUAGE: %s

RESPONSE FORMAT (JSON):
{
    "myth_detected": true/false,
    "myth_type": "CATEGORY_CODE",
    "confidence_score": 0.0-1.0,
    "specific_myth": "Brief description of the specific myth/misconception detected",
    "severity_level": "LOW|MEDIUM|HIGH|CRITICAL",
    "cultural_sensitivity_needed": true/false,
    "correction_approach": "gentle|educational|medical_facts",
    "analysis_summary": "Brief explanation of what was detected"
}

Be thorough but not overly sensitive. Focus on genuine myths and misconceptions rather than general questions.
`, numberedMessages(in.Messages), in.Language)
}

// Validate falls back to NO_MYTH and drops unknown severities. A detection
// flag without a myth category is not a detection.
func (MythKind) Validate(obj map[string]interface{}, in AnalysisInput) AnalysisOutcome {
	mythType := stringField(obj, "myth_type")
	if !models.MythChoices.Contains(mythType) {
		mythType = "NO_MYTH"
	}
	detected := boolField(obj, "myth_detected") && mythType != "NO_MYTH"
	severity := stringField(obj, "severity_level")
	if !models.MythSeverityChoices.Contains(severity) {
		severity = ""
	}
	confidence := confidenceField(obj, "confidence_score")

	record := &models.MythAssessment{
		MythType:      mythType,
		MythDetected:  detected,
		SpecificMyth:  stringField(obj, "specific_myth"),
		SeverityLevel: severity,
	}
	if in.Anchor != nil {
		record.MessageID = in.Anchor.ID
	}
	return AnalysisOutcome{
		Record:     record,
		Label:      mythType,
		Confidence: confidence,
		Summary:    record.Summary(),
		Fields: map[string]interface{}{
			"myth_detected":               detected,
			"myth_type":                   mythType,
			"confidence_score":            confidence,
			"specific_myth":               record.SpecificMyth,
			"severity_level":              severity,
			"cultural_sensitivity_needed": boolField(obj, "cultural_sensitivity_needed"),
			"correction_approach":         stringField(obj, "correction_approach"),
			"analysis_summary":            stringField(obj, "analysis_summary"),
		},
	}
}

// IsHighSeverityMyth reports detections that deserve a warning.
func IsHighSeverityMyth(m *models.MythAssessment) bool {
	return m.MythDetected && (m.SeverityLevel == "HIGH" || m.SeverityLevel == "CRITICAL")
}
