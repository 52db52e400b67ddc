package services

import (
	"fmt"

	"srh_chat_go_backend/internal/models"

	"gorm.io/datatypes"
)

// HighRiskSeverity is the severity at which an assessment is logged as a
// warning for follow-up.
const HighRiskSeverity = 0.7

// RiskKind screens recent messages for safety risks.
type RiskKind struct{}

func (RiskKind) Kind() AnalysisKind   { return KindRisk }
func (RiskKind) Cadence() Cadence     { return RiskCadence }
func (RiskKind) Window() int          { return 15 }
func (RiskKind) Temperature() float32 { return 0.1 }

func (RiskKind) BuildPrompt(in AnalysisInput) string {
	return fmt.Sprintf(`
You are an AI risk assessment specialist for sexual and reproductive health (SRH) conversations.
Analyze the following user messages and assess any potential risks.

RISK CATEGORIES TO ASSESS:
- ABUSE: Physical or sexual abuse indicators
- DOMESTIC_VIOLENCE: Signs of domestic violence or intimate partner violence
- SELF_HARM: Self-harm behaviors or suicide ideation
- ILLEGAL_ABORTION: Unsafe or illegal abortion attempts/plans
- SEXUAL_VIOLENCE: Sexual assault, rape, or non-consensual activities
- UNSAFE_PRACTICES: Dangerous sexual practices that could cause harm
- CRISIS: Mental health crisis requiring immediate attention
- NEUTRAL: No significant risks detected

ASSESSMENT INSTRUCTIONS:
1. Carefully analyze each message for direct or indirect risk indicators
2. Look for concerning patterns, language, or behaviors
3. Consider cultural context (this is from Ethiopia)
4. Pay attention to emotional distress combined with risky situations
5. Assess both immediate and potential future risks

USER MESSAGES:
%s
SESSION LANGUAGE: %s

RESPONSE FORMAT (JSON):
{
    "risk_level": "RISK_CATEGORY_CODE",
    "severity_score": 0.0-1.0,
    "risk_indicators": ["specific phrase or pattern 1", "indicator 2"],
    "confidence_score": 0.0-1.0,
    "analysis_summary": "Brief explanation of risk assessment",
    "recommended_action": "Suggested response or intervention if needed"
}

Be cautious but not overly sensitive. Focus on genuine safety concerns rather than general health questions.
`, numberedMessages(in.Messages), in.Language)
}

// Validate falls back to NEUTRAL and clamps severity into [0,1]. A missing
// severity stays unset.
func (RiskKind) Validate(obj map[string]interface{}, in AnalysisInput) AnalysisOutcome {
	level := stringField(obj, "risk_level")
	if !models.RiskLevelChoices.Contains(level) {
		level = "NEUTRAL"
	}
	var severity *float64
	if s, ok := numberField(obj, "severity_score"); ok {
		s = clamp01(s)
		severity = &s
	}
	indicators := stringSliceField(obj, "risk_indicators")
	confidence := confidenceField(obj, "confidence_score")

	record := &models.RiskAssessment{
		RiskLevel:      level,
		RiskIndicators: datatypes.JSONSlice[string](indicators),
		SeverityScore:  severity,
	}
	fields := map[string]interface{}{
		"risk_level":         level,
		"risk_indicators":    indicators,
		"confidence_score":   confidence,
		"analysis_summary":   stringField(obj, "analysis_summary"),
		"recommended_action": stringField(obj, "recommended_action"),
	}
	if severity != nil {
		fields["severity_score"] = *severity
	}
	return AnalysisOutcome{
		Record:     record,
		Label:      level,
		Confidence: confidence,
		Summary:    record.Summary(),
		Fields:     fields,
	}
}

// IsHighRisk reports whether the severity warrants a warning.
func IsHighRisk(r *models.RiskAssessment) bool {
	return r.SeverityScore != nil && *r.SeverityScore >= HighRiskSeverity
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
