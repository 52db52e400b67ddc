package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"srh_chat_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
	"github.com/rs/zerolog"
)

// ReportService renders the analysis history of one session as a PDF.
type ReportService struct {
	store SessionStore
	log   zerolog.Logger
	now   func() time.Time
}

func NewReportService(store SessionStore, log zerolog.Logger) *ReportService {
	return &ReportService{
		store: store,
		log:   log.With().Str("component", "report_service").Logger(),
		now:   time.Now,
	}
}

// WriteSessionReport writes the report for sessionID to w. It returns
// ErrSessionNotFound for an unknown session.
func (r *ReportService) WriteSessionReport(ctx context.Context, sessionID uuid.UUID, w io.Writer) error {
	session, err := r.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	analyses, err := r.store.ListAnalyses(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load analyses: %w", err)
	}
	total, err := r.store.CountUserMessages(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to count messages: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Session Analysis Report", true)
	pdf.SetAuthor("srh-chat", true)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	rep := &reportWriter{pdf: pdf, tr: tr}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Session Analysis Report", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, "Generated "+r.now().UTC().Format(time.RFC3339), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	rep.section("Session")
	rep.field("Session ID", session.ID.String())
	rep.field("User", session.UserID)
	rep.field("Active", fmt.Sprintf("%t", session.IsActive))
	rep.field("Language", session.Lang())
	rep.field("Age range", models.AgeRanges.Label(session.AgeRange, models.LangEnglish))
	rep.field("Gender", models.Genders.Label(session.Gender, models.LangEnglish))
	rep.field("Interest", models.InterestAreas.Label(session.InterestArea, models.LangEnglish))
	rep.field("Region", regionLine(session))
	rep.field("State", session.ConversationState)
	rep.field("Started", session.CreatedAt.UTC().Format(time.RFC3339))
	rep.field("User messages", fmt.Sprintf("%d", total))

	rep.section(fmt.Sprintf("Intent classifications (%d)", len(analyses.Classifications)))
	rep.header([]string{"Date", "Intent", "Confidence", "Messages"}, []float64{40, 70, 35, 35})
	for _, c := range analyses.Classifications {
		rep.row([]string{
			stamp(c.CreatedAt),
			models.IntentChoices.Label(c.Intent, models.LangEnglish),
			confidenceText(c.ConfidenceScore),
			fmt.Sprintf("%d", c.MessagesAnalyzed),
		})
	}

	rep.section(fmt.Sprintf("Emotions (%d)", len(analyses.Emotions)))
	rep.header([]string{"Date", "Primary", "Ratings"}, []float64{40, 35, 105})
	for _, e := range analyses.Emotions {
		rep.row([]string{
			stamp(e.CreatedAt),
			models.EmotionChoices.Label(e.PrimaryEmotion, models.LangEnglish),
			e.Summary(),
		})
	}

	rep.section(fmt.Sprintf("Risk assessments (%d)", len(analyses.RiskAssessments)))
	rep.header([]string{"Date", "Assessment", "Indicators"}, []float64{40, 70, 70})
	for _, ra := range analyses.RiskAssessments {
		rep.row([]string{
			stamp(ra.CreatedAt),
			ra.Summary(),
			strings.Join(ra.RiskIndicators, ", "),
		})
	}

	rep.section(fmt.Sprintf("Myth assessments (%d)", len(analyses.MythAssessments)))
	rep.header([]string{"Date", "Assessment", "Myth", "Corrected"}, []float64{40, 60, 55, 25})
	for _, m := range analyses.MythAssessments {
		corrected := "no"
		if m.CorrectionProvided {
			corrected = "yes"
		}
		rep.row([]string{stamp(m.CreatedAt), m.Summary(), m.SpecificMyth, corrected})
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	r.log.Info().Str("sessionID", sessionID.String()).Msg("Rendered session report")
	return nil
}

type reportWriter struct {
	pdf    *gofpdf.Fpdf
	tr     func(string) string
	widths []float64
}

func (w *reportWriter) section(title string) {
	w.pdf.Ln(4)
	w.pdf.SetFont("Helvetica", "B", 12)
	w.pdf.CellFormat(0, 8, w.tr(title), "B", 1, "L", false, 0, "")
	w.pdf.Ln(1)
}

func (w *reportWriter) field(label, value string) {
	w.pdf.SetFont("Helvetica", "B", 10)
	w.pdf.CellFormat(40, 6, w.tr(label), "", 0, "L", false, 0, "")
	w.pdf.SetFont("Helvetica", "", 10)
	w.pdf.CellFormat(0, 6, w.tr(value), "", 1, "L", false, 0, "")
}

func (w *reportWriter) header(cols []string, widths []float64) {
	w.widths = widths
	w.pdf.SetFont("Helvetica", "B", 9)
	w.pdf.SetFillColor(230, 230, 230)
	for i, c := range cols {
		w.pdf.CellFormat(widths[i], 6, c, "1", 0, "L", true, 0, "")
	}
	w.pdf.Ln(-1)
	w.pdf.SetFont("Helvetica", "", 9)
}

// row wraps long cells and keeps every cell of the row at the same height.
func (w *reportWriter) row(cells []string) {
	const lineHeight = 5
	lines := make([][]string, len(cells))
	height := 1
	for i, c := range cells {
		lines[i] = w.pdf.SplitText(w.tr(c), w.widths[i]-2)
		if len(lines[i]) == 0 {
			lines[i] = []string{""}
		}
		height = max(height, len(lines[i]))
	}
	x, y := w.pdf.GetXY()
	_, pageHeight := w.pdf.GetPageSize()
	left, _, _, bottom := w.pdf.GetMargins()
	if y+float64(height*lineHeight) > pageHeight-bottom {
		w.pdf.AddPage()
		x, y = w.pdf.GetXY()
	}
	for i := range cells {
		w.pdf.Rect(x, y, w.widths[i], float64(height*lineHeight), "D")
		for j, line := range lines[i] {
			w.pdf.SetXY(x+1, y+float64(j*lineHeight))
			w.pdf.CellFormat(w.widths[i]-2, lineHeight, line, "", 0, "L", false, 0, "")
		}
		x += w.widths[i]
	}
	w.pdf.SetXY(left, y+float64(height*lineHeight))
}

func regionLine(s *models.Session) string {
	code := s.RegionCode()
	if code == "" {
		return "Not specified"
	}
	line := models.Regions.Label(code, models.LangEnglish)
	if s.Latitude != nil && s.Longitude != nil {
		line += " (" + FormatCoordinates(*s.Latitude, *s.Longitude) + ")"
	}
	return line
}

func stamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}

func confidenceText(c *float64) string {
	if c == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *c)
}
