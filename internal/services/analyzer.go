package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"srh_chat_go_backend/internal/models"
	"srh_chat_go_backend/internal/utils/broker"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
)

// ErrMalformedAnalysis marks a completion that held no usable JSON object.
var ErrMalformedAnalysis = errors.New("malformed analysis response")

// AnalysisInput is everything a kind sees when it builds a prompt and
// validates the answer.
type AnalysisInput struct {
	Session       *models.Session
	Language      string
	Messages      []models.Message // user messages, oldest first
	Anchor        *models.Message  // latest user message, set for anchored kinds
	TotalMessages int
}

// AnalysisOutcome is a validated result ready to persist.
type AnalysisOutcome struct {
	// Record is one of the *models analysis types with its kind-specific
	// fields filled; the pipeline fills the shared columns.
	Record     analysisRecord
	Label      string
	Confidence float64
	Summary    string
	// Fields is the validated result as stored under analysis_context.
	Fields map[string]interface{}
}

type analysisRecord interface {
	Base() *models.AnalysisRecord
}

// AnalyzerKind is the capability set that distinguishes the four analyzers.
type AnalyzerKind interface {
	Kind() AnalysisKind
	Cadence() Cadence
	Window() int
	Temperature() float32
	BuildPrompt(in AnalysisInput) string
	Validate(obj map[string]interface{}, in AnalysisInput) AnalysisOutcome
}

// anchoredKind is implemented by kinds whose records point at the
// triggering user message.
type anchoredKind interface {
	Anchored() bool
}

// AnalysisEvent is published to the broker after a record is saved.
type AnalysisEvent struct {
	Kind             AnalysisKind `json:"kind"`
	RecordID         uuid.UUID    `json:"record_id"`
	SessionID        uuid.UUID    `json:"session_id"`
	UserID           string       `json:"user_id"`
	Label            string       `json:"label"`
	Confidence       float64      `json:"confidence"`
	Summary          string       `json:"summary"`
	MessagesAnalyzed int          `json:"messages_analyzed"`
	TotalMessages    int          `json:"total_user_messages"`
	CreatedAt        time.Time    `json:"created_at"`
}

// Analyzer runs one kind through threshold check, fetch, prompt, call,
// validate and persist.
type Analyzer struct {
	kind      AnalyzerKind
	store     SessionStore
	completer Completer
	sink      ResultSink
	log       zerolog.Logger
	metrics   *Metrics
}

func NewAnalyzer(kind AnalyzerKind, store SessionStore, completer Completer, sink ResultSink, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		kind:      kind,
		store:     store,
		completer: completer,
		sink:      sink,
		log:       log.With().Str("component", "analyzer").Str("analyzer", string(kind.Kind())).Logger(),
		metrics:   NewMetrics(),
	}
}

// Run returns nil, nil when no new threshold has been crossed.
func (a *Analyzer) Run(ctx context.Context, session *models.Session) (*AnalysisEvent, error) {
	kind := a.kind.Kind()
	log := a.log.With().Str("sessionID", session.ID.String()).Logger()

	total, err := a.store.CountUserMessages(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("count user messages: %w", err)
	}
	saved, err := a.store.CountAnalysisRecords(ctx, kind, session.ID)
	if err != nil {
		return nil, fmt.Errorf("count %s records: %w", kind, err)
	}
	if !ShouldRun(a.kind.Cadence(), total, saved) {
		a.metrics.AnalysisSkipped.WithLabelValues(string(kind)).Inc()
		log.Debug().Int("total", total).Int("saved", saved).Msg("No analysis threshold crossed")
		return nil, nil
	}

	window := a.kind.Window()
	if total < window {
		window = total
	}
	messages, err := a.store.RecentMessages(ctx, session.ID, window, models.SenderUser)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	if len(messages) == 0 {
		log.Warn().Msg("No user messages to analyze")
		return nil, nil
	}

	in := AnalysisInput{
		Session:       session,
		Language:      session.Lang(),
		Messages:      messages,
		TotalMessages: total,
	}
	if ak, ok := a.kind.(anchoredKind); ok && ak.Anchored() {
		anchor, err := a.store.LatestUserMessage(ctx, session.ID)
		if err != nil {
			return nil, fmt.Errorf("load latest message: %w", err)
		}
		if anchor == nil {
			log.Warn().Msg("Could not find latest message to anchor analysis")
			return nil, nil
		}
		in.Anchor = anchor
	}

	log.Info().Int("total", total).Int("window", len(messages)).Msg("Running analysis")
	raw := a.completer.Complete(ctx, a.kind.BuildPrompt(in), a.kind.Temperature())

	obj, err := extractJSONObject(raw)
	if err != nil {
		a.metrics.AnalysisRuns.WithLabelValues(string(kind), "invalid").Inc()
		log.Error().Err(err).Str("raw", raw).Msg("Discarding analysis response")
		return nil, err
	}
	out := a.kind.Validate(obj, in)

	base := out.Record.Base()
	base.SessionID = session.ID
	base.MessagesAnalyzed = len(messages)
	conf := out.Confidence
	base.ConfidenceScore = &conf
	ctxJSON, err := analysisContext(messages, out.Fields, raw, total)
	if err != nil {
		return nil, err
	}
	base.AnalysisContext = ctxJSON

	if err := a.store.SaveAnalysisRecord(ctx, out.Record); err != nil {
		a.metrics.AnalysisRuns.WithLabelValues(string(kind), "failed").Inc()
		return nil, fmt.Errorf("save %s record: %w", kind, err)
	}
	a.metrics.AnalysisRuns.WithLabelValues(string(kind), "saved").Inc()
	warnIfSevere(log, session, out.Record)

	event := &AnalysisEvent{
		Kind:             kind,
		RecordID:         base.ID,
		SessionID:        session.ID,
		UserID:           session.UserID,
		Label:            out.Label,
		Confidence:       out.Confidence,
		Summary:          out.Summary,
		MessagesAnalyzed: len(messages),
		TotalMessages:    total,
		CreatedAt:        base.CreatedAt,
	}
	if a.sink != nil {
		if dropped := a.sink.Publish(broker.TopicAnalysis, event); dropped > 0 {
			log.Debug().Int("dropped", dropped).Msg("Slow monitor subscribers missed an analysis event")
		}
	}
	log.Info().Str("label", out.Label).Float64("confidence", out.Confidence).Msg("Saved analysis")
	return event, nil
}

func warnIfSevere(log zerolog.Logger, session *models.Session, record analysisRecord) {
	switch r := record.(type) {
	case *models.RiskAssessment:
		if IsHighRisk(r) {
			log.Warn().
				Str("userID", session.UserID).
				Str("risk", r.RiskLevel).
				Float64("severity", *r.SeverityScore).
				Msg("High risk detected")
		}
	case *models.MythAssessment:
		if IsHighSeverityMyth(r) {
			log.Warn().
				Str("userID", session.UserID).
				Str("myth", r.MythType).
				Str("severity", r.SeverityLevel).
				Str("details", r.SpecificMyth).
				Msg("High severity myth detected")
		}
	}
}

func analysisContext(messages []models.Message, fields map[string]interface{}, raw string, total int) (datatypes.JSON, error) {
	analyzed := make([]map[string]interface{}, len(messages))
	for i, m := range messages {
		analyzed[i] = map[string]interface{}{
			"id":        fmt.Sprint(m.ID),
			"message":   m.Text,
			"timestamp": m.CreatedAt.Format(time.RFC3339Nano),
			"language":  m.Language,
		}
	}
	result := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		result[k] = v
	}
	result["raw_response"] = raw
	b, err := json.Marshal(map[string]interface{}{
		"messages_analyzed":   analyzed,
		"result":              result,
		"total_user_messages": total,
	})
	if err != nil {
		return nil, fmt.Errorf("encode analysis context: %w", err)
	}
	return datatypes.JSON(b), nil
}

// extractJSONObject decodes the span from the first '{' to the last '}'.
// Numbers decode as json.Number so integer fields can be told apart.
func extractJSONObject(raw string) (map[string]interface{}, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end < start {
		return nil, fmt.Errorf("%w: no JSON object found", ErrMalformedAnalysis)
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw[start : end+1])))
	dec.UseNumber()
	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAnalysis, err)
	}
	return obj, nil
}

func stringField(obj map[string]interface{}, key string) string {
	s, _ := obj[key].(string)
	return s
}

func boolField(obj map[string]interface{}, key string) bool {
	b, _ := obj[key].(bool)
	return b
}

func numberField(obj map[string]interface{}, key string) (float64, bool) {
	n, ok := obj[key].(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	return f, err == nil
}

func intField(obj map[string]interface{}, key string) (int, bool) {
	n, ok := obj[key].(json.Number)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	return int(i), err == nil
}

func stringSliceField(obj map[string]interface{}, key string) []string {
	items, _ := obj[key].([]interface{})
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// confidenceField defaults anything missing or outside [0,1] to 0.5.
func confidenceField(obj map[string]interface{}, key string) float64 {
	f, ok := numberField(obj, key)
	if !ok || f < 0 || f > 1 {
		return 0.5
	}
	return f
}

func numberedMessages(messages []models.Message) string {
	var b strings.Builder
	for i, m := range messages {
		fmt.Fprintf(&b, "Message %d: %s\n", i+1, m.Text)
	}
	return b.String()
}

// AnalysisDispatcher starts every analyzer for a session without making
// the caller wait. Runs are detached from the request context; failures
// are logged and dropped. At most one run per session and kind is in
// flight at a time.
type AnalysisDispatcher struct {
	analyzers []*Analyzer
	log       zerolog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
	wg       sync.WaitGroup
}

func NewAnalysisDispatcher(log zerolog.Logger, analyzers ...*Analyzer) *AnalysisDispatcher {
	return &AnalysisDispatcher{
		analyzers: analyzers,
		log:       log.With().Str("component", "analysis_dispatcher").Logger(),
		inFlight:  make(map[string]struct{}),
	}
}

// NewDefaultAnalysisDispatcher wires the intent, emotion, risk and myth
// analyzers.
func NewDefaultAnalysisDispatcher(store SessionStore, completer Completer, sink ResultSink, log zerolog.Logger) *AnalysisDispatcher {
	kinds := []AnalyzerKind{IntentKind{}, EmotionKind{}, RiskKind{}, MythKind{}}
	analyzers := make([]*Analyzer, len(kinds))
	for i, k := range kinds {
		analyzers[i] = NewAnalyzer(k, store, completer, sink, log)
	}
	return NewAnalysisDispatcher(log, analyzers...)
}

func (d *AnalysisDispatcher) Dispatch(ctx context.Context, session *models.Session) {
	ctx = context.WithoutCancel(ctx)
	snapshot := *session
	snapshot.Messages = nil
	for _, a := range d.analyzers {
		key := snapshot.ID.String() + "/" + string(a.kind.Kind())
		if !d.begin(key) {
			d.log.Debug().Str("key", key).Msg("Analysis already running")
			continue
		}
		d.wg.Add(1)
		go func(a *Analyzer) {
			defer d.wg.Done()
			defer d.end(key)
			defer func() {
				if r := recover(); r != nil {
					d.log.Error().Interface("panic", r).Str("key", key).Msg("Analyzer panicked")
				}
			}()
			if _, err := a.Run(ctx, &snapshot); err != nil {
				a.log.Error().Err(err).Str("sessionID", snapshot.ID.String()).Msg("Analysis failed")
			}
		}(a)
	}
}

// Wait blocks until every dispatched run has finished. Only shutdown and
// tests call it.
func (d *AnalysisDispatcher) Wait() {
	d.wg.Wait()
}

func (d *AnalysisDispatcher) begin(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.inFlight[key]; ok {
		return false
	}
	d.inFlight[key] = struct{}{}
	return true
}

func (d *AnalysisDispatcher) end(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inFlight, key)
}
