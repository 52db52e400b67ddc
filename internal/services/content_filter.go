package services

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

//go:embed data/content_filter.yaml
var defaultFilterRules []byte

// FilterResult reports whether a question is rejected before answering.
type FilterResult struct {
	Rejected bool
	Category string
	// Match names the rule family that fired: keyword, pattern,
	// gender_pattern or ai.
	Match   string
	Rule    string
	Message string
}

// ContentFilter gates the question path. Implementations must not call the
// completion client unless they bound and fail open on it.
type ContentFilter interface {
	Check(ctx context.Context, text, lang, gender string) FilterResult
}

type filterRuleFile struct {
	Category  string                       `yaml:"category"`
	Languages map[string]filterLanguageSet `yaml:"languages"`
	Rejection localized                    `yaml:"rejection"`
}

type filterLanguageSet struct {
	Keywords       []string            `yaml:"keywords"`
	Patterns       []string            `yaml:"patterns"`
	GenderPatterns map[string][]string `yaml:"gender_patterns"`
}

type keywordRule struct {
	keyword string
	re      *regexp.Regexp // set for ASCII keywords, which match on word boundaries
}

func (k keywordRule) match(text, lowered string) bool {
	if k.re != nil {
		return k.re.MatchString(text)
	}
	return strings.Contains(lowered, k.keyword)
}

type compiledLanguage struct {
	keywords       []keywordRule
	patterns       []*regexp.Regexp
	genderPatterns map[string][]*regexp.Regexp
}

// RuleFilter is the deterministic keyword and pattern classifier.
type RuleFilter struct {
	category  string
	languages map[string]*compiledLanguage
	rejection localized
	log       zerolog.Logger
	metrics   *Metrics
}

// NewRuleFilter compiles rules from path, or the embedded defaults when
// path is empty.
func NewRuleFilter(path string, log zerolog.Logger) (*RuleFilter, error) {
	raw := defaultFilterRules
	if path != "" {
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read content filter rules: %w", err)
		}
	}
	return ParseRuleFilter(raw, log)
}

func ParseRuleFilter(raw []byte, log zerolog.Logger) (*RuleFilter, error) {
	var file filterRuleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse content filter rules: %w", err)
	}
	if file.Category == "" {
		return nil, fmt.Errorf("content filter rules need a category")
	}
	if file.Rejection.in("en") == "" {
		return nil, fmt.Errorf("content filter rules need an English rejection message")
	}

	f := &RuleFilter{
		category:  file.Category,
		languages: make(map[string]*compiledLanguage, len(file.Languages)),
		rejection: file.Rejection,
		log:       log.With().Str("component", "content_filter").Logger(),
		metrics:   NewMetrics(),
	}
	for lang, set := range file.Languages {
		compiled, err := compileLanguage(set)
		if err != nil {
			return nil, fmt.Errorf("language %s: %w", lang, err)
		}
		f.languages[lang] = compiled
	}
	return f, nil
}

func compileLanguage(set filterLanguageSet) (*compiledLanguage, error) {
	out := &compiledLanguage{genderPatterns: make(map[string][]*regexp.Regexp)}
	for _, kw := range set.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		rule := keywordRule{keyword: kw}
		if isASCII(kw) {
			rule.re = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
		}
		out.keywords = append(out.keywords, rule)
	}
	var err error
	if out.patterns, err = compilePatterns(set.Patterns); err != nil {
		return nil, err
	}
	for gender, patterns := range set.GenderPatterns {
		if out.genderPatterns[gender], err = compilePatterns(patterns); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// Check tries keywords, then patterns, then the patterns scoped to the
// user's gender when it is known. Rules of the session language apply;
// unknown languages fall back to English rules.
func (f *RuleFilter) Check(ctx context.Context, text, lang, gender string) FilterResult {
	rules, ok := f.languages[lang]
	if !ok {
		rules, ok = f.languages["en"]
		if !ok {
			return FilterResult{}
		}
	}
	lowered := strings.ToLower(text)

	for _, k := range rules.keywords {
		if k.match(text, lowered) {
			return f.reject(lang, "keyword", k.keyword)
		}
	}
	for _, re := range rules.patterns {
		if re.MatchString(text) {
			return f.reject(lang, "pattern", re.String())
		}
	}
	if gender != "" {
		for _, re := range rules.genderPatterns[gender] {
			if re.MatchString(text) {
				return f.reject(lang, "gender_pattern", re.String())
			}
		}
	}
	return FilterResult{}
}

func (f *RuleFilter) reject(lang, match, rule string) FilterResult {
	f.metrics.FilterRejections.WithLabelValues(lang, match).Inc()
	f.log.Info().Str("category", f.category).Str("match", match).Str("rule", rule).Msg("Rejecting question")
	return FilterResult{
		Rejected: true,
		Category: f.category,
		Match:    match,
		Rule:     rule,
		Message:  f.rejection.in(lang),
	}
}

// RejectionMessage returns the localized refusal text.
func (f *RuleFilter) RejectionMessage(lang string) string {
	return f.rejection.in(lang)
}

// DefaultAIFilterTimeout bounds the classifier call.
const DefaultAIFilterTimeout = 5 * time.Second

// AIContentClassifier runs the rule filter first and, when it passes, asks
// the model. Any model failure counts as not filtered.
type AIContentClassifier struct {
	rules     *RuleFilter
	completer Completer
	timeout   time.Duration
	log       zerolog.Logger
}

func NewAIContentClassifier(rules *RuleFilter, completer Completer, timeout time.Duration, log zerolog.Logger) *AIContentClassifier {
	if timeout <= 0 {
		timeout = DefaultAIFilterTimeout
	}
	return &AIContentClassifier{
		rules:     rules,
		completer: completer,
		timeout:   timeout,
		log:       log.With().Str("component", "ai_content_classifier").Logger(),
	}
}

func (c *AIContentClassifier) Check(ctx context.Context, text, lang, gender string) FilterResult {
	if res := c.rules.Check(ctx, text, lang, gender); res.Rejected {
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	answer := strings.TrimSpace(c.completer.Complete(ctx, classifierPrompt(text, c.rules.category), 0))
	if ctx.Err() != nil {
		c.log.Warn().Err(ctx.Err()).Msg("Classifier timed out, letting question through")
		return FilterResult{}
	}
	verdict := strings.ToUpper(strings.TrimFunc(answer, func(r rune) bool { return !unicode.IsLetter(r) }))
	if verdict != "YES" {
		if verdict != "NO" {
			c.log.Debug().Str("answer", answer).Msg("Unclear classifier answer, letting question through")
		}
		return FilterResult{}
	}
	return c.rules.reject(lang, "ai", "classifier")
}

func classifierPrompt(text, category string) string {
	return fmt.Sprintf(`You are a strict content classifier for a sexual and reproductive health education service.
Decide whether the user's message belongs to the disallowed category %s: a request for explicit sexual
content, pornography, erotic stories, nude images or sexual role-play. Health and education questions about
sex, bodies, contraception, pregnancy or relationships are NOT in this category.

User message: %q

Answer with exactly one word: YES or NO.`, category, text)
}
