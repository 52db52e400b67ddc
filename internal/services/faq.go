package services

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/faq.yaml
var defaultFAQ []byte

type FAQEntry struct {
	Question string `yaml:"q"`
	Answer   string `yaml:"a"`
}

type FAQSection struct {
	ID      string                `yaml:"id"`
	Title   localized             `yaml:"title"`
	Entries map[string][]FAQEntry `yaml:"entries"`
}

// FAQ is the static question bank, sections kept in display order.
type FAQ struct {
	Sections []FAQSection `yaml:"sections"`
}

func LoadFAQ(raw []byte) (*FAQ, error) {
	var faq FAQ
	if err := yaml.Unmarshal(raw, &faq); err != nil {
		return nil, fmt.Errorf("failed to parse FAQ: %w", err)
	}
	for _, s := range faq.Sections {
		if s.ID == "" {
			return nil, fmt.Errorf("FAQ section without id")
		}
	}
	return &faq, nil
}

// DefaultFAQ returns the embedded question bank.
func DefaultFAQ() *FAQ {
	faq, err := LoadFAQ(defaultFAQ)
	if err != nil {
		panic(err)
	}
	return faq
}

func (f *FAQ) Section(id string) (*FAQSection, bool) {
	for i := range f.Sections {
		if f.Sections[i].ID == id {
			return &f.Sections[i], true
		}
	}
	return nil, false
}

func (f *FAQ) sectionsMessage(lang string) OutgoingMessage {
	buttons := make([][]Button, 0, len(f.Sections)+1)
	for _, s := range f.Sections {
		buttons = append(buttons, []Button{{Label: s.Title.in(lang), Data: callbackData(cbFAQSection, s.ID)}})
	}
	buttons = append(buttons, []Button{{Label: msgFAQBackToMenu.in(lang), Data: cbFAQBackMenu}})
	return OutgoingMessage{Text: msgFAQSections.in(lang), Buttons: buttons}
}

func (f *FAQ) sectionMessage(id, lang string) OutgoingMessage {
	section, ok := f.Section(id)
	if !ok {
		return OutgoingMessage{Text: msgFAQSectionNotFound}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 **%s**\n\n", section.Title.in(lang))
	entries := section.Entries[lang]
	if len(entries) == 0 {
		entries = section.Entries["en"]
	}
	for i, e := range entries {
		fmt.Fprintf(&b, "**%d. %s**\n\n✅ %s\n\n%s\n\n", i+1, e.Question, e.Answer, strings.Repeat("─", 30))
	}
	return OutgoingMessage{
		Text: b.String(),
		Buttons: [][]Button{
			{{Label: msgFAQBackToTopics.in(lang), Data: cbFAQBackSections}},
			{{Label: msgFAQMainMenu.in(lang), Data: cbFAQBackMenu}},
		},
	}
}
