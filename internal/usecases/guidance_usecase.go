package usecases

import (
	"fmt"
	"strings"

	"github.com/abelzeko/dengue-watch/internal/content"
	"github.com/abelzeko/dengue-watch/internal/entities"
)

// GuidanceUseCase serves the static awareness content
type GuidanceUseCase struct {
	content *content.Content
}

// NewGuidanceUseCase creates a new guidance use case
func NewGuidanceUseCase(c *content.Content) *GuidanceUseCase {
	return &GuidanceUseCase{content: c}
}

func (uc *GuidanceUseCase) Cards() []entities.FeatureCard { return uc.content.Cards }
func (uc *GuidanceUseCase) Tips() []string                 { return uc.content.Tips }
func (uc *GuidanceUseCase) Symptoms() []string             { return uc.content.Symptoms }
func (uc *GuidanceUseCase) Myths() []entities.Myth         { return uc.content.Myths }
func (uc *GuidanceUseCase) Neighbourhoods() []string       { return uc.content.Neighbourhoods }

// ParseSymptoms matches free text against the known symptoms,
// case-insensitively. Items are separated by commas
func (uc *GuidanceUseCase) ParseSymptoms(text string) (known []string, unknown []string) {
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		matched := false
		for _, s := range uc.content.Symptoms {
			if strings.EqualFold(s, part) {
				known = append(known, s)
				matched = true
				break
			}
		}
		if !matched {
			unknown = append(unknown, part)
		}
	}
	return known, unknown
}

// SymptomAdvice returns the symptom checker's advice for the selected
// symptoms. No selection gives no advice
func SymptomAdvice(selected []string) []string {
	if len(selected) == 0 {
		return nil
	}

	has := make(map[string]bool, len(selected))
	for _, s := range selected {
		has[strings.ToLower(strings.TrimSpace(s))] = true
	}

	var advice []string
	if has["fever"] && has["muscle pain"] {
		advice = append(advice,
			"Stay hydrated and monitor your temperature.",
			"Consult a healthcare provider if the fever persists.")
	} else {
		advice = append(advice,
			"Rest, drink fluids, and monitor symptoms.",
			"Seek medical advice if symptoms worsen.")
	}
	return append(advice, "If you are experiencing multiple symptoms, consider seeking medical advice.")
}

// FormatTips formats the preventive tips for a chat message
func (uc *GuidanceUseCase) FormatTips() string {
	var result strings.Builder
	result.WriteString("Preventive tips:\n\n")
	for _, tip := range uc.content.Tips {
		result.WriteString(fmt.Sprintf("• %s\n", tip))
	}
	return result.String()
}

// FormatMyths formats the myth buster for a chat message
func (uc *GuidanceUseCase) FormatMyths() string {
	var result strings.Builder
	result.WriteString("Dengue myths and facts:\n\n")
	for _, m := range uc.content.Myths {
		result.WriteString(fmt.Sprintf("❌ Myth: %s\n✅ Reality: %s\n\n", m.Myth, m.Reality))
	}
	return strings.TrimRight(result.String(), "\n")
}
