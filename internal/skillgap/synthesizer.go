// Package skillgap derives the list of skills a person should learn to move
// from a current role to a target role, using a generative text service with
// ordered credential fallback and tolerant output parsing.
package skillgap

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/Quang-To/Pathwise/internal/llm"
)

// Unavailable is the sentinel entry returned when every credential fails.
// The literal (including the typo) is the wire value downstream consumers
// already match on.
const Unavailable = "[Out of computing resourses]"

// maxFallbackSkills caps the line-heuristic parse tier.
const maxFallbackSkills = 10

// Synthesizer calls a generative service to produce missing-skill lists.
type Synthesizer struct {
	// providers are tried in order; the first successful generation wins.
	// One provider per credential.
	providers []llm.Generator
}

// New creates a Synthesizer over an ordered provider list.
func New(providers []llm.Generator) *Synthesizer {
	return &Synthesizer{providers: providers}
}

// MapSkills returns the recommended skills bridging currentRole to
// targetRole. It never returns an error: generation failures fall through
// the credential list and end in the Unavailable sentinel, and malformed
// output falls through the parser tiers.
func (s *Synthesizer) MapSkills(ctx context.Context, currentRole, targetRole string, existingSkills, knownMissing []string) []string {
	prompt := buildPrompt(currentRole, targetRole, existingSkills, knownMissing)

	text := s.generate(ctx, prompt)
	if text == "" {
		return []string{Unavailable}
	}
	return ParseSkills(text)
}

// generate tries each provider in order. Quota failures and unexpected
// failures both advance to the next credential; only the classification of
// the log line differs.
func (s *Synthesizer) generate(ctx context.Context, prompt string) string {
	for i, provider := range s.providers {
		text, err := provider.Generate(ctx, prompt)
		if err == nil {
			return strings.TrimSpace(text)
		}
		if llm.IsQuotaError(err) {
			log.Printf("[skillgap] credential %d quota exceeded, trying next", i)
		} else {
			log.Printf("[skillgap] credential %d failed: %v, trying next", i, err)
		}
	}
	return ""
}

func buildPrompt(currentRole, targetRole string, existingSkills, knownMissing []string) string {
	var sb strings.Builder
	sb.WriteString("You are a professional career advisor.\n\n")
	sb.WriteString("Your task is to recommend the **most relevant skills** a person should learn to transition from one job to another.\n\n")
	sb.WriteString("Return a JSON object with:\n")
	sb.WriteString("- \"main_skills\" (a list of skills — length can vary depending on relevance)\n\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- Return only unique, clear, and job-relevant skills.\n")
	sb.WriteString("- Include at least one skill reflecting **current industry trends** (e.g., AI, data literacy, remote tools, cybersecurity, sustainability, etc.).\n")
	sb.WriteString("- Do not include explanations or markdown.\n")
	sb.WriteString("- Format strictly as:\n")
	sb.WriteString("[\n  {\n    \"main_skills\": [\"Skill A\", \"Skill B\", \"Skill C\", ...]\n  }\n]\n\n")
	sb.WriteString("Person info:\n")
	fmt.Fprintf(&sb, "- Current occupation: %q\n", currentRole)
	fmt.Fprintf(&sb, "- Target occupation: %q\n", targetRole)
	fmt.Fprintf(&sb, "- Existing skills: [%s]\n", strings.Join(existingSkills, ", "))
	fmt.Fprintf(&sb, "- Known missing skills: [%s]\n", strings.Join(knownMissing, ", "))
	return sb.String()
}
