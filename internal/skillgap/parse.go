package skillgap

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/Quang-To/Pathwise/internal/schemas"
)

// mainSkillsPattern extracts the bracketed contents of a "main_skills" field
// from otherwise malformed JSON.
var mainSkillsPattern = regexp.MustCompile(`(?s)"main_skills"\s*:\s*\[(.*?)\]`)

// ParseSkills turns raw model output into a skill list. Three tiers are
// tried in order, returning the first non-empty result:
//
//  1. strict JSON: a list containing an object with a main_skills field
//  2. regex extraction of the main_skills array contents
//  3. line heuristic: each non-empty line is one skill, capped
//
// An empty slice means all tiers came up empty; parsing never errors.
func ParseSkills(text string) []string {
	if skills := parseStructured(text); len(skills) > 0 {
		return skills
	}
	if skills := parseRegex(text); len(skills) > 0 {
		return skills
	}
	return parseLines(text)
}

// parseStructured expects the strict format the prompt asks for:
// [{"main_skills": ["a", "b"]}].
func parseStructured(text string) []string {
	if err := schemas.ValidateBytes(schemas.MainSkills, []byte(text)); err != nil {
		return nil
	}
	var results []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &results); err != nil || len(results) == 0 {
		return nil
	}
	raw, ok := results[0]["main_skills"]
	if !ok {
		return nil
	}
	var skills []string
	if err := json.Unmarshal(raw, &skills); err != nil {
		return nil
	}
	return compact(skills)
}

// parseRegex pulls the main_skills array out of malformed JSON and splits on
// commas, trimming quotes and whitespace.
func parseRegex(text string) []string {
	match := mainSkillsPattern.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	var skills []string
	for _, part := range strings.Split(match[1], ",") {
		if skill := strings.Trim(part, " \"'\n"); skill != "" {
			skills = append(skills, skill)
		}
	}
	return skills
}

// parseLines treats each non-empty line, stripped of bullet markers and
// quotes, as one skill. Duplicates keep their first occurrence and the
// result is capped at maxFallbackSkills.
func parseLines(text string) []string {
	seen := make(map[string]bool)
	var skills []string
	for _, line := range strings.Split(text, "\n") {
		skill := strings.Trim(strings.TrimSpace(line), "-•* ")
		skill = strings.Trim(skill, "\" ")
		if skill == "" || seen[skill] {
			continue
		}
		seen[skill] = true
		skills = append(skills, skill)
		if len(skills) == maxFallbackSkills {
			break
		}
	}
	return skills
}

func compact(skills []string) []string {
	out := skills[:0]
	for _, s := range skills {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
