package ingestion

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// skillSelectors are tried in order against a course detail page. The
// markup shifts between redesigns, so older shapes are kept as fallbacks.
var skillSelectors = []string{
	"a[href*='/courses?query=']",
	"[data-testid='skill-tag']",
	".css-1l1jvyr a",
	"span.skill-pill",
}

// ExtractSkills parses a course detail page and returns its skill tags,
// deduplicated and sorted. An unparseable or skill-free page yields nil.
func ExtractSkills(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var skills []string
	for _, selector := range skillSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			skill := strings.TrimSpace(s.Text())
			if skill == "" || len(skill) > 80 {
				return
			}
			key := strings.ToLower(skill)
			if _, ok := seen[key]; ok {
				return
			}
			seen[key] = struct{}{}
			skills = append(skills, skill)
		})
		if len(skills) > 0 {
			break
		}
	}

	sort.Strings(skills)
	return skills
}
