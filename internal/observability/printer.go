// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Quang-To/Pathwise/internal/types"
)

const (
	boxWidth       = 60
	maxItemsToShow = 5
)

// Printer renders recommendation results for terminal output.
type Printer struct {
	out io.Writer
}

func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// PrintRecommendation renders the selected course set.
func (p *Printer) PrintRecommendation(rec *types.CourseRecommendation) {
	if rec == nil || len(rec.Courses) == 0 {
		p.printBox("Recommended Courses", "(none)")
		return
	}
	p.printBox("Recommended Courses", itemList(rec.Courses))
}

// PrintSkillMap renders which courses cover which skill gaps, skills in
// alphabetical order.
func (p *Printer) PrintSkillMap(skillMap map[string][]string) {
	if len(skillMap) == 0 {
		p.printBox("Skill Coverage", "(no skill mapping stored)")
		return
	}

	skills := make([]string, 0, len(skillMap))
	for skill := range skillMap {
		skills = append(skills, skill)
	}
	sort.Strings(skills)

	var sb strings.Builder
	for _, skill := range skills {
		courses := skillMap[skill]
		if len(courses) == 0 {
			fmt.Fprintf(&sb, "%s: (uncovered)\n", skill)
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", skill, strings.Join(courses, ", "))
	}
	p.printBox("Skill Coverage", strings.TrimRight(sb.String(), "\n"))
}

// printBox prints a bordered box with a title and content.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(content, "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// itemList formats up to maxItemsToShow entries, noting the overflow.
func itemList(items []string) string {
	var sb strings.Builder
	for i, item := range items {
		if i == maxItemsToShow {
			fmt.Fprintf(&sb, "... and %d more", len(items)-maxItemsToShow)
			break
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, item)
	}
	return strings.TrimRight(sb.String(), "\n")
}
