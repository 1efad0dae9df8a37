package recommend

import (
	"strings"

	"github.com/Quang-To/Pathwise/internal/db"
)

// Profile is the parsed view of an employee row used by the pipeline.
type Profile struct {
	UserID         string
	CurrentRole    string
	TargetRole     string
	ExistingSkills []string
	SkillGaps      []string
}

// ParseProfile decodes the free-text profile columns. CurrentSkill is a
// comma list whose first element is the current role and the remainder the
// existing skills; SkillGap is a plain comma list of already known gaps.
func ParseProfile(employee *db.Employee) Profile {
	p := Profile{
		UserID:     employee.UserID,
		TargetRole: strings.TrimSpace(employee.Aspiration),
	}

	parts := splitList(employee.CurrentSkill)
	if len(parts) > 0 {
		p.CurrentRole = parts[0]
		p.ExistingSkills = parts[1:]
	}

	p.SkillGaps = splitList(employee.SkillGap)
	return p
}

// splitList splits a comma or semicolon separated list, trimming entries
// and dropping empties.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';'
	}) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
