// Package setcover selects the smallest set of courses that covers every
// coverable skill gap.
//
// The problem is the classic unweighted minimum set cover: one boolean
// decision per distinct candidate course, every skill with at least one
// candidate must be covered by a selected course, and the objective
// minimizes the number of selected courses. The solver here is exact: a
// greedy cover provides the initial bound and branch and bound closes the
// gap. The Solver interface keeps an ILP-library implementation
// substitutable without touching the orchestrator.
package setcover

import (
	"log"
	"math/bits"
	"sort"
	"strings"

	"github.com/Quang-To/Pathwise/internal/types"
)

// Solver picks a minimal covering course selection from per-skill candidate
// sets.
type Solver interface {
	Solve(skillToCandidates map[string][]types.CandidateCourse) types.CourseSelection
}

// ExactSolver implements Solver with branch and bound.
type ExactSolver struct{}

// NewExact creates an ExactSolver.
func NewExact() *ExactSolver {
	return &ExactSolver{}
}

// course is a distinct candidate with the set of skill indices it covers.
type course struct {
	id   string
	name string
	mask skillMask
}

// Solve returns the minimal selection. Skills whose candidate list is empty
// are skipped (they cannot be covered) and are absent from the output map.
// Case variants of a skill share coverage constraints but keep their own
// entries in the output map.
func (s *ExactSolver) Solve(skillToCandidates map[string][]types.CandidateCourse) types.CourseSelection {
	empty := types.CourseSelection{
		SelectedCourseIDs: []string{},
		SkillToCourseMap:  map[string][]string{},
	}
	if len(skillToCandidates) == 0 {
		return empty
	}

	// Merge case variants: constraints operate on lowercase skill names.
	coverage := make(map[string]map[string]bool) // lc skill -> set of course ids
	courseNames := make(map[string]string)
	for skill, candidates := range skillToCandidates {
		lc := strings.ToLower(strings.TrimSpace(skill))
		if len(candidates) == 0 {
			log.Printf("[setcover] no courses cover the skill: %s", skill)
			continue
		}
		if coverage[lc] == nil {
			coverage[lc] = make(map[string]bool)
		}
		for _, c := range candidates {
			coverage[lc][c.ID] = true
			courseNames[c.ID] = c.Name
		}
	}
	if len(coverage) == 0 {
		return empty
	}

	// Deterministic skill ordering for the bitmask layout.
	skills := make([]string, 0, len(coverage))
	for lc := range coverage {
		skills = append(skills, lc)
	}
	sort.Strings(skills)
	skillIndex := make(map[string]int, len(skills))
	for i, lc := range skills {
		skillIndex[lc] = i
	}

	// Distinct courses with their coverage masks, in deterministic order.
	courseMasks := make(map[string]skillMask)
	for lc, ids := range coverage {
		for id := range ids {
			if courseMasks[id] == nil {
				courseMasks[id] = newSkillMask(len(skills))
			}
			courseMasks[id].set(skillIndex[lc])
		}
	}
	courses := make([]course, 0, len(courseMasks))
	for id, mask := range courseMasks {
		courses = append(courses, course{id: id, name: courseNames[id], mask: mask})
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].id < courses[j].id })

	selected := minimumCover(courses, len(skills))
	if selected == nil {
		// Should not happen: every constrained skill has a candidate. Kept
		// as the infeasible-result path rather than an error.
		log.Printf("[setcover] no feasible cover found")
		return empty
	}

	selectedIDs := make([]string, 0, len(selected))
	selectedSet := make(map[string]bool, len(selected))
	for _, c := range selected {
		selectedIDs = append(selectedIDs, c.id)
		selectedSet[c.id] = true
	}
	sort.Strings(selectedIDs)

	// Map every original skill (case variants included) to the names of
	// selected courses among its own candidates.
	skillMap := make(map[string][]string)
	for skill, candidates := range skillToCandidates {
		if len(candidates) == 0 {
			continue
		}
		seen := make(map[string]bool)
		var names []string
		for _, c := range candidates {
			if selectedSet[c.ID] && !seen[c.ID] {
				seen[c.ID] = true
				names = append(names, c.Name)
			}
		}
		sort.Strings(names)
		skillMap[skill] = names
	}

	return types.CourseSelection{
		SelectedCourseIDs: selectedIDs,
		SkillToCourseMap:  skillMap,
	}
}

// minimumCover finds a smallest subset of courses whose masks union to all
// nSkills bits. Returns nil only if no cover exists.
func minimumCover(courses []course, nSkills int) []course {
	best := greedyCover(courses, nSkills)
	if best == nil {
		return nil
	}

	var current []course
	covered := newSkillMask(nSkills)
	branch(courses, nSkills, covered, current, &best)
	return best
}

// branch explores selections in depth-first order, pruning any branch that
// cannot beat the incumbent.
func branch(courses []course, nSkills int, covered skillMask, current []course, best *[]course) {
	if covered.count() == nSkills {
		if len(current) < len(*best) {
			*best = append([]course(nil), current...)
		}
		return
	}
	// A non-full cover needs at least one more course.
	if len(current)+1 >= len(*best) {
		return
	}

	// Branch on the uncovered skill with the fewest candidate courses.
	skill := scarcestUncovered(courses, nSkills, covered)
	if skill < 0 {
		return // uncoverable under this branch
	}
	for _, c := range courses {
		if !c.mask.has(skill) {
			continue
		}
		next := covered.union(c.mask)
		branch(courses, nSkills, next, append(current, c), best)
	}
}

// scarcestUncovered returns the uncovered skill index covered by the fewest
// courses, or -1 if some uncovered skill has no candidates.
func scarcestUncovered(courses []course, nSkills int, covered skillMask) int {
	bestSkill, bestCount := -1, -1
	for skill := 0; skill < nSkills; skill++ {
		if covered.has(skill) {
			continue
		}
		count := 0
		for _, c := range courses {
			if c.mask.has(skill) {
				count++
			}
		}
		if count == 0 {
			return -1
		}
		if bestCount == -1 || count < bestCount {
			bestSkill, bestCount = skill, count
		}
	}
	return bestSkill
}

// greedyCover builds an initial feasible cover by repeatedly taking the
// course that covers the most still-uncovered skills. Ties break on course
// id so the bound is deterministic.
func greedyCover(courses []course, nSkills int) []course {
	covered := newSkillMask(nSkills)
	var picked []course
	for covered.count() < nSkills {
		bestIdx, bestGain := -1, 0
		for i, c := range courses {
			gain := covered.unionGain(c.mask)
			if gain > bestGain {
				bestIdx, bestGain = i, gain
			}
		}
		if bestIdx < 0 {
			return nil // some skill has no covering course
		}
		picked = append(picked, courses[bestIdx])
		covered = covered.union(courses[bestIdx].mask)
	}
	return picked
}

// skillMask is a bitset over skill indices.
type skillMask []uint64

func newSkillMask(nSkills int) skillMask {
	return make(skillMask, (nSkills+63)/64)
}

func (m skillMask) set(i int)      { m[i/64] |= 1 << (i % 64) }
func (m skillMask) has(i int) bool { return m[i/64]&(1<<(i%64)) != 0 }

func (m skillMask) count() int {
	n := 0
	for _, w := range m {
		n += bits.OnesCount64(w)
	}
	return n
}

func (m skillMask) union(other skillMask) skillMask {
	out := make(skillMask, len(m))
	for i := range m {
		out[i] = m[i] | other[i]
	}
	return out
}

// unionGain counts the bits other would add to m.
func (m skillMask) unionGain(other skillMask) int {
	gain := 0
	for i := range m {
		gain += bits.OnesCount64(other[i] &^ m[i])
	}
	return gain
}
