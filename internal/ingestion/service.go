package ingestion

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/Quang-To/Pathwise/internal/db"
	"github.com/Quang-To/Pathwise/internal/embedding"
)

const coursePageBase = "https://www.coursera.org/learn/"

// CatalogSource yields catalog entries and course detail pages.
type CatalogSource interface {
	FetchCatalog(ctx context.Context, maxCourses int) ([]CatalogCourse, error)
	FetchCoursePage(ctx context.Context, pageURL string) (string, error)
}

// Store persists ingested courses and their embeddings.
type Store interface {
	UpsertCourse(ctx context.Context, course *db.Course) error
	UpsertCourseEmbedding(ctx context.Context, course *db.Course, vector []float32) error
}

// Embedder vectorizes course skill texts.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([]embedding.Vector, error)
}

// Result summarizes one ingestion run.
type Result struct {
	Fetched  int `json:"fetched"`
	Stored   int `json:"stored"`
	Indexed  int `json:"indexed"`
	Skipped  int `json:"skipped"`
	Failures int `json:"failures"`
}

// Service drives catalog ingestion end to end.
type Service struct {
	source   CatalogSource
	store    Store
	embedder Embedder

	// skillCache avoids refetching detail pages for slugs seen in the same
	// run or a previous one.
	skillCache map[string][]string
}

func NewService(source CatalogSource, store Store, embedder Embedder) *Service {
	return &Service{
		source:     source,
		store:      store,
		embedder:   embedder,
		skillCache: make(map[string][]string),
	}
}

// Run fetches up to maxCourses catalog entries, extracts skill tags,
// upserts the courses and writes their embeddings to the index. English
// courses only; duplicates by id or slug collapse to the first occurrence.
// Per-course failures are logged and counted, not fatal.
func (s *Service) Run(ctx context.Context, maxCourses int) (*Result, error) {
	entries, err := s.source.FetchCatalog(ctx, maxCourses)
	if err != nil && len(entries) == 0 {
		return nil, fmt.Errorf("catalog fetch failed: %w", err)
	}
	if err != nil {
		log.Printf("[ingestion] partial catalog fetch, continuing with %d entries: %v", len(entries), err)
	}

	res := &Result{Fetched: len(entries)}
	courses := s.prepare(ctx, entries, res)

	for _, course := range courses {
		if err := s.store.UpsertCourse(ctx, course); err != nil {
			log.Printf("[ingestion] failed to store course %s: %v", course.ID, err)
			res.Failures++
			continue
		}
		res.Stored++
	}

	s.index(ctx, courses, res)
	return res, nil
}

// prepare filters, dedupes and enriches catalog entries with skill tags.
func (s *Service) prepare(ctx context.Context, entries []CatalogCourse, res *Result) []*db.Course {
	seenID := make(map[string]struct{}, len(entries))
	seenSlug := make(map[string]struct{}, len(entries))
	var courses []*db.Course

	for _, entry := range entries {
		if entry.ID == "" || entry.Name == "" || !isEnglish(entry.Languages) {
			res.Skipped++
			continue
		}
		if _, dup := seenID[entry.ID]; dup {
			res.Skipped++
			continue
		}
		if _, dup := seenSlug[entry.Slug]; dup && entry.Slug != "" {
			res.Skipped++
			continue
		}
		seenID[entry.ID] = struct{}{}
		if entry.Slug != "" {
			seenSlug[entry.Slug] = struct{}{}
		}

		courses = append(courses, &db.Course{
			ID:          entry.ID,
			Name:        entry.Name,
			Description: entry.Description,
			Slug:        entry.Slug,
			Language:    "en",
			Skills:      s.skills(ctx, entry.Slug),
			URI:         coursePageBase + entry.Slug,
		})
	}
	return courses
}

// skills returns the skill tags for a slug, consulting the per-slug cache
// before fetching the detail page.
func (s *Service) skills(ctx context.Context, slug string) []string {
	if slug == "" {
		return nil
	}
	if cached, ok := s.skillCache[slug]; ok {
		return cached
	}

	html, err := s.source.FetchCoursePage(ctx, coursePageBase+slug)
	if err != nil {
		log.Printf("[ingestion] skill fetch failed for %s: %v", slug, err)
		s.skillCache[slug] = nil
		return nil
	}
	skills := ExtractSkills(html)
	s.skillCache[slug] = skills
	return skills
}

// index batch-embeds the courses' skill texts and writes them to the
// similarity index. Courses whose embedding came back empty are counted as
// failures and left out of the index.
func (s *Service) index(ctx context.Context, courses []*db.Course, res *Result) {
	if len(courses) == 0 {
		return
	}

	texts := make([]string, len(courses))
	for i, course := range courses {
		texts[i] = EmbeddingText(course)
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		log.Printf("[ingestion] embedding failed: %v", err)
		res.Failures += len(courses)
		return
	}

	for i, course := range courses {
		if i >= len(vectors) || len(vectors[i]) == 0 {
			res.Failures++
			continue
		}
		if err := s.store.UpsertCourseEmbedding(ctx, course, vectors[i]); err != nil {
			log.Printf("[ingestion] failed to index course %s: %v", course.ID, err)
			res.Failures++
			continue
		}
		res.Indexed++
	}
}

// EmbeddingText builds the text a course is indexed under. It mirrors how
// skill-gap queries are framed so the two live in the same embedding space.
func EmbeddingText(course *db.Course) string {
	if len(course.Skills) > 0 {
		return "Skills: " + strings.ToLower(strings.Join(course.Skills, ", "))
	}
	return course.Name + ": " + course.Description
}

func isEnglish(languages []string) bool {
	for _, lang := range languages {
		if strings.HasPrefix(strings.ToLower(lang), "en") {
			return true
		}
	}
	return len(languages) == 0
}
