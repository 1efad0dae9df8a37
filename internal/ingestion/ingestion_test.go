package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quang-To/Pathwise/internal/db"
	"github.com/Quang-To/Pathwise/internal/embedding"
)

const coursePage = `<html><body>
  <nav>ignored</nav>
  <a href="/courses?query=python">Python</a>
  <a href="/courses?query=data%20analysis">Data Analysis</a>
  <a href="/courses?query=python">python</a>
  <a href="/about">About us</a>
</body></html>`

func TestExtractSkills(t *testing.T) {
	skills := ExtractSkills(coursePage)
	assert.Equal(t, []string{"Data Analysis", "Python"}, skills)
}

func TestExtractSkills_FallbackSelector(t *testing.T) {
	html := `<div><span data-testid="skill-tag"> SQL </span><span data-testid="skill-tag">Spark</span></div>`
	assert.Equal(t, []string{"SQL", "Spark"}, ExtractSkills(html))
}

func TestExtractSkills_NoTags(t *testing.T) {
	assert.Empty(t, ExtractSkills("<html><body><p>hello</p></body></html>"))
}

type fakeSource struct {
	entries    []CatalogCourse
	catalogErr error
	pages      map[string]string
	pageCalls  map[string]int
}

func (s *fakeSource) FetchCatalog(ctx context.Context, maxCourses int) ([]CatalogCourse, error) {
	return s.entries, s.catalogErr
}

func (s *fakeSource) FetchCoursePage(ctx context.Context, pageURL string) (string, error) {
	if s.pageCalls == nil {
		s.pageCalls = make(map[string]int)
	}
	s.pageCalls[pageURL]++
	if html, ok := s.pages[pageURL]; ok {
		return html, nil
	}
	return "", errors.New("not found")
}

type fakeIngestStore struct {
	stored  []*db.Course
	indexed []*db.Course
}

func (s *fakeIngestStore) UpsertCourse(ctx context.Context, course *db.Course) error {
	s.stored = append(s.stored, course)
	return nil
}

func (s *fakeIngestStore) UpsertCourseEmbedding(ctx context.Context, course *db.Course, vector []float32) error {
	s.indexed = append(s.indexed, course)
	return nil
}

type fakeIngestEmbedder struct {
	emptyFor map[int]bool
}

func (e *fakeIngestEmbedder) Embed(ctx context.Context, texts []string) ([]embedding.Vector, error) {
	out := make([]embedding.Vector, len(texts))
	for i := range texts {
		if e.emptyFor[i] {
			continue
		}
		out[i] = embedding.Vector{1}
	}
	return out, nil
}

func englishCourse(id, slug string) CatalogCourse {
	return CatalogCourse{
		ID:        id,
		Name:      "Course " + id,
		Slug:      slug,
		Languages: []string{"en"},
	}
}

func TestRun_StoresAndIndexes(t *testing.T) {
	source := &fakeSource{
		entries: []CatalogCourse{englishCourse("c1", "python-basics")},
		pages:   map[string]string{coursePageBase + "python-basics": coursePage},
	}
	store := &fakeIngestStore{}

	res, err := NewService(source, store, &fakeIngestEmbedder{}).Run(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Fetched)
	assert.Equal(t, 1, res.Stored)
	assert.Equal(t, 1, res.Indexed)
	require.Len(t, store.stored, 1)
	assert.Equal(t, []string{"Data Analysis", "Python"}, store.stored[0].Skills)
	assert.Equal(t, coursePageBase+"python-basics", store.stored[0].URI)
}

func TestRun_DedupesAndFiltersLanguage(t *testing.T) {
	entries := []CatalogCourse{
		englishCourse("c1", "python-basics"),
		englishCourse("c1", "python-basics"), // duplicate id
		englishCourse("c2", "python-basics"), // duplicate slug
		{ID: "c3", Name: "Cours FR", Slug: "cours-fr", Languages: []string{"fr"}},
	}
	source := &fakeSource{entries: entries, pages: map[string]string{}}
	store := &fakeIngestStore{}

	res, err := NewService(source, store, &fakeIngestEmbedder{}).Run(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stored)
	assert.Equal(t, 3, res.Skipped)
}

func TestRun_SkillPagesFetchedOncePerSlug(t *testing.T) {
	source := &fakeSource{
		entries: []CatalogCourse{englishCourse("c1", "python-basics")},
		pages:   map[string]string{coursePageBase + "python-basics": coursePage},
	}
	svc := NewService(source, &fakeIngestStore{}, &fakeIngestEmbedder{})

	_, err := svc.Run(context.Background(), 10)
	require.NoError(t, err)
	_, err = svc.Run(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 1, source.pageCalls[coursePageBase+"python-basics"])
}

func TestRun_EmptyEmbeddingCountsAsFailure(t *testing.T) {
	source := &fakeSource{
		entries: []CatalogCourse{
			englishCourse("c1", "a"),
			englishCourse("c2", "b"),
		},
		pages: map[string]string{},
	}
	store := &fakeIngestStore{}
	emb := &fakeIngestEmbedder{emptyFor: map[int]bool{0: true}}

	res, err := NewService(source, store, emb).Run(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Stored)
	assert.Equal(t, 1, res.Indexed)
	assert.Equal(t, 1, res.Failures)
	require.Len(t, store.indexed, 1)
	assert.Equal(t, "c2", store.indexed[0].ID)
}

func TestRun_CatalogFailureIsFatalOnlyWhenEmpty(t *testing.T) {
	svc := NewService(&fakeSource{catalogErr: errors.New("503")}, &fakeIngestStore{}, &fakeIngestEmbedder{})
	_, err := svc.Run(context.Background(), 10)
	assert.Error(t, err)
}

func TestEmbeddingText(t *testing.T) {
	withSkills := &db.Course{Name: "X", Skills: []string{"Python", "SQL"}}
	assert.Equal(t, "Skills: python, sql", EmbeddingText(withSkills))

	without := &db.Course{Name: "X", Description: "intro course"}
	assert.Equal(t, "X: intro course", EmbeddingText(without))
}
