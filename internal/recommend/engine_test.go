package recommend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quang-To/Pathwise/internal/config"
	"github.com/Quang-To/Pathwise/internal/db"
	"github.com/Quang-To/Pathwise/internal/embedding"
	"github.com/Quang-To/Pathwise/internal/setcover"
	"github.com/Quang-To/Pathwise/internal/types"
)

type fakeStore struct {
	employee  *db.Employee
	cached    *db.StoredRecommendation
	upsertErr error

	cacheReads   int
	upserts      int
	savedCourses []string
	savedMap     map[string][]string
}

func (s *fakeStore) GetEmployee(ctx context.Context, userID string) (*db.Employee, error) {
	return s.employee, nil
}

func (s *fakeStore) GetRecommendation(ctx context.Context, userID string) (*db.StoredRecommendation, error) {
	s.cacheReads++
	return s.cached, nil
}

func (s *fakeStore) UpsertRecommendation(ctx context.Context, userID string, courses []string, skillMap map[string][]string) error {
	s.upserts++
	s.savedCourses = courses
	s.savedMap = skillMap
	return s.upsertErr
}

type fakeMapper struct {
	skills []string
	calls  int
}

func (m *fakeMapper) MapSkills(ctx context.Context, currentRole, targetRole string, existing, missing []string) []string {
	m.calls++
	return m.skills
}

type fakeGapEmbedder struct {
	vectors []embedding.Vector
	calls   int
	texts   []string
}

func (e *fakeGapEmbedder) Embed(ctx context.Context, texts []string) ([]embedding.Vector, error) {
	e.calls++
	e.texts = texts
	if e.vectors != nil {
		return e.vectors, nil
	}
	out := make([]embedding.Vector, len(texts))
	for i := range texts {
		out[i] = embedding.Vector{float32(i) + 1}
	}
	return out, nil
}

// fakeSearcher records every probed threshold and yields candidates only at
// or below hitThreshold.
type fakeSearcher struct {
	hitThreshold float64
	candidates   []types.CandidateCourse
	probes       []float64
	calls        int
}

func (s *fakeSearcher) Search(ctx context.Context, vector []float32, threshold float64, topK int) ([]types.CandidateCourse, error) {
	s.calls++
	s.probes = append(s.probes, threshold)
	if threshold <= s.hitThreshold+1e-9 {
		return s.candidates, nil
	}
	return nil, nil
}

func testConfig() config.RecommendationConfig {
	return config.RecommendationConfig{
		UpperThreshold: 0.95,
		LowerThreshold: 0.75,
		StepThreshold:  0.05,
		TopK:           100,
	}
}

func testEmployee() *db.Employee {
	return &db.Employee{
		UserID:       "u1",
		Aspiration:   "Data Engineer",
		CurrentSkill: "Data Analyst, sql, excel",
		SkillGap:     "spark",
	}
}

func newTestEngine(store *fakeStore, mapper *fakeMapper, emb *fakeGapEmbedder, searcher *fakeSearcher) *Engine {
	return NewEngine(store, mapper, emb, searcher, setcover.NewExact(), testConfig())
}

func TestRecommend_FreshCacheReturnsVerbatim(t *testing.T) {
	store := &fakeStore{cached: &db.StoredRecommendation{
		UserID:  "u1",
		Courses: []string{"Spark Fundamentals"},
	}}
	mapper := &fakeMapper{}
	emb := &fakeGapEmbedder{}
	searcher := &fakeSearcher{}

	rec, err := newTestEngine(store, mapper, emb, searcher).Recommend(context.Background(), "u1", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Spark Fundamentals"}, rec.Courses)

	assert.Zero(t, mapper.calls, "cached hit must not synthesize")
	assert.Zero(t, emb.calls, "cached hit must not embed")
	assert.Zero(t, searcher.calls, "cached hit must not search")
	assert.Zero(t, store.upserts, "cached hit must not rewrite the cache")
}

func TestRecommend_ForceUpdateBypassesCache(t *testing.T) {
	store := &fakeStore{
		employee: testEmployee(),
		cached:   &db.StoredRecommendation{UserID: "u1", Courses: []string{"stale"}},
	}
	mapper := &fakeMapper{skills: []string{"spark"}}
	searcher := &fakeSearcher{
		hitThreshold: 0.95,
		candidates: []types.CandidateCourse{
			{ID: "c1", Name: "Spark Fundamentals", Skills: []string{"spark"}},
		},
	}

	rec, err := newTestEngine(store, mapper, &fakeGapEmbedder{}, searcher).Recommend(context.Background(), "u1", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Spark Fundamentals"}, rec.Courses)

	assert.Zero(t, store.cacheReads, "force update must not consult the cache")
	assert.Equal(t, 1, store.upserts)
	assert.Equal(t, []string{"Spark Fundamentals"}, store.savedCourses)
	assert.Equal(t, map[string][]string{"spark": {"Spark Fundamentals"}}, store.savedMap)
}

func TestRecommend_RelaxationProbesThresholdsInOrder(t *testing.T) {
	store := &fakeStore{employee: testEmployee()}
	mapper := &fakeMapper{skills: []string{"spark"}}
	searcher := &fakeSearcher{
		hitThreshold: 0.80,
		candidates: []types.CandidateCourse{
			{ID: "c1", Name: "Spark Fundamentals", Skills: []string{"spark"}},
		},
	}

	_, err := newTestEngine(store, mapper, &fakeGapEmbedder{}, searcher).Recommend(context.Background(), "u1", true)
	require.NoError(t, err)

	require.Len(t, searcher.probes, 4)
	assert.InDelta(t, 0.95, searcher.probes[0], 1e-9)
	assert.InDelta(t, 0.90, searcher.probes[1], 1e-9)
	assert.InDelta(t, 0.85, searcher.probes[2], 1e-9)
	assert.InDelta(t, 0.80, searcher.probes[3], 1e-9)
}

func TestRecommend_UnresolvableSkillYieldsEmptyResult(t *testing.T) {
	store := &fakeStore{employee: testEmployee()}
	mapper := &fakeMapper{skills: []string{"quantum computing"}}
	searcher := &fakeSearcher{hitThreshold: -1} // never hits

	rec, err := newTestEngine(store, mapper, &fakeGapEmbedder{}, searcher).Recommend(context.Background(), "u1", true)
	require.NoError(t, err)
	assert.Empty(t, rec.Courses)

	// probed the full ladder 0.95 down to 0.75
	assert.Len(t, searcher.probes, 5)
	assert.Equal(t, 1, store.upserts, "empty result still refreshes the cache")
	assert.Empty(t, store.savedCourses)
}

func TestRecommend_FailedEmbeddingSkipsSearch(t *testing.T) {
	store := &fakeStore{employee: testEmployee()}
	mapper := &fakeMapper{skills: []string{"spark", "airflow"}}
	emb := &fakeGapEmbedder{vectors: []embedding.Vector{
		{}, // spark embedding failed upstream
		{0.5},
	}}
	searcher := &fakeSearcher{
		hitThreshold: 0.95,
		candidates: []types.CandidateCourse{
			{ID: "c2", Name: "Airflow in Practice", Skills: []string{"airflow"}},
		},
	}

	rec, err := newTestEngine(store, mapper, emb, searcher).Recommend(context.Background(), "u1", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Airflow in Practice"}, rec.Courses)
	assert.Equal(t, 1, searcher.calls, "empty vectors must not reach the index")
}

func TestRecommend_MissingProfileStillRuns(t *testing.T) {
	store := &fakeStore{employee: nil}
	mapper := &fakeMapper{skills: []string{"python"}}
	emb := &fakeGapEmbedder{}
	searcher := &fakeSearcher{
		hitThreshold: 0.95,
		candidates: []types.CandidateCourse{
			{ID: "c3", Name: "Python Basics", Skills: []string{"python"}},
		},
	}

	rec, err := newTestEngine(store, mapper, emb, searcher).Recommend(context.Background(), "u1", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Python Basics"}, rec.Courses)
	// no aspiration: skills embed without the role framing
	assert.Equal(t, []string{"python"}, emb.texts)
}

func TestRecommend_PersistFailureReturnsResultWithError(t *testing.T) {
	store := &fakeStore{employee: testEmployee(), upsertErr: errors.New("connection reset")}
	mapper := &fakeMapper{skills: []string{"spark"}}
	searcher := &fakeSearcher{
		hitThreshold: 0.95,
		candidates: []types.CandidateCourse{
			{ID: "c1", Name: "Spark Fundamentals", Skills: []string{"spark"}},
		},
	}

	rec, err := newTestEngine(store, mapper, &fakeGapEmbedder{}, searcher).Recommend(context.Background(), "u1", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist")
	assert.Equal(t, []string{"Spark Fundamentals"}, rec.Courses)
}

func TestRecommend_EmbeddingTextsUseRoleFraming(t *testing.T) {
	store := &fakeStore{employee: testEmployee()}
	mapper := &fakeMapper{skills: []string{"Apache Spark", " Airflow "}}
	emb := &fakeGapEmbedder{}
	searcher := &fakeSearcher{hitThreshold: -1}

	_, err := newTestEngine(store, mapper, emb, searcher).Recommend(context.Background(), "u1", true)
	require.NoError(t, err)

	require.Len(t, emb.texts, 2)
	for _, text := range emb.texts {
		assert.True(t, strings.HasPrefix(text, "Skills: "), "got %q", text)
	}
	assert.Equal(t, "Skills: apache spark", emb.texts[0])
	assert.Equal(t, "Skills: airflow", emb.texts[1])
}

func TestSkillsMapping(t *testing.T) {
	t.Run("returns cached map", func(t *testing.T) {
		store := &fakeStore{cached: &db.StoredRecommendation{
			UserID:   "u1",
			SkillMap: map[string][]string{"spark": {"Spark Fundamentals"}},
		}}
		engine := newTestEngine(store, &fakeMapper{}, &fakeGapEmbedder{}, &fakeSearcher{})

		m, err := engine.SkillsMapping(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, map[string][]string{"spark": {"Spark Fundamentals"}}, m)
	})

	t.Run("empty without cache", func(t *testing.T) {
		engine := newTestEngine(&fakeStore{}, &fakeMapper{}, &fakeGapEmbedder{}, &fakeSearcher{})

		m, err := engine.SkillsMapping(context.Background(), "u1")
		require.NoError(t, err)
		assert.Empty(t, m)
	})
}

func TestParseProfile(t *testing.T) {
	p := ParseProfile(&db.Employee{
		UserID:       "u9",
		Aspiration:   " Data Engineer ",
		CurrentSkill: "Data Analyst, sql; excel, ",
		SkillGap:     "spark, airflow",
	})

	assert.Equal(t, "Data Analyst", p.CurrentRole)
	assert.Equal(t, "Data Engineer", p.TargetRole)
	assert.Equal(t, []string{"sql", "excel"}, p.ExistingSkills)
	assert.Equal(t, []string{"spark", "airflow"}, p.SkillGaps)
}

func TestParseProfile_Empty(t *testing.T) {
	p := ParseProfile(&db.Employee{UserID: "u9"})
	assert.Empty(t, p.CurrentRole)
	assert.Empty(t, p.ExistingSkills)
	assert.Empty(t, p.SkillGaps)
}
