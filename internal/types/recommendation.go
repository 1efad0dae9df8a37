// Package types holds the shared domain types of the recommendation service.
package types

// CandidateCourse is a course considered relevant to a skill gap, carrying
// the payload stored alongside its embedding and the similarity score of the
// search hit that produced it.
type CandidateCourse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Skills      []string `json:"skills"`
	Level       string   `json:"level"`
	Feedback    string   `json:"feedback"`
	Similarity  float64  `json:"similarity"`
}

// CourseSelection is the output of the minimum-cover optimization.
type CourseSelection struct {
	// SelectedCourseIDs is the minimal covering set.
	SelectedCourseIDs []string `json:"selected_course_ids"`
	// SkillToCourseMap lists, per skill, the names of selected courses that
	// were candidates for it. Only selected courses appear.
	SkillToCourseMap map[string][]string `json:"skill_to_course_map"`
}

// CourseRecommendation is the user-facing recommendation result.
type CourseRecommendation struct {
	Courses []string `json:"courses"`
}

// SkillMappingResponse exposes the last computed skill-to-course map.
type SkillMappingResponse struct {
	Mappings map[string][]string `json:"mappings"`
}

// LearningDashboard aggregates a user's goals and recommendations. Goals
// are the comma-separated parts of the stored aspiration.
type LearningDashboard struct {
	UserID             string   `json:"user_id"`
	LearningGoals      []string `json:"learning_goals"`
	RecommendedCourses []string `json:"recommended_courses"`
	CourseIDs          []string `json:"course_id"`
}

// StatusResponse is the generic status-string reply used by goal, feedback
// and ingestion endpoints.
type StatusResponse struct {
	Status string `json:"status"`
}
