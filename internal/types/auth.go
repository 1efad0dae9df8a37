package types

// LoginRequest is the credential payload for /auth/token.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// GoalRequest sets the caller's aspiration.
type GoalRequest struct {
	Aspiration string `json:"aspiration" validate:"required"`
}

// FeedbackEntry is one feedback record appended to a course.
type FeedbackEntry struct {
	UserID   string `json:"user_id"`
	Feedback string `json:"feedback"`
}
