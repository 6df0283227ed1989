package dto

// MentorChatRequest is a single mentor-chat turn.
type MentorChatRequest struct {
	Message string `json:"message" validate:"required,min=1"`
	Topic   string `json:"topic"`
}

// MentorChatResponse carries the mentor's reply.
type MentorChatResponse struct {
	Reply string `json:"reply"`
}

// MentorPlanRequest asks for a study plan towards a stated goal.
type MentorPlanRequest struct {
	Goal  string `json:"goal" validate:"required,min=1"`
	Level string `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
}

// MentorPlanResponse lists the generated study steps in order.
type MentorPlanResponse struct {
	Steps []string `json:"steps"`
}
