package dto

import "time"

// DTOs for the directory REST API (follow, calendar, notifications, feedback).

type FollowedConferenceResponse struct {
	ConferenceId string    `json:"conference_id"`
	Title        string    `json:"title"`
	Acronym      string    `json:"acronym,omitempty"`
	Deadline     time.Time `json:"deadline,omitempty"`
	FollowedAt   time.Time `json:"followed_at"`
}

type CalendarEntryRequest struct {
	ConferenceId string    `json:"conference_id" validate:"required"`
	Title        string    `json:"title" validate:"required"`
	Date         time.Time `json:"date" validate:"required"`
	Note         string    `json:"note,omitempty"`
}

type NotificationResponse struct {
	Id        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type FeedbackRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment,omitempty"`
}

type FeedbackResponse struct {
	Id        string    `json:"id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// APIErrorResponse is the error body the backend returns on non-2xx.
type APIErrorResponse struct {
	Message string `json:"message"`
}
