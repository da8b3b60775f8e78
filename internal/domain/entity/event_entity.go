package entity

import "time"

const EventUserRegistered = "user.registered"

// UserRegisteredEvent is published after a registration commits.
type UserRegisteredEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	IsActive   bool      `json:"is_active"`
	Scopes     []string  `json:"scopes"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewUserRegisteredEvent(p *UserProfile, at time.Time) UserRegisteredEvent {
	return UserRegisteredEvent{
		Type:       EventUserRegistered,
		UserID:     p.ID,
		Email:      p.Email,
		FullName:   p.FullName,
		IsActive:   p.IsActive,
		Scopes:     p.Scopes,
		OccurredAt: at.UTC(),
	}
}
