package models

import "time"

// Role is a persona definition the AI assumes during a practice session.
type Role struct {
	ID           string
	Name         string
	Title        string
	Style        string
	Voice        string
	Instructions string
	PhotoURL     string
	CreatedAt    time.Time
}
