package models

import "time"

// Transcript is the stored text of one conversation session. Records are
// immutable once saved; RoleID and ScenarioID may be empty.
type Transcript struct {
	ID           string
	UserID       string
	RoleID       string
	ScenarioID   string
	Title        string
	Content      string
	CreatedAt    time.Time
	RoleName     string
	ScenarioName string
}
