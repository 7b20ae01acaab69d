package models

import "time"

// Scenario is a situational context with an ordered evaluation rubric.
type Scenario struct {
	ID           string
	Name         string
	Description  string
	Instructions string
	Rubric       []string
	CreatedAt    time.Time
}
