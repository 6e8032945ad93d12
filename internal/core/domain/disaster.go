package domain

import "time"

// Disaster scopes fund allocations. Government outflow carrying a disaster id
// may never exceed AllocatedTokens in total.
type Disaster struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	AllocatedTokens int64     `json:"allocated_tokens"`
	CreatedAt       time.Time `json:"created_at"`
}
