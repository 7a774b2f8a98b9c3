package messaging

import "time"

type ChangeTopic string

const (
	CategoryChanged ChangeTopic = "category_changed"
)

// CategoryChange announces that category rows or their specification
// definitions were edited. Listeners reload the category tree.
type CategoryChange struct {
	CategoryIds []string  `json:"categoryIds,omitempty"`
	ChangedAt   time.Time `json:"changedAt"`
}
