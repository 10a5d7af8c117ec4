package domain

import "time"

// EventType classifies an analytics event.
type EventType string

const (
	EventView     EventType = "view"
	EventLike     EventType = "like"
	EventPurchase EventType = "purchase"
)

// AnalyticsEvent is one recorded interaction with a product.
type AnalyticsEvent struct {
	ProductID string    `json:"product_id"`
	Type      EventType `json:"event_type"`
	CreatedAt time.Time `json:"created_at"`
}

// EventCounts are per-product event totals within a time window.
type EventCounts struct {
	Views int `json:"views"`
	Likes int `json:"likes"`
	Sales int `json:"sales"`
}

// Add counts one event of type t.
func (c *EventCounts) Add(t EventType) {
	switch t {
	case EventView:
		c.Views++
	case EventLike:
		c.Likes++
	case EventPurchase:
		c.Sales++
	}
}

// Empty reports whether no events were counted.
func (c EventCounts) Empty() bool {
	return c.Views == 0 && c.Likes == 0 && c.Sales == 0
}

// EventAggregate joins a product's window counts with the product creation
// time needed for the recency boost.
type EventAggregate struct {
	ProductID        string
	ProductCreatedAt time.Time
	Counts           EventCounts
}

// SearchPerformed is published after every successful text or advanced
// search.
type SearchPerformed struct {
	Query       string `json:"query"`
	StoreID     string `json:"store_id,omitempty"`
	ResultCount int    `json:"result_count"`
	Mode        string `json:"mode"`
	Sort        string `json:"sort"`
}
