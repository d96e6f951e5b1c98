// README: Conversation context types (messages, preferences, search history, plan draft).
package conversation

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Search history buckets.
const (
	BucketFlights    = "flights"
	BucketHotels     = "hotels"
	BucketCities     = "cities"
	BucketActivities = "activities"
)

// Plan sections written by the dialogue layer.
const (
	SectionFlight     = "flight"
	SectionHotel      = "hotel"
	SectionActivities = "activities"
	SectionCitySearch = "city_search"
)

const (
	// DefaultExpiry is how long a context survives without interaction before a sweep removes it.
	DefaultExpiry = 24 * time.Hour
	// DefaultHistoryLimit is the number of messages returned by ConversationHistory when limit <= 0.
	DefaultHistoryLimit = 10
)

type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// UserContext is the accumulated conversation and plan state of one user.
type UserContext struct {
	UserID          string           `json:"user_id"`
	Messages        []Message        `json:"messages"`
	Preferences     map[string]any   `json:"preferences"`
	SearchHistory   map[string][]any `json:"search_history"`
	CurrentPlan     map[string]any   `json:"current_plan"`
	LastInteraction time.Time        `json:"last_interaction"`
}

func newUserContext(userID string, now time.Time) *UserContext {
	return &UserContext{
		UserID:      userID,
		Preferences: map[string]any{},
		SearchHistory: map[string][]any{
			BucketFlights:    {},
			BucketHotels:     {},
			BucketCities:     {},
			BucketActivities: {},
		},
		CurrentPlan:     map[string]any{},
		LastInteraction: now,
	}
}

// clone returns a copy that shares no slices or top-level maps with c.
func (c *UserContext) clone() UserContext {
	out := UserContext{
		UserID:          c.UserID,
		Messages:        append([]Message(nil), c.Messages...),
		Preferences:     copyMap(c.Preferences),
		SearchHistory:   make(map[string][]any, len(c.SearchHistory)),
		CurrentPlan:     copyMap(c.CurrentPlan),
		LastInteraction: c.LastInteraction,
	}
	for k, v := range c.SearchHistory {
		out.SearchHistory[k] = append([]any(nil), v...)
	}
	return out
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
