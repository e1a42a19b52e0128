package models

import (
	"time"

	"github.com/google/uuid"
)

// HiringRole is one rolling-history record of a role the organization has
// asked about or hired for.
type HiringRole struct {
	Title        string      `json:"title"`
	ServiceType  string      `json:"service_type"`
	Count        int         `json:"count"`
	HoursPerWeek *int        `json:"hours_per_week,omitempty"`
	FirstSeen    time.Time   `json:"first_seen"`
	LastSeen     time.Time   `json:"last_seen"`
	SourceIDs    []uuid.UUID `json:"source_ids"`
}

// HiringPatterns are aggregates recomputed on every hiring-history write.
type HiringPatterns struct {
	// TopRoles are the five most-requested role titles by cumulative count.
	TopRoles []RoleCount `json:"top_roles,omitempty"`

	// PreferredServiceTypes are the three most common service types.
	PreferredServiceTypes []string `json:"preferred_service_types,omitempty"`

	// AvgHoursPerWeek is the mean across entries that specify hours.
	AvgHoursPerWeek *float64 `json:"avg_hours_per_week,omitempty"`
}

// RoleCount pairs a role title with its cumulative request count.
type RoleCount struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

// HiringHistory is the bounded rolling window of observed roles plus derived
// aggregates.
type HiringHistory struct {
	Roles    []HiringRole   `json:"roles,omitempty"`
	Patterns HiringPatterns `json:"patterns"`
}

// ServiceRecommendation tracks a recurring service-type recommendation with a
// smoothed confidence.
type ServiceRecommendation struct {
	ServiceType string      `json:"service_type"`
	Confidence  int         `json:"confidence"`
	Count       int         `json:"count"`
	FirstSeen   time.Time   `json:"first_seen"`
	LastSeen    time.Time   `json:"last_seen"`
	SourceIDs   []uuid.UUID `json:"source_ids"`
}

// ServicePreferences holds per-service recommendations and a bounded rolling
// window of raw fit scores per service type.
type ServicePreferences struct {
	Recommendations []ServiceRecommendation `json:"recommendations,omitempty"`

	// FitScores keeps at most the 20 most recent raw scores per service type,
	// FIFO-truncated.
	FitScores map[string][]int `json:"fit_scores,omitempty"`
}

// SkillRequirement counts how often a skill has been mentioned. Frequency is
// incremented per raw mention, not per source.
type SkillRequirement struct {
	Skill     string    `json:"skill"`
	Frequency int       `json:"frequency"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// BottleneckEntry is one rolling-history record of an observed operational
// bottleneck.
type BottleneckEntry struct {
	Description string      `json:"description"`
	Count       int         `json:"count"`
	FirstSeen   time.Time   `json:"first_seen"`
	LastSeen    time.Time   `json:"last_seen"`
	SourceIDs   []uuid.UUID `json:"source_ids"`
}
