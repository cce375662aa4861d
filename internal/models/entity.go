// Package models defines data structures and domain types.
package models

import (
	"fmt"
	"strings"
)

// Category classifies a tracked entity.
type Category string

const (
	// CategoryLearning marks apps whose usage earns access to rewards.
	CategoryLearning Category = "learning"
	// CategoryReward marks apps that stay blocked until learning goals are met.
	CategoryReward Category = "reward"
)

// ParseCategory converts a user supplied string to a Category.
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryLearning:
		return CategoryLearning, nil
	case CategoryReward:
		return CategoryReward, nil
	default:
		return "", fmt.Errorf("unknown category %q", s)
	}
}

// String returns the display name for a category.
func (c Category) String() string {
	switch c {
	case CategoryLearning:
		return "Learning"
	case CategoryReward:
		return "Reward"
	default:
		return "Unknown"
	}
}

// TrackedEntity is a user-selected app whose foreground time is tracked.
//
// Handle is the opaque token handed out by the OS and is not stable across
// reinstalls; LogicalID is the stable identity produced by the identity
// resolver and is the key used everywhere else.
type TrackedEntity struct {
	LogicalID       string   `json:"logicalId"`
	LookupHash      string   `json:"lookupHash,omitempty"`
	Handle          string   `json:"handle"`
	BundleID        string   `json:"bundleId,omitempty"`
	DisplayName     string   `json:"displayName"`
	Category        Category `json:"category"`
	PointsPerMinute int64    `json:"pointsPerMinute"`
	Blocked         bool     `json:"blocked,omitempty"`
}

// IsResolved reports whether the entity has a stable logical identity.
func (e TrackedEntity) IsResolved() bool {
	return e.LogicalID != ""
}

// Name returns the display name, falling back to the logical ID.
func (e TrackedEntity) Name() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	if e.BundleID != "" {
		return e.BundleID
	}
	return e.LogicalID
}
