package grouping

import "fmt"

// Location says where groups end up relative to ungrouped tabs.
type Location string

const (
	LocationTop    Location = "top"
	LocationBottom Location = "bottom"
	LocationNone   Location = "none"
)

// SortMode says what gets ordered by key.
type SortMode string

const (
	SortAll    SortMode = "all"
	SortGroups SortMode = "groups"
	SortNone   SortMode = "none"
)

type Settings struct {
	MinTabsInGroup int      `json:"min_tabs_in_group" yaml:"min_tabs_in_group" doc:"Smallest bucket that becomes a group" minimum:"1"`
	MaxTabsInGroup int      `json:"max_tabs_in_group" yaml:"max_tabs_in_group" doc:"Groups above this size are split when possible" minimum:"1"`
	GroupsLocation Location `json:"groups_location" yaml:"groups_location" doc:"Where groups are placed" enum:"top,bottom,none"`
	Sort           SortMode `json:"sort" yaml:"sort" doc:"What is sorted by key" enum:"all,groups,none"`
}

func DefaultSettings() Settings {
	return Settings{
		MinTabsInGroup: 2,
		MaxTabsInGroup: 7,
		GroupsLocation: LocationNone,
		Sort:           SortNone,
	}
}

func (s Settings) Validate() error {
	if s.MinTabsInGroup < 1 {
		return fmt.Errorf("grouping: min_tabs_in_group %d must be at least 1: %w", s.MinTabsInGroup, ErrInvalidArgument)
	}
	if s.MaxTabsInGroup < s.MinTabsInGroup {
		return fmt.Errorf("grouping: max_tabs_in_group %d is below min_tabs_in_group %d: %w", s.MaxTabsInGroup, s.MinTabsInGroup, ErrInvalidArgument)
	}
	switch s.GroupsLocation {
	case LocationTop, LocationBottom, LocationNone:
	default:
		return fmt.Errorf("grouping: unknown groups_location %q: %w", s.GroupsLocation, ErrInvalidArgument)
	}
	switch s.Sort {
	case SortAll, SortGroups, SortNone:
	default:
		return fmt.Errorf("grouping: unknown sort %q: %w", s.Sort, ErrInvalidArgument)
	}
	return nil
}
