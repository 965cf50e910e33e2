package controller

import (
	"time"

	"github.com/dgnsrekt/tab_grouper/internal/grouping"
)

const (
	KindTab   = "tab"
	KindGroup = "group"
)

// PlanItem describes one entry of a desired tab strip.
type PlanItem struct {
	Kind   string   `json:"kind" enum:"tab,group"`
	Key    []string `json:"key"`
	Title  string   `json:"title,omitempty"`
	Color  string   `json:"color,omitempty"`
	TabIDs []int    `json:"tab_ids"`
	URLs   []string `json:"urls,omitempty"`
}

// WindowPlan is the desired arrangement of one window.
type WindowPlan struct {
	WindowID    int        `json:"window_id"`
	PinnedCount int        `json:"pinned_count"`
	Items       []PlanItem `json:"items"`
}

// WindowResult counts the browser changes made for one window.
type WindowResult struct {
	WindowID  int `json:"window_id"`
	Tabs      int `json:"tabs"`
	Groups    int `json:"groups"`
	Created   int `json:"created"`
	Regrouped int `json:"regrouped"`
	Ungrouped int `json:"ungrouped"`
	Renamed   int `json:"renamed"`
	Moves     int `json:"moves"`
}

// RunRecord is the history entry of one reconciliation run.
type RunRecord struct {
	ID         string         `json:"id"`
	Trigger    string         `json:"trigger"`
	StartedAt  time.Time      `json:"started_at"`
	DurationMS int64          `json:"duration_ms"`
	Skipped    bool           `json:"skipped,omitempty"`
	Windows    []WindowResult `json:"windows"`
	Error      string         `json:"error,omitempty"`
	ErrorCode  string         `json:"error_code,omitempty"`
}

// describe renders grouper output. urlOf supplies the URL shown for a tab id.
func describe(items []grouping.Item, urlOf func(id int) string) []PlanItem {
	out := make([]PlanItem, 0, len(items))
	for _, item := range items {
		switch it := item.(type) {
		case grouping.TabRef:
			out = append(out, PlanItem{
				Kind:   KindTab,
				Key:    it.Key.Segments(),
				TabIDs: []int{it.ID},
				URLs:   nonEmpty(urlOf(it.ID)),
			})
		case *grouping.Group:
			p := PlanItem{
				Kind:  KindGroup,
				Key:   it.Key().Segments(),
				Title: it.Key().DisplayLabel(),
				Color: GroupColor(it.Key()),
			}
			for _, t := range it.Tabs() {
				p.TabIDs = append(p.TabIDs, t.ID)
				p.URLs = append(p.URLs, nonEmpty(urlOf(t.ID))...)
			}
			out = append(out, p)
		}
	}
	return out
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}
