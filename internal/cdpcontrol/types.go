package cdpcontrol

import "fmt"

const (
	CodeValidation        = "VALIDATION"
	CodeEvalFailure       = "EVAL_FAILURE"
	CodeEvalTimeout       = "EVAL_TIMEOUT"
	CodeCDPUnavailable    = "CDP_UNAVAILABLE"
	CodeExtensionNotFound = "EXTENSION_NOT_FOUND"
	CodeTabsBusy          = "TABS_BUSY"
	CodeTabNotFound       = "TAB_NOT_FOUND"
)

// CodedError is a typed error used for stable API mapping.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *CodedError) Unwrap() error { return e.Cause }

func newError(code, msg string, cause error) error {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}

// NoGroup is the group id Chrome reports for ungrouped tabs.
const NoGroup = -1

// Tab mirrors the chrome.tabs.Tab fields the grouper reads.
type Tab struct {
	ID         int    `json:"id"`
	WindowID   int    `json:"window_id"`
	Index      int    `json:"index"`
	GroupID    int    `json:"group_id"`
	Pinned     bool   `json:"pinned"`
	Active     bool   `json:"active"`
	URL        string `json:"url,omitempty"`
	PendingURL string `json:"pending_url,omitempty"`
	Title      string `json:"title,omitempty"`
}

// TabGroup mirrors chrome.tabGroups.TabGroup.
type TabGroup struct {
	ID        int    `json:"id"`
	WindowID  int    `json:"window_id"`
	Title     string `json:"title"`
	Color     string `json:"color"`
	Collapsed bool   `json:"collapsed"`
}

// TargetEventKind names a browser target lifecycle change.
type TargetEventKind string

const (
	TargetCreated     TargetEventKind = "created"
	TargetDestroyed   TargetEventKind = "destroyed"
	TargetInfoChanged TargetEventKind = "info_changed"
)

// TargetEvent is one Target domain notification. Type and URL are empty for
// destroyed targets.
type TargetEvent struct {
	Kind     TargetEventKind
	TargetID string
	Type     string
	URL      string
}

// Tab strip changes reported by the extension worker. TargetID carries the tab id and
// Type is "tab".
const (
	TabMoved    TargetEventKind = "tab_moved"
	TabAttached TargetEventKind = "tab_attached"
	TabDetached TargetEventKind = "tab_detached"
)
