package admin

import (
	"fmt"
	"slices"
	"strings"
)

// ActiveState filters users by activation flag.
type ActiveState string

const (
	ActiveAny      ActiveState = ""
	ActiveOnly     ActiveState = "active"
	ActiveInactive ActiveState = "inactive"
)

func (a ActiveState) param() string {
	switch a {
	case ActiveOnly:
		return "1"
	case ActiveInactive:
		return "0"
	default:
		return ""
	}
}

// UserFilter narrows the user list.
type UserFilter struct {
	Query  string
	Active ActiveState
}

// Params implements listview.Filter.
func (f UserFilter) Params() map[string]string {
	return map[string]string{"q": strings.TrimSpace(f.Query), "is_active": f.Active.param()}
}

// EpisodeFilter narrows the episode list.
type EpisodeFilter struct {
	Query  string
	UserID string
}

// Params implements listview.Filter.
func (f EpisodeFilter) Params() map[string]string {
	return map[string]string{"q": strings.TrimSpace(f.Query), "user_id": strings.TrimSpace(f.UserID)}
}

// JobFilter narrows the job list. Statuses is a normalized comma list; build
// it with NewJobFilter.
type JobFilter struct {
	Statuses string
	JobType  string
}

// NewJobFilter normalizes statuses: trimmed and deduplicated, in the order
// given. Statuses are opaque and matched exactly by the backend, so case is
// kept.
func NewJobFilter(statuses []string, jobType string) JobFilter {
	var cleaned []string
	for _, raw := range statuses {
		for _, status := range strings.Split(raw, ",") {
			status = strings.TrimSpace(status)
			if status != "" && !slices.Contains(cleaned, status) {
				cleaned = append(cleaned, status)
			}
		}
	}
	return JobFilter{Statuses: strings.Join(cleaned, ","), JobType: strings.TrimSpace(jobType)}
}

// Params implements listview.Filter.
func (f JobFilter) Params() map[string]string {
	return map[string]string{"status": f.Statuses, "job_type": f.JobType}
}

// CreditFilter narrows the credit summary list.
type CreditFilter struct {
	Query string
}

// Params implements listview.Filter.
func (f CreditFilter) Params() map[string]string {
	return map[string]string{"q": strings.TrimSpace(f.Query)}
}

// AssetFilter narrows an asset listing within one kind.
type AssetFilter struct {
	Prefix string
}

// Params implements listview.Filter.
func (f AssetFilter) Params() map[string]string {
	return map[string]string{"prefix": f.Prefix}
}

// ParseActiveState maps CLI flag values onto an ActiveState.
func ParseActiveState(active, inactive bool) (ActiveState, error) {
	switch {
	case active && inactive:
		return ActiveAny, fmt.Errorf("%w: --active and --inactive are mutually exclusive", ErrValidation)
	case active:
		return ActiveOnly, nil
	case inactive:
		return ActiveInactive, nil
	default:
		return ActiveAny, nil
	}
}
