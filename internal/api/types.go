package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Job statuses the backend is known to emit. The set is open; unknown values
// are displayed verbatim.
const (
	JobStatusPending   = "pending"
	JobStatusStarted   = "started"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

// User is the admin projection of an account.
type User struct {
	UserID        string     `json:"user_id"`
	Email         string     `json:"email"`
	Username      string     `json:"username"`
	IsActive      int        `json:"is_active"`
	CreatedAt     *Timestamp `json:"created_at,omitempty"`
	Plan          *string    `json:"plan,omitempty"`
	Credit        *int64     `json:"credit,omitempty"`
	OAuthProvider *string    `json:"oauth_provider,omitempty"`
}

// Active reports the activation flag as a bool.
func (u User) Active() bool {
	return u.IsActive != 0
}

// Profile is the /auth/me payload for the signed-in operator.
type Profile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Plan     string `json:"plan,omitempty"`
	Credit   *int64 `json:"credit,omitempty"`
}

// Subject returns the most specific identifier the backend supplied.
func (p Profile) Subject() string {
	if p.UserID != "" {
		return p.UserID
	}
	return p.ID
}

// IsAdmin reports whether the profile carries the admin role.
func (p Profile) IsAdmin() bool {
	return strings.EqualFold(p.Role, "admin")
}

// Episode is the admin projection of a generated episode.
type Episode struct {
	EpisodeID       string     `json:"episode_id"`
	UserID          *string    `json:"user_id,omitempty"`
	Title           *string    `json:"title,omitempty"`
	SeriesLayout    *string    `json:"series_layout,omitempty"`
	Error           *string    `json:"error,omitempty"`
	CreatedAt       *Timestamp `json:"created_at,omitempty"`
	VideoURL        *string    `json:"video_url,omitempty"`
	PreviewVideoURL *string    `json:"preview_video_url,omitempty"`
}

// Job is a background generation job. Result is free-form per job type.
type Job struct {
	JobID     string          `json:"job_id"`
	JobType   string          `json:"job_type"`
	Status    string          `json:"status"`
	CreatedAt *Timestamp      `json:"created_at,omitempty"`
	UpdatedAt *Timestamp      `json:"updated_at,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *string         `json:"error,omitempty"`
}

// Terminal reports whether the job reached a final status.
func (j Job) Terminal() bool {
	switch strings.ToLower(j.Status) {
	case JobStatusSucceeded, JobStatusFailed:
		return true
	default:
		return false
	}
}

// CreditUserSummary is one row of the credit ledger user list.
type CreditUserSummary struct {
	UserID         string     `json:"user_id"`
	Email          string     `json:"email"`
	Username       string     `json:"username"`
	CreditsBalance int64      `json:"credits_balance"`
	UpdatedAt      *Timestamp `json:"updated_at,omitempty"`
}

// CreditLedgerEntry is an immutable signed balance change.
type CreditLedgerEntry struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Delta     int64      `json:"delta"`
	Reason    string     `json:"reason"`
	CreatedAt *Timestamp `json:"created_at,omitempty"`
	Actor     *string    `json:"actor,omitempty"`
}

// CreditUserDetail is a user's balance with the most recent ledger entries,
// newest first.
type CreditUserDetail struct {
	CreditUserSummary
	Ledger []CreditLedgerEntry `json:"ledger"`
}

// CreditAdjustRequest appends one ledger entry.
type CreditAdjustRequest struct {
	Delta  int64  `json:"delta"`
	Reason string `json:"reason"`
}

// CreditAdjustResponse wraps the refreshed detail after an adjustment.
type CreditAdjustResponse struct {
	Status string           `json:"status"`
	User   CreditUserDetail `json:"user"`
}

// Credit patch modes for the legacy user credit endpoint.
const (
	CreditModeSet = "set"
	CreditModeAdd = "add"
)

// CreditPatch is the legacy absolute-or-additive credit write.
type CreditPatch struct {
	Mode   string  `json:"mode"`
	Amount int64   `json:"amount"`
	Reason *string `json:"reason,omitempty"`
}

// ActivePatch sets the activation flag.
type ActivePatch struct {
	IsActive int `json:"is_active"`
}

// PlanPatch sets the plan tag.
type PlanPatch struct {
	Plan string `json:"plan"`
}

// ObjectFailure names an output object that could not be removed.
type ObjectFailure struct {
	Key   string `json:"key"`
	Error string `json:"error,omitempty"`
}

// EpisodeDeleteResult reports independent outcomes for the database row and
// each referenced output object.
type EpisodeDeleteResult struct {
	EpisodeID      string          `json:"episode_id,omitempty"`
	DeletedDB      bool            `json:"deleted_db"`
	DeletedObjects []string        `json:"deleted_objects"`
	FailedObjects  []ObjectFailure `json:"failed_objects"`
}

// Partial reports a successful delete where some objects were left behind.
func (r EpisodeDeleteResult) Partial() bool {
	return len(r.FailedObjects) > 0
}

// AssetKind is one of the fixed asset categories.
type AssetKind string

const (
	AssetFonts        AssetKind = "fonts"
	AssetSoundEffects AssetKind = "soundeffects"
	AssetUserAssets   AssetKind = "userassets"
)

// AssetKinds lists every category in display order.
var AssetKinds = []AssetKind{AssetFonts, AssetSoundEffects, AssetUserAssets}

// ParseAssetKind validates a category name.
func ParseAssetKind(value string) (AssetKind, error) {
	kind := AssetKind(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range AssetKinds {
		if kind == known {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown asset kind %q (want fonts, soundeffects, or userassets)", value)
}

// AssetItem is one stored object.
type AssetItem struct {
	Key          string     `json:"key"`
	Size         *int64     `json:"size,omitempty"`
	LastModified *Timestamp `json:"last_modified,omitempty"`
	URL          *string    `json:"url,omitempty"`
}

// StatusCount is a per-status tally.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// OrderStatusCount is a per-status order tally with the summed amount.
type OrderStatusCount struct {
	Status    string  `json:"status"`
	Count     int64   `json:"count"`
	AmountSum float64 `json:"amount_sum"`
}

// Overview is the dashboard metrics payload.
type Overview struct {
	UsersTotal     int64              `json:"users_total"`
	UsersActive    int64              `json:"users_active"`
	EpisodesTotal  int64              `json:"episodes_total"`
	JobsTotal      int64              `json:"jobs_total"`
	JobsByStatus   []StatusCount      `json:"jobs_by_status"`
	OrdersByStatus []OrderStatusCount `json:"orders_by_status"`
}

// Health is the unauthenticated liveness payload.
type Health struct {
	Status string     `json:"status"`
	Time   *Timestamp `json:"time,omitempty"`
	App    string     `json:"app"`
	Env    string     `json:"env"`
}

// Deref returns the pointed-to string or fallback.
func Deref(value *string, fallback string) string {
	if value == nil || *value == "" {
		return fallback
	}
	return *value
}
