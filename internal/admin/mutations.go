package admin

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"shortsadmin/internal/api"
	"shortsadmin/internal/gateway"
	"shortsadmin/internal/journal"
	"shortsadmin/internal/logging"
	"shortsadmin/internal/querycache"
)

// MaxReasonLength matches the backend's limit on ledger reasons.
const MaxReasonLength = 200

// Upload is the content of an asset upload.
type Upload struct {
	FileName    string
	ContentType string
	Content     io.Reader
}

// SanitizeKey applies the backend's key cleanup: ".." removed, then leading
// slashes stripped.
func SanitizeKey(key string) string {
	return strings.TrimLeft(strings.ReplaceAll(key, "..", ""), "/")
}

type outcomeFunc[T any] func(T) (journal.Outcome, string)

func okOutcome[T any](T) (journal.Outcome, string) {
	return journal.OutcomeOK, ""
}

// mutate runs one admin action: a single request, invalidation of the
// declared families on success, and a journal entry either way.
func mutate[T any](ctx context.Context, s *Service, m Mutation, target, kind string, fn func(context.Context) (T, error), outcome outcomeFunc[T]) (T, error) {
	if err := s.session.Require(); err != nil {
		var zero T
		return zero, err
	}
	requestID := uuid.NewString()
	ctx = logging.WithRequestID(ctx, requestID)
	logger := logging.WithContext(ctx, s.logger)

	value, err := querycache.Mutate(ctx, s.cache, m.invalidates(kind), fn)

	entry := journal.Entry{
		Actor:     s.session.Actor(),
		Action:    string(m),
		Target:    target,
		RequestID: requestID,
	}
	if err != nil {
		entry.Outcome = journal.OutcomeError
		entry.Detail = err.Error()
		logger.Warn("mutation failed",
			logging.String("action", string(m)),
			logging.String("target", target),
			logging.Error(err),
		)
	} else {
		entry.Outcome, entry.Detail = outcome(value)
		logger.Info("mutation applied",
			logging.String("action", string(m)),
			logging.String("target", target),
			logging.String("outcome", string(entry.Outcome)),
		)
	}
	s.record(ctx, entry)
	return value, err
}

func (s *Service) record(ctx context.Context, entry journal.Entry) {
	if s.journal == nil {
		return
	}
	if _, err := s.journal.Append(ctx, entry); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "journal append failed",
			"journal_write", "action history is missing this entry",
			logging.String("action", entry.Action),
			logging.Error(err),
		)
	}
}

func requireID(kind, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", validationf("%s id is required", kind)
	}
	return id, nil
}

// AdjustCredit appends one ledger entry. delta is signed and always
// additive; reason must be 1 to MaxReasonLength characters.
func (s *Service) AdjustCredit(ctx context.Context, userID string, delta int64, reason string) (api.CreditUserDetail, error) {
	userID, err := requireID("user", userID)
	if err != nil {
		return api.CreditUserDetail{}, err
	}
	if strings.TrimSpace(reason) == "" {
		return api.CreditUserDetail{}, validationf("reason is required")
	}
	if n := utf8.RuneCountInString(reason); n > MaxReasonLength {
		return api.CreditUserDetail{}, validationf("reason is %d characters, limit is %d", n, MaxReasonLength)
	}

	return mutate(ctx, s, MutationAdjustCredit, userID, "",
		func(ctx context.Context) (api.CreditUserDetail, error) {
			var out api.CreditAdjustResponse
			err := s.gw.Do(ctx, http.MethodPost, gateway.Path("admin", "credits", "users", userID, "adjust"),
				gateway.Request{Body: api.CreditAdjustRequest{Delta: delta, Reason: reason}}, &out)
			return out.User, err
		},
		func(detail api.CreditUserDetail) (journal.Outcome, string) {
			return journal.OutcomeOK, "delta " + strconv.FormatInt(delta, 10) + ", balance " + strconv.FormatInt(detail.CreditsBalance, 10)
		},
	)
}

// PatchUserCredit is the legacy set/add write. It changes the balance
// without a ledger entry.
func (s *Service) PatchUserCredit(ctx context.Context, userID, mode string, amount int64, reason string) (api.User, error) {
	userID, err := requireID("user", userID)
	if err != nil {
		return api.User{}, err
	}
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode != api.CreditModeSet && mode != api.CreditModeAdd {
		return api.User{}, validationf("mode must be set or add, got %q", mode)
	}
	patch := api.CreditPatch{Mode: mode, Amount: amount}
	if reason = strings.TrimSpace(reason); reason != "" {
		patch.Reason = &reason
	}

	return mutate(ctx, s, MutationPatchCredit, userID, "",
		func(ctx context.Context) (api.User, error) {
			var out api.User
			err := s.gw.Do(ctx, http.MethodPatch, gateway.Path("admin", "users", userID, "credit"), gateway.Request{Body: patch}, &out)
			return out, err
		},
		func(api.User) (journal.Outcome, string) {
			return journal.OutcomeOK, mode + " " + strconv.FormatInt(amount, 10)
		},
	)
}

// SetUserActive writes the activation flag.
func (s *Service) SetUserActive(ctx context.Context, userID string, active bool) (api.User, error) {
	userID, err := requireID("user", userID)
	if err != nil {
		return api.User{}, err
	}
	flag := 0
	if active {
		flag = 1
	}
	return mutate(ctx, s, MutationSetActive, userID, "",
		func(ctx context.Context) (api.User, error) {
			var out api.User
			err := s.gw.Do(ctx, http.MethodPatch, gateway.Path("admin", "users", userID, "active"),
				gateway.Request{Body: api.ActivePatch{IsActive: flag}}, &out)
			return out, err
		},
		func(api.User) (journal.Outcome, string) {
			return journal.OutcomeOK, "is_active=" + strconv.Itoa(flag)
		},
	)
}

// ToggleUserActive sends the negation of the flag as displayed in user.
func (s *Service) ToggleUserActive(ctx context.Context, user api.User) (api.User, error) {
	return s.SetUserActive(ctx, user.UserID, !user.Active())
}

// SetUserPlan writes the plan tag.
func (s *Service) SetUserPlan(ctx context.Context, userID, plan string) (api.User, error) {
	userID, err := requireID("user", userID)
	if err != nil {
		return api.User{}, err
	}
	plan = strings.TrimSpace(plan)
	if plan == "" {
		return api.User{}, validationf("plan is required")
	}
	return mutate(ctx, s, MutationSetPlan, userID, "",
		func(ctx context.Context) (api.User, error) {
			var out api.User
			err := s.gw.Do(ctx, http.MethodPatch, gateway.Path("admin", "users", userID, "plan"),
				gateway.Request{Body: api.PlanPatch{Plan: plan}}, &out)
			return out, err
		},
		func(api.User) (journal.Outcome, string) {
			return journal.OutcomeOK, "plan=" + plan
		},
	)
}

// DeleteEpisode removes an episode and, when deleteObjects is set, its
// output objects. Objects that could not be removed make the result Partial,
// which is still a success.
func (s *Service) DeleteEpisode(ctx context.Context, episodeID string, deleteObjects bool) (api.EpisodeDeleteResult, error) {
	episodeID, err := requireID("episode", episodeID)
	if err != nil {
		return api.EpisodeDeleteResult{}, err
	}
	values := url.Values{}
	values.Set("delete_objects", strconv.FormatBool(deleteObjects))

	return mutate(ctx, s, MutationDeleteEpisode, episodeID, "",
		func(ctx context.Context) (api.EpisodeDeleteResult, error) {
			var out api.EpisodeDeleteResult
			err := s.gw.Do(ctx, http.MethodDelete, gateway.Path("admin", "episodes", episodeID), gateway.Request{Query: values}, &out)
			return out, err
		},
		func(result api.EpisodeDeleteResult) (journal.Outcome, string) {
			detail := strconv.Itoa(len(result.DeletedObjects)) + " objects deleted"
			if result.Partial() {
				keys := make([]string, 0, len(result.FailedObjects))
				for _, failure := range result.FailedObjects {
					keys = append(keys, failure.Key)
				}
				return journal.OutcomePartial, detail + ", failed: " + strings.Join(keys, ", ")
			}
			return journal.OutcomeOK, detail
		},
	)
}

// UploadAsset stores content under key in kind. The key is sent sanitized
// but otherwise as typed; a blank key, or one that sanitizes to blank, is
// rejected without a request.
func (s *Service) UploadAsset(ctx context.Context, kind api.AssetKind, key string, upload Upload) (api.AssetItem, error) {
	parsed, err := api.ParseAssetKind(string(kind))
	if err != nil {
		return api.AssetItem{}, validationf("%v", err)
	}
	if strings.TrimSpace(key) == "" {
		return api.AssetItem{}, validationf("asset key is required")
	}
	clean := SanitizeKey(key)
	if strings.TrimSpace(clean) == "" {
		return api.AssetItem{}, validationf("asset key %q is empty after sanitizing", key)
	}
	if upload.Content == nil {
		return api.AssetItem{}, validationf("upload content is required")
	}
	values := url.Values{}
	values.Set("key", clean)

	return mutate(ctx, s, MutationUploadAsset, string(parsed)+"/"+clean, string(parsed),
		func(ctx context.Context) (api.AssetItem, error) {
			var out api.AssetItem
			err := s.gw.Do(ctx, http.MethodPost, gateway.Path("admin", "assets", string(parsed), "upload"), gateway.Request{
				Query: values,
				Upload: &gateway.Upload{
					Field:       "file",
					FileName:    upload.FileName,
					ContentType: upload.ContentType,
					Content:     upload.Content,
				},
			}, &out)
			return out, err
		},
		okOutcome[api.AssetItem],
	)
}
