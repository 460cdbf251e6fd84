package admin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"shortsadmin/internal/api"
	"shortsadmin/internal/gateway"
	"shortsadmin/internal/querycache"
)

func query(params map[string]string) url.Values {
	values := url.Values{}
	for name, value := range params {
		if value != "" {
			values.Set(name, value)
		}
	}
	return values
}

func windowQuery(params map[string]string, limit, offset int) url.Values {
	values := query(params)
	values.Set("limit", strconv.Itoa(limit))
	values.Set("offset", strconv.Itoa(max(offset, 0)))
	return values
}

func (s *Service) get(ctx context.Context, path string, values url.Values, out any) error {
	if err := s.session.Require(); err != nil {
		return err
	}
	return s.gw.Do(ctx, http.MethodGet, path, gateway.Request{Query: values}, out)
}

// Health checks backend liveness. It needs no credential.
func (s *Service) Health(ctx context.Context) (api.Health, error) {
	var out api.Health
	err := s.gw.Do(ctx, http.MethodGet, "/health", gateway.Request{}, &out)
	return out, err
}

// Me resolves the profile behind the current token.
func (s *Service) Me(ctx context.Context) (api.Profile, error) {
	var out api.Profile
	err := s.get(ctx, "/auth/me", nil, &out)
	return out, err
}

// ListUsers fetches one window of users, newest first.
func (s *Service) ListUsers(ctx context.Context, filter UserFilter, limit, offset int) (api.Page[api.User], error) {
	var out api.Page[api.User]
	err := s.get(ctx, "/admin/users", windowQuery(filter.Params(), limit, offset), &out)
	return out, err
}

// FindUser locates a user by exact id through the list endpoint, which has
// no single-user read.
func (s *Service) FindUser(ctx context.Context, id string) (api.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return api.User{}, validationf("user id is required")
	}
	page, err := s.ListUsers(ctx, UserFilter{Query: id}, 200, 0)
	if err != nil {
		return api.User{}, err
	}
	for _, user := range page.Items {
		if user.UserID == id {
			return user, nil
		}
	}
	return api.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
}

// ListEpisodes fetches one window of episodes.
func (s *Service) ListEpisodes(ctx context.Context, filter EpisodeFilter, limit, offset int) (api.Page[api.Episode], error) {
	var out api.Page[api.Episode]
	err := s.get(ctx, "/admin/episodes", windowQuery(filter.Params(), limit, offset), &out)
	return out, err
}

// ListJobs fetches one window of jobs.
func (s *Service) ListJobs(ctx context.Context, filter JobFilter, limit, offset int) (api.Page[api.Job], error) {
	var out api.Page[api.Job]
	err := s.get(ctx, "/admin/jobs", windowQuery(filter.Params(), limit, offset), &out)
	return out, err
}

// GetJob fetches one job through the cache.
func (s *Service) GetJob(ctx context.Context, id string) (api.Job, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return api.Job{}, validationf("job id is required")
	}
	key := querycache.NewKey(ResourceJob, map[string]string{"id": id})
	return querycache.Fetch(ctx, s.cache, key, func(ctx context.Context) (api.Job, error) {
		var out api.Job
		err := s.get(ctx, gateway.Path("admin", "jobs", id), nil, &out)
		return out, err
	})
}

// Overview fetches dashboard counters for the last days through the cache.
func (s *Service) Overview(ctx context.Context, days int) (api.Overview, error) {
	if days < 1 {
		return api.Overview{}, validationf("days must be at least 1")
	}
	params := map[string]string{"days": strconv.Itoa(days)}
	key := querycache.NewKey(ResourceMetrics, params)
	return querycache.Fetch(ctx, s.cache, key, func(ctx context.Context) (api.Overview, error) {
		var out api.Overview
		err := s.get(ctx, "/admin/metrics/overview", query(params), &out)
		return out, err
	})
}

// ListAssets lists every stored object of kind under the filter prefix.
func (s *Service) ListAssets(ctx context.Context, kind api.AssetKind, filter AssetFilter) ([]api.AssetItem, error) {
	if _, err := api.ParseAssetKind(string(kind)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	var out []api.AssetItem
	err := s.get(ctx, gateway.Path("admin", "assets", string(kind)), query(filter.Params()), &out)
	return out, err
}

// ListCreditUsers lists credit summaries matching the filter.
func (s *Service) ListCreditUsers(ctx context.Context, filter CreditFilter) ([]api.CreditUserSummary, error) {
	var out []api.CreditUserSummary
	err := s.get(ctx, "/admin/credits/users", query(filter.Params()), &out)
	return out, err
}

// GetCreditUser fetches a balance with its recent ledger through the cache.
func (s *Service) GetCreditUser(ctx context.Context, id string) (api.CreditUserDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return api.CreditUserDetail{}, validationf("user id is required")
	}
	key := querycache.NewKey(ResourceCredit, map[string]string{"id": id})
	return querycache.Fetch(ctx, s.cache, key, func(ctx context.Context) (api.CreditUserDetail, error) {
		var out api.CreditUserDetail
		err := s.get(ctx, gateway.Path("admin", "credits", "users", id), nil, &out)
		return out, err
	})
}
