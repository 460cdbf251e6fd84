package admin

import (
	"context"

	"shortsadmin/internal/api"
	"shortsadmin/internal/listview"
)

// UsersView is the paged user list.
func (s *Service) UsersView(limit int) *listview.View[UserFilter, api.User] {
	return listview.New(s.cache, ResourceUsers, limit, s.ListUsers)
}

// EpisodesView is the paged episode list.
func (s *Service) EpisodesView(limit int) *listview.View[EpisodeFilter, api.Episode] {
	return listview.New(s.cache, ResourceEpisodes, limit, s.ListEpisodes)
}

// JobsView is the paged job list. The dashboard uses a short one for recent
// jobs.
func (s *Service) JobsView(limit int) *listview.View[JobFilter, api.Job] {
	return listview.New(s.cache, ResourceJobs, limit, s.ListJobs)
}

// CreditsView lists every credit summary matching the search.
func (s *Service) CreditsView() *listview.Unbounded[CreditFilter, api.CreditUserSummary] {
	return listview.NewUnbounded(s.cache, ResourceCredits, s.ListCreditUsers)
}

// AssetsView lists every object of one kind under a prefix.
func (s *Service) AssetsView(kind api.AssetKind) *listview.Unbounded[AssetFilter, api.AssetItem] {
	return listview.NewUnbounded(s.cache, AssetResource(string(kind)), func(ctx context.Context, filter AssetFilter) ([]api.AssetItem, error) {
		return s.ListAssets(ctx, kind, filter)
	})
}
