package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"shortsadmin/internal/gateway"
	"shortsadmin/internal/journal"
	"shortsadmin/internal/logging"
	"shortsadmin/internal/querycache"
)

// ErrValidation marks a precondition failure detected before any request.
var ErrValidation = errors.New("validation failed")

// ErrNotFound is returned by lookups that filter a list client-side.
var ErrNotFound = errors.New("not found")

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Cache families. Detail keys nest under their list family so invalidating
// the list also invalidates cached details.
const (
	ResourceUsers    = "users"
	ResourceEpisodes = "episodes"
	ResourceJobs     = "jobs"
	ResourceJob      = "jobs/detail"
	ResourceMetrics  = "metrics"
	ResourceCredits  = "credits"
	ResourceCredit   = "credits/detail"
	ResourceAssets   = "assets"
)

// AssetResource is the cache family for one asset kind.
func AssetResource(kind string) string {
	return ResourceAssets + "/" + kind
}

// Mutation names an admin action. Names double as journal action labels.
type Mutation string

const (
	MutationAdjustCredit  Mutation = "credits.adjust"
	MutationPatchCredit   Mutation = "users.set-credit"
	MutationSetActive     Mutation = "users.set-active"
	MutationSetPlan       Mutation = "users.set-plan"
	MutationDeleteEpisode Mutation = "episodes.delete"
	MutationUploadAsset   Mutation = "assets.upload"
)

// Invalidates lists the cache families each mutation marks stale on success.
// "{kind}" is replaced by the asset kind of the upload.
var Invalidates = map[Mutation][]string{
	MutationAdjustCredit:  {ResourceCredits, ResourceUsers},
	MutationPatchCredit:   {ResourceUsers, ResourceCredits},
	MutationSetActive:     {ResourceUsers, ResourceMetrics},
	MutationSetPlan:       {ResourceUsers},
	MutationDeleteEpisode: {ResourceEpisodes, ResourceMetrics},
	MutationUploadAsset:   {AssetResource("{kind}")},
}

func (m Mutation) invalidates(kind string) []string {
	declared := Invalidates[m]
	out := make([]string, 0, len(declared))
	for _, prefix := range declared {
		out = append(out, strings.ReplaceAll(prefix, "{kind}", kind))
	}
	return out
}

// Doer sends one API call. *gateway.Client implements it.
type Doer interface {
	Do(ctx context.Context, method, path string, req gateway.Request, out any) error
}

// Session supplies the credential gate and the operator name for the
// journal. *session.Store implements it.
type Session interface {
	Require() error
	Actor() string
}

// Options wires a Service.
type Options struct {
	Gateway Doer
	Session Session
	// Cache is shared by every view of one console; nil creates a private one.
	Cache *querycache.Cache
	// Journal is optional.
	Journal journal.Recorder
	Logger  *slog.Logger
}

// Service is the console's single entry point to the backend: every query
// and mutation goes through it.
type Service struct {
	gw      Doer
	session Session
	cache   *querycache.Cache
	journal journal.Recorder
	logger  *slog.Logger
}

// New validates opts and builds a Service.
func New(opts Options) (*Service, error) {
	if opts.Gateway == nil {
		return nil, errors.New("admin: gateway is required")
	}
	if opts.Session == nil {
		return nil, errors.New("admin: session is required")
	}
	cache := opts.Cache
	if cache == nil {
		cache = querycache.New()
	}
	return &Service{
		gw:      opts.Gateway,
		session: opts.Session,
		cache:   cache,
		journal: opts.Journal,
		logger:  logging.NewComponentLogger(opts.Logger, "admin"),
	}, nil
}

// Cache exposes the shared query cache.
func (s *Service) Cache() *querycache.Cache {
	return s.cache
}
