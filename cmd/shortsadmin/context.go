package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"shortsadmin/internal/admin"
	"shortsadmin/internal/config"
	"shortsadmin/internal/gateway"
	"shortsadmin/internal/journal"
	"shortsadmin/internal/logging"
	"shortsadmin/internal/session"
)

const userAgent = "shortsadmin-cli"

type commandContext struct {
	configFlag *string
	apiURLFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	// configPath is the file Load resolved; configFound is false when
	// defaults were used because it does not exist.
	configPath  string
	configFound bool
}

func newCommandContext(configFlag, apiURLFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		apiURLFlag: apiURLFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, found, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.configPath, c.configFound = resolved, found
		if c.apiURLFlag != nil {
			if override := strings.TrimRight(strings.TrimSpace(*c.apiURLFlag), "/"); override != "" {
				cfg.API.BaseURL = strings.TrimSuffix(override, "/api")
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// console bundles everything one command invocation talks to.
type console struct {
	cfg     *config.Config
	logger  *slog.Logger
	session *session.Store
	service *admin.Service
	journal *journal.Store
}

// withConsole wires session, gateway, journal and service for fn and closes
// the journal afterwards. A SHORTSADMIN_TOKEN credential is used in memory
// only and never replaces the persisted session.
func (c *commandContext) withConsole(fn func(*console) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	var persist session.Persister = session.NewFileStore(cfg.SessionPath())
	if cfg.API.Token != "" {
		persist = session.NewMemoryStore(cfg.API.Token)
	}
	store, err := session.New(persist, logger)
	if err != nil {
		return err
	}

	gw, err := gateway.New(gateway.Options{
		BaseURL:       cfg.API.BaseURL,
		Timeout:       cfg.RequestTimeout(),
		RatePerSecond: cfg.API.RateLimitPerSecond,
		Burst:         cfg.API.RateBurst,
		Logger:        logger,
		UserAgent:     userAgent,
	}, store)
	if err != nil {
		return err
	}

	actions, err := journal.Open(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "action journal unavailable",
			"journal_open", "mutations will not be recorded",
			logging.String("path", cfg.JournalPath()),
			logging.Error(err),
		)
		actions = nil
	}

	opts := admin.Options{Gateway: gw, Session: store, Logger: logger}
	if actions != nil {
		opts.Journal = actions
	}
	svc, err := admin.New(opts)
	if err != nil {
		closeJournal(actions)
		return err
	}

	runErr := fn(&console{cfg: cfg, logger: logger, session: store, service: svc, journal: actions})
	return errors.Join(runErr, closeJournal(actions))
}

func closeJournal(actions *journal.Store) error {
	if actions == nil {
		return nil
	}
	return actions.Close()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

// explain turns well-known failures into an actionable line.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case gateway.IsUnauthorized(err):
		return fmt.Errorf("%w; the token was rejected, run `shortsadmin login` again", err)
	case errors.Is(err, gateway.ErrTransport):
		return fmt.Errorf("backend unreachable: %w", err)
	default:
		return err
	}
}
