package app

import (
	"context"
	"fmt"
	"io"
	"log"

	"stockbot/internal/agent"
	"stockbot/internal/audit"
	"stockbot/internal/catalog"
	"stockbot/internal/config"
	"stockbot/internal/llm"
	"stockbot/internal/metrics"
	"stockbot/internal/report"
	"stockbot/internal/server"
	"stockbot/internal/users"
)

// Core is everything both front ends share: stores, model, agent.
type Core struct {
	Config  *config.Config
	Catalog *catalog.Store
	History audit.Store
	Users   *users.Directory
	Agent   *agent.Agent
	Metrics *metrics.Metrics
}

// NewCore opens the data files and builds the agent. A missing or damaged
// catalog or user file is an error: the assistant cannot run without them.
func NewCore(ctx context.Context, cfg *config.Config) (*Core, error) {
	m := metrics.New()

	history := audit.Open(cfg.AuditPath, cfg.AuditDSN)
	store := catalog.NewStore(cfg.CatalogPath, history)
	if err := store.Open(ctx); err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", cfg.CatalogPath, err)
	}
	dir, err := users.Load(cfg.UsersPath)
	if err != nil {
		return nil, fmt.Errorf("load users %s: %w", cfg.UsersPath, err)
	}

	model, err := llm.New(ctx, llm.Options{
		Provider:   cfg.LLM.Provider,
		Model:      cfg.LLM.Model,
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		APIVersion: cfg.LLM.APIVersion,
		Timeout:    cfg.LLM.Timeout,
		RPS:        cfg.LLM.RPS,
		Burst:      cfg.LLM.Burst,
		Recorder:   m,
		Logger:     log.Default(),
	})
	if err != nil {
		return nil, err
	}

	reports := &report.Service{
		Catalog:     store,
		History:     history,
		Path:        cfg.ReportPath,
		PDF:         report.PDFOptions{Compress: true, Author: "stockbot"},
		OnGenerated: m.ReportGenerated,
	}
	if cfg.Archive.Enabled() {
		archive, err := report.NewS3Archive(report.S3Config{
			Endpoint:  cfg.Archive.Endpoint,
			Region:    cfg.Archive.Region,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Bucket:    cfg.Archive.Bucket,
			UseSSL:    cfg.Archive.UseSSL,
			LinkTTL:   cfg.Archive.LinkTTL,
		})
		if err != nil {
			log.Printf("report archive disabled: %v", err)
		} else {
			reports.Archive = archive
		}
	}

	log.Printf("catalog=%s history=%T users=%d model=%s", cfg.CatalogPath, history, dir.Len(), cfg.LLM.Provider)
	return &Core{
		Config:  cfg,
		Catalog: store,
		History: history,
		Users:   dir,
		Metrics: m,
		Agent: agent.New(agent.Deps{
			Catalog:  store,
			History:  history,
			Model:    model,
			Reports:  reports,
			Observer: m,
		}),
	}, nil
}

// Close releases the history backend when it holds a connection.
func (c *Core) Close() error {
	if cl, ok := c.History.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

type App struct {
	core   *Core
	server *server.Server
}

func New(ctx context.Context, args []string) (*App, error) {
	cfg, err := config.Load(args)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	core, err := NewCore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sessions, err := server.NewSessions(cfg.SessionCacheSize, core.Metrics.SetSessions)
	if err != nil {
		return nil, err
	}
	mux := server.NewMux(&server.Handler{
		Agent:    core.Agent,
		Users:    core.Users,
		Sessions: sessions,
		Catalog:  core.Catalog,
		History:  core.History,
		Metrics:  core.Metrics.Handler(),
	})
	return &App{core: core, server: server.New(cfg.Port, mux)}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if cerr := a.core.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
