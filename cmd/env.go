package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/residuals-cli/internal/anomaly"
	"github.com/sells-group/residuals-cli/internal/assign"
	"github.com/sells-group/residuals-cli/internal/importer"
	"github.com/sells-group/residuals-cli/internal/schema"
	"github.com/sells-group/residuals-cli/internal/store"
	"github.com/sells-group/residuals-cli/internal/validate"
)

// env bundles the wired subsystems shared by most commands.
type env struct {
	Store    store.Store
	Registry *schema.Registry
	Importer *importer.Importer
	Engine   *assign.Engine
	Detector *anomaly.Detector
}

func (e *env) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

func initEnv(ctx context.Context) (*env, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	reg := schema.NewRegistry()
	if cfg.Import.SchemasFile != "" {
		if err := reg.LoadFile(cfg.Import.SchemasFile); err != nil {
			st.Close()
			return nil, err
		}
	}

	det := schema.NewDetector(reg, cfg.Import.DetectionThreshold)
	val := validate.NewValidator(cfg.Audit.RevenuePerTxnLimit)

	return &env{
		Store:    st,
		Registry: reg,
		Importer: importer.New(st, reg, det, val),
		Engine:   assign.NewEngine(st),
		Detector: anomaly.NewDetector(cfg.Audit.OutlierMultiplier, cfg.Audit.VarianceThreshold),
	}, nil
}
