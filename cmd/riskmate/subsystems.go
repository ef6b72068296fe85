package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"

	"github.com/surenss861/riskmate-sub004/pkg/artifacts"
	"github.com/surenss861/riskmate-sub004/pkg/audit"
	"github.com/surenss861/riskmate-sub004/pkg/config"
	"github.com/surenss861/riskmate-sub004/pkg/crypto"
	"github.com/surenss861/riskmate-sub004/pkg/evidence"
	"github.com/surenss861/riskmate-sub004/pkg/observability"
	"github.com/surenss861/riskmate-sub004/pkg/policy"
	"github.com/surenss861/riskmate-sub004/pkg/signing"
	"github.com/surenss861/riskmate-sub004/pkg/store"
	"github.com/surenss861/riskmate-sub004/pkg/verifier"
)

// services is everything the server and the offline commands share.
type services struct {
	db       *sql.DB
	store    store.Store
	signing  *signing.Service
	evidence *evidence.Exporter
	obs      *observability.Provider
}

func (s *services) Close(ctx context.Context) {
	if s.obs != nil {
		_ = s.obs.Shutdown(ctx)
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}

// newServices wires storage, policy, verification, audit and evidence from cfg.
func newServices(ctx context.Context, cfg *config.Config, auditLog audit.Logger) (*services, error) {
	svc := &services{}

	var err error
	if cfg.LiteMode() {
		svc.db, svc.store, err = setupLiteMode(cfg.DataDir)
	} else {
		svc.db, svc.store, err = setupPostgres(ctx, cfg.DatabaseURL)
	}
	if err != nil {
		return nil, err
	}

	var profile *config.SigningProfile
	if cfg.PolicyProfile != "" {
		if profile, err = config.LoadSigningProfile(cfg.PolicyProfile); err != nil {
			svc.Close(ctx)
			return nil, err
		}
		log.Printf("[riskmate] signing profile: %s", profile.Name)
	}
	engine, err := policy.NewEngine(profile)
	if err != nil {
		svc.Close(ctx)
		return nil, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.Enabled = cfg.OTelEnabled
	obsCfg.OTLPEndpoint = cfg.OTelEndpoint
	if svc.obs, err = observability.New(ctx, obsCfg); err != nil {
		svc.Close(ctx)
		return nil, err
	}

	allowLegacy := profile.LegacyAllowed(cfg.AllowLegacyHashes)
	svc.signing, err = signing.NewService(svc.store,
		signing.WithPolicy(engine),
		signing.WithVerifier(verifier.New(verifier.WithLegacy(allowLegacy))),
		signing.WithAuditLogger(auditLog),
		signing.WithObservability(svc.obs),
	)
	if err != nil {
		svc.Close(ctx)
		return nil, err
	}

	keys, err := evidenceKeys(cfg)
	if err != nil {
		svc.Close(ctx)
		return nil, err
	}
	artStore, err := artifacts.NewStore(ctx, cfg.Artifacts, cfg.DataDir)
	if err != nil {
		svc.Close(ctx)
		return nil, err
	}
	if svc.evidence, err = evidence.NewExporter(svc.signing, keys, artStore); err != nil {
		svc.Close(ctx)
		return nil, err
	}
	return svc, nil
}

func evidenceKeys(cfg *config.Config) (*crypto.TenantKeyring, error) {
	if cfg.EvidenceMasterKey != "" {
		return crypto.NewTenantKeyring(cfg.EvidenceMasterKey)
	}
	if !cfg.LiteMode() {
		return nil, fmt.Errorf("RISKMATE_EVIDENCE_MASTER_KEY is required outside lite mode")
	}
	log.Println("[riskmate] evidence: no master key set, bundles are signed with an ephemeral key")
	return crypto.NewEphemeralKeyring()
}

func setupLiteMode(dataDir string) (*sql.DB, store.Store, error) {
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "riskmate.db")
	log.Printf("[riskmate] lite mode: using sqlite at %s", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// One writer keeps SQLite from returning SQLITE_BUSY under concurrent signing.
	db.SetMaxOpenConns(1)

	st, err := store.NewSQLiteStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to init sqlite store: %w", err)
	}
	return db, st, nil
}

func setupPostgres(ctx context.Context, dsn string) (*sql.DB, store.Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("DB ping failed: %w", err)
	}
	log.Println("[riskmate] postgres: connected")

	st := store.NewPostgresStore(db)
	if err := st.Init(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to init signature store: %w", err)
	}
	return db, st, nil
}
