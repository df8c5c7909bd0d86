// Command skillsmithd wires and runs the skill-authoring pipeline: it loads
// configuration, constructs the Job Store, HITL Coordinator, Taxonomy
// Manager, LM provider registry, and Signature Tuner, then starts the
// Service Facade an (unspecified, per spec §1) HTTP layer or CLI would call
// into. Mirrors the teacher's cmd/upal/main.go "serve" entry point.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/soochol/skillsmith/internal/cache"
	"github.com/soochol/skillsmith/internal/config"
	"github.com/soochol/skillsmith/internal/crypto"
	"github.com/soochol/skillsmith/internal/hitl"
	"github.com/soochol/skillsmith/internal/jobstore"
	"github.com/soochol/skillsmith/internal/llm"
	"github.com/soochol/skillsmith/internal/operator"
	"github.com/soochol/skillsmith/internal/pgdb"
	"github.com/soochol/skillsmith/internal/session"
	"github.com/soochol/skillsmith/internal/skillsmith"
	"github.com/soochol/skillsmith/internal/taxonomy"
	"github.com/soochol/skillsmith/internal/tuner"
	"github.com/soochol/skillsmith/internal/workflow"
)

// defaultModelByType picks a reasonable model id per provider type, the
// same hard-coded-default-per-type shape as the teacher's own
// defaultPriority table in cmd/upal/main.go, reduced to this system's
// single-default-provider need (spec §1 puts exact vendor model choice
// outside the core's scope).
var defaultModelByType = map[string]string{
	"anthropic": "claude-sonnet-4-6",
	"openai":    "gpt-4o",
	"gemini":    "gemini-2.0-flash",
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "serve" {
		serve()
		return
	}
	fmt.Println("skillsmithd v0.1.0")
	fmt.Println("Usage: skillsmithd serve")
}

func serve() {
	cfg, err := config.LoadDefault()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()

	enc, err := crypto.NewEncryptorFromSecret(encryptionKeyFromEnv(), "provider-api-key")
	if err != nil {
		slog.Error("encryption key error", "err", err)
		os.Exit(1)
	}

	registry := llm.NewRegistry(enc)
	if err := registry.LoadAll(cfg.Providers); err != nil {
		slog.Error("loading LM providers failed", "err", err)
		os.Exit(1)
	}

	client, model, err := defaultProvider(registry, cfg.Providers)
	if err != nil {
		slog.Error("no usable LM provider configured", "err", err)
		os.Exit(1)
	}
	opDeps := operator.ModuleDeps{Client: client, Model: model}

	// Optional: connect to PostgreSQL if a database URL is configured,
	// falling back to in-memory durable tiers otherwise (matches the
	// teacher's cmd/upal/main.go database-optional bring-up).
	var database *pgdb.DB
	var store *jobstore.Store
	var sessions *session.Repository
	var mirror *taxonomy.Manager
	if cfg.Database.URL != "" {
		db, dberr := pgdb.Open(ctx, cfg.Database.URL)
		if dberr != nil {
			slog.Warn("database unavailable, using in-memory storage", "err", dberr)
		} else {
			database = db
			defer database.Close()
			if merr := database.Migrate(ctx, jobstore.Schema, session.Schema, taxonomy.MirrorSchema); merr != nil {
				slog.Error("database migration failed", "err", merr)
				os.Exit(1)
			}
			slog.Info("database connected", "url", cfg.Database.URL)
		}
	}
	if database != nil {
		store = jobstore.New(jobstore.NewDurable(database), cfg.JobStore.MaxInMemory, cfg.JobStore.TTL, cfg.JobStore.SweeperPeriod)
		sessions = session.New(session.NewDurable(database))
		mirror = taxonomy.NewManager(cfg.Taxonomy.Root, taxonomy.NewMirror(database))
	} else {
		store = jobstore.New(jobstore.NewMemDurable(), cfg.JobStore.MaxInMemory, cfg.JobStore.TTL, cfg.JobStore.SweeperPeriod)
		sessions = session.New(session.NewMemDurable())
		mirror = taxonomy.NewManager(cfg.Taxonomy.Root, taxonomy.NewMirror(nil))
	}
	_ = sessions // wired for the interactive variant; create_skill below doesn't need it directly

	if err := store.Start(ctx); err != nil {
		slog.Error("job store start failed", "err", err)
		os.Exit(1)
	}
	defer store.Stop()

	signingKey := []byte(os.Getenv("SKILLSMITH_HITL_SIGNING_KEY"))
	if len(signingKey) == 0 {
		slog.Warn("SKILLSMITH_HITL_SIGNING_KEY not set, using an ephemeral per-process key")
		signingKey = crypto.RandomKey(32)
	}
	coordinator := hitl.New(store, signingKey)

	cacheLayer := cache.NewGuarded()
	skillTuner := tuner.New(opDeps)

	engine := workflow.New(workflow.Deps{
		Store:       store,
		Coordinator: coordinator,
		Taxonomy:    mirror,
		Cache:       cacheLayer,
		Tuner:       skillTuner,
		Operators:   opDeps,
		JobTTL:      cfg.JobStore.TTL,
	})

	facade := skillsmith.New(engine, coordinator, mirror)
	_ = facade // the Go boundary an HTTP layer (out of scope, spec §1) would call into

	slog.Info("skillsmithd ready", "taxonomy_root", cfg.Taxonomy.Root, "default_provider", model)
	select {} // stays up driving the sweeper and in-flight jobs; transport is an external collaborator
}

// defaultProvider picks the single LM client+model the Workflow Engine's
// operators share, preferring anthropic, then openai, then gemini — an
// arbitrary but deterministic order (spec doesn't mandate multi-provider
// routing for the core; that's the teacher's own services.WorkflowService
// concern with per-node provider selection, out of this spec's scope).
func defaultProvider(registry *llm.Registry, providers map[string]config.ProviderConfig) (llm.Client, string, error) {
	for _, preferred := range []string{"anthropic", "openai", "gemini"} {
		for name, pc := range providers {
			if pc.Type != preferred {
				continue
			}
			client, ok := registry.Get(name)
			if !ok {
				continue
			}
			return client, defaultModelByType[pc.Type], nil
		}
	}
	for name := range providers {
		if client, ok := registry.Get(name); ok {
			return client, "default", nil
		}
	}
	return nil, "", fmt.Errorf("no providers configured")
}

func encryptionKeyFromEnv() []byte {
	key := os.Getenv("SKILLSMITH_ENCRYPTION_KEY")
	if key == "" {
		return nil
	}
	return []byte(key)
}
