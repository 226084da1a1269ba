package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mnemo-ai/mnemo/config"
	"github.com/mnemo-ai/mnemo/pkg/auth"
	"github.com/mnemo-ai/mnemo/pkg/llms"
	"github.com/mnemo-ai/mnemo/pkg/models"
	"github.com/mnemo-ai/mnemo/pkg/retrieval"
	"github.com/mnemo-ai/mnemo/pkg/server"
	"github.com/mnemo-ai/mnemo/pkg/store/postgres"
)

const (
	ErrStoreTypeNotSet   = "store.type must be set"
	ErrPostgresDSNNotSet = "store.postgres.dsn must be set"
	StoreTypePostgres    = "postgres"
)

// run is the entrypoint for the mnemo server
func run() {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		log.Fatalf("Error configuring mnemo: %s", err)
	}

	handleCLIOptions(cfg)

	log.Infof("Starting mnemo server version %s", config.VersionString)

	config.SetLogLevel(cfg)
	appState := NewAppState(cfg)

	srv := server.Create(appState)

	log.Infof("Listening on: %s", srv.Addr)
	err = srv.ListenAndServe()
	if err != nil {
		log.Fatal(err)
	}
}

// NewAppState creates an AppState struct from the config file / ENV,
// initializes the store and the LLM and embeddings clients, and wires the
// retrieval engine.
func NewAppState(cfg *config.Config) *models.AppState {
	ctx := context.Background()

	llmClient, err := llms.NewLLMClient(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	embeddingsClient, err := llms.NewEmbeddingsClient(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}

	appState := &models.AppState{
		LLMClient:        llmClient,
		EmbeddingsClient: embeddingsClient,
		Config:           cfg,
	}

	initializeStorage(appState)
	appState.Searcher = retrieval.NewRetriever(
		appState.Storage,
		appState.EmbeddingsClient,
		appState.LLMClient,
		cfg,
	)

	return appState
}

// handleCLIOptions handles CLI options that don't require the server to run
func handleCLIOptions(cfg *config.Config) {
	if showVersion {
		fmt.Println(config.VersionString)
		os.Exit(0)
	}
	if generateKey {
		fmt.Println(auth.GenerateJWT(cfg))
		os.Exit(0)
	}
	if dumpConfig {
		out, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			log.Fatalf("Error dumping config: %s", err)
		}
		fmt.Println(string(out))
		os.Exit(0)
	}
}

// initializeStorage initializes the store based on the config file / ENV
func initializeStorage(appState *models.AppState) {
	if appState.Config.Store.Type == "" {
		log.Fatal(ErrStoreTypeNotSet)
	}

	switch appState.Config.Store.Type {
	case StoreTypePostgres:
		if appState.Config.Store.Postgres.DSN == "" {
			log.Fatal(ErrPostgresDSNNotSet)
		}
		db, err := postgres.NewPostgresConn(appState.Config)
		if err != nil {
			log.Fatal(err)
		}
		postgres.SetUpDBLogging(db, log)
		if err := postgres.CreateSchema(context.Background(), db, appState.Config); err != nil {
			log.Fatal(err)
		}
		appState.Storage = postgres.NewStorage(db)
	default:
		log.Fatal(
			fmt.Sprintf("store.type (%s) is not supported", appState.Config.Store.Type),
		)
	}

	log.Info("Using store: ", appState.Config.Store.Type)
}
