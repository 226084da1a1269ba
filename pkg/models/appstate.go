package models

import (
	"github.com/mnemo-ai/mnemo/config"
)

// AppState is a struct that holds the state of the application
// Use cmd.NewAppState to create a new instance
type AppState struct {
	LLMClient        LLM
	EmbeddingsClient EmbeddingsClient
	Storage          Storage
	Searcher         Searcher
	Config           *config.Config
}
