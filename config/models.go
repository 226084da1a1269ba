package config

// Config holds the configuration of the application
// Use cmd.NewConfig to create a new instance
type Config struct {
	LLM        LLM              `mapstructure:"llm"`
	NLP        NLP              `mapstructure:"nlp"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Store      StoreConfig      `mapstructure:"store"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Auth       AuthConfig       `mapstructure:"auth"`
}

type StoreConfig struct {
	Type     string         `mapstructure:"type"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type LLM struct {
	Service string `mapstructure:"service"`
	Model   string `mapstructure:"model"`
	// OpenAIAPIKey is loaded from ENV not config file.
	OpenAIAPIKey   string `mapstructure:"openai_api_key"`
	OpenAIEndpoint string `mapstructure:"openai_endpoint"`
}

// NLP configures the local embedding/NLP sidecar service.
type NLP struct {
	ServerURL string `mapstructure:"server_url"`
}

type EmbeddingsConfig struct {
	Service    string `mapstructure:"service"`
	Dimensions int    `mapstructure:"dimensions"`
	Model      string `mapstructure:"model"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AuthConfig struct {
	Secret   string `mapstructure:"secret"   json:"-"`
	Required bool   `mapstructure:"required"`
}

// RetrievalConfig holds the tunable constants of the retrieval engine. The
// defaults are empirically chosen and overridable pending product-level
// calibration.
type RetrievalConfig struct {
	// DefaultLimit is the result budget used when a search does not specify one.
	DefaultLimit int `mapstructure:"default_limit"`
	// PrimaryThreshold is the minimum session summary similarity for the
	// strict session ranking pass.
	PrimaryThreshold float64 `mapstructure:"primary_threshold"`
	// RelaxedFloor bounds the relaxed threshold from below.
	RelaxedFloor float64 `mapstructure:"relaxed_floor"`
	// RelaxedFactor scales PrimaryThreshold for the relaxed retry pass.
	RelaxedFactor float64 `mapstructure:"relaxed_factor"`
	// RecencyHalfLifeDays controls the recency decay applied during the
	// relaxed retry: weight = 1 / (1 + age_days/half_life).
	RecencyHalfLifeDays float64 `mapstructure:"recency_half_life_days"`

	// SessionPriorWeight and MessageWeight blend the session prior with the
	// message embedding similarity during topical retrieval.
	SessionPriorWeight float64 `mapstructure:"session_prior_weight"`
	MessageWeight      float64 `mapstructure:"message_weight"`

	// OrderWeight and OrderSemanticWeight blend positional confidence with
	// message embedding similarity for chronological queries.
	OrderWeight         float64 `mapstructure:"order_weight"`
	OrderSemanticWeight float64 `mapstructure:"order_semantic_weight"`

	// Base similarities assigned to positional matches. Positional results
	// bypass the similarity threshold; these communicate confidence only.
	FirstBase float64 `mapstructure:"first_base"`
	LastBase  float64 `mapstructure:"last_base"`
	NthBase   float64 `mapstructure:"nth_base"`

	// RecentFallbackSessions and RecentFallbackBase drive the within-tier
	// fallback against the most recently created sessions.
	RecentFallbackSessions    int     `mapstructure:"recent_fallback_sessions"`
	RecentFallbackBase        float64 `mapstructure:"recent_fallback_base"`
	RecentFallbackPriorWeight float64 `mapstructure:"recent_fallback_prior_weight"`

	// MinSimilarity is the default floor for the legacy flat corpus scan.
	MinSimilarity float64 `mapstructure:"min_similarity"`

	// ClassifierTimeoutSeconds guards the LLM classification call. On expiry
	// classification falls back to the deterministic rules.
	ClassifierTimeoutSeconds int `mapstructure:"classifier_timeout_seconds"`

	// MMRLambda and MMRMultiplier configure optional MMR reranking.
	MMRLambda     float32 `mapstructure:"mmr_lambda"`
	MMRMultiplier int     `mapstructure:"mmr_multiplier"`
}
