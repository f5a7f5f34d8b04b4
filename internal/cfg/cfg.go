package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config adds service-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int

	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	DisableExternalAI bool

	AnswerThreshold  float64
	ClarifyThreshold float64
	RetentionSeconds int
	DedupTTLSeconds  int

	DatabaseURL string
	RedisURL    string

	ChannelSecret        string
	ChannelAccessToken   string
	ManagerUserID        string
	AllowUnsignedWebhook bool

	AdminAPIKey string

	ProfilesCSVPath   string
	KnowledgeCSVPath  string
	ProfilesSheetURL  string
	KnowledgeSheetURL string

	EscalationCSVPath    string
	EscalationWebhookURL string

	CleanupSchedule string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")

	fs.StringVar(&c.OpenAIAPIKey, "openai-api-key", "", "API key for the reasoning backend (empty = heuristic classification only)")
	fs.StringVar(&c.OpenAIBaseURL, "openai-base-url", "https://api.openai.com/v1", "base URL of the OpenAI-compatible chat completions API")
	fs.StringVar(&c.OpenAIModel, "openai-model", "gpt-4.1-mini", "model for classification and reply drafting")
	fs.BoolVar(&c.DisableExternalAI, "disable-external-ai", false, "skip the reasoning backend even when configured")

	fs.Float64Var(&c.AnswerThreshold, "confidence-answer-threshold", 0.75, "minimum confidence to answer directly (0..1)")
	fs.Float64Var(&c.ClarifyThreshold, "confidence-clarify-threshold", 0.45, "minimum confidence to ask a clarifying question (0..1)")
	fs.IntVar(&c.RetentionSeconds, "conversation-retention-seconds", 30*24*60*60, "conversation log retention in seconds")
	fs.IntVar(&c.DedupTTLSeconds, "dedup-ttl-seconds", 24*60*60, "webhook event dedup mark TTL in seconds")

	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL for the conversation log (empty = in-memory store)")
	fs.StringVar(&c.RedisURL, "redis-url", "", "Redis URL for the dedup guard (empty = in-memory guard)")

	fs.StringVar(&c.ChannelSecret, "line-channel-secret", "", "LINE channel secret for webhook signature verification")
	fs.StringVar(&c.ChannelAccessToken, "line-channel-access-token", "", "LINE channel access token for replies and pushes")
	fs.StringVar(&c.ManagerUserID, "line-manager-user-id", "", "LINE user id receiving escalation notifications")
	fs.BoolVar(&c.AllowUnsignedWebhook, "allow-unsigned-webhook", false, "accept webhook requests without a signature (local development only)")

	fs.StringVar(&c.AdminAPIKey, "admin-api-key", "", "key for the x-admin-key header on admin routes (empty = no auth)")

	fs.StringVar(&c.ProfilesCSVPath, "profiles-csv-path", "data/profiles.csv", "local CSV path for talent profiles")
	fs.StringVar(&c.KnowledgeCSVPath, "knowledge-csv-path", "data/knowledge.csv", "local CSV path for knowledge items")
	fs.StringVar(&c.ProfilesSheetURL, "sheets-profiles-csv-url", "", "published sheet CSV URL for talent profiles")
	fs.StringVar(&c.KnowledgeSheetURL, "sheets-knowledge-csv-url", "", "published sheet CSV URL for knowledge items")

	fs.StringVar(&c.EscalationCSVPath, "escalation-queue-csv-path", "data/escalations.csv", "local CSV path for the escalation queue")
	fs.StringVar(&c.EscalationWebhookURL, "escalation-webhook-url", "", "webhook URL for escalation records (takes precedence over the CSV queue)")

	fs.StringVar(&c.CleanupSchedule, "cleanup-schedule", "0 3 * * *", "cron schedule for retention sweeps")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// Confidence thresholds live in [0,1] and must be ordered
	if c.AnswerThreshold < 0 || c.AnswerThreshold > 1 {
		errs = append(errs, fmt.Errorf("invalid CONFIDENCE_ANSWER_THRESHOLD %v (must be 0..1)", c.AnswerThreshold))
	}
	if c.ClarifyThreshold < 0 || c.ClarifyThreshold > 1 {
		errs = append(errs, fmt.Errorf("invalid CONFIDENCE_CLARIFY_THRESHOLD %v (must be 0..1)", c.ClarifyThreshold))
	}
	if c.ClarifyThreshold > c.AnswerThreshold {
		errs = append(errs, fmt.Errorf("CONFIDENCE_CLARIFY_THRESHOLD %v must not exceed CONFIDENCE_ANSWER_THRESHOLD %v", c.ClarifyThreshold, c.AnswerThreshold))
	}

	if c.RetentionSeconds <= 0 {
		errs = append(errs, fmt.Errorf("invalid CONVERSATION_RETENTION_SECONDS %d (must be positive)", c.RetentionSeconds))
	}
	if c.DedupTTLSeconds <= 0 {
		errs = append(errs, fmt.Errorf("invalid DEDUP_TTL_SECONDS %d (must be positive)", c.DedupTTLSeconds))
	}

	// Model and base URL are required whenever a backend key is set
	if c.OpenAIAPIKey != "" && c.OpenAIModel == "" {
		errs = append(errs, errors.New("OPENAI_MODEL is required when OPENAI_API_KEY is set"))
	}
	if c.OpenAIBaseURL == "" {
		errs = append(errs, errors.New("OPENAI_BASE_URL is required"))
	}

	if c.CleanupSchedule == "" {
		errs = append(errs, errors.New("CLEANUP_SCHEDULE is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
