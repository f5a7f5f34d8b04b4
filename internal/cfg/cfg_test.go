package cfg

import (
	"flag"
	"strings"
	"testing"
)

// validBase returns a Config with all required fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:          60,
		ShutdownBudgetSeconds: 90,
		APIPort:               8080,
		OpenAIBaseURL:         "https://api.openai.com/v1",
		OpenAIModel:           "gpt-4.1-mini",
		AnswerThreshold:       0.75,
		ClarifyThreshold:      0.45,
		RetentionSeconds:      30 * 24 * 60 * 60,
		DedupTTLSeconds:       24 * 60 * 60,
		CleanupSchedule:       "0 3 * * *",
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.OpenAIBaseURL != "https://api.openai.com/v1" {
		t.Errorf("OpenAIBaseURL = %q", c.OpenAIBaseURL)
	}
	if c.AnswerThreshold != 0.75 || c.ClarifyThreshold != 0.45 {
		t.Errorf("thresholds = %v/%v, want 0.75/0.45", c.AnswerThreshold, c.ClarifyThreshold)
	}
	if c.RetentionSeconds != 30*24*60*60 {
		t.Errorf("RetentionSeconds = %d", c.RetentionSeconds)
	}
	if c.DedupTTLSeconds != 24*60*60 {
		t.Errorf("DedupTTLSeconds = %d", c.DedupTTLSeconds)
	}
	if c.ProfilesCSVPath != "data/profiles.csv" || c.KnowledgeCSVPath != "data/knowledge.csv" {
		t.Errorf("csv paths = %q/%q", c.ProfilesCSVPath, c.KnowledgeCSVPath)
	}
	if c.CleanupSchedule != "0 3 * * *" {
		t.Errorf("CleanupSchedule = %q", c.CleanupSchedule)
	}
	if c.DisableExternalAI || c.AllowUnsignedWebhook {
		t.Error("boolean flags should default to false")
	}

	// validate the parsed defaults as a whole
	if err := c.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-shutdown-budget-seconds", "120",
		"-http-port", "9090",
		"-openai-api-key", "sk-override",
		"-openai-model", "gpt-4.1",
		"-confidence-answer-threshold", "0.8",
		"-confidence-clarify-threshold", "0.5",
		"-redis-url", "redis://localhost:6379/0",
		"-line-channel-secret", "cs",
		"-admin-api-key", "ak",
		"-disable-external-ai",
		"-allow-unsigned-webhook",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.DrainSeconds != 30 || c.ShutdownBudgetSeconds != 120 || c.APIPort != 9090 {
		t.Errorf("server settings = %d/%d/%d", c.DrainSeconds, c.ShutdownBudgetSeconds, c.APIPort)
	}
	if c.OpenAIAPIKey != "sk-override" || c.OpenAIModel != "gpt-4.1" {
		t.Errorf("openai settings = %q/%q", c.OpenAIAPIKey, c.OpenAIModel)
	}
	if c.AnswerThreshold != 0.8 || c.ClarifyThreshold != 0.5 {
		t.Errorf("thresholds = %v/%v", c.AnswerThreshold, c.ClarifyThreshold)
	}
	if c.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL = %q", c.RedisURL)
	}
	if c.ChannelSecret != "cs" || c.AdminAPIKey != "ak" {
		t.Errorf("secrets = %q/%q", c.ChannelSecret, c.AdminAPIKey)
	}
	if !c.DisableExternalAI || !c.AllowUnsignedWebhook {
		t.Error("boolean flags not set")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errSubstr []string // substrings that must appear in error message
	}{
		{
			name:    "base is valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "key without model",
			mutate:  func(c *Config) { c.OpenAIAPIKey = "sk-x"; c.OpenAIModel = "" },
			wantErr: true, errSubstr: []string{"OPENAI_MODEL"},
		},
		{
			name:    "no key tolerates empty model",
			mutate:  func(c *Config) { c.OpenAIModel = "" },
			wantErr: false,
		},
		{
			name:    "drain zero",
			mutate:  func(c *Config) { c.DrainSeconds = 0 },
			wantErr: true, errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:    "drain above max",
			mutate:  func(c *Config) { c.DrainSeconds = 301; c.ShutdownBudgetSeconds = 302 },
			wantErr: true, errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS"},
		},
		{
			name:    "budget equals drain",
			mutate:  func(c *Config) { c.ShutdownBudgetSeconds = c.DrainSeconds },
			wantErr: true, errSubstr: []string{"must be greater than"},
		},
		{
			name:    "port above max",
			mutate:  func(c *Config) { c.APIPort = 65536 },
			wantErr: true, errSubstr: []string{"HTTP_PORT"},
		},
		{
			name:    "answer threshold above one",
			mutate:  func(c *Config) { c.AnswerThreshold = 1.2 },
			wantErr: true, errSubstr: []string{"CONFIDENCE_ANSWER_THRESHOLD"},
		},
		{
			name:    "clarify threshold negative",
			mutate:  func(c *Config) { c.ClarifyThreshold = -0.1 },
			wantErr: true, errSubstr: []string{"CONFIDENCE_CLARIFY_THRESHOLD"},
		},
		{
			name:    "clarify above answer",
			mutate:  func(c *Config) { c.AnswerThreshold = 0.4; c.ClarifyThreshold = 0.6 },
			wantErr: true, errSubstr: []string{"must not exceed"},
		},
		{
			name:    "thresholds equal is valid",
			mutate:  func(c *Config) { c.AnswerThreshold = 0.5; c.ClarifyThreshold = 0.5 },
			wantErr: false,
		},
		{
			name:    "retention zero",
			mutate:  func(c *Config) { c.RetentionSeconds = 0 },
			wantErr: true, errSubstr: []string{"CONVERSATION_RETENTION_SECONDS"},
		},
		{
			name:    "dedup ttl negative",
			mutate:  func(c *Config) { c.DedupTTLSeconds = -1 },
			wantErr: true, errSubstr: []string{"DEDUP_TTL_SECONDS"},
		},
		{
			name:    "empty base url",
			mutate:  func(c *Config) { c.OpenAIBaseURL = "" },
			wantErr: true, errSubstr: []string{"OPENAI_BASE_URL"},
		},
		{
			name:    "empty cleanup schedule",
			mutate:  func(c *Config) { c.CleanupSchedule = "" },
			wantErr: true, errSubstr: []string{"CLEANUP_SCHEDULE"},
		},
		{
			name: "error accumulation",
			mutate: func(c *Config) {
				c.DrainSeconds = 0
				c.APIPort = 0
				c.RetentionSeconds = 0
				c.CleanupSchedule = ""
			},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "HTTP_PORT", "CONVERSATION_RETENTION_SECONDS", "CLEANUP_SCHEDULE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := validBase()
			tt.mutate(&c)

			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				errMsg := err.Error()
				for _, sub := range tt.errSubstr {
					if !strings.Contains(errMsg, sub) {
						t.Errorf("error %q does not contain %q", errMsg, sub)
					}
				}
			}
		})
	}
}
