package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Configuration keys understood by the alert workflow.
const (
	KeyChannel         = "channel"
	KeyMarkers         = "markers"
	KeyRequiredLabels  = "required_labels"
	KeyProject         = "project"
	KeyIssueType       = "issue_type"
	KeyJiraURL         = "jira_url"
	KeyJiraEmail       = "jira_email"
	KeyJiraToken       = "jira_token"
	KeyModel           = "model"
	KeyEscalationModel = "escalation_model"
	KeyMaxInference    = "max_inference_attempts"
	KeyMaxRetries      = "max_create_retries"
	KeyBackoffBase     = "backoff_base"
	KeyBackoffCap      = "backoff_cap"
	KeyCreatePartial   = "create_incomplete"
	KeyExtractTimeout  = "extract_timeout"
	KeyCreateTimeout   = "create_timeout"
	KeyVerifyTimeout   = "verify_timeout"
	KeyDataDir         = "data_dir"
	KeyRetentionDays   = "retention_days"
	KeyArchiveDays     = "archive_days"
	KeyLogLevel        = "log_level"
	KeySlackWebhook    = "slack_webhook_url"
	KeyAnthropicKey    = "anthropic_api_key"
	KeyGitHubToken     = "github_token"
	KeyGitHubRepo      = "github_repo"
	KeyGitLabToken     = "gitlab_token"
	KeyGitLabURL       = "gitlab_url"
	KeyGitLabProject   = "gitlab_project"
)

// Defaults returns the built-in default values.
func Defaults() map[string]string {
	return map[string]string{
		KeyChannel:        "servicecore-mobile-errors",
		KeyRequiredLabels: "bug,mobile",
		KeyProject:        "MOBILE",
		KeyIssueType:      "Bug",
		KeyMaxInference:   "2",
		KeyMaxRetries:     "5",
		KeyBackoffBase:    "2s",
		KeyBackoffCap:     "16s",
		KeyCreatePartial:  "true",
		KeyExtractTimeout: "60s",
		KeyCreateTimeout:  "30s",
		KeyVerifyTimeout:  "15s",
		KeyDataDir:        ".alertflow",
		KeyRetentionDays:  "90",
		KeyArchiveDays:    "30",
		KeyLogLevel:       "info",
	}
}

// SecretKeys are credential-bearing keys. They are read from the
// environment only; values in config files are ignored.
func SecretKeys() []string {
	return []string{
		KeyJiraToken,
		KeyAnthropicKey,
		KeyGitHubToken,
		KeyGitLabToken,
		KeySlackWebhook,
	}
}

// EnvAliases maps conventional unprefixed environment variables onto
// config keys, so deployments that already export JIRA_API_TOKEN or
// ANTHROPIC_API_KEY work without renaming anything.
func EnvAliases() map[string]string {
	return map[string]string{
		"JIRA_API_TOKEN":    KeyJiraToken,
		"ANTHROPIC_API_KEY": KeyAnthropicKey,
		"GITHUB_TOKEN":      KeyGitHubToken,
		"GITLAB_TOKEN":      KeyGitLabToken,
		"SLACK_WEBHOOK_URL": KeySlackWebhook,
	}
}

// ValidGlobalKeys are the keys a user may set in the global config.
func ValidGlobalKeys() []string {
	return []string{
		KeyChannel, KeyMarkers, KeyRequiredLabels, KeyProject, KeyIssueType,
		KeyJiraURL, KeyJiraEmail, KeyGitHubRepo, KeyGitLabURL, KeyGitLabProject,
		KeyModel, KeyEscalationModel,
		KeyMaxInference, KeyMaxRetries, KeyBackoffBase, KeyBackoffCap,
		KeyCreatePartial, KeyExtractTimeout, KeyCreateTimeout,
		KeyVerifyTimeout, KeyDataDir, KeyRetentionDays, KeyArchiveDays,
		KeyLogLevel,
	}
}

// ValidLocalKeys are the keys a deployment may set in .alertflow.yaml.
// Same set as global; precedence decides which wins.
func ValidLocalKeys() []string {
	return ValidGlobalKeys()
}

// NewAppResolver returns a Resolver wired with the workflow's
// conventions: ALERTFLOW_ env prefix, ~/.config/alertflow/config.yaml,
// .alertflow.yaml at the service root, and env-only secrets.
func NewAppResolver() *Resolver {
	return NewResolver(ResolverConfig{
		EnvPrefix:       "ALERTFLOW_",
		EnvAliases:      EnvAliases(),
		GlobalConfigDir: "alertflow",
		LocalConfigName: ".alertflow.yaml",
		Defaults:        Defaults(),
		SecretKeys:      SecretKeys(),
		ValidGlobalKeys: ValidGlobalKeys(),
		ValidLocalKeys:  ValidLocalKeys(),
	})
}

// Settings is the typed view of a resolved configuration.
type Settings struct {
	// Channel is the Slack channel the workflow accepts alerts from.
	Channel string

	// Markers are the source markers used for Datadog detection. Empty
	// means use the built-in marker list.
	Markers []string

	// RequiredLabels are the category labels a complete ticket must
	// carry at least one of.
	RequiredLabels []string

	// Project and IssueType select where tickets are filed.
	Project   string
	IssueType string

	// Jira connection. Token comes from the environment only.
	JiraURL   string
	JiraEmail string
	JiraToken string

	// Alternate tracker backends, used when no Jira URL is configured.
	GitHubRepo    string
	GitLabURL     string
	GitLabProject string

	// Model selection for extraction and inference. Empty means the
	// extraction service's defaults.
	Model           string
	EscalationModel string

	// Workflow bounds.
	MaxInferenceAttempts int
	MaxCreateRetries     int
	BackoffBase          time.Duration
	BackoffCap           time.Duration
	CreateIncomplete     bool

	// Per-call timeouts.
	ExtractTimeout time.Duration
	CreateTimeout  time.Duration
	VerifyTimeout  time.Duration

	// DataDir is where transcripts and artifacts live.
	DataDir string

	// Retention for stored runs.
	RetentionDays int
	ArchiveDays   int

	LogLevel string

	// Optional notification and tracker credentials.
	SlackWebhookURL string
	AnthropicAPIKey string
	GitHubToken     string
	GitLabToken     string
}

// ParseSettings converts a resolved configuration into typed settings.
// It reports the first malformed value with its key.
func ParseSettings(cfg *Resolved) (Settings, error) {
	s := Settings{
		Channel:         cfg.Get(KeyChannel),
		Markers:         splitList(cfg.Get(KeyMarkers)),
		RequiredLabels:  splitList(cfg.Get(KeyRequiredLabels)),
		Project:         cfg.Get(KeyProject),
		IssueType:       cfg.Get(KeyIssueType),
		JiraURL:         cfg.Get(KeyJiraURL),
		JiraEmail:       cfg.Get(KeyJiraEmail),
		JiraToken:       cfg.Get(KeyJiraToken),
		GitHubRepo:      cfg.Get(KeyGitHubRepo),
		GitLabURL:       cfg.Get(KeyGitLabURL),
		GitLabProject:   cfg.Get(KeyGitLabProject),
		Model:           cfg.Get(KeyModel),
		EscalationModel: cfg.Get(KeyEscalationModel),
		DataDir:         cfg.Get(KeyDataDir),
		LogLevel:        cfg.Get(KeyLogLevel),
		SlackWebhookURL: cfg.Get(KeySlackWebhook),
		AnthropicAPIKey: cfg.Get(KeyAnthropicKey),
		GitHubToken:     cfg.Get(KeyGitHubToken),
		GitLabToken:     cfg.Get(KeyGitLabToken),
	}

	var err error
	if s.MaxInferenceAttempts, err = parseInt(cfg, KeyMaxInference); err != nil {
		return s, err
	}
	if s.MaxCreateRetries, err = parseInt(cfg, KeyMaxRetries); err != nil {
		return s, err
	}
	if s.RetentionDays, err = parseInt(cfg, KeyRetentionDays); err != nil {
		return s, err
	}
	if s.ArchiveDays, err = parseInt(cfg, KeyArchiveDays); err != nil {
		return s, err
	}
	if s.BackoffBase, err = parseDuration(cfg, KeyBackoffBase); err != nil {
		return s, err
	}
	if s.BackoffCap, err = parseDuration(cfg, KeyBackoffCap); err != nil {
		return s, err
	}
	if s.ExtractTimeout, err = parseDuration(cfg, KeyExtractTimeout); err != nil {
		return s, err
	}
	if s.CreateTimeout, err = parseDuration(cfg, KeyCreateTimeout); err != nil {
		return s, err
	}
	if s.VerifyTimeout, err = parseDuration(cfg, KeyVerifyTimeout); err != nil {
		return s, err
	}
	if s.CreateIncomplete, err = parseBool(cfg, KeyCreatePartial); err != nil {
		return s, err
	}

	return s, nil
}

// LoadSettings resolves the standard configuration hierarchy and
// returns it typed.
func LoadSettings() (Settings, error) {
	return ParseSettings(NewAppResolver().Resolve())
}

func parseInt(cfg *Resolved, key string) (int, error) {
	raw := cfg.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config key %s: %q is not an integer", key, raw)
	}
	return n, nil
}

func parseDuration(cfg *Resolved, key string) (time.Duration, error) {
	raw := cfg.Get(key)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config key %s: %q is not a duration", key, raw)
	}
	return d, nil
}

func parseBool(cfg *Resolved, key string) (bool, error) {
	raw := cfg.Get(key)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("config key %s: %q is not a boolean", key, raw)
	}
	return b, nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
