package context

import (
	"context"
	"fmt"

	llm "github.com/randalmurphal/llmkit/claude"

	"github.com/randalmurphal/alertflow/artifact"
	"github.com/randalmurphal/alertflow/config"
	"github.com/randalmurphal/alertflow/extract"
	"github.com/randalmurphal/alertflow/notify"
	"github.com/randalmurphal/alertflow/prompt"
	"github.com/randalmurphal/alertflow/task"
	"github.com/randalmurphal/alertflow/ticket"
	"github.com/randalmurphal/alertflow/ticket/github"
	"github.com/randalmurphal/alertflow/ticket/gitlab"
	"github.com/randalmurphal/alertflow/ticket/jira"
	"github.com/randalmurphal/alertflow/transcript"
)

// Services wraps the alert workflow's collaborators for convenient
// initialization and injection.
type Services struct {
	LLM         llm.Client // completion client backing extraction
	Extractor   extract.Service
	Tickets     ticket.Client
	Transcripts transcript.Manager
	Artifacts   *artifact.Manager
	Lifecycle   *artifact.Lifecycle // Optional retention/archival over the run data
	Prompts     *prompt.Loader
	Notifier    notify.Notifier // Optional notification service
}

// InjectAll adds all configured services to the context
func (s *Services) InjectAll(ctx context.Context) context.Context {
	if s.LLM != nil {
		ctx = WithLLM(ctx, s.LLM)
	}
	if s.Extractor != nil {
		ctx = WithExtractor(ctx, s.Extractor)
	}
	if s.Tickets != nil {
		ctx = WithTickets(ctx, s.Tickets)
	}
	if s.Transcripts != nil {
		ctx = WithTranscript(ctx, s.Transcripts)
	}
	if s.Artifacts != nil {
		ctx = WithArtifact(ctx, s.Artifacts)
	}
	if s.Prompts != nil {
		ctx = WithPrompt(ctx, s.Prompts)
	}
	if s.Notifier != nil {
		ctx = notify.WithNotifier(ctx, s.Notifier)
	}
	return ctx
}

// Config configures NewServices
type Config struct {
	DataDir   string // Base directory for transcripts and artifacts (default: ".alertflow")
	PromptDir string // Extra directory searched for prompt templates

	// Model selection. Defaults come from the task-tier mapping:
	// extraction runs on the standard tier, escalated inference on the
	// thinking tier.
	Model           string
	EscalationModel string
	LLMWorkdir      string // Working directory for the completion client (default: ".")
}

// NewServices creates Services with common defaults. The ticket client
// and notifier are deployment-specific and left for the caller to set.
func NewServices(cfg Config) (*Services, error) {
	s := &Services{}

	// Prompt loader, with any deployment override dir taking priority
	prompts := prompt.NewLoader()
	if cfg.PromptDir != "" {
		prompts.AddSearchDir(cfg.PromptDir)
	}
	s.Prompts = prompts

	// Completion clients: a primary for extraction and first-pass
	// inference, a stronger one for escalated attempts
	primaryModel := cfg.Model
	if primaryModel == "" {
		primaryModel = string(task.SelectModel(task.Extract))
	}
	escalationModel := cfg.EscalationModel
	if escalationModel == "" {
		escalationModel = string(task.SelectModel(task.Escalate))
	}
	workdir := cfg.LLMWorkdir
	if workdir == "" {
		workdir = "."
	}

	primary := llm.NewClaudeCLI(
		llm.WithModel(primaryModel),
		llm.WithWorkdir(workdir),
		llm.WithDangerouslySkipPermissions(), // Non-interactive mode for automation
	)
	s.LLM = primary

	escalate := llm.NewClaudeCLI(
		llm.WithModel(escalationModel),
		llm.WithWorkdir(workdir),
		llm.WithDangerouslySkipPermissions(),
	)

	s.Extractor = extract.NewLLMService(primary,
		extract.WithEscalateClient(escalate),
		extract.WithPrompts(prompts),
	)

	// Storage under one base directory
	baseDir := cfg.DataDir
	if baseDir == "" {
		baseDir = ".alertflow"
	}

	transcripts, err := transcript.NewFileStore(transcript.StoreConfig{
		BaseDir: baseDir,
	})
	if err != nil {
		return nil, err
	}
	s.Transcripts = transcripts

	s.Artifacts = artifact.NewManager(artifact.Config{
		BaseDir: baseDir,
	})

	return s, nil
}

// NewServicesFromSettings builds Services from resolved configuration,
// including the deployment-specific pieces NewServices leaves unset: the
// Jira client when a URL is configured, and a Slack notifier when a
// webhook is configured.
func NewServicesFromSettings(settings config.Settings) (*Services, error) {
	s, err := NewServices(Config{
		DataDir:         settings.DataDir,
		Model:           settings.Model,
		EscalationModel: settings.EscalationModel,
	})
	if err != nil {
		return nil, err
	}

	switch {
	case settings.JiraURL != "":
		tickets, err := jira.NewClient(jira.Config{
			BaseURL:   settings.JiraURL,
			Email:     settings.JiraEmail,
			APIToken:  settings.JiraToken,
			IssueType: settings.IssueType,
		})
		if err != nil {
			return nil, fmt.Errorf("configure jira client: %w", err)
		}
		s.Tickets = tickets

	case settings.GitHubRepo != "":
		tickets, err := github.NewClient(github.Config{
			Token: settings.GitHubToken,
			Repo:  settings.GitHubRepo,
		})
		if err != nil {
			return nil, fmt.Errorf("configure github client: %w", err)
		}
		s.Tickets = tickets

	case settings.GitLabProject != "":
		tickets, err := gitlab.NewClient(gitlab.Config{
			Token:   settings.GitLabToken,
			BaseURL: settings.GitLabURL,
			Project: settings.GitLabProject,
		})
		if err != nil {
			return nil, fmt.Errorf("configure gitlab client: %w", err)
		}
		s.Tickets = tickets
	}

	if settings.SlackWebhookURL != "" {
		s.Notifier = notify.NewSlackNotifier(settings.SlackWebhookURL)
	}

	if settings.RetentionDays > 0 || settings.ArchiveDays > 0 {
		s.Lifecycle = artifact.NewLifecycle(s.Artifacts.BaseDir(), artifact.RetentionConfig{
			RetentionDays: settings.RetentionDays,
			ArchiveDays:   settings.ArchiveDays,
			// Failed runs are kept past the retention window for debugging.
			KeepFailed: true,
		})
	}

	return s, nil
}
