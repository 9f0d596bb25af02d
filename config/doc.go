// Package config provides hierarchical configuration resolution for the
// alert workflow.
//
// This package supports layered configuration with clear precedence:
//  1. Environment variables (highest priority)
//  2. Local config (.alertflow.yaml in the service root)
//  3. Global config (~/.config/alertflow/config.yaml)
//  4. Built-in defaults (lowest priority)
//
// # Basic Usage
//
// Resolve the standard hierarchy and get typed settings:
//
//	settings, err := config.LoadSettings()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(settings.Channel)     // "servicecore-mobile-errors"
//	fmt.Println(settings.BackoffBase) // 2s
//
// Or work with the raw resolver:
//
//	resolver := config.NewAppResolver()
//	cfg := resolver.Resolve()
//	fmt.Println(cfg.Get(config.KeyProject))    // "MOBILE"
//	fmt.Println(cfg.Source(config.KeyProject)) // "default"
//
// # Environment Variables
//
// Keys map to ALERTFLOW_-prefixed variables:
//
//	ALERTFLOW_PROJECT=PLATFORM        # sets "project"
//	ALERTFLOW_BACKOFF_CAP=30s         # sets "backoff_cap"
//
// Conventional credential variables are honored without the prefix:
//
//	JIRA_API_TOKEN=...                # sets "jira_token"
//	ANTHROPIC_API_KEY=...             # sets "anthropic_api_key"
//
// # Secrets
//
// Credential keys (jira_token, anthropic_api_key, github_token,
// gitlab_token, slack_webhook_url) are only ever read from the
// environment. Values found in config files are skipped with a warning,
// and SaveGlobal/SaveLocal refuse to write them.
//
// # Service Root Detection
//
// The resolver finds the local config by walking up from the working
// directory until it sees .alertflow.yaml. Deployments with a different
// layout can supply a RootFinder function.
package config
