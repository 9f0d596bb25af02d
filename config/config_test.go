package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestResolver_Defaults(t *testing.T) {
	resolver := NewResolver(ResolverConfig{
		Defaults: map[string]string{
			"project": "MOBILE",
			"channel": "servicecore-mobile-errors",
		},
	})

	cfg := resolver.Resolve()

	if got := cfg.Get("project"); got != "MOBILE" {
		t.Errorf("project = %q, want %q", got, "MOBILE")
	}
	if got := cfg.Source("project"); got != SourceDefault {
		t.Errorf("source = %q, want %q", got, SourceDefault)
	}
}

func TestResolver_EnvOverridesDefaults(t *testing.T) {
	os.Setenv("ALERTFLOW_PROJECT", "PLATFORM")
	defer os.Unsetenv("ALERTFLOW_PROJECT")

	resolver := NewResolver(ResolverConfig{
		EnvPrefix: "ALERTFLOW_",
		Defaults: map[string]string{
			"project": "MOBILE",
		},
	})

	cfg := resolver.Resolve()

	if got := cfg.Get("project"); got != "PLATFORM" {
		t.Errorf("project = %q, want %q", got, "PLATFORM")
	}
	if got := cfg.Source("project"); got != SourceEnv {
		t.Errorf("source = %q, want %q", got, SourceEnv)
	}
}

func TestResolver_EnvAlias(t *testing.T) {
	os.Setenv("JIRA_API_TOKEN", "secret-token")
	defer os.Unsetenv("JIRA_API_TOKEN")

	resolver := NewResolver(ResolverConfig{
		EnvPrefix:  "ALERTFLOW_",
		EnvAliases: map[string]string{"JIRA_API_TOKEN": "jira_token"},
	})

	cfg := resolver.Resolve()

	if got := cfg.Get("jira_token"); got != "secret-token" {
		t.Errorf("jira_token = %q, want %q", got, "secret-token")
	}
	if got := cfg.Source("jira_token"); got != SourceEnv {
		t.Errorf("source = %q, want %q", got, SourceEnv)
	}
}

func TestResolver_PrefixedEnvWinsOverAlias(t *testing.T) {
	os.Setenv("JIRA_API_TOKEN", "alias-token")
	os.Setenv("ALERTFLOW_JIRA_TOKEN", "prefixed-token")
	defer os.Unsetenv("JIRA_API_TOKEN")
	defer os.Unsetenv("ALERTFLOW_JIRA_TOKEN")

	resolver := NewResolver(ResolverConfig{
		EnvPrefix:  "ALERTFLOW_",
		EnvAliases: map[string]string{"JIRA_API_TOKEN": "jira_token"},
		SecretKeys: []string{"jira_token"},
	})

	cfg := resolver.Resolve()

	if got := cfg.Get("jira_token"); got != "prefixed-token" {
		t.Errorf("jira_token = %q, want the prefixed variable to win", got)
	}
}

func TestResolver_GlobalConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	os.WriteFile(configPath, []byte("project: GLOBAL\n"), 0644)

	resolver := NewResolverWithPaths(ResolverConfig{
		Defaults: map[string]string{
			"project": "MOBILE",
		},
	}, configPath, "")

	cfg := resolver.Resolve()

	if got := cfg.Get("project"); got != "GLOBAL" {
		t.Errorf("project = %q, want %q", got, "GLOBAL")
	}
	if got := cfg.Source("project"); got != SourceGlobal {
		t.Errorf("source = %q, want %q", got, SourceGlobal)
	}
}

func TestResolver_LocalConfig(t *testing.T) {
	tmpDir := t.TempDir()
	localConfig := filepath.Join(tmpDir, ".alertflow.yaml")
	os.WriteFile(localConfig, []byte("channel: staging-mobile-errors\n"), 0644)

	resolver := NewResolver(ResolverConfig{
		LocalConfigName: ".alertflow.yaml",
		RootFinder: func(_ string) (string, error) {
			return tmpDir, nil
		},
		Defaults: map[string]string{
			"channel": "servicecore-mobile-errors",
		},
	})

	cfg := resolver.Resolve()

	if got := cfg.Get("channel"); got != "staging-mobile-errors" {
		t.Errorf("channel = %q, want %q", got, "staging-mobile-errors")
	}
	if got := cfg.Source("channel"); got != SourceLocal {
		t.Errorf("source = %q, want %q", got, SourceLocal)
	}
}

func TestResolver_Priority(t *testing.T) {
	tmpDir := t.TempDir()

	globalConfig := filepath.Join(tmpDir, "config.yaml")
	os.WriteFile(globalConfig, []byte("project: GLOBAL\n"), 0644)

	localConfig := filepath.Join(tmpDir, ".alertflow.yaml")
	os.WriteFile(localConfig, []byte("project: LOCAL\n"), 0644)

	os.Setenv("TEST_PROJECT", "ENV")
	defer os.Unsetenv("TEST_PROJECT")

	resolver := NewResolverWithPaths(ResolverConfig{
		EnvPrefix: "TEST_",
		Defaults: map[string]string{
			"project": "DEFAULT",
		},
	}, globalConfig, localConfig)

	cfg := resolver.Resolve()

	// Env should win
	if got := cfg.Get("project"); got != "ENV" {
		t.Errorf("project = %q, want %q (env should have highest priority)", got, "ENV")
	}
}

func TestResolver_ResolveWithFlags(t *testing.T) {
	resolver := NewResolver(ResolverConfig{
		Defaults: map[string]string{
			"log_level": "info",
		},
	})

	cfg := resolver.ResolveWithFlags(map[string]string{
		"log_level": "debug",
	})

	if got := cfg.Get("log_level"); got != "debug" {
		t.Errorf("log_level = %q, want %q", got, "debug")
	}
	if got := cfg.Source("log_level"); got != SourceFlag {
		t.Errorf("source = %q, want %q", got, SourceFlag)
	}
}

func TestResolver_ValidKeys(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	os.WriteFile(configPath, []byte("project: TEST\ninvalid_key: value\n"), 0644)

	resolver := NewResolverWithPaths(ResolverConfig{
		ValidGlobalKeys: []string{"project", "channel"},
		Defaults: map[string]string{
			"project": "MOBILE",
		},
	}, configPath, "")

	cfg := resolver.Resolve()

	// Valid key should be loaded
	if got := cfg.Get("project"); got != "TEST" {
		t.Errorf("project = %q, want %q", got, "TEST")
	}

	// Invalid key should be ignored
	if got := cfg.Get("invalid_key"); got != "" {
		t.Errorf("invalid_key = %q, want empty", got)
	}
}

func TestResolver_SecretKeyIgnoredInFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	os.WriteFile(configPath, []byte("jira_token: leaked\nproject: TEST\n"), 0644)

	resolver := NewResolverWithPaths(ResolverConfig{
		SecretKeys: []string{"jira_token"},
		ErrWriter:  io.Discard,
	}, configPath, "")

	cfg := resolver.Resolve()

	if got := cfg.Get("jira_token"); got != "" {
		t.Errorf("jira_token = %q, want secrets in files ignored", got)
	}
	if got := cfg.Get("project"); got != "TEST" {
		t.Errorf("project = %q, non-secret keys must still load", got)
	}
	if len(resolver.Warnings) != 1 {
		t.Errorf("warnings = %v, want one about the secret key", resolver.Warnings)
	}
}

func TestResolved_All(t *testing.T) {
	resolver := NewResolver(ResolverConfig{
		Defaults: map[string]string{
			"key1": "value1",
			"key2": "value2",
		},
	})

	cfg := resolver.Resolve()
	all := cfg.All()

	if len(all) != 2 {
		t.Errorf("got %d keys, want 2", len(all))
	}
	if all["key1"] != "value1" {
		t.Errorf("key1 = %q, want %q", all["key1"], "value1")
	}
}

func TestResolved_Keys(t *testing.T) {
	resolver := NewResolver(ResolverConfig{
		Defaults: map[string]string{
			"key1": "value1",
			"key2": "value2",
		},
	})

	cfg := resolver.Resolve()
	keys := cfg.Keys()

	if len(keys) != 2 {
		t.Errorf("got %d keys, want 2", len(keys))
	}
}

func TestFindServiceRoot(t *testing.T) {
	tmpDir := t.TempDir()

	// Create nested directories with the config at the top
	nested := filepath.Join(tmpDir, "a", "b", "c")
	os.MkdirAll(nested, 0755)
	os.WriteFile(filepath.Join(tmpDir, ".alertflow.yaml"), []byte("project: X\n"), 0644)

	root := findServiceRoot(nested, ".alertflow.yaml")
	if root != tmpDir {
		t.Errorf("findServiceRoot() = %q, want %q", root, tmpDir)
	}
}

func TestFindServiceRoot_NotFound(t *testing.T) {
	tmpDir := t.TempDir()

	root := findServiceRoot(tmpDir, ".alertflow.yaml")
	if root != "" {
		t.Errorf("findServiceRoot() = %q, want empty", root)
	}
}

func TestResolver_BoolValues(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	os.WriteFile(configPath, []byte("create_incomplete: false\n"), 0644)

	resolver := NewResolverWithPaths(ResolverConfig{
		Defaults: map[string]string{
			"create_incomplete": "true",
		},
	}, configPath, "")

	cfg := resolver.Resolve()

	if got := cfg.Get("create_incomplete"); got != "false" {
		t.Errorf("create_incomplete = %q, want %q", got, "false")
	}
}

func TestParseSettings_Defaults(t *testing.T) {
	resolver := NewResolverWithPaths(ResolverConfig{
		Defaults: Defaults(),
	}, "", "")

	settings, err := ParseSettings(resolver.Resolve())
	if err != nil {
		t.Fatalf("ParseSettings() error = %v", err)
	}

	if settings.Channel != "servicecore-mobile-errors" {
		t.Errorf("Channel = %q", settings.Channel)
	}
	if settings.Project != "MOBILE" || settings.IssueType != "Bug" {
		t.Errorf("Project/IssueType = %q/%q", settings.Project, settings.IssueType)
	}
	if len(settings.RequiredLabels) != 2 || settings.RequiredLabels[0] != "bug" {
		t.Errorf("RequiredLabels = %v", settings.RequiredLabels)
	}
	if settings.Markers != nil {
		t.Errorf("Markers = %v, want nil meaning built-in list", settings.Markers)
	}
	if settings.MaxInferenceAttempts != 2 || settings.MaxCreateRetries != 5 {
		t.Errorf("bounds = %d/%d, want 2/5", settings.MaxInferenceAttempts, settings.MaxCreateRetries)
	}
	if settings.BackoffBase != 2*time.Second || settings.BackoffCap != 16*time.Second {
		t.Errorf("backoff = %v/%v, want 2s/16s", settings.BackoffBase, settings.BackoffCap)
	}
	if !settings.CreateIncomplete {
		t.Error("CreateIncomplete = false, want true by default")
	}
	if settings.ExtractTimeout != 60*time.Second {
		t.Errorf("ExtractTimeout = %v", settings.ExtractTimeout)
	}
	if settings.DataDir != ".alertflow" {
		t.Errorf("DataDir = %q", settings.DataDir)
	}
	if settings.RetentionDays != 90 || settings.ArchiveDays != 30 {
		t.Errorf("retention = %d/%d, want 90/30", settings.RetentionDays, settings.ArchiveDays)
	}
}

func TestParseSettings_BadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad int", KeyMaxRetries, "many"},
		{"bad duration", KeyBackoffBase, "fast"},
		{"bad bool", KeyCreatePartial, "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defaults := Defaults()
			defaults[tt.key] = tt.val
			resolver := NewResolverWithPaths(ResolverConfig{Defaults: defaults}, "", "")

			_, err := ParseSettings(resolver.Resolve())
			if err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.val)
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error = %v, want the key named", err)
			}
		})
	}
}

func TestParseSettings_ListValues(t *testing.T) {
	defaults := Defaults()
	defaults[KeyMarkers] = "Triggered:, @issue.id: ,,RUM errors"
	resolver := NewResolverWithPaths(ResolverConfig{Defaults: defaults}, "", "")

	settings, err := ParseSettings(resolver.Resolve())
	if err != nil {
		t.Fatalf("ParseSettings() error = %v", err)
	}

	want := []string{"Triggered:", "@issue.id:", "RUM errors"}
	if len(settings.Markers) != len(want) {
		t.Fatalf("Markers = %v, want %v", settings.Markers, want)
	}
	for i := range want {
		if settings.Markers[i] != want[i] {
			t.Errorf("Markers[%d] = %q, want %q", i, settings.Markers[i], want[i])
		}
	}
}
