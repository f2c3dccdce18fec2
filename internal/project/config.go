package project

import (
	"fmt"
	"os"
	"strings"

	"refgate/internal/security"
	"refgate/pkg/cmdutil"

	"gopkg.in/yaml.v3"
)

const (
	MinSecretLength          = 32
	DefaultHookTimeout       = 30
	DefaultRequestsPerSecond = 10
	DefaultCacheKeyPrefix    = "refgate"
)

var ForbiddenSecrets = map[string]bool{
	"replace-with-secret":     true,
	"github-webhook-password": true,
	"topsecret":               true,
	"secret":                  true,
	"password":                true,
	"changeme":                true,
}

// LoadConfig loads and validates the configuration from a YAML file
func LoadConfig(configPath string) (*Config, map[string]*Project, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses and validates YAML configuration data
func ParseConfig(data []byte) (*Config, map[string]*Project, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	// Initialize Projects map if it's nil (happens with empty YAML files)
	if config.Projects == nil {
		config.Projects = make(map[string]ProjectConfig)
	}

	if config.GitHub.RequestsPerSecond == 0 {
		config.GitHub.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if config.GitHub.RequestsPerSecond < 0 {
		return nil, nil, fmt.Errorf("github.requests_per_second must be positive, got %v", config.GitHub.RequestsPerSecond)
	}
	if config.Cache.KeyPrefix == "" {
		config.Cache.KeyPrefix = DefaultCacheKeyPrefix
	}

	// Validate and create Project instances
	projects := make(map[string]*Project)
	for name, projectConfig := range config.Projects {
		errors := ValidateProjectConfig(name, projectConfig)
		if len(errors) > 0 {
			return nil, nil, fmt.Errorf("invalid configuration for project '%s':\n%s",
				name, strings.Join(errors, "\n"))
		}

		stages := make([]*Stage, 0, len(projectConfig.Stages))
		for _, stageConfig := range projectConfig.Stages {
			groups := stageConfig.DeployGroups
			if groups == nil {
				groups = []int64{}
			}
			stages = append(stages, &Stage{
				ID:             stageConfig.ID,
				Name:           stageConfig.Name,
				Production:     stageConfig.Production,
				DeployGroupIDs: groups,
			})
		}

		hooks := make([]Hook, 0, len(projectConfig.Hooks))
		for i, hookConfig := range projectConfig.Hooks {
			hookName := hookConfig.Name
			if hookName == "" {
				hookName = fmt.Sprintf("hook-%d", i)
			}

			// Apply defaults
			timeout := hookConfig.Timeout
			if timeout == 0 {
				timeout = DefaultHookTimeout
			}

			hooks = append(hooks, Hook{
				Name:    hookName,
				Command: hookConfig.Command,
				Timeout: timeout,
			})
		}

		projects[name] = &Project{
			Name:       name,
			Repository: projectConfig.Repository,
			Secret:     projectConfig.Secret,
			Stages:     stages,
			Hooks:      hooks,
		}
	}

	return &config, projects, nil
}

// ValidateProjectConfig validates a single project configuration
func ValidateProjectConfig(name string, config ProjectConfig) []string {
	var errors []string

	// Project names appear in URLs and cache keys
	if err := security.ValidateProjectName(name); err != nil {
		errors = append(errors, fmt.Sprintf("  - Project '%s': %v", name, err))
	}

	// Validate repository
	if config.Repository == "" {
		errors = append(errors, fmt.Sprintf("  - Project '%s': missing required 'repository' field", name))
	} else if _, _, err := SplitRepository(config.Repository); err != nil {
		errors = append(errors, fmt.Sprintf("  - Project '%s': repository must be 'owner/repo', got '%s'", name, config.Repository))
	}

	// Validate secret (optional, but must be strong when set)
	if config.Secret != "" {
		if len(config.Secret) < MinSecretLength {
			errors = append(errors, fmt.Sprintf("  - Project '%s': secret too short (minimum %d characters)", name, MinSecretLength))
		}

		if ForbiddenSecrets[strings.ToLower(config.Secret)] {
			errors = append(errors, fmt.Sprintf("  - Project '%s': secret appears to be a placeholder value, replace with real secret", name))
		}
	}

	// Validate stages
	stageIDs := make(map[int64]bool)
	stageNames := make(map[string]bool)
	for i, stage := range config.Stages {
		if stage.ID <= 0 {
			errors = append(errors, fmt.Sprintf("  - Project '%s': stages[%d] must have a positive id, got %d", name, i, stage.ID))
		} else if stageIDs[stage.ID] {
			errors = append(errors, fmt.Sprintf("  - Project '%s': duplicate stage id %d", name, stage.ID))
		}
		stageIDs[stage.ID] = true

		if strings.TrimSpace(stage.Name) == "" {
			errors = append(errors, fmt.Sprintf("  - Project '%s': stages[%d] is missing a name", name, i))
		} else if stageNames[stage.Name] {
			errors = append(errors, fmt.Sprintf("  - Project '%s': duplicate stage name '%s'", name, stage.Name))
		}
		stageNames[stage.Name] = true

		for _, group := range stage.DeployGroups {
			if group <= 0 {
				errors = append(errors, fmt.Sprintf("  - Project '%s': stage '%s' has invalid deploy group id %d", name, stage.Name, group))
			}
		}
	}

	// Validate ref_status hooks
	for i, hook := range config.Hooks {
		if hook.Command == "" {
			errors = append(errors, fmt.Sprintf("  - Project '%s': ref_status_hooks[%d] is missing a command", name, i))
		} else if _, err := cmdutil.ParseCommandString(hook.Command); err != nil {
			errors = append(errors, fmt.Sprintf("  - Project '%s': ref_status_hooks[%d] command is invalid: %v", name, i, err))
		}

		if hook.Timeout < 0 {
			errors = append(errors, fmt.Sprintf("  - Project '%s': ref_status_hooks[%d] timeout must be a positive integer, got %d", name, i, hook.Timeout))
		}
	}

	return errors
}
