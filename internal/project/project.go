package project

import (
	"fmt"
	"strings"
)

// Project represents a validated project configuration
type Project struct {
	Name       string
	Repository string // GitHub owner/repo
	Secret     string // Webhook secret, empty disables the webhook endpoint
	Stages     []*Stage
	Hooks      []Hook
}

// Stage is a deployment target made of one or more deploy groups
type Stage struct {
	ID             int64
	Name           string
	Production     bool
	DeployGroupIDs []int64
}

// Hook is an external ref_status command contributing status entries
type Hook struct {
	Name    string
	Command string
	Timeout int // seconds
}

// ProjectConfig represents the YAML configuration for a project
type ProjectConfig struct {
	Repository string        `yaml:"repository"`
	Secret     string        `yaml:"secret"`
	Stages     []StageConfig `yaml:"stages"`
	Hooks      []HookConfig  `yaml:"ref_status_hooks"`
}

// StageConfig represents the YAML configuration for a stage
type StageConfig struct {
	ID           int64   `yaml:"id"`
	Name         string  `yaml:"name"`
	Production   bool    `yaml:"production"`
	DeployGroups []int64 `yaml:"deploy_groups"`
}

// HookConfig represents the YAML configuration for a ref_status command
type HookConfig struct {
	Name    string `yaml:"name"`
	Command string `yaml:"command"`
	Timeout int    `yaml:"timeout"`
}

// GitHubConfig configures the commit status provider
type GitHubConfig struct {
	APIURL            string  `yaml:"api_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// CacheConfig selects the status cache backend. An empty RedisAddr keeps
// the cache in process memory.
type CacheConfig struct {
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// Config represents the root configuration structure
type Config struct {
	GitHub                         GitHubConfig             `yaml:"github"`
	Cache                          CacheConfig              `yaml:"cache"`
	ProductionOnlyReferenceWarning bool                     `yaml:"production_only_reference_warning"`
	Projects                       map[string]ProjectConfig `yaml:"projects"`
}

// Stage looks up a stage by name
func (p *Project) Stage(name string) (*Stage, bool) {
	for _, stage := range p.Stages {
		if stage.Name == name {
			return stage, true
		}
	}
	return nil, false
}

// StageByID looks up a stage by ID
func (p *Project) StageByID(id int64) (*Stage, bool) {
	for _, stage := range p.Stages {
		if stage.ID == id {
			return stage, true
		}
	}
	return nil, false
}

// OwnerRepo splits the repository path into owner and repository name
func (p *Project) OwnerRepo() (string, string, error) {
	return SplitRepository(p.Repository)
}

// SplitRepository splits "owner/repo" into its two parts
func SplitRepository(repository string) (string, string, error) {
	parts := strings.Split(repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid owner/repo format: %s", repository)
	}
	return parts[0], parts[1], nil
}
