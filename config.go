package main

import (
	"context"
	"fmt"

	"github.com/jinzhu/configor"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Provider   ProviderConfig
	Bucket     string `required:"true"`
	MediaURL   string `yaml:"media_url"`
	MakePublic bool   `yaml:"make_public"`
	Verbosity  *int
	CachePath  string `yaml:"cache_path"`
	Interval   int    // minutes between scheduled runs
	Ignore     IgnoreConfig
	Upload     []UploadConfig
	Download   []DownloadConfig
	Notify     NotifyConfig
}

type ProviderConfig struct {
	Name            string `default:"aws"`
	Region          string
	Profile         string
	Endpoint        string
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Secure          bool
	PublicURL       string `yaml:"public_url"`
}

type IgnoreConfig struct {
	Patterns []string
	Regex    []string
}

type UploadConfig struct {
	SourceFolder     string `required:"true" yaml:"source_folder"`
	DropRemotePrefix string `yaml:"drop_remote_prefix"`
	Force            bool
}

type DownloadConfig struct {
	DestinationFolder string `required:"true" yaml:"destination_folder"`
	Prefix            string
	Force             bool
}

type NotifyConfig struct {
	ID      string
	Region  string
	Profile string
}

func LoadConfig(configFilePath string) (AppConfig, error) {
	var appConfig AppConfig
	loader := configor.New(&configor.Config{ENVPrefix: "TREESYNC"})
	if loadErr := loader.Load(&appConfig, configFilePath); loadErr != nil {
		return appConfig, fmt.Errorf("loading config %s: %w", configFilePath, loadErr)
	}
	return appConfig, nil
}

// DefaultVerbosity applies when neither the config nor the CLI sets one.
const DefaultVerbosity = 1

func (c AppConfig) VerbosityLevel() int {
	if c.Verbosity == nil {
		return DefaultVerbosity
	}
	return *c.Verbosity
}

// IgnoreRules returns the configured ignore rules, or the defaults when none
// are configured.
func (c AppConfig) IgnoreRules() IgnoreRuleSet {
	if len(c.Ignore.Patterns) == 0 && len(c.Ignore.Regex) == 0 {
		return IgnoreRuleSet{Patterns: DefaultIgnorePatterns}
	}
	return IgnoreRuleSet{Patterns: c.Ignore.Patterns, Regex: c.Ignore.Regex}
}

func (c AppConfig) ContainerFromConfig(ctx context.Context) (Container, error) {
	switch c.Provider.Name {
	case "aws", "s3":
		return NewS3Container(ctx, c.Provider, c.Bucket)
	case "gcs":
		return NewGCSContainer(ctx, c.Provider, c.Bucket)
	case "minio":
		return NewMinioContainer(c.Provider, c.Bucket)
	default:
		return nil, fmt.Errorf("Unknown cloud provider: %s", c.Provider.Name)
	}
}

// Describe renders the configuration as YAML with credentials redacted.
func (c AppConfig) Describe() (string, error) {
	redacted := c
	if redacted.Provider.AccessKeyID != "" {
		redacted.Provider.AccessKeyID = "<redacted>"
	}
	if redacted.Provider.SecretAccessKey != "" {
		redacted.Provider.SecretAccessKey = "<redacted>"
	}
	out, marshalErr := yaml.Marshal(redacted)
	if marshalErr != nil {
		return "", marshalErr
	}
	return string(out), nil
}
