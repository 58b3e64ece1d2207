package reimbursement

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/skillstorm/reimbursement/service/attachment"
	"github.com/skillstorm/reimbursement/service/messaging"
)

// Config is a serialisable representation of the service configuration. The
// zero-value works: all nested fields inherit their package defaults.
type Config struct {
	Messaging   MessagingConfig   `json:"messaging" yaml:"messaging"`
	Storage     StorageConfig     `json:"storage" yaml:"storage"`
	Attachments attachment.Config `json:"attachments" yaml:"attachments"`
	Resolution  ResolutionConfig  `json:"resolution" yaml:"resolution"`
	Tracing     TracingConfig     `json:"tracing" yaml:"tracing"`
}

// MessagingConfig selects the queue vendor. The fs vendor persists queue
// entries under BaseURL.
type MessagingConfig struct {
	Vendor  messaging.Vendor `json:"vendor" yaml:"vendor"`
	BaseURL string           `json:"baseURL" yaml:"baseURL"`
}

// StorageConfig selects the form store vendor. The fs vendor persists forms
// under BaseURL.
type StorageConfig struct {
	Vendor  messaging.Vendor `json:"vendor" yaml:"vendor"`
	BaseURL string           `json:"baseURL" yaml:"baseURL"`
}

// ResolutionConfig bounds the wait for directory and allowance replies.
type ResolutionConfig struct {
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// UnmarshalYAML accepts Go duration syntax ("30s", "1m") for the timeout.
func (r *ResolutionConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Timeout string `yaml:"timeout"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.Timeout == "" {
		return nil
	}
	timeout, err := time.ParseDuration(raw.Timeout)
	if err != nil {
		return fmt.Errorf("invalid resolution.timeout %q: %w", raw.Timeout, err)
	}
	r.Timeout = timeout
	return nil
}

// TracingConfig controls span export.
type TracingConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	ServiceName string `json:"serviceName" yaml:"serviceName"`
	OutputFile  string `json:"outputFile" yaml:"outputFile"`
}

// DefaultConfig returns the configuration used when nothing is supplied: an
// in-process broker, in-memory form store, thirty-second resolution waits.
func DefaultConfig() *Config {
	return &Config{
		Messaging:  MessagingConfig{Vendor: messaging.VendorMemory},
		Storage:    StorageConfig{Vendor: messaging.VendorMemory},
		Resolution: ResolutionConfig{Timeout: 30 * time.Second},
		Tracing:    TracingConfig{ServiceName: "reimbursement"},
	}
}

// Validate returns an error describing invalid settings, or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	switch c.Messaging.Vendor {
	case messaging.VendorMemory:
	case messaging.VendorFs:
		if c.Messaging.BaseURL == "" {
			return fmt.Errorf("messaging.baseURL is required for the fs vendor")
		}
	default:
		return fmt.Errorf("unknown messaging vendor %q", c.Messaging.Vendor)
	}
	switch c.Storage.Vendor {
	case messaging.VendorMemory:
	case messaging.VendorFs:
		if c.Storage.BaseURL == "" {
			return fmt.Errorf("storage.baseURL is required for the fs vendor")
		}
	default:
		return fmt.Errorf("unknown storage vendor %q", c.Storage.Vendor)
	}
	if c.Resolution.Timeout <= 0 {
		return fmt.Errorf("resolution.timeout must be > 0")
	}
	return nil
}

// LoadConfig reads a YAML configuration from URL (any scheme viant/afs
// understands). Omitted fields keep their defaults.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	data, err := afs.New().DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", URL, err)
	}
	config := DefaultConfig()
	if err = yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", URL, err)
	}
	return config, nil
}
