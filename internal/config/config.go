// Package config handles loading and validation of healthwatch.yaml configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dwsmith1983/healthwatch/internal/alert"
	"github.com/dwsmith1983/healthwatch/internal/source"
	"github.com/dwsmith1983/healthwatch/pkg/types"
)

// DefaultFile is the config file name looked up when no path is given.
const DefaultFile = "healthwatch.yaml"

// Defaults applied to unset fields.
const (
	DefaultMetric     = "cpu"
	DefaultComparison = types.CompareGT
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report yaml key names so errors match what operators wrote.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Load reads, defaults and validates the config file at path.
func Load(path string) (*types.ProjectConfig, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Read parses the config file at path without defaults or validation, so
// callers can layer flag overrides on top before validating.
func Read(path string) (*types.ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config. Unknown keys are rejected.
func Parse(data []byte) (*types.ProjectConfig, error) {
	var cfg types.ProjectConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// ApplyDefaults fills unset optional fields and normalizes enum spellings.
// Threshold and poll interval have no defaults.
func ApplyDefaults(cfg *types.ProjectConfig) {
	if cfg.MetricName == "" {
		cfg.MetricName = DefaultMetric
	}
	cfg.MetricName = strings.ToLower(strings.TrimSpace(cfg.MetricName))
	if cfg.Comparison == "" {
		cfg.Comparison = string(DefaultComparison)
	} else if c, err := types.ParseComparison(cfg.Comparison); err == nil {
		cfg.Comparison = string(c)
	}
	if lvl, err := types.ParseAlertLevel(cfg.AlertLevel); err == nil {
		cfg.AlertLevel = string(lvl)
	}
	if cfg.MessageTemplate == "" {
		cfg.MessageTemplate = alert.DefaultTemplate
	}
	if len(cfg.Alerts) == 0 {
		cfg.Alerts = []types.AlertConfig{{Type: types.AlertConsole}}
	}
	if cfg.Logging == nil {
		cfg.Logging = &types.LoggingConfig{}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Telemetry != nil && cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "healthwatch"
	}
}

// Validate checks cfg and returns the first problem as a
// *types.ConfigurationError.
func Validate(cfg *types.ProjectConfig) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return &types.ConfigurationError{Reason: err.Error()}
	}

	if !slices.Contains(source.Names(), cfg.MetricName) {
		return &types.ConfigurationError{
			Field:  "metricName",
			Reason: fmt.Sprintf("unknown metric %q (known: %s)", cfg.MetricName, strings.Join(source.Names(), ", ")),
		}
	}
	src, err := source.New(cfg.MetricName, SourceOptions(cfg))
	if err != nil {
		return err
	}
	c, err := types.ParseComparison(cfg.Comparison)
	if err != nil {
		return &types.ConfigurationError{Field: "comparison", Reason: err.Error()}
	}
	if err := (types.Threshold{Value: *cfg.ThresholdValue, Comparison: c}).Validate(); err != nil {
		return err
	}
	if err := src.CheckThreshold(*cfg.ThresholdValue); err != nil {
		return err
	}
	if cfg.SampleWindowMs >= cfg.PollIntervalMs && cfg.SampleWindowMs > 0 {
		return &types.ConfigurationError{Field: "sampleWindowMs", Reason: "must be shorter than pollIntervalMs"}
	}
	if cfg.SampleTimeoutMs > 0 && cfg.SampleWindowMs >= cfg.SampleTimeoutMs {
		return &types.ConfigurationError{Field: "sampleWindowMs", Reason: "must be shorter than sampleTimeoutMs"}
	}
	if _, err := types.ParseAlertLevel(cfg.AlertLevel); err != nil {
		return &types.ConfigurationError{Field: "alertLevel", Reason: err.Error()}
	}
	if err := alert.ValidateTemplate(cfg.MessageTemplate); err != nil {
		return &types.ConfigurationError{Field: "messageTemplate", Reason: err.Error()}
	}
	for i, a := range cfg.Alerts {
		if err := validateAlert(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAlert(i int, a types.AlertConfig) error {
	missing := func(field string) error {
		return &types.ConfigurationError{
			Field:  fmt.Sprintf("alerts[%d].%s", i, field),
			Reason: fmt.Sprintf("is required for %s alerts", a.Type),
		}
	}
	switch a.Type {
	case types.AlertConsole, types.AlertLog:
	case types.AlertFile:
		if a.Path == "" {
			return missing("path")
		}
	case types.AlertWebhook:
		if a.URL == "" {
			return missing("url")
		}
	case types.AlertSQS:
		if a.QueueURL == "" {
			return missing("queueUrl")
		}
	case types.AlertEventBridge:
		if a.EventBus == "" {
			return missing("eventBus")
		}
	case types.AlertKafka:
		if len(a.Brokers) == 0 {
			return missing("brokers")
		}
		if a.Topic == "" {
			return missing("topic")
		}
	case types.AlertEmail:
		if a.SMTPHost == "" {
			return missing("smtpHost")
		}
		if a.From == "" {
			return missing("from")
		}
		if len(a.To) == 0 {
			return missing("to")
		}
	default:
		return &types.ConfigurationError{
			Field:  fmt.Sprintf("alerts[%d].type", i),
			Reason: fmt.Sprintf("unknown alert type %q", a.Type),
		}
	}
	return nil
}

// fieldError converts a validator failure into a ConfigurationError keyed by
// the yaml path, e.g. "alerts[0].url".
func fieldError(fe validator.FieldError) error {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	var reason string
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "gt":
		reason = "must be greater than " + fe.Param()
	case "gte":
		reason = "must be at least " + fe.Param()
	case "lte":
		reason = "must be at most " + fe.Param()
	case "oneof":
		reason = "must be one of [" + fe.Param() + "]"
	case "url":
		reason = "must be a valid URL"
	case "email":
		reason = "must be a valid email address"
	default:
		reason = fmt.Sprintf("failed %q validation", fe.Tag())
	}
	return &types.ConfigurationError{Field: field, Reason: reason}
}
