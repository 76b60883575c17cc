package types

// ProjectConfig is the top-level healthwatch.yaml configuration.
type ProjectConfig struct {
	MetricName     string   `yaml:"metricName" json:"metricName" validate:"required"`
	ThresholdValue *float64 `yaml:"thresholdValue" json:"thresholdValue" validate:"required"`
	Comparison     string   `yaml:"comparison" json:"comparison" validate:"required"`
	PollIntervalMs int64    `yaml:"pollIntervalMs" json:"pollIntervalMs" validate:"gt=0"`

	SampleWindowMs  int64  `yaml:"sampleWindowMs,omitempty" json:"sampleWindowMs,omitempty" validate:"gte=0"`
	SampleTimeoutMs int64  `yaml:"sampleTimeoutMs,omitempty" json:"sampleTimeoutMs,omitempty" validate:"gte=0"`
	SinkTimeoutMs   int64  `yaml:"sinkTimeoutMs,omitempty" json:"sinkTimeoutMs,omitempty" validate:"gte=0"`
	DiskPath        string `yaml:"diskPath,omitempty" json:"diskPath,omitempty"`
	MaxCycles       int    `yaml:"maxCycles,omitempty" json:"maxCycles,omitempty" validate:"gte=0"`
	AlertLevel      string `yaml:"alertLevel,omitempty" json:"alertLevel,omitempty"`
	MessageTemplate string `yaml:"messageTemplate,omitempty" json:"messageTemplate,omitempty"`

	Alerts    []AlertConfig    `yaml:"alerts,omitempty" json:"alerts,omitempty" validate:"dive"`
	Logging   *LoggingConfig   `yaml:"logging,omitempty" json:"logging,omitempty"`
	Server    *ServerConfig    `yaml:"server,omitempty" json:"server,omitempty"`
	Telemetry *TelemetryConfig `yaml:"telemetry,omitempty" json:"telemetry,omitempty"`
}

// AlertConfig configures one alert sink. Which fields apply depends on Type.
type AlertConfig struct {
	Type AlertType `yaml:"type" json:"type" validate:"required"`

	// webhook
	URL     string            `yaml:"url,omitempty" json:"url,omitempty" validate:"omitempty,url"`
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	// file
	Path       string `yaml:"path,omitempty" json:"path,omitempty"`
	MaxSizeMB  int    `yaml:"maxSizeMB,omitempty" json:"maxSizeMB,omitempty" validate:"gte=0"`
	MaxBackups int    `yaml:"maxBackups,omitempty" json:"maxBackups,omitempty" validate:"gte=0"`

	// sqs / eventbridge
	QueueURL   string `yaml:"queueUrl,omitempty" json:"queueUrl,omitempty"`
	EventBus   string `yaml:"eventBus,omitempty" json:"eventBus,omitempty"`
	Source     string `yaml:"source,omitempty" json:"source,omitempty"`
	DetailType string `yaml:"detailType,omitempty" json:"detailType,omitempty"`
	Region     string `yaml:"region,omitempty" json:"region,omitempty"`

	// kafka
	Brokers []string `yaml:"brokers,omitempty" json:"brokers,omitempty"`
	Topic   string   `yaml:"topic,omitempty" json:"topic,omitempty"`

	// email
	SMTPHost string   `yaml:"smtpHost,omitempty" json:"smtpHost,omitempty"`
	SMTPPort int      `yaml:"smtpPort,omitempty" json:"smtpPort,omitempty" validate:"gte=0,lte=65535"`
	Username string   `yaml:"username,omitempty" json:"username,omitempty"`
	Password string   `yaml:"password,omitempty" json:"-"`
	From     string   `yaml:"from,omitempty" json:"from,omitempty" validate:"omitempty,email"`
	To       []string `yaml:"to,omitempty" json:"to,omitempty" validate:"omitempty,dive,email"`

	Breaker *BreakerConfig `yaml:"breaker,omitempty" json:"breaker,omitempty"`
}

// BreakerConfig makes a sink fail fast after repeated consecutive failures.
type BreakerConfig struct {
	Failures   uint32 `yaml:"failures" json:"failures" validate:"gt=0"`
	CooldownMs int64  `yaml:"cooldownMs,omitempty" json:"cooldownMs,omitempty" validate:"gte=0"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" json:"level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	Format     string `yaml:"format,omitempty" json:"format,omitempty" validate:"omitempty,oneof=text json"`
	File       string `yaml:"file,omitempty" json:"file,omitempty"`
	MaxSizeMB  int    `yaml:"maxSizeMB,omitempty" json:"maxSizeMB,omitempty" validate:"gte=0"`
	MaxBackups int    `yaml:"maxBackups,omitempty" json:"maxBackups,omitempty" validate:"gte=0"`
	MaxAgeDays int    `yaml:"maxAgeDays,omitempty" json:"maxAgeDays,omitempty" validate:"gte=0"`
	Compress   bool   `yaml:"compress,omitempty" json:"compress,omitempty"`
}

// ServerConfig enables the HTTP status server.
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr" validate:"required"`
}

// TelemetryConfig enables OTLP export of traces and metrics.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlpEndpoint,omitempty" json:"otlpEndpoint,omitempty"`
	Insecure     bool   `yaml:"insecure,omitempty" json:"insecure,omitempty"`
	ServiceName  string `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
}
