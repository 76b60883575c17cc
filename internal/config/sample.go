package config

// Sample is the annotated config written by `healthwatch init`.
const Sample = `# healthwatch configuration
metricName: cpu            # cpu | memory | swap | disk | load1
thresholdValue: 80
comparison: GT             # GT | GTE | LT | LTE
pollIntervalMs: 1000

# sampleWindowMs: 500      # cpu only; averaging window, shorter than pollIntervalMs
# sampleTimeoutMs: 0       # 0 = pollIntervalMs
# sinkTimeoutMs: 0         # 0 = pollIntervalMs
# diskPath: /
# maxCycles: 0             # 0 = run until stopped
alertLevel: warning        # info | warning | error
messageTemplate: "Alert! {{METRIC}} usage exceeds threshold: {{value}}{{unit}}"

alerts:
  - type: console
  - type: log
# - type: file
#   path: /var/log/healthwatch/alerts.jsonl
#   maxSizeMB: 10
#   maxBackups: 3
# - type: webhook
#   url: https://hooks.example.com/alerts
#   headers:
#     Authorization: "Bearer ${HEALTHWATCH_WEBHOOK_TOKEN}"
#   breaker: {failures: 3, cooldownMs: 30000}

logging:
  level: info              # debug | info | warn | error
  format: text             # text | json

# server:
#   addr: ":9464"
# telemetry:
#   otlpEndpoint: localhost:4317
#   insecure: true
`
