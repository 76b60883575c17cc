package alert

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasttemplate"

	"github.com/dwsmith1983/healthwatch/pkg/types"
)

// DefaultTemplate renders e.g. "Alert! CPU usage exceeds threshold: 85%".
const DefaultTemplate = "Alert! {{METRIC}} usage exceeds threshold: {{value}}{{unit}}"

const (
	tagStart = "{{"
	tagEnd   = "}}"
)

// ValidateTemplate reports malformed templates such as an unclosed tag.
func ValidateTemplate(tmpl string) error {
	if tmpl == "" {
		return nil
	}
	_, err := fasttemplate.NewTemplate(tmpl, tagStart, tagEnd)
	return err
}

// Render fills the message template for an alert. Supported tags: metric,
// METRIC, value, unit, threshold, comparison, host, level, timestamp.
func Render(tmpl string, a types.Alert) string {
	if tmpl == "" {
		tmpl = DefaultTemplate
	}
	return fasttemplate.ExecuteString(tmpl, tagStart, tagEnd, map[string]interface{}{
		"metric":     a.Sample.Metric,
		"METRIC":     strings.ToUpper(a.Sample.Metric),
		"value":      formatValue(a.Sample.Value),
		"unit":       a.Sample.Unit,
		"threshold":  formatValue(a.Threshold.Value),
		"comparison": a.Threshold.Comparison.Symbol(),
		"host":       a.Host,
		"level":      string(a.Level),
		"timestamp":  a.Timestamp.Format(time.RFC3339),
	})
}

// formatValue rounds to two decimals and drops trailing zeros.
func formatValue(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
