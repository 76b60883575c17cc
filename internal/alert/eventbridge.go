package alert

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"

	"github.com/dwsmith1983/healthwatch/pkg/types"
)

// EventBridge defaults.
const (
	defaultEventSource     = "healthwatch"
	defaultEventDetailType = "ThresholdViolated"
)

// EventBridgeAPI is the subset of the EventBridge client used by EventBridgeSink.
type EventBridgeAPI interface {
	PutEvents(ctx context.Context, input *eventbridge.PutEventsInput, opts ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// EventBridgeSink puts alerts on an EventBridge bus.
type EventBridgeSink struct {
	client     EventBridgeAPI
	bus        string
	source     string
	detailType string
	region     string
}

// EventBridgeSinkOption configures an EventBridgeSink.
type EventBridgeSinkOption func(*EventBridgeSink)

// WithEventBridgeClient sets a custom EventBridge client (useful for testing).
func WithEventBridgeClient(c EventBridgeAPI) EventBridgeSinkOption {
	return func(s *EventBridgeSink) { s.client = c }
}

// WithEventBridgeRegion overrides the region from the default AWS config chain.
func WithEventBridgeRegion(region string) EventBridgeSinkOption {
	return func(s *EventBridgeSink) { s.region = region }
}

// NewEventBridgeSink creates a new EventBridge alert sink. Empty source and
// detailType fall back to defaults.
func NewEventBridgeSink(bus, source, detailType string, opts ...EventBridgeSinkOption) (*EventBridgeSink, error) {
	if bus == "" {
		return nil, fmt.Errorf("EventBridge bus name required")
	}
	if source == "" {
		source = defaultEventSource
	}
	if detailType == "" {
		detailType = defaultEventDetailType
	}
	s := &EventBridgeSink{bus: bus, source: source, detailType: detailType}
	for _, o := range opts {
		o(s)
	}
	if s.client == nil {
		cfg, err := loadAWSConfig(s.region)
		if err != nil {
			return nil, err
		}
		s.client = eventbridge.NewFromConfig(cfg)
	}
	return s, nil
}

// Name returns the sink identifier.
func (s *EventBridgeSink) Name() string { return "eventbridge" }

// Send puts a single event whose detail is the alert record. A rejected entry
// is reported as an error.
func (s *EventBridgeSink) Send(ctx context.Context, alert types.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshaling alert: %w", err)
	}

	out, err := s.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []ebtypes.PutEventsRequestEntry{{
			EventBusName: aws.String(s.bus),
			Source:       aws.String(s.source),
			DetailType:   aws.String(s.detailType),
			Detail:       aws.String(string(data)),
			Time:         aws.Time(alert.Timestamp),
		}},
	})
	if err != nil {
		return fmt.Errorf("putting alert to EventBridge: %w", err)
	}
	if out != nil && out.FailedEntryCount > 0 {
		reason := "unknown"
		if len(out.Entries) > 0 && out.Entries[0].ErrorCode != nil {
			reason = aws.ToString(out.Entries[0].ErrorCode) + ": " + aws.ToString(out.Entries[0].ErrorMessage)
		}
		return fmt.Errorf("EventBridge rejected alert: %s", reason)
	}
	return nil
}
