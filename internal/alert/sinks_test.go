package alert

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/dwsmith1983/healthwatch/pkg/types"
)

type mockSQS struct {
	input *sqs.SendMessageInput
	err   error
}

func (m *mockSQS) SendMessage(_ context.Context, input *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.input = input
	if m.err != nil {
		return nil, m.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSQSSink_Send(t *testing.T) {
	mock := &mockSQS{}
	sink, err := NewSQSSink("https://sqs.us-east-1.amazonaws.com/123/alerts", WithSQSClient(mock))
	require.NoError(t, err)
	assert.Equal(t, "sqs", sink.Name())

	require.NoError(t, sink.Send(context.Background(), testAlert()))

	require.NotNil(t, mock.input)
	assert.Equal(t, "https://sqs.us-east-1.amazonaws.com/123/alerts", aws.ToString(mock.input.QueueUrl))
	assert.Equal(t, "cpu", aws.ToString(mock.input.MessageAttributes["metric"].StringValue))
	assert.Equal(t, "error", aws.ToString(mock.input.MessageAttributes["level"].StringValue))

	var got types.AlertRecord
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(mock.input.MessageBody)), &got))
	assert.Equal(t, 85.5, got.SampledValue)
}

func TestSQSSink_Error(t *testing.T) {
	mock := &mockSQS{err: errors.New("throttled")}
	sink, err := NewSQSSink("q", WithSQSClient(mock))
	require.NoError(t, err)

	err = sink.Send(context.Background(), testAlert())
	assert.ErrorContains(t, err, "throttled")
}

func TestSQSSink_RequiresQueue(t *testing.T) {
	_, err := NewSQSSink("", WithSQSClient(&mockSQS{}))
	assert.Error(t, err)
}

type mockEventBridge struct {
	input  *eventbridge.PutEventsInput
	output *eventbridge.PutEventsOutput
	err    error
}

func (m *mockEventBridge) PutEvents(_ context.Context, input *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	m.input = input
	if m.err != nil {
		return nil, m.err
	}
	if m.output != nil {
		return m.output, nil
	}
	return &eventbridge.PutEventsOutput{}, nil
}

func TestEventBridgeSink_Send(t *testing.T) {
	mock := &mockEventBridge{}
	sink, err := NewEventBridgeSink("ops-bus", "", "", WithEventBridgeClient(mock))
	require.NoError(t, err)
	assert.Equal(t, "eventbridge", sink.Name())

	require.NoError(t, sink.Send(context.Background(), testAlert()))

	require.Len(t, mock.input.Entries, 1)
	entry := mock.input.Entries[0]
	assert.Equal(t, "ops-bus", aws.ToString(entry.EventBusName))
	assert.Equal(t, "healthwatch", aws.ToString(entry.Source))
	assert.Equal(t, "ThresholdViolated", aws.ToString(entry.DetailType))
	assert.Contains(t, aws.ToString(entry.Detail), `"metricName":"cpu"`)
}

func TestEventBridgeSink_FailedEntry(t *testing.T) {
	mock := &mockEventBridge{output: &eventbridge.PutEventsOutput{
		FailedEntryCount: 1,
		Entries: []ebtypes.PutEventsResultEntry{{
			ErrorCode:    aws.String("InternalFailure"),
			ErrorMessage: aws.String("try again"),
		}},
	}}
	sink, err := NewEventBridgeSink("ops-bus", "custom", "Custom", WithEventBridgeClient(mock))
	require.NoError(t, err)

	err = sink.Send(context.Background(), testAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "InternalFailure")
	assert.Equal(t, "custom", aws.ToString(mock.input.Entries[0].Source))
}

type mockKafkaWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (m *mockKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockKafkaWriter) Close() error {
	m.closed = true
	return nil
}

func TestKafkaSink_Send(t *testing.T) {
	w := &mockKafkaWriter{}
	sink, err := NewKafkaSink(nil, "", WithKafkaWriter(w))
	require.NoError(t, err)
	assert.Equal(t, "kafka", sink.Name())

	require.NoError(t, sink.Send(context.Background(), testAlert()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "cpu", string(w.msgs[0].Key))
	assert.Contains(t, string(w.msgs[0].Value), `"sampledValue":85.5`)

	require.NoError(t, sink.Close())
	assert.True(t, w.closed)
}

func TestKafkaSink_Error(t *testing.T) {
	sink, err := NewKafkaSink(nil, "", WithKafkaWriter(&mockKafkaWriter{err: errors.New("leader not available")}))
	require.NoError(t, err)
	assert.ErrorContains(t, sink.Send(context.Background(), testAlert()), "leader not available")
}

func TestKafkaSink_Validation(t *testing.T) {
	_, err := NewKafkaSink(nil, "alerts")
	assert.Error(t, err)
	_, err = NewKafkaSink([]string{"localhost:9092"}, "")
	assert.Error(t, err)

	sink, err := NewKafkaSink([]string{"localhost:9092"}, "alerts")
	require.NoError(t, err)
	assert.NoError(t, sink.Close())
}

type mockMailer struct {
	msgs []*gomail.Message
	err  error
}

func (m *mockMailer) DialAndSend(msgs ...*gomail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func TestEmailSink_Send(t *testing.T) {
	mailer := &mockMailer{}
	sink, err := NewEmailSink(EmailConfig{
		From: "monitor@example.com",
		To:   []string{"ops@example.com", "oncall@example.com"},
	}, WithMailer(mailer))
	require.NoError(t, err)
	assert.Equal(t, "email", sink.Name())

	require.NoError(t, sink.Send(context.Background(), testAlert()))
	require.Len(t, mailer.msgs, 1)

	msg := mailer.msgs[0]
	assert.Equal(t, []string{"monitor@example.com"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"ops@example.com", "oncall@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"[ERROR] cpu > 80"}, msg.GetHeader("Subject"))
}

func TestEmailSink_CancelledBeforeDial(t *testing.T) {
	mailer := &mockMailer{}
	sink, err := NewEmailSink(EmailConfig{From: "a@example.com", To: []string{"b@example.com"}}, WithMailer(mailer))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sink.Send(ctx, testAlert()), context.Canceled)
	assert.Empty(t, mailer.msgs)
}

func TestEmailBody(t *testing.T) {
	body := emailBody(testAlert())
	assert.True(t, strings.HasPrefix(body, "Alert! CPU usage exceeds threshold: 85.5%"))
	assert.Contains(t, body, "value:     85.5%")
	assert.Contains(t, body, "threshold: > 80")
	assert.Contains(t, body, "host:      web-1")
}

// flakySink fails until healthy is set.
type flakySink struct {
	mu      sync.Mutex
	calls   int
	healthy bool
}

func (s *flakySink) Send(_ context.Context, _ types.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if !s.healthy {
		return errors.New("unavailable")
	}
	return nil
}
func (s *flakySink) Name() string { return "flaky" }

func TestBreakerSink_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakySink{}
	b := NewBreakerSink(inner, BreakerSettings{Failures: 2, Cooldown: 50 * time.Millisecond}, discardLogger())
	assert.Equal(t, "flaky", b.Name())
	ctx := context.Background()

	assert.Error(t, b.Send(ctx, testAlert()))
	assert.Error(t, b.Send(ctx, testAlert()))
	assert.Equal(t, gobreaker.StateOpen, b.State())

	// Open: rejected without reaching the inner sink.
	err := b.Send(ctx, testAlert())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, inner.calls)

	// After the cooldown a probe goes through and closes the circuit.
	inner.mu.Lock()
	inner.healthy = true
	inner.mu.Unlock()
	time.Sleep(80 * time.Millisecond)
	require.NoError(t, b.Send(ctx, testAlert()))
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerSink_Defaults(t *testing.T) {
	b := NewBreakerSink(&flakySink{}, BreakerSettings{}, nil)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_ = b.Send(ctx, testAlert())
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
	_ = b.Send(ctx, testAlert())
	assert.Equal(t, gobreaker.StateOpen, b.State())
}

func TestRender(t *testing.T) {
	a := testAlert()
	assert.Equal(t, "Alert! CPU usage exceeds threshold: 85.5%", Render("", a))

	a.Sample.Value = 90.123456
	assert.Equal(t, "cpu=90.12% (> 80) on web-1",
		Render("{{metric}}={{value}}{{unit}} ({{comparison}} {{threshold}}) on {{host}}", a))
	assert.Equal(t, "level error at 2026-03-01T12:00:00Z", Render("level {{level}} at {{timestamp}}", a))
}

func TestValidateTemplate(t *testing.T) {
	assert.NoError(t, ValidateTemplate(""))
	assert.NoError(t, ValidateTemplate(DefaultTemplate))
	assert.Error(t, ValidateTemplate("value {{value"))
}
