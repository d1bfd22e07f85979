package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontdesk/pkg/models"
)

func callAt(hour int, from, direction, disposition string, duration int, cost float64) models.CallRecord {
	return models.CallRecord{
		FromNumber:      from,
		Direction:       direction,
		Disposition:     disposition,
		DurationSeconds: duration,
		Cost:            cost,
		StartedAt:       time.Date(2025, 6, 2, hour, 15, 0, 0, time.UTC),
	}
}

func TestSummarizeCalls(t *testing.T) {
	calls := []models.CallRecord{
		callAt(9, "15551110001", models.DirectionInbound, "answered", 120, 0.05),
		callAt(9, "15551110002", models.DirectionInbound, "noanswer", 0, 0.00),
		callAt(14, "15551110001", models.DirectionInbound, "voicemail", 30, 0.02),
		callAt(16, "15551110003", models.DirectionOutbound, "answered", 300, 0.10),
	}

	report := (&Aggregator{}).Summarize(calls, nil, nil)

	assert.Equal(t, 4, report.Calls.Total)
	assert.Equal(t, 3, report.Calls.Inbound)
	assert.Equal(t, 1, report.Calls.Outbound)
	assert.Equal(t, 2, report.Calls.Answered)
	assert.Equal(t, 1, report.Calls.Missed)
	assert.Equal(t, 1, report.Calls.Voicemail)
	assert.Equal(t, 450, report.Calls.TotalDuration)
	assert.InDelta(t, 112.5, report.Calls.AverageDuration, 0.001)
	assert.Equal(t, 3, report.Calls.UniqueCallers)
	assert.Equal(t, map[int]int{9: 2, 14: 1, 16: 1}, report.Calls.PeakHours)
}

func TestSummarizeSMS(t *testing.T) {
	sms := []models.MessageRecord{
		{Direction: models.DirectionInbound, FromNumber: "15551110001"},
		{Direction: models.DirectionInbound, FromNumber: "15551110002"},
		{Direction: models.DirectionOutbound, ToNumber: "15551110001"},
	}

	report := (&Aggregator{}).Summarize(nil, sms, nil)

	assert.Equal(t, 3, report.SMS.Total)
	assert.Equal(t, 1, report.SMS.Sent)
	assert.Equal(t, 2, report.SMS.Received)
	assert.Equal(t, 2, report.SMS.UniqueNumbers)
}

func TestSummarizeVoicemails(t *testing.T) {
	voicemails := []models.VoicemailRecord{
		{Folder: "INBOX", DurationSeconds: 45},
		{Folder: "INBOX", DurationSeconds: 15},
		{Folder: "Old", DurationSeconds: 60},
		{Folder: "Urgent", DurationSeconds: 20},
	}

	report := (&Aggregator{}).Summarize(nil, nil, voicemails)

	assert.Equal(t, 4, report.Voicemails.Total)
	assert.Equal(t, 2, report.Voicemails.New)
	assert.Equal(t, 1, report.Voicemails.Listened)
	assert.Equal(t, 1, report.Voicemails.Urgent)
	assert.Equal(t, 140, report.Voicemails.TotalDuration)
	assert.InDelta(t, 35.0, report.Voicemails.AverageDuration, 0.001)
}

func TestCostEstimation(t *testing.T) {
	calls := []models.CallRecord{
		callAt(9, "15551110001", models.DirectionInbound, "answered", 120, 0.25),
		callAt(10, "15551110002", models.DirectionOutbound, "answered", 60, 0.15),
	}
	sms := make([]models.MessageRecord, 30)

	report := (&Aggregator{}).Summarize(calls, sms, nil)

	assert.InDelta(t, 0.40, report.Costs.Calls, 0.0001)
	assert.InDelta(t, 0.30, report.Costs.SMS, 0.0001)
	assert.InDelta(t, 0.70, report.Costs.Total, 0.0001)
}

func TestMissedCallInsight(t *testing.T) {
	calls := []models.CallRecord{
		callAt(9, "a", models.DirectionInbound, "answered", 60, 0),
		callAt(9, "b", models.DirectionInbound, "noanswer", 0, 0),
		callAt(10, "c", models.DirectionInbound, "noanswer", 0, 0),
		callAt(11, "d", models.DirectionInbound, "answered", 60, 0),
	}

	report := (&Aggregator{}).Summarize(calls, nil, nil)

	require.Len(t, report.Insights, 1)
	assert.Equal(t, "warning", report.Insights[0].Type)
	assert.Equal(t, "calls", report.Insights[0].Category)
	assert.Contains(t, report.Insights[0].Message, "50%")
}

func TestMissedCallInsightNotTriggeredAtThreshold(t *testing.T) {
	calls := []models.CallRecord{
		callAt(9, "a", models.DirectionInbound, "answered", 60, 0),
		callAt(9, "b", models.DirectionInbound, "answered", 60, 0),
		callAt(10, "c", models.DirectionInbound, "answered", 60, 0),
		callAt(11, "d", models.DirectionInbound, "answered", 60, 0),
		callAt(12, "e", models.DirectionInbound, "noanswer", 0, 0),
	}

	report := (&Aggregator{}).Summarize(calls, nil, nil)
	assert.Empty(t, report.Insights)
}

func TestInboundSMSVolumeInsight(t *testing.T) {
	sms := []models.MessageRecord{
		{Direction: models.DirectionInbound, FromNumber: "a"},
		{Direction: models.DirectionInbound, FromNumber: "b"},
		{Direction: models.DirectionOutbound, ToNumber: "a"},
	}

	report := (&Aggregator{}).Summarize(nil, sms, nil)

	require.Len(t, report.Insights, 1)
	assert.Equal(t, "info", report.Insights[0].Type)
	assert.Equal(t, "sms", report.Insights[0].Category)
}

func TestCostCeilingInsight(t *testing.T) {
	calls := []models.CallRecord{
		callAt(9, "a", models.DirectionInbound, "answered", 600, 120.0),
	}

	t.Run("default ceiling not exceeded", func(t *testing.T) {
		report := (&Aggregator{}).Summarize(calls, nil, nil)
		assert.Empty(t, report.Insights)
	})

	t.Run("custom ceiling exceeded", func(t *testing.T) {
		report := (&Aggregator{CostCeiling: 100}).Summarize(calls, nil, nil)
		require.Len(t, report.Insights, 1)
		assert.Equal(t, "costs", report.Insights[0].Category)
		assert.Contains(t, report.Insights[0].Message, "$120.00")
	})
}

func TestEmptyReport(t *testing.T) {
	report := (&Aggregator{}).Summarize(nil, nil, nil)

	assert.Zero(t, report.Calls.Total)
	assert.Zero(t, report.Calls.AverageDuration)
	assert.Zero(t, report.SMS.Total)
	assert.Zero(t, report.Voicemails.Total)
	assert.Zero(t, report.Costs.Total)
	assert.Empty(t, report.Insights)
}
