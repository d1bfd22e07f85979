// Package analytics rolls up call, SMS, and voicemail history into summary
// metrics, cost estimates, and qualitative insight flags. Everything here is
// pure aggregation: no I/O, safe to call repeatedly and concurrently.
package analytics

import (
	"fmt"

	"github.com/frontdesk/pkg/models"
)

// perMessageSMSCost is the flat estimate applied to every SMS.
const perMessageSMSCost = 0.01

// missedCallRatioThreshold triggers the missed-call insight.
const missedCallRatioThreshold = 0.2

// CallStats aggregates call detail records.
type CallStats struct {
	Total           int         `json:"total"`
	Inbound         int         `json:"inbound"`
	Outbound        int         `json:"outbound"`
	Answered        int         `json:"answered"`
	Missed          int         `json:"missed"`
	Voicemail       int         `json:"voicemail"`
	TotalDuration   int         `json:"total_duration_seconds"`
	AverageDuration float64     `json:"average_duration_seconds"`
	PeakHours       map[int]int `json:"peak_hours"`
	UniqueCallers   int         `json:"unique_callers"`
}

// SMSStats aggregates message records.
type SMSStats struct {
	Total         int `json:"total"`
	Sent          int `json:"sent"`
	Received      int `json:"received"`
	UniqueNumbers int `json:"unique_numbers"`
}

// VoicemailStats aggregates voicemail folders.
type VoicemailStats struct {
	Total           int     `json:"total"`
	New             int     `json:"new"`
	Listened        int     `json:"listened"`
	Urgent          int     `json:"urgent"`
	TotalDuration   int     `json:"total_duration_seconds"`
	AverageDuration float64 `json:"average_duration_seconds"`
}

// CostStats estimates spend for the period.
type CostStats struct {
	Total float64 `json:"total"`
	Calls float64 `json:"calls"`
	SMS   float64 `json:"sms"`
}

// Insight flags a threshold crossing worth a human look.
type Insight struct {
	Type     string `json:"type"` // warning or info
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Report is the full analytics rollup.
type Report struct {
	Calls      CallStats      `json:"calls"`
	SMS        SMSStats       `json:"sms"`
	Voicemails VoicemailStats `json:"voicemails"`
	Costs      CostStats      `json:"costs"`
	Insights   []Insight      `json:"insights"`
}

// Aggregator produces Reports. CostCeiling bounds acceptable period spend
// before the cost insight fires.
type Aggregator struct {
	CostCeiling float64
}

// Summarize aggregates the supplied histories into a Report.
func (a *Aggregator) Summarize(calls []models.CallRecord, sms []models.MessageRecord, voicemails []models.VoicemailRecord) *Report {
	report := &Report{
		Calls:      summarizeCalls(calls),
		SMS:        summarizeSMS(sms),
		Voicemails: summarizeVoicemails(voicemails),
	}
	report.Costs = estimateCosts(calls, sms)
	report.Insights = a.insights(report)
	return report
}

func summarizeCalls(calls []models.CallRecord) CallStats {
	stats := CallStats{PeakHours: make(map[int]int)}
	callers := make(map[string]struct{})

	for _, call := range calls {
		stats.Total++
		if call.Direction == models.DirectionInbound {
			stats.Inbound++
		} else {
			stats.Outbound++
		}

		switch call.Disposition {
		case "answered":
			stats.Answered++
		case "noanswer", "no answer":
			stats.Missed++
		case "voicemail":
			stats.Voicemail++
		}

		stats.TotalDuration += call.DurationSeconds
		if !call.StartedAt.IsZero() {
			stats.PeakHours[call.StartedAt.Hour()]++
		}
		callers[call.FromNumber] = struct{}{}
	}

	if stats.Total > 0 {
		stats.AverageDuration = float64(stats.TotalDuration) / float64(stats.Total)
	}
	stats.UniqueCallers = len(callers)
	return stats
}

func summarizeSMS(sms []models.MessageRecord) SMSStats {
	stats := SMSStats{}
	numbers := make(map[string]struct{})

	for _, msg := range sms {
		stats.Total++
		if msg.Direction == models.DirectionOutbound {
			stats.Sent++
			numbers[msg.ToNumber] = struct{}{}
		} else {
			stats.Received++
			numbers[msg.FromNumber] = struct{}{}
		}
	}

	stats.UniqueNumbers = len(numbers)
	return stats
}

func summarizeVoicemails(voicemails []models.VoicemailRecord) VoicemailStats {
	stats := VoicemailStats{}
	for _, vm := range voicemails {
		stats.Total++
		switch vm.Folder {
		case "INBOX":
			stats.New++
		case "Old":
			stats.Listened++
		case "Urgent":
			stats.Urgent++
		}
		stats.TotalDuration += vm.DurationSeconds
	}
	if stats.Total > 0 {
		stats.AverageDuration = float64(stats.TotalDuration) / float64(stats.Total)
	}
	return stats
}

func estimateCosts(calls []models.CallRecord, sms []models.MessageRecord) CostStats {
	costs := CostStats{}
	for _, call := range calls {
		costs.Calls += call.Cost
	}
	costs.SMS = float64(len(sms)) * perMessageSMSCost
	costs.Total = costs.Calls + costs.SMS
	return costs
}

func (a *Aggregator) insights(report *Report) []Insight {
	var insights []Insight

	if report.Calls.Total > 0 {
		ratio := float64(report.Calls.Missed) / float64(report.Calls.Total)
		if ratio > missedCallRatioThreshold {
			insights = append(insights, Insight{
				Type:     "warning",
				Category: "calls",
				Message: fmt.Sprintf("High missed call rate (%.0f%%). Consider extending business hours or adding staff.",
					ratio*100),
			})
		}
	}

	if report.SMS.Received > report.SMS.Sent {
		insights = append(insights, Insight{
			Type:     "info",
			Category: "sms",
			Message:  "More incoming messages than outgoing. Consider adding auto-responses for common questions.",
		})
	}

	ceiling := a.CostCeiling
	if ceiling <= 0 {
		ceiling = 500
	}
	if report.Costs.Total > ceiling {
		insights = append(insights, Insight{
			Type:     "warning",
			Category: "costs",
			Message:  fmt.Sprintf("Communication costs ($%.2f) exceed the configured ceiling ($%.2f).", report.Costs.Total, ceiling),
		})
	}

	return insights
}
