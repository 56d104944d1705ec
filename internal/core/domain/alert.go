package domain

import "strings"

// AlertStatus is the canonical alert_type enumeration of truck_critical_alerts.
type AlertStatus string

const (
	AlertBreakdown          AlertStatus = "breakdown"
	AlertDelay              AlertStatus = "delay"
	AlertOverdue            AlertStatus = "overdue"
	AlertLowMileage         AlertStatus = "low_mileage"
	AlertSuspiciousActivity AlertStatus = "suspicious_activity_detected"
)

var alertStatusSynonyms = map[string]AlertStatus{
	"breakdown":                    AlertBreakdown,
	"delay":                        AlertDelay,
	"overdue":                      AlertOverdue,
	"low_mileage":                  AlertLowMileage,
	"suspicious":                   AlertSuspiciousActivity,
	"suspicious_activity_detected": AlertSuspiciousActivity,
}

// NormalizeAlertStatus maps free text ("Suspicious Activity Detected", " delay ")
// to a canonical status. ok is false for empty or unrecognised input.
func NormalizeAlertStatus(input string) (status AlertStatus, ok bool) {
	key := strings.Join(strings.Fields(strings.ToLower(input)), "_")
	if key == "" {
		return "", false
	}
	status, ok = alertStatusSynonyms[key]
	return status, ok
}

// Label is the dashboard display name.
func (s AlertStatus) Label() string {
	switch s {
	case AlertSuspiciousActivity:
		return "Suspicious"
	case AlertBreakdown:
		return "Breakdown"
	case AlertDelay:
		return "Delay"
	case AlertOverdue:
		return "Overdue"
	case AlertLowMileage:
		return "Low Mileage"
	default:
		return string(s)
	}
}

// Trend directions of the suspicious-activity summary.
const (
	TrendIncrease = "increase"
	TrendDecrease = "decrease"
	TrendNone     = "no change"
)

// MonthlyCount is one month of the suspicious-activity chart.
type MonthlyCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// SuspiciousSummary is the month-over-month suspicious-activity trend.
type SuspiciousSummary struct {
	Data   []MonthlyCount `json:"data"`
	Change int            `json:"change"`
	Trend  string         `json:"trend"`
}

// CriticalAlertRow is a rendered unresolved alert.
type CriticalAlertRow struct {
	TruckNo        string `json:"truck_no"`
	CriticalStatus string `json:"critical_status"`
	TimeElapsed    string `json:"time_elapsed"`
}

// CriticalAlertList is the unresolved-alerts dashboard payload.
type CriticalAlertList struct {
	Data  []CriticalAlertRow `json:"data"`
	Count int                `json:"count"`
}
