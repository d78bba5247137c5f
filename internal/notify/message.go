package notify

import (
	"fmt"
	"strings"

	"mediq-simulator/internal/models"
)

// PatientAlertData 患者报警内容
type PatientAlertData struct {
	PatientID     string
	Vitals        *models.VitalsReading
	RiskScore     int
	RiskLevel     string
	Reasons       []string
	Ward          string
	WardOccupancy float64
}

// BuildPatientAlertSMS 构建患者报警短信
// 目标 160 字符以内：只包含越界的关键体征，固定顺序（SpO₂ 在前），
// 只取第一条（最高优先级）原因并去掉前缀
func BuildPatientAlertSMS(data PatientAlertData) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🚨 ALERT: %s %s RISK\n", data.PatientID, strings.ToUpper(data.RiskLevel))

	if data.Vitals != nil {
		var critical []string
		if data.Vitals.OxygenSaturation < 90 {
			critical = append(critical, fmt.Sprintf("SpO2:%g%%", data.Vitals.OxygenSaturation))
		}
		if data.Vitals.HeartRate > 120 || data.Vitals.HeartRate < 50 {
			critical = append(critical, fmt.Sprintf("HR:%d", data.Vitals.HeartRate))
		}
		if len(critical) > 0 {
			b.WriteString(strings.Join(critical, " "))
			b.WriteString("\n")
		}
	}

	if len(data.Reasons) > 0 {
		topReason := strings.Replace(data.Reasons[0], "Critical: ", "", 1)
		topReason = strings.Replace(topReason, "High ", "", 1)
		if runes := []rune(topReason); len(runes) > 50 {
			topReason = string(runes[:50])
		}
		b.WriteString(topReason)
		b.WriteString("\n")
	}

	ward := data.Ward
	if ward == "" {
		ward = "Unknown"
	}
	fmt.Fprintf(&b, "%s | Risk:%d/100", ward, data.RiskScore)

	if data.WardOccupancy > 90 {
		fmt.Fprintf(&b, " | Ward:%g%%", data.WardOccupancy)
	}

	return b.String()
}

// BuildWardOverloadSMS 构建病区超载报警短信
func BuildWardOverloadSMS(snap models.WardOccupancySnapshot) string {
	return fmt.Sprintf("🚨 WARD OVERLOAD: %s\nOccupancy: %g%% (%d/%d beds)\nAction: Transfer or add staff",
		snap.WardName,
		snap.OccupancyPercent,
		snap.OccupiedBeds,
		snap.TotalBeds,
	)
}
