package notify

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediq-simulator/internal/models"
)

func TestBuildPatientAlertSMS_CriticalVitals(t *testing.T) {
	msg := BuildPatientAlertSMS(PatientAlertData{
		PatientID: "PAT-ABC12345",
		Vitals: &models.VitalsReading{
			HeartRate:        135,
			OxygenSaturation: 85,
			BloodPressure:    models.BloodPressure{Systolic: 150, Diastolic: 95},
			RespiratoryRate:  24,
			Temperature:      99.5,
		},
		RiskScore:     100,
		RiskLevel:     models.RiskLevelCritical,
		Reasons:       []string{"Critical: SpO₂ is dangerously low at 85%", "High heart rate detected: 135 bpm"},
		Ward:          "ICU",
		WardOccupancy: 95,
	})

	lines := strings.Split(msg, "\n")
	require.Len(t, lines, 4)

	// 固定字段顺序：标题 → 越界体征 → 首条原因 → 位置与分数
	assert.Equal(t, "🚨 ALERT: PAT-ABC12345 CRITICAL RISK", lines[0])
	assert.Equal(t, "SpO2:85% HR:135", lines[1])
	assert.Equal(t, "SpO₂ is dangerously low at 85%", lines[2])
	assert.Equal(t, "ICU | Risk:100/100 | Ward:95%", lines[3])

	// 预算：160 字符以内
	assert.LessOrEqual(t, utf8.RuneCountInString(msg), 160)
}

func TestBuildPatientAlertSMS_OnlyOutOfRangeVitalsIncluded(t *testing.T) {
	// SpO₂ 和心率都在告警阈值内：不包含体征行
	msg := BuildPatientAlertSMS(PatientAlertData{
		PatientID: "PAT-ABC12345",
		Vitals: &models.VitalsReading{
			HeartRate:        110,
			OxygenSaturation: 93,
		},
		RiskScore: 30,
		RiskLevel: models.RiskLevelMedium,
		Reasons:   []string{"Warning: SpO₂ is below normal at 93%"},
		Ward:      "Ward A",
	})

	assert.NotContains(t, msg, "HR:")
	assert.NotContains(t, msg, "SpO2:")
	assert.Contains(t, msg, "Ward A | Risk:30/100")
}

func TestBuildPatientAlertSMS_TopReasonStrippedAndTruncated(t *testing.T) {
	longReason := "High " + strings.Repeat("x", 80)

	msg := BuildPatientAlertSMS(PatientAlertData{
		PatientID: "PAT-ABC12345",
		RiskScore: 25,
		RiskLevel: models.RiskLevelLow,
		Reasons:   []string{longReason, "second reason must be ignored"},
		Ward:      "Ward B",
	})

	assert.Contains(t, msg, strings.Repeat("x", 50))
	assert.NotContains(t, msg, strings.Repeat("x", 51))
	assert.NotContains(t, msg, "High ")
	assert.NotContains(t, msg, "second reason")
}

func TestBuildPatientAlertSMS_OccupancyOnlyWhenAbove90(t *testing.T) {
	data := PatientAlertData{
		PatientID:     "PAT-ABC12345",
		RiskScore:     40,
		RiskLevel:     models.RiskLevelMedium,
		Ward:          "ICU",
		WardOccupancy: 88,
	}

	assert.NotContains(t, BuildPatientAlertSMS(data), "Ward:88%")

	data.WardOccupancy = 92
	assert.Contains(t, BuildPatientAlertSMS(data), "Ward:92%")
}

func TestBuildPatientAlertSMS_UnknownWard(t *testing.T) {
	msg := BuildPatientAlertSMS(PatientAlertData{
		PatientID: "PAT-ABC12345",
		RiskScore: 10,
		RiskLevel: models.RiskLevelLow,
	})

	assert.Contains(t, msg, "Unknown | Risk:10/100")
}

func TestBuildWardOverloadSMS(t *testing.T) {
	msg := BuildWardOverloadSMS(models.WardOccupancySnapshot{
		WardName:         "Emergency",
		TotalBeds:        15,
		OccupiedBeds:     14,
		OccupancyPercent: 93.3,
	})

	assert.Equal(t, "🚨 WARD OVERLOAD: Emergency\nOccupancy: 93.3% (14/15 beds)\nAction: Transfer or add staff", msg)
	assert.LessOrEqual(t, utf8.RuneCountInString(msg), 160)
}
