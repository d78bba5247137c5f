package risk

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediq-simulator/internal/generator"
	"mediq-simulator/internal/models"
)

func normalVitals() models.VitalsReading {
	return models.VitalsReading{
		PatientID:        "PAT-TEST0001",
		HeartRate:        72,
		OxygenSaturation: 98,
		BloodPressure:    models.BloodPressure{Systolic: 115, Diastolic: 75},
		RespiratoryRate:  16,
		Temperature:      98.6,
		Ward:             "Ward A",
	}
}

func TestScore_AllNormal(t *testing.T) {
	assessment := Score(normalVitals(), 50)

	assert.Equal(t, 0, assessment.Score)
	assert.Equal(t, models.RiskLevelLow, assessment.Level)
	assert.Equal(t, []string{"All vitals within normal range"}, assessment.Reasons)
	assert.False(t, assessment.Danger)
}

func TestScore_CriticalClampedTo100(t *testing.T) {
	// 所有规则命中：40+25+20+15+15 = 115 → 裁剪到 100
	v := models.VitalsReading{
		PatientID:        "PAT-TEST0002",
		HeartRate:        135,
		OxygenSaturation: 85,
		BloodPressure:    models.BloodPressure{Systolic: 165, Diastolic: 95},
		RespiratoryRate:  25,
		Temperature:      99.5,
		Ward:             "ICU",
	}

	assessment := Score(v, 96)

	assert.Equal(t, 100, assessment.Score)
	assert.Equal(t, models.RiskLevelCritical, assessment.Level)
	require.Len(t, assessment.Reasons, 5)

	// 原因顺序 = 规则评估顺序（非严重程度排序）
	assert.Contains(t, assessment.Reasons[0], "SpO₂ is dangerously low")
	assert.Contains(t, assessment.Reasons[1], "High heart rate")
	assert.Contains(t, assessment.Reasons[2], "High blood pressure")
	assert.Contains(t, assessment.Reasons[3], "High respiratory rate")
	assert.Contains(t, assessment.Reasons[4], "Critical ward occupancy")

	assert.True(t, assessment.Danger)
}

func TestScore_HeartRateElifChain(t *testing.T) {
	tests := []struct {
		name      string
		heartRate int
		score     int
	}{
		{"tachycardia", 125, 25},
		{"elevated", 110, 10},
		{"bradycardia", 45, 15},
		{"normal", 72, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := normalVitals()
			v.HeartRate = tt.heartRate

			assessment := Score(v, 50)
			assert.Equal(t, tt.score, assessment.Score)
		})
	}
}

func TestScore_LevelThresholds(t *testing.T) {
	// 组合出不同的总分来验证等级阈值（基于裁剪后的分数）
	tests := []struct {
		name  string
		build func() (models.VitalsReading, float64)
		score int
		level string
	}{
		{
			name: "medium at 30",
			build: func() (models.VitalsReading, float64) {
				v := normalVitals()
				v.OxygenSaturation = 94 // +20
				v.HeartRate = 110       // +10
				return v, 50
			},
			score: 30,
			level: models.RiskLevelMedium,
		},
		{
			name: "high at 50",
			build: func() (models.VitalsReading, float64) {
				v := normalVitals()
				v.OxygenSaturation = 89 // +40
				v.HeartRate = 110       // +10
				return v, 50
			},
			score: 50,
			level: models.RiskLevelHigh,
		},
		{
			name: "critical at 70",
			build: func() (models.VitalsReading, float64) {
				v := normalVitals()
				v.OxygenSaturation = 89 // +40
				v.HeartRate = 125       // +25
				return v, 86 // +5
			},
			score: 70,
			level: models.RiskLevelCritical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, occ := tt.build()
			assessment := Score(v, occ)

			assert.Equal(t, tt.score, assessment.Score)
			assert.Equal(t, tt.level, assessment.Level)
		})
	}
}

func TestScore_Idempotent(t *testing.T) {
	v := normalVitals()
	v.OxygenSaturation = 91
	v.Temperature = 101.5

	a1 := Score(v, 88)
	a2 := Score(v, 88)

	assert.Equal(t, a1.Score, a2.Score)
	assert.Equal(t, a1.Level, a2.Level)
	assert.Equal(t, a1.Reasons, a2.Reasons)
	assert.Equal(t, a1.Danger, a2.Danger)
}

func TestScore_PropertyScoreInRangeAndLevelConsistent(t *testing.T) {
	g := generator.NewVitalsGenerator(rand.New(rand.NewSource(42)))

	for i := 0; i < 2000; i++ {
		v := g.Generate("")
		occ := float64(i % 101)

		assessment := Score(v, occ)

		require.True(t, assessment.Score >= 0 && assessment.Score <= 100,
			"score out of range: %d", assessment.Score)
		require.NotEmpty(t, assessment.Reasons)

		switch {
		case assessment.Score >= 70:
			assert.Equal(t, models.RiskLevelCritical, assessment.Level)
		case assessment.Score >= 50:
			assert.Equal(t, models.RiskLevelHigh, assessment.Level)
		case assessment.Score >= 30:
			assert.Equal(t, models.RiskLevelMedium, assessment.Level)
		default:
			assert.Equal(t, models.RiskLevelLow, assessment.Level)
		}
	}
}

func TestIsDangerous_Thresholds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.VitalsReading)
		danger bool
	}{
		{"normal", func(v *models.VitalsReading) {}, false},
		{"low SpO2", func(v *models.VitalsReading) { v.OxygenSaturation = 89 }, true},
		{"HR above 130", func(v *models.VitalsReading) { v.HeartRate = 131 }, true},
		{"HR 130 not dangerous", func(v *models.VitalsReading) { v.HeartRate = 130 }, false},
		{"HR below 50", func(v *models.VitalsReading) { v.HeartRate = 49 }, true},
		{"systolic above 160", func(v *models.VitalsReading) { v.BloodPressure.Systolic = 161 }, true},
		{"RR above 24", func(v *models.VitalsReading) { v.RespiratoryRate = 25 }, true},
		{"high fever", func(v *models.VitalsReading) { v.Temperature = 102.5 }, true},
		{"hypothermia", func(v *models.VitalsReading) { v.Temperature = 95.5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := normalVitals()
			tt.mutate(&v)
			assert.Equal(t, tt.danger, IsDangerous(v))
		})
	}
}

// 两套信号阈值不同，允许出现分歧（设计意图，不要"修复"）
func TestScoreAndDanger_CanDiverge(t *testing.T) {
	// 情况1：danger=true 但等级为 low（仅体温过低，+15 分）
	v := normalVitals()
	v.Temperature = 95.0

	assessment := Score(v, 50)
	assert.Equal(t, models.RiskLevelLow, assessment.Level)
	assert.True(t, assessment.Danger)

	// 情况2：等级为 critical 但 danger=false（每项都越线但未达危险阈值）
	v = normalVitals()
	v.OxygenSaturation = 94                                    // +20（danger 需要 <90）
	v.HeartRate = 125                                          // +25（danger 需要 >130）
	v.BloodPressure = models.BloodPressure{Systolic: 150, Diastolic: 101} // +20（danger 只看收缩压 >160）
	v.RespiratoryRate = 11                                     // +10（danger 只看 >24）
	v.Temperature = 101.5                                      // +10（danger 需要 >102）

	assessment = Score(v, 50)
	assert.Equal(t, 85, assessment.Score)
	assert.Equal(t, models.RiskLevelCritical, assessment.Level)
	assert.False(t, assessment.Danger)
}
