package generator

import (
	"math"
	"math/rand"
	"time"

	"mediq-simulator/internal/models"
)

// 模拟使用的病区列表
var Wards = []string{"ICU", "Ward A", "Ward B", "Emergency", "Surgical"}

const patientIDChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// VitalsGenerator 生命体征生成器
// 每个字段独立从两个区间中抽取：按固定概率进入"异常"分支
// 随机源由调用方注入（固定 seed 下生成是确定的，便于测试）
type VitalsGenerator struct {
	rng *rand.Rand
}

// NewVitalsGenerator 创建生命体征生成器
func NewVitalsGenerator(rng *rand.Rand) *VitalsGenerator {
	return &VitalsGenerator{rng: rng}
}

// Generate 生成一条读数（patientID 为空时自动生成新ID）
func (g *VitalsGenerator) Generate(patientID string) models.VitalsReading {
	if patientID == "" {
		patientID = g.GeneratePatientID()
	}

	return models.VitalsReading{
		PatientID:        patientID,
		HeartRate:        g.generateHeartRate(),
		OxygenSaturation: g.generateSpO2(),
		BloodPressure:    g.generateBloodPressure(),
		RespiratoryRate:  g.generateRespiratoryRate(),
		Temperature:      g.generateTemperature(),
		Ward:             Wards[g.rng.Intn(len(Wards))],
		Timestamp:        time.Now(),
	}
}

// GenerateBatch 生成多条读数（每条使用新生成的患者ID）
func (g *VitalsGenerator) GenerateBatch(count int) []models.VitalsReading {
	readings := make([]models.VitalsReading, 0, count)
	for i := 0; i < count; i++ {
		readings = append(readings, g.Generate(""))
	}
	return readings
}

// GeneratePatientID 生成患者ID，形如 "PAT-X7K2M9QA"
func (g *VitalsGenerator) GeneratePatientID() string {
	b := make([]byte, 8)
	for i := range b {
		b[i] = patientIDChars[g.rng.Intn(len(patientIDChars))]
	}
	return "PAT-" + string(b)
}

// generateHeartRate 心率：10% 概率落入高区间 [120,150]，否则 [60,100]
func (g *VitalsGenerator) generateHeartRate() int {
	if g.rng.Float64() < 0.1 {
		return g.intBetween(120, 150)
	}
	return g.intBetween(60, 100)
}

// generateSpO2 血氧：15% 概率落入低区间 [85,94]，否则 [95,100]
func (g *VitalsGenerator) generateSpO2() float64 {
	if g.rng.Float64() < 0.15 {
		return g.floatBetween(85, 94)
	}
	return g.floatBetween(95, 100)
}

// generateBloodPressure 血压：20% 概率高血压区间 130-160/85-100，否则 90-120/60-80
func (g *VitalsGenerator) generateBloodPressure() models.BloodPressure {
	if g.rng.Float64() < 0.2 {
		return models.BloodPressure{
			Systolic:  g.intBetween(130, 160),
			Diastolic: g.intBetween(85, 100),
		}
	}
	return models.BloodPressure{
		Systolic:  g.intBetween(90, 120),
		Diastolic: g.intBetween(60, 80),
	}
}

// generateRespiratoryRate 呼吸频率：10% 概率落入高区间 [20,28]，否则 [12,20]
func (g *VitalsGenerator) generateRespiratoryRate() int {
	if g.rng.Float64() < 0.1 {
		return g.intBetween(20, 28)
	}
	return g.intBetween(12, 20)
}

// generateTemperature 体温：15% 概率发热区间 [99.5,102.5]，否则 [97.0,99.5]（°F）
func (g *VitalsGenerator) generateTemperature() float64 {
	if g.rng.Float64() < 0.15 {
		return g.floatBetween(99.5, 102.5)
	}
	return g.floatBetween(97.0, 99.5)
}

// intBetween 生成 [min,max] 闭区间内的整数
func (g *VitalsGenerator) intBetween(min, max int) int {
	return min + g.rng.Intn(max-min+1)
}

// floatBetween 生成 [min,max] 内保留1位小数的浮点数
func (g *VitalsGenerator) floatBetween(min, max float64) float64 {
	v := min + g.rng.Float64()*(max-min)
	return math.Round(v*10) / 10
}
