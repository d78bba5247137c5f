package risk

import (
	"fmt"
	"math"
	"time"

	"mediq-simulator/internal/models"
)

// Score 根据生命体征和病区占用率计算风险评估
// 确定性的全函数：任意输入都有输出，不会失败
// 规则按固定顺序评估，每条规则累加分数并追加一条原因（规则之间相互独立，可多条命中）
func Score(v models.VitalsReading, wardOccupancy float64) models.RiskAssessment {
	score := 0.0
	var reasons []string

	// 1. SpO₂（低血氧最危险）
	if v.OxygenSaturation < 90 {
		score += 40
		reasons = append(reasons, fmt.Sprintf("Critical: SpO₂ is dangerously low at %g%%", v.OxygenSaturation))
	} else if v.OxygenSaturation < 95 {
		score += 20
		reasons = append(reasons, fmt.Sprintf("Warning: SpO₂ is below normal at %g%%", v.OxygenSaturation))
	}

	// 2. 心率（elif 链，三者只命中一条）
	if v.HeartRate > 120 {
		score += 25
		reasons = append(reasons, fmt.Sprintf("High heart rate detected: %d bpm", v.HeartRate))
	} else if v.HeartRate > 100 {
		score += 10
		reasons = append(reasons, fmt.Sprintf("Elevated heart rate: %d bpm", v.HeartRate))
	} else if v.HeartRate < 50 {
		score += 15
		reasons = append(reasons, fmt.Sprintf("Low heart rate (bradycardia): %d bpm", v.HeartRate))
	}

	// 3. 血压
	if v.BloodPressure.Systolic > 160 || v.BloodPressure.Diastolic > 100 {
		score += 20
		reasons = append(reasons, fmt.Sprintf("High blood pressure: %d/%d mmHg", v.BloodPressure.Systolic, v.BloodPressure.Diastolic))
	} else if v.BloodPressure.Systolic < 90 || v.BloodPressure.Diastolic < 60 {
		score += 15
		reasons = append(reasons, fmt.Sprintf("Low blood pressure: %d/%d mmHg", v.BloodPressure.Systolic, v.BloodPressure.Diastolic))
	}

	// 4. 呼吸频率
	if v.RespiratoryRate > 24 {
		score += 15
		reasons = append(reasons, fmt.Sprintf("High respiratory rate: %d bpm", v.RespiratoryRate))
	} else if v.RespiratoryRate < 12 {
		score += 10
		reasons = append(reasons, fmt.Sprintf("Low respiratory rate: %d bpm", v.RespiratoryRate))
	}

	// 5. 体温
	if v.Temperature > 101 {
		score += 10
		reasons = append(reasons, fmt.Sprintf("High fever: %g°F", v.Temperature))
	} else if v.Temperature < 96 {
		score += 15
		reasons = append(reasons, fmt.Sprintf("Hypothermia: %g°F", v.Temperature))
	}

	// 6. 病区占用率（占用过高意味着每位患者获得的照护减少）
	if wardOccupancy > 95 {
		score += 15
		reasons = append(reasons, fmt.Sprintf("Critical ward occupancy: %g%%", wardOccupancy))
	} else if wardOccupancy > 85 {
		score += 5
		reasons = append(reasons, fmt.Sprintf("High ward occupancy: %g%%", wardOccupancy))
	}

	// 求和后裁剪到 [0,100]
	score = math.Min(100, math.Max(0, score))
	finalScore := int(math.Round(score))

	// 等级阈值基于裁剪后的分数
	level := models.RiskLevelLow
	switch {
	case finalScore >= 70:
		level = models.RiskLevelCritical
	case finalScore >= 50:
		level = models.RiskLevelHigh
	case finalScore >= 30:
		level = models.RiskLevelMedium
	}

	if len(reasons) == 0 {
		reasons = []string{"All vitals within normal range"}
	}

	return models.RiskAssessment{
		Score:        finalScore,
		Level:        level,
		Reasons:      reasons,
		Danger:       IsDangerous(v),
		CalculatedAt: time.Now(),
	}
}

// IsDangerous 危险判定（独立于 Score/Level 的第二套信号，阈值更紧）
// 注意：该布尔值用于控制报警节奏，Score/Level 用于持久化记录，两者可能不一致，属设计意图
func IsDangerous(v models.VitalsReading) bool {
	return v.OxygenSaturation < 90 ||
		v.HeartRate > 130 ||
		v.HeartRate < 50 ||
		v.BloodPressure.Systolic > 160 ||
		v.RespiratoryRate > 24 ||
		v.Temperature > 102 ||
		v.Temperature < 96
}
