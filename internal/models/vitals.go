package models

import (
	"fmt"
	"time"
)

// BloodPressure 血压（收缩压/舒张压）
type BloodPressure struct {
	Systolic  int `json:"systolic"`
	Diastolic int `json:"diastolic"`
}

// String 格式化为 "120/80" 形式
func (bp BloodPressure) String() string {
	return fmt.Sprintf("%d/%d", bp.Systolic, bp.Diastolic)
}

// VitalsReading 一次生命体征读数（生成后不可变）
type VitalsReading struct {
	PatientID        string        `json:"patient_id"`
	HeartRate        int           `json:"heart_rate"`        // bpm
	OxygenSaturation float64       `json:"oxygen_saturation"` // SpO₂ (%)
	BloodPressure    BloodPressure `json:"blood_pressure"`    // mmHg
	RespiratoryRate  int           `json:"respiratory_rate"`  // bpm
	Temperature      float64       `json:"temperature"`       // °F
	Ward             string        `json:"ward"`
	Timestamp        time.Time     `json:"timestamp"`
}

// RiskAssessment 风险评估结果（由一次读数 + 病区占用率计算得出）
// Score/Level 与 Danger 是两套独立的信号：
// Score/Level 写入患者记录，Danger 用于触发报警节奏，阈值不同，不要合并
type RiskAssessment struct {
	Score        int       `json:"risk_score"` // 0-100
	Level        string    `json:"risk_level"` // low, medium, high, critical
	Reasons      []string  `json:"reasons"`    // 按规则评估顺序排列
	Danger       bool      `json:"danger"`
	CalculatedAt time.Time `json:"calculated_at"`
}

// 风险等级
const (
	RiskLevelLow      = "low"
	RiskLevelMedium   = "medium"
	RiskLevelHigh     = "high"
	RiskLevelCritical = "critical"
)

// Patient 患者记录（对应 patients 表）
type Patient struct {
	PatientID  string    `json:"patient_id" db:"patient_id"`
	Ward       string    `json:"ward" db:"ward"`
	RiskScore  int       `json:"risk_score" db:"risk_score"`
	RiskLevel  string    `json:"risk_level" db:"risk_level"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// VitalsUpdatePayload 广播负载（vitals-update 频道）
type VitalsUpdatePayload struct {
	PatientID        string    `json:"patient_id"`
	HeartRate        int       `json:"heart_rate"`
	OxygenSaturation float64   `json:"oxygen_saturation"`
	BloodPressure    string    `json:"blood_pressure"` // "120/80"
	RespiratoryRate  int       `json:"respiratory_rate"`
	Temperature      float64   `json:"temperature"`
	Ward             string    `json:"ward"`
	RiskScore        int       `json:"risk_score"`
	RiskLevel        string    `json:"risk_level"`
	RiskReasons      []string  `json:"risk_reasons"`
	Danger           bool      `json:"danger"`
	Timestamp        time.Time `json:"timestamp"`
}
