package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mediq-simulator/internal/models"
)

// 每位患者保留的历史读数上限（按插入顺序 FIFO 淘汰）
const vitalsHistoryCap = 50

// PatientRepository 患者仓库
type PatientRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPatientRepository 创建患者仓库
func NewPatientRepository(db *sql.DB, logger *zap.Logger) *PatientRepository {
	return &PatientRepository{
		db:     db,
		logger: logger,
	}
}

// FindOrCreate 查找患者，不存在时创建（返回是否新建）
func (r *PatientRepository) FindOrCreate(ctx context.Context, patientID, ward string) (*models.Patient, bool, error) {
	if patientID == "" {
		return nil, false, fmt.Errorf("patient_id is required")
	}

	query := `
		SELECT patient_id, ward, risk_score, risk_level, created_at, updated_at
		FROM patients
		WHERE patient_id = $1
	`

	var patient models.Patient
	err := r.db.QueryRowContext(ctx, query, patientID).Scan(
		&patient.PatientID,
		&patient.Ward,
		&patient.RiskScore,
		&patient.RiskLevel,
		&patient.CreatedAt,
		&patient.UpdatedAt,
	)

	if err == nil {
		return &patient, false, nil
	}

	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("failed to query patient: %w", err)
	}

	// 不存在，创建新患者记录
	insert := `
		INSERT INTO patients (patient_id, ward, risk_score, risk_level, created_at, updated_at)
		VALUES ($1, $2, 0, $3, NOW(), NOW())
		RETURNING patient_id, ward, risk_score, risk_level, created_at, updated_at
	`

	err = r.db.QueryRowContext(ctx, insert, patientID, ward, models.RiskLevelLow).Scan(
		&patient.PatientID,
		&patient.Ward,
		&patient.RiskScore,
		&patient.RiskLevel,
		&patient.CreatedAt,
		&patient.UpdatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create patient: %w", err)
	}

	r.logger.Info("Created new patient record",
		zap.String("patient_id", patientID),
		zap.String("ward", ward),
	)

	return &patient, true, nil
}

// AppendReading 追加一条历史读数并裁剪到上限
// 上限按插入顺序（id 递增）淘汰最旧的行，与 tick 顺序一致，不按时间戳
func (r *PatientRepository) AppendReading(ctx context.Context, patientID string, reading models.VitalsReading) error {
	if patientID == "" {
		return fmt.Errorf("patient_id is required")
	}

	insert := `
		INSERT INTO patient_vitals (
			patient_id, heart_rate, systolic, diastolic,
			oxygen_saturation, respiratory_rate, temperature, ward, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, insert,
		patientID,
		reading.HeartRate,
		reading.BloodPressure.Systolic,
		reading.BloodPressure.Diastolic,
		reading.OxygenSaturation,
		reading.RespiratoryRate,
		reading.Temperature,
		reading.Ward,
		reading.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert vitals reading: %w", err)
	}

	trim := `
		DELETE FROM patient_vitals
		WHERE patient_id = $1
		  AND id NOT IN (
			SELECT id FROM patient_vitals
			WHERE patient_id = $1
			ORDER BY id DESC
			LIMIT $2
		  )
	`

	if _, err := r.db.ExecContext(ctx, trim, patientID, vitalsHistoryCap); err != nil {
		return fmt.Errorf("failed to trim vitals history: %w", err)
	}

	return nil
}

// UpdateCurrent 更新患者的当前读数与风险评估
func (r *PatientRepository) UpdateCurrent(ctx context.Context, patientID string, reading models.VitalsReading, assessment models.RiskAssessment) error {
	if patientID == "" {
		return fmt.Errorf("patient_id is required")
	}

	currentJSON, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal current vitals: %w", err)
	}

	update := `
		UPDATE patients
		SET current_vitals = $2,
		    risk_score = $3,
		    risk_level = $4,
		    ward = $5,
		    updated_at = NOW()
		WHERE patient_id = $1
	`

	result, err := r.db.ExecContext(ctx, update,
		patientID,
		string(currentJSON),
		assessment.Score,
		assessment.Level,
		reading.Ward,
	)
	if err != nil {
		return fmt.Errorf("failed to update current vitals: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("patient not found: %s", patientID)
	}

	return nil
}

// FlagDanger 为患者追加危险标记
// 已有未确认的 vital 类型标记时不重复插入
func (r *PatientRepository) FlagDanger(ctx context.Context, patientID, message, severity string) error {
	if patientID == "" {
		return fmt.Errorf("patient_id is required")
	}

	// 客户端生成标记ID
	alertID := uuid.New().String()

	insert := `
		INSERT INTO patient_alerts (alert_id, patient_id, alert_type, message, severity, acknowledged, created_at)
		SELECT $1, $2, 'vital', $3, $4, FALSE, NOW()
		WHERE NOT EXISTS (
			SELECT 1 FROM patient_alerts
			WHERE patient_id = $2 AND alert_type = 'vital' AND acknowledged = FALSE
		)
	`

	if _, err := r.db.ExecContext(ctx, insert, alertID, patientID, message, severity); err != nil {
		return fmt.Errorf("failed to flag danger: %w", err)
	}

	return nil
}

// ListPatientIDs 获取已有患者ID（调度器启动时用于播种受监测对象集合）
func (r *PatientRepository) ListPatientIDs(ctx context.Context, limit int) ([]string, error) {
	query := `
		SELECT patient_id FROM patients
		ORDER BY updated_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan patient_id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate patients: %w", err)
	}

	return ids, nil
}
