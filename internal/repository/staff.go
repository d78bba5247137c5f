package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

var nonDigitPattern = regexp.MustCompile(`\D`)

// StaffRepository 值班人员通讯录（users 表）
type StaffRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStaffRepository 创建值班人员仓库
func NewStaffRepository(db *sql.DB, logger *zap.Logger) *StaffRepository {
	return &StaffRepository{
		db:     db,
		logger: logger,
	}
}

// FindPhoneNumbers 根据角色（和可选的病区）解析值班人员电话号码
// 病区过滤只作用于护士角色，医生/管理员不受病区限制
// 返回的号码已规范化为 E.164、去重、剔除空号和无效号
func (r *StaffRepository) FindPhoneNumbers(ctx context.Context, roles []string, ward string) ([]string, error) {
	if len(roles) == 0 {
		return nil, fmt.Errorf("roles are required")
	}

	query := `
		SELECT role, phone_number
		FROM users
		WHERE role = ANY($1)
		  AND is_active = TRUE
		  AND phone_number IS NOT NULL
		  AND phone_number <> ''
	`

	args := []interface{}{pq.Array(roles)}
	if ward != "" && containsRole(roles, "nurse") {
		query += ` AND (role <> 'nurse' OR ward = $2)`
		args = append(args, ward)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query staff phone numbers: %w", err)
	}
	defer rows.Close()

	var numbers []string
	seen := make(map[string]bool)
	for rows.Next() {
		var role, phone string
		if err := rows.Scan(&role, &phone); err != nil {
			return nil, fmt.Errorf("failed to scan staff row: %w", err)
		}

		normalized := normalizePhoneNumber(phone)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		numbers = append(numbers, normalized)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate staff rows: %w", err)
	}

	r.logger.Debug("Resolved staff phone numbers",
		zap.Strings("roles", roles),
		zap.String("ward", ward),
		zap.Int("count", len(numbers)),
	)

	return numbers, nil
}

// normalizePhoneNumber 规范化为 E.164
// 无国际前缀的号码按美国号码处理（补 +1），仍不合规的丢弃
func normalizePhoneNumber(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}

	if !strings.HasPrefix(phone, "+") {
		digits := nonDigitPattern.ReplaceAllString(phone, "")
		if len(digits) != 10 {
			return ""
		}
		return "+1" + digits
	}

	digits := nonDigitPattern.ReplaceAllString(phone[1:], "")
	if len(digits) < 2 || len(digits) > 15 || digits[0] == '0' {
		return ""
	}
	return "+" + digits
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
