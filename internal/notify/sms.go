package notify

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// 发送失败的错误类型
const (
	ErrKindNotConfigured = "not_configured"
	ErrKindInvalidNumber = "invalid_number"
	ErrKindProvider      = "provider_error"
)

// E.164 国际号码格式，如 +12345678900
var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// SendResult 单次发送结果
// 发送失败不抛错误：所有传输层错误都封装为失败结果返回，调用方自行决策
type SendResult struct {
	Success   bool   `json:"success"`
	SID       string `json:"sid,omitempty"`        // Twilio 消息 SID
	ErrorKind string `json:"error_kind,omitempty"` // not_configured, invalid_number, provider_error
	Error     string `json:"error,omitempty"`
	To        string `json:"to"`
}

// twilioMessageResponse Twilio Messages API 响应
type twilioMessageResponse struct {
	Sid     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"` // 错误响应中的描述
	Code    int    `json:"code"`
}

// SMSClient Twilio 短信客户端
// 凭证缺失时降级为不可用（Available() == false），不会在启动时报错
type SMSClient struct {
	httpClient *resty.Client
	accountSID string
	fromNumber string
	logger     *zap.Logger
}

// NewSMSClient 创建短信客户端
// baseURL 通常为 https://api.twilio.com，测试时可指向本地 mock 服务
func NewSMSClient(baseURL, accountSID, authToken, fromNumber string, logger *zap.Logger) *SMSClient {
	if accountSID == "" || authToken == "" || fromNumber == "" {
		logger.Warn("Twilio credentials not found, SMS alerts disabled")
		return &SMSClient{logger: logger}
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetBasicAuth(accountSID, authToken).
		SetHeader("Accept", "application/json")

	logger.Info("Twilio SMS client initialized",
		zap.String("from_number", fromNumber),
	)

	return &SMSClient{
		httpClient: client,
		accountSID: accountSID,
		fromNumber: fromNumber,
		logger:     logger,
	}
}

// Available 检查短信服务是否可用（发送前的预检查）
func (c *SMSClient) Available() bool {
	return c.httpClient != nil && c.fromNumber != ""
}

// Send 发送短信
// 未配置或号码格式非法时直接返回失败结果，不发起网络请求
func (c *SMSClient) Send(ctx context.Context, to, body string) SendResult {
	if !c.Available() {
		c.logger.Warn("SMS not sent: Twilio not configured")
		return SendResult{
			To:        to,
			ErrorKind: ErrKindNotConfigured,
			Error:     "SMS service is not available, check Twilio credentials",
		}
	}

	if !e164Pattern.MatchString(to) {
		c.logger.Warn("SMS not sent: invalid phone number format",
			zap.String("to", to),
		)
		return SendResult{
			To:        to,
			ErrorKind: ErrKindInvalidNumber,
			Error:     "phone number must be in E.164 format (e.g. +12345678900)",
		}
	}

	var response twilioMessageResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"To":   to,
			"From": c.fromNumber,
			"Body": body,
		}).
		SetResult(&response).
		SetError(&response).
		Post(fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", c.accountSID))

	if err != nil {
		c.logger.Error("SMS sending failed",
			zap.String("to", to),
			zap.Error(err),
		)
		return SendResult{
			To:        to,
			ErrorKind: ErrKindProvider,
			Error:     err.Error(),
		}
	}

	if resp.IsError() {
		c.logger.Error("Twilio API returned error",
			zap.String("to", to),
			zap.Int("status_code", resp.StatusCode()),
			zap.Int("twilio_code", response.Code),
			zap.String("message", response.Message),
		)
		return SendResult{
			To:        to,
			ErrorKind: ErrKindProvider,
			Error:     fmt.Sprintf("Twilio error %d: %s", response.Code, response.Message),
		}
	}

	c.logger.Info("SMS sent successfully",
		zap.String("to", to),
		zap.String("sid", response.Sid),
	)

	return SendResult{
		Success: true,
		SID:     response.Sid,
		To:      to,
	}
}
