package service

import (
	"strings"
	"time"

	"github.com/storefront-next/internal/constants"
	"github.com/storefront-next/internal/models"
	"github.com/storefront-next/internal/repository"
)

// AuthEventService 身份事件日志服务
type AuthEventService struct {
	repo repository.AuthEventRepository
	now  func() time.Time
}

// NewAuthEventService 创建身份事件日志服务
func NewAuthEventService(repo repository.AuthEventRepository) *AuthEventService {
	return &AuthEventService{repo: repo, now: time.Now}
}

// RecordAuthEventInput 事件记录输入
type RecordAuthEventInput struct {
	UserUID    string
	Email      string
	DeviceID   string
	Action     string
	Status     string
	FailReason string
	ClientIP   string
	UserAgent  string
	Source     string
	RequestID  string
}

// Record 记录一次身份事件
func (s *AuthEventService) Record(input RecordAuthEventInput) error {
	if s == nil || s.repo == nil {
		return nil
	}

	email := strings.TrimSpace(input.Email)
	if normalized, err := NormalizeEmail(email); err == nil {
		email = normalized
	}

	status := strings.ToLower(strings.TrimSpace(input.Status))
	if status != constants.AuthEventStatusSuccess {
		status = constants.AuthEventStatusFailed
	}

	failReason := strings.ToLower(strings.TrimSpace(input.FailReason))
	if status == constants.AuthEventStatusSuccess {
		failReason = ""
	} else if failReason == "" {
		failReason = constants.AuthErrorUnknown
	}

	source := strings.ToLower(strings.TrimSpace(input.Source))
	if source == "" {
		source = constants.AuthEventSourceWeb
	}

	return s.repo.Create(&models.AuthEvent{
		UserUID:    strings.TrimSpace(input.UserUID),
		Email:      email,
		DeviceID:   strings.TrimSpace(input.DeviceID),
		Action:     strings.TrimSpace(input.Action),
		Status:     status,
		FailReason: failReason,
		ClientIP:   strings.TrimSpace(input.ClientIP),
		UserAgent:  strings.TrimSpace(input.UserAgent),
		Source:     source,
		RequestID:  strings.TrimSpace(input.RequestID),
		CreatedAt:  s.now(),
	})
}

// ListByUser 用户侧查询自己的身份事件
func (s *AuthEventService) ListByUser(userUID string, page, pageSize int) ([]models.AuthEvent, int64, error) {
	userUID = strings.TrimSpace(userUID)
	if s == nil || s.repo == nil || userUID == "" {
		return []models.AuthEvent{}, 0, nil
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return s.repo.List(repository.AuthEventListFilter{UserUID: userUID, Page: page, PageSize: pageSize})
}
