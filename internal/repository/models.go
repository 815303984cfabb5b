package repository

import (
	"time"

	"github.com/glamyouup/mailflow/internal/domain"
)

// NotificationModel is the persistence model for the notifications table.
type NotificationModel struct {
	ID                string         `gorm:"type:uuid;primaryKey"`
	MerchantID        string         `gorm:"type:varchar(64);not null;index"`
	RecipientEmail    string         `gorm:"type:varchar(255);not null;index"`
	Type              string         `gorm:"type:varchar(50);not null;index"`
	TemplateType      string         `gorm:"type:varchar(50);not null"`
	TemplateVariables map[string]any `gorm:"type:jsonb;serializer:json"`
	Subject           string         `gorm:"type:varchar(255)"`
	Content           string         `gorm:"type:text"`
	Status            domain.Status  `gorm:"type:varchar(20);not null;index"`
	Provider          *string        `gorm:"type:varchar(20)"`
	ProviderMessageID *string        `gorm:"type:varchar(255)"`
	ErrorMessage      *string        `gorm:"type:text"`
	RetryCount        int            `gorm:"not null;default:0"`
	Metadata          map[string]any `gorm:"type:jsonb;serializer:json"`
	CreatedAt         time.Time
	SentAt            *time.Time
	UpdatedAt         time.Time
}

func (NotificationModel) TableName() string {
	return "notifications"
}

// DeliveryAttemptModel is the persistence model for notification_attempts.
type DeliveryAttemptModel struct {
	ID               string                `gorm:"type:uuid;primaryKey"`
	NotificationID   string                `gorm:"type:uuid;not null;index"`
	AttemptNumber    int                   `gorm:"not null"`
	Provider         string                `gorm:"type:varchar(20);not null"`
	Outcome          domain.AttemptOutcome `gorm:"type:varchar(10);not null"`
	ErrorMessage     *string               `gorm:"type:text"`
	ProviderResponse map[string]any        `gorm:"type:jsonb;serializer:json"`
	CreatedAt        time.Time
}

func (DeliveryAttemptModel) TableName() string {
	return "notification_attempts"
}

// RateLimitWindowModel is the persistence model for notification_rate_limits.
type RateLimitWindowModel struct {
	ID               string  `gorm:"type:uuid;primaryKey"`
	RecipientEmail   string  `gorm:"type:varchar(255);not null;index"`
	NotificationType *string `gorm:"type:varchar(50)"`
	SendCount        int     `gorm:"not null;default:0"`
	WindowStart      time.Time
	WindowEnd        time.Time
	CreatedAt        time.Time
}

func (RateLimitWindowModel) TableName() string {
	return "notification_rate_limits"
}

// TemplateModel is the persistence model for notification_templates.
type TemplateModel struct {
	ID                string   `gorm:"type:uuid;primaryKey"`
	Type              string   `gorm:"type:varchar(50);not null;index"`
	Name              string   `gorm:"type:varchar(100);not null"`
	SubjectTemplate   string   `gorm:"type:text;not null"`
	BodyTemplate      string   `gorm:"type:text;not null"`
	RequiredVariables []string `gorm:"type:jsonb;serializer:json"`
	OptionalVariables []string `gorm:"type:jsonb;serializer:json"`
	IsActive          bool     `gorm:"not null;default:true"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (TemplateModel) TableName() string {
	return "notification_templates"
}

func notificationModelFromDomain(n *domain.Notification) *NotificationModel {
	if n == nil {
		return nil
	}

	return &NotificationModel{
		ID:                n.ID,
		MerchantID:        n.MerchantID,
		RecipientEmail:    n.RecipientEmail,
		Type:              n.Type,
		TemplateType:      n.TemplateType,
		TemplateVariables: n.TemplateVariables,
		Subject:           n.Subject,
		Content:           n.Content,
		Status:            n.Status,
		Provider:          n.Provider,
		ProviderMessageID: n.ProviderMessageID,
		ErrorMessage:      n.ErrorMessage,
		RetryCount:        n.RetryCount,
		Metadata:          n.Metadata,
		CreatedAt:         n.CreatedAt,
		SentAt:            n.SentAt,
		UpdatedAt:         n.UpdatedAt,
	}
}

func notificationModelToDomain(m *NotificationModel) *domain.Notification {
	if m == nil {
		return nil
	}

	return &domain.Notification{
		ID:                m.ID,
		MerchantID:        m.MerchantID,
		RecipientEmail:    m.RecipientEmail,
		Type:              m.Type,
		TemplateType:      m.TemplateType,
		TemplateVariables: m.TemplateVariables,
		Subject:           m.Subject,
		Content:           m.Content,
		Status:            m.Status,
		Provider:          m.Provider,
		ProviderMessageID: m.ProviderMessageID,
		ErrorMessage:      m.ErrorMessage,
		RetryCount:        m.RetryCount,
		Metadata:          m.Metadata,
		CreatedAt:         m.CreatedAt,
		SentAt:            m.SentAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func attemptModelFromDomain(a *domain.DeliveryAttempt) *DeliveryAttemptModel {
	if a == nil {
		return nil
	}

	return &DeliveryAttemptModel{
		ID:               a.ID,
		NotificationID:   a.NotificationID,
		AttemptNumber:    a.AttemptNumber,
		Provider:         a.Provider,
		Outcome:          a.Outcome,
		ErrorMessage:     a.ErrorMessage,
		ProviderResponse: a.ProviderResponse,
		CreatedAt:        a.CreatedAt,
	}
}

func attemptModelToDomain(m *DeliveryAttemptModel) *domain.DeliveryAttempt {
	if m == nil {
		return nil
	}

	return &domain.DeliveryAttempt{
		ID:               m.ID,
		NotificationID:   m.NotificationID,
		AttemptNumber:    m.AttemptNumber,
		Provider:         m.Provider,
		Outcome:          m.Outcome,
		ErrorMessage:     m.ErrorMessage,
		ProviderResponse: m.ProviderResponse,
		CreatedAt:        m.CreatedAt,
	}
}

func templateModelToDomain(m *TemplateModel) *domain.Template {
	if m == nil {
		return nil
	}

	return &domain.Template{
		ID:                m.ID,
		Type:              m.Type,
		Name:              m.Name,
		SubjectTemplate:   m.SubjectTemplate,
		BodyTemplate:      m.BodyTemplate,
		RequiredVariables: m.RequiredVariables,
		OptionalVariables: m.OptionalVariables,
		IsActive:          m.IsActive,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}
