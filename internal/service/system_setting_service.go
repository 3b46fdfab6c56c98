package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/edunet/internal/db"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvalidSettings 表示设置表单未通过校验。
var ErrInvalidSettings = errors.New("invalid settings")

// DefaultMapEmbedURL 是联系页在未配置地图时使用的嵌入地址。
const DefaultMapEmbedURL = "https://www.google.com/maps/embed?pb=!1m18!1m12!1m3!1d94380.70293116676!2d-71.0588801!3d42.3600825!2m3!1f0!2f0!3f0!3m2!1i1024!2i768!4f13.1!3m3!1m2!1s0x89e370a5cb308779%3A0x40139b5b6329e46a!2sBoston%2C%20MA!5e0!3m2!1sen!2sus!4v1600000000000!5m2!1sen!2sus"

// SystemSettings 描述后台可配置的站点信息。
type SystemSettings struct {
	SiteName        string
	MetaDescription string
	MapEmbedURL     string
	FooterNote      string
}

// SystemSettingsInput 用于更新系统设置。
type SystemSettingsInput struct {
	SiteName        string `form:"site_name"`
	MetaDescription string `form:"meta_description"`
	MapEmbedURL     string `form:"map_embed_url"`
	FooterNote      string `form:"footer_note"`
}

// Validate 限制名称长度；地图地址必须是 https 嵌入链接，空值表示使用默认地图。
func (in SystemSettingsInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.SiteName, validation.Length(0, 100)),
		validation.Field(&in.MetaDescription, validation.Length(0, 300)),
		validation.Field(&in.MapEmbedURL, is.URL, validation.By(requireHTTPS)),
		validation.Field(&in.FooterNote, validation.Length(0, 500)),
	)
}

func requireHTTPS(value interface{}) error {
	raw, _ := value.(string)
	raw = strings.TrimSpace(raw)
	if raw != "" && !strings.HasPrefix(strings.ToLower(raw), "https://") {
		return validation.NewError("validation_is_https", "must start with https://")
	}
	return nil
}

// SystemSettingService 提供系统设置的读取与更新能力。
type SystemSettingService struct {
	db          *gorm.DB
	defaultName string
}

// NewSystemSettingService 构造 SystemSettingService，defaultName 来自配置。
func NewSystemSettingService(gdb *gorm.DB, defaultName string) *SystemSettingService {
	name := strings.TrimSpace(defaultName)
	if name == "" {
		name = "EduNet School"
	}
	return &SystemSettingService{db: gdb, defaultName: name}
}

var settingKeys = []string{
	db.SettingKeySiteName,
	db.SettingKeyMetaDescription,
	db.SettingKeyMapEmbedURL,
	db.SettingKeyFooterNote,
}

func (s *SystemSettingService) defaults() SystemSettings {
	return SystemSettings{
		SiteName:        s.defaultName,
		MetaDescription: s.defaultName + " official website.",
		MapEmbedURL:     DefaultMapEmbedURL,
	}
}

// GetSettings 读取系统设置，如未设置将返回默认值。
func (s *SystemSettingService) GetSettings() (SystemSettings, error) {
	if s == nil {
		return NewSystemSettingService(nil, "").defaults(), nil
	}
	result := s.defaults()
	if s.db == nil {
		return result, nil
	}

	var records []db.SystemSetting
	if err := s.db.Where("key IN ?", settingKeys).Find(&records).Error; err != nil {
		return result, fmt.Errorf("load system settings: %w", err)
	}

	for _, record := range records {
		value := strings.TrimSpace(record.Value)
		switch record.Key {
		case db.SettingKeySiteName:
			if value != "" {
				result.SiteName = value
			}
		case db.SettingKeyMetaDescription:
			if value != "" {
				result.MetaDescription = value
			}
		case db.SettingKeyMapEmbedURL:
			if value != "" {
				result.MapEmbedURL = value
			}
		case db.SettingKeyFooterNote:
			result.FooterNote = value
		}
	}

	return result, nil
}

// UpdateSettings 保存系统设置，空值回退为默认值。
func (s *SystemSettingService) UpdateSettings(input SystemSettingsInput) (SystemSettings, error) {
	if err := input.Validate(); err != nil {
		return SystemSettings{}, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	defaults := s.defaults()
	sanitized := SystemSettings{
		SiteName:        strings.TrimSpace(input.SiteName),
		MetaDescription: strings.TrimSpace(input.MetaDescription),
		MapEmbedURL:     strings.TrimSpace(input.MapEmbedURL),
		FooterNote:      strings.TrimSpace(input.FooterNote),
	}
	if sanitized.SiteName == "" {
		sanitized.SiteName = defaults.SiteName
	}
	if sanitized.MetaDescription == "" {
		sanitized.MetaDescription = defaults.MetaDescription
	}
	if sanitized.MapEmbedURL == "" {
		sanitized.MapEmbedURL = defaults.MapEmbedURL
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		values := map[string]string{
			db.SettingKeySiteName:        sanitized.SiteName,
			db.SettingKeyMetaDescription: sanitized.MetaDescription,
			db.SettingKeyMapEmbedURL:     sanitized.MapEmbedURL,
			db.SettingKeyFooterNote:      sanitized.FooterNote,
		}
		for _, key := range settingKeys {
			if err := upsertSetting(tx, key, values[key]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return SystemSettings{}, fmt.Errorf("update system settings: %w", err)
	}

	return sanitized, nil
}

func upsertSetting(tx *gorm.DB, key, value string) error {
	setting := db.SystemSetting{Key: key, Value: value}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      value,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&setting).Error; err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}
