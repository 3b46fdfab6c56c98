package db

import "gorm.io/gorm"

// SystemSetting 存储后台可配置的系统级键值对。
type SystemSetting struct {
	gorm.Model
	Key   string `gorm:"size:100;uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}

// TableName 自定义表名以保持命名一致。
func (SystemSetting) TableName() string {
	return "system_settings"
}

const (
	// SettingKeySiteName 表示学校名称。
	SettingKeySiteName = "site_name"
	// SettingKeyMetaDescription 表示页面默认的 meta description。
	SettingKeyMetaDescription = "meta_description"
	// SettingKeyMapEmbedURL 表示联系页地图缺省嵌入地址。
	SettingKeyMapEmbedURL = "map_embed_url"
	// SettingKeyFooterNote 表示页脚附加说明。
	SettingKeyFooterNote = "footer_note"
)
