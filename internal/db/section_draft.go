package db

import "time"

// SectionDraft 保存编辑器会话中尚未发布的 section 副本。
type SectionDraft struct {
	ID            uint   `gorm:"primaryKey"`
	EditorSession string `gorm:"size:64;not null;uniqueIndex:idx_section_drafts_scope,priority:1"`
	PageSlug      string `gorm:"size:100;not null;uniqueIndex:idx_section_drafts_scope,priority:2"`
	SectionKey    string `gorm:"size:100;not null;uniqueIndex:idx_section_drafts_scope,priority:3"`
	SectionID     uint
	Content       string `gorm:"type:text"`
	OrderIndex    int
	IsActive      bool
	Dirty         bool `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time `gorm:"index"`
}

// TableName 自定义表名以保持命名一致。
func (SectionDraft) TableName() string {
	return "section_drafts"
}
