package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/edunet/internal/content"
	"github.com/edunet/internal/db"
	"github.com/edunet/internal/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrSectionNotFound 表示工作区中没有该 section。
	ErrSectionNotFound = errors.New("section not found")
	// ErrUnknownList 表示 section 没有声明该列表字段。
	ErrUnknownList = errors.New("unknown list field")
	// ErrInvalidPage 表示 slug 为空或非法。
	ErrInvalidPage = errors.New("invalid page slug")
)

type contentBackend interface {
	ListPages(ctx context.Context, token string) ([]content.PageSummary, error)
	GetPage(ctx context.Context, token, slug string) ([]content.Section, error)
	UpdateSection(ctx context.Context, token string, id uint, update content.SectionUpdate) (content.Section, error)
	SeedPage(ctx context.Context, token, slug string) error
}

type cacheInvalidator interface {
	Invalidate(slug string)
}

// DraftSection 是工作区里的一个可编辑 section。
type DraftSection struct {
	Key        string
	ID         uint
	Content    content.Object
	OrderIndex int
	IsActive   bool
	Dirty      bool
	Def        content.SectionDef
	Known      bool
}

// Title returns the editor heading, falling back to a humanised key.
func (s DraftSection) Title() string {
	if s.Def.Title != "" {
		return s.Def.Title
	}
	return content.HumanizeSlug(strings.ReplaceAll(s.Key, "_", "-"))
}

// Workspace 是某个编辑会话下一个页面的全部草稿。
type Workspace struct {
	Session  string
	PageSlug string
	Page     content.PageDef
	Sections []DraftSection
}

// Empty reports whether the page has no sections at all.
func (w Workspace) Empty() bool {
	return len(w.Sections) == 0
}

// Dirty reports whether any section has unsaved edits.
func (w Workspace) Dirty() bool {
	for _, section := range w.Sections {
		if section.Dirty {
			return true
		}
	}
	return false
}

// Section returns the draft for key.
func (w Workspace) Section(key string) (DraftSection, bool) {
	for _, section := range w.Sections {
		if section.Key == key {
			return section, true
		}
	}
	return DraftSection{}, false
}

// PreviewPage renders the workspace the way the public site would: active
// sections only, _id keys removed.
func (w Workspace) PreviewPage() PublicPage {
	sections := make([]content.Section, 0, len(w.Sections))
	for _, draft := range w.Sections {
		if !draft.IsActive {
			continue
		}
		sections = append(sections, content.Section{
			ID:         draft.ID,
			PageSlug:   w.PageSlug,
			SectionKey: draft.Key,
			Content:    content.StripItems(draft.Content, draft.Def.Lists),
			OrderIndex: draft.OrderIndex,
			IsActive:   true,
		})
	}
	content.SortSections(sections)
	return BuildPublicPage(w.PageSlug, sections)
}

// PageCard is one dashboard tile.
type PageCard struct {
	Slug         string
	Label        string
	Description  string
	SectionCount int
	Editable     bool
}

// EditorService 负责加载、修改、保存页面草稿。
type EditorService struct {
	db        *gorm.DB
	backend   contentBackend
	cache     cacheInvalidator
	preview   *PreviewHub
	retention time.Duration
	now       func() time.Time
}

// NewEditorService 构造 EditorService。
func NewEditorService(gdb *gorm.DB, backend contentBackend, cache cacheInvalidator, preview *PreviewHub, retention time.Duration) *EditorService {
	return &EditorService{
		db:        gdb,
		backend:   backend,
		cache:     cache,
		preview:   preview,
		retention: retention,
		now:       time.Now,
	}
}

// Pages 返回仪表盘页面列表，核心页面总会出现。
func (s *EditorService) Pages(ctx context.Context, token string) ([]PageCard, error) {
	summaries, err := s.backend.ListPages(ctx, token)
	if err != nil {
		return nil, err
	}

	merged := content.MergeCorePages(summaries)
	cards := make([]PageCard, 0, len(merged))
	for _, summary := range merged {
		def := content.Describe(summary.PageSlug)
		_, editable := content.LookupPage(summary.PageSlug)
		cards = append(cards, PageCard{
			Slug:         summary.PageSlug,
			Label:        def.Label,
			Description:  def.Description,
			SectionCount: summary.SectionCount,
			Editable:     editable,
		})
	}
	return cards, nil
}

// Open 返回编辑工作区：存在未保存草稿时沿用草稿，否则从后端重新加载。
func (s *EditorService) Open(ctx context.Context, session, token, slug string) (Workspace, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" || strings.ContainsAny(slug, "/ ") {
		return Workspace{}, ErrInvalidPage
	}

	drafts, err := s.loadDrafts(session, slug)
	if err != nil {
		return Workspace{}, err
	}
	if hasDirty(drafts) {
		return s.workspaceFromDrafts(session, slug, drafts)
	}

	return s.reload(ctx, session, token, slug)
}

// Workspace 只从本地草稿构建工作区，不访问后端。
func (s *EditorService) Workspace(session, slug string) (Workspace, error) {
	drafts, err := s.loadDrafts(session, slug)
	if err != nil {
		return Workspace{}, err
	}
	return s.workspaceFromDrafts(session, slug, drafts)
}

func (s *EditorService) reload(ctx context.Context, session, token, slug string) (Workspace, error) {
	sections, err := s.backend.GetPage(ctx, token, slug)
	if err != nil {
		return Workspace{}, err
	}

	drafts := make([]db.SectionDraft, 0, len(sections))
	for _, section := range sections {
		key := strings.TrimSpace(section.SectionKey)
		if key == "" {
			continue
		}
		tagged := content.TagItems(section.Content, content.ListsFor(slug, key))
		encoded, err := json.Marshal(tagged)
		if err != nil {
			return Workspace{}, fmt.Errorf("encode section %s: %w", key, err)
		}
		drafts = append(drafts, db.SectionDraft{
			EditorSession: session,
			PageSlug:      slug,
			SectionKey:    key,
			SectionID:     section.ID,
			Content:       string(encoded),
			OrderIndex:    section.OrderIndex,
			IsActive:      section.IsActive,
		})
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("editor_session = ? AND page_slug = ?", session, slug).Delete(&db.SectionDraft{}).Error; err != nil {
			return err
		}
		for i := range drafts {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "editor_session"}, {Name: "page_slug"}, {Name: "section_key"}},
				UpdateAll: true,
			}).Create(&drafts[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Workspace{}, fmt.Errorf("store drafts for %s: %w", slug, err)
	}

	return s.workspaceFromDrafts(session, slug, drafts)
}

func (s *EditorService) loadDrafts(session, slug string) ([]db.SectionDraft, error) {
	var drafts []db.SectionDraft
	if err := s.db.Where("editor_session = ? AND page_slug = ?", session, slug).
		Order("order_index ASC").Order("section_id ASC").
		Find(&drafts).Error; err != nil {
		return nil, fmt.Errorf("load drafts for %s: %w", slug, err)
	}
	return drafts, nil
}

func hasDirty(drafts []db.SectionDraft) bool {
	for _, draft := range drafts {
		if draft.Dirty {
			return true
		}
	}
	return false
}

func (s *EditorService) workspaceFromDrafts(session, slug string, drafts []db.SectionDraft) (Workspace, error) {
	def := content.Describe(slug)
	byKey := make(map[string]DraftSection, len(drafts))
	for _, draft := range drafts {
		section, err := toDraftSection(def, draft)
		if err != nil {
			return Workspace{}, err
		}
		byKey[section.Key] = section
	}

	ordered := make([]DraftSection, 0, len(byKey))
	for _, key := range def.SectionKeys() {
		if section, ok := byKey[key]; ok {
			ordered = append(ordered, section)
			delete(byKey, key)
		}
	}
	for _, draft := range drafts {
		if section, ok := byKey[draft.SectionKey]; ok {
			ordered = append(ordered, section)
			delete(byKey, draft.SectionKey)
		}
	}

	return Workspace{Session: session, PageSlug: slug, Page: def, Sections: ordered}, nil
}

func toDraftSection(def content.PageDef, draft db.SectionDraft) (DraftSection, error) {
	var object content.Object
	if err := json.Unmarshal([]byte(draft.Content), &object); err != nil {
		return DraftSection{}, fmt.Errorf("decode draft %s: %w", draft.SectionKey, err)
	}
	sectionDef, known := def.Section(draft.SectionKey)
	if !known {
		sectionDef = content.SectionDef{Key: draft.SectionKey}
	}
	return DraftSection{
		Key:        draft.SectionKey,
		ID:         draft.SectionID,
		Content:    object,
		OrderIndex: draft.OrderIndex,
		IsActive:   draft.IsActive,
		Dirty:      draft.Dirty,
		Def:        sectionDef,
		Known:      known,
	}, nil
}

// mutate 读取一个草稿、应用修改并标记为 dirty，随后调度预览刷新。
func (s *EditorService) mutate(session, slug, key string, apply func(*DraftSection) error) (DraftSection, error) {
	var result DraftSection
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var draft db.SectionDraft
		err := tx.Where("editor_session = ? AND page_slug = ? AND section_key = ?", session, slug, key).
			First(&draft).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSectionNotFound
		}
		if err != nil {
			return err
		}

		section, err := toDraftSection(content.Describe(slug), draft)
		if err != nil {
			return err
		}
		if err := apply(&section); err != nil {
			return err
		}

		encoded, err := json.Marshal(section.Content)
		if err != nil {
			return fmt.Errorf("encode section %s: %w", key, err)
		}
		section.Dirty = true
		if err := tx.Model(&draft).Updates(map[string]any{
			"content":     string(encoded),
			"order_index": section.OrderIndex,
			"is_active":   section.IsActive,
			"dirty":       true,
		}).Error; err != nil {
			return err
		}
		result = section
		return nil
	})
	if err != nil {
		return DraftSection{}, err
	}

	s.schedulePreview(session, slug, key, "edit")
	return result, nil
}

func (s *EditorService) schedulePreview(session, slug, key, reason string) {
	if s.preview == nil {
		return
	}
	s.preview.Schedule(PreviewTopic(session, slug), PreviewEvent{PageSlug: slug, SectionKey: key, Reason: reason})
}

func (s *EditorService) listDef(section DraftSection, path string) (content.ListDef, error) {
	list, ok := section.Def.List(path)
	if !ok {
		return content.ListDef{}, fmt.Errorf("%w: %s", ErrUnknownList, path)
	}
	return list, nil
}

// UpdateField 按点号路径修改一个标量字段，例如 mission.title。
func (s *EditorService) UpdateField(session, slug, key, path string, value any) (DraftSection, error) {
	return s.mutate(session, slug, key, func(section *DraftSection) error {
		return content.SetPath(section.Content, path, value)
	})
}

// UpdateItem 修改列表中某一项的字段。
func (s *EditorService) UpdateItem(session, slug, key, list, itemID, field string, value any) (DraftSection, error) {
	return s.mutate(session, slug, key, func(section *DraftSection) error {
		if _, err := s.listDef(*section, list); err != nil {
			return err
		}
		return content.UpdateItemField(section.Content, list, itemID, field, value)
	})
}

// UpdateNestedString 修改字符串列表中的一项，例如 curricula.primary.features。
func (s *EditorService) UpdateNestedString(session, slug, key, list, itemID, text string) (DraftSection, error) {
	return s.UpdateItem(session, slug, key, list, itemID, "text", text)
}

// Edit is one field change from a submitted section form. An empty ItemID
// addresses a scalar at Path; otherwise Path is the list and Field the item key.
type Edit struct {
	Path   string
	ItemID string
	Field  string
	Value  any
}

// ApplyEdits 在同一事务里应用一个 section 表单的全部修改，只调度一次预览。
func (s *EditorService) ApplyEdits(session, slug, key string, edits []Edit) (DraftSection, error) {
	return s.mutate(session, slug, key, func(section *DraftSection) error {
		for _, edit := range edits {
			if edit.ItemID == "" {
				if err := content.SetPath(section.Content, edit.Path, edit.Value); err != nil {
					return err
				}
				continue
			}
			if _, err := s.listDef(*section, edit.Path); err != nil {
				return err
			}
			if err := content.UpdateItemField(section.Content, edit.Path, edit.ItemID, edit.Field, edit.Value); err != nil {
				return fmt.Errorf("%s[%s].%s: %w", edit.Path, edit.ItemID, edit.Field, err)
			}
		}
		return nil
	})
}

// AddItem 按模板追加一项并返回新项 id。
func (s *EditorService) AddItem(session, slug, key, list string) (DraftSection, string, error) {
	var id string
	section, err := s.mutate(session, slug, key, func(section *DraftSection) error {
		def, err := s.listDef(*section, list)
		if err != nil {
			return err
		}
		size := 0
		if existing, ok := content.GetPath(section.Content, list); ok {
			if items, ok := existing.([]any); ok {
				size = len(items)
			}
		}
		id, err = content.AppendItem(section.Content, list, def.NewItem(size))
		return err
	})
	return section, id, err
}

// RemoveItem 删除列表中的一项。
func (s *EditorService) RemoveItem(session, slug, key, list, itemID string) (DraftSection, error) {
	return s.mutate(session, slug, key, func(section *DraftSection) error {
		if _, err := s.listDef(*section, list); err != nil {
			return err
		}
		return content.RemoveItem(section.Content, list, itemID)
	})
}

// MoveItem 上移或下移列表中的一项。
func (s *EditorService) MoveItem(session, slug, key, list, itemID string, delta int) (DraftSection, error) {
	return s.mutate(session, slug, key, func(section *DraftSection) error {
		if _, err := s.listDef(*section, list); err != nil {
			return err
		}
		return content.MoveItem(section.Content, list, itemID, delta)
	})
}

// SetActive 切换 section 是否在公开页面显示。
func (s *EditorService) SetActive(session, slug, key string, active bool) (DraftSection, error) {
	return s.mutate(session, slug, key, func(section *DraftSection) error {
		section.IsActive = active
		return nil
	})
}

// SetOrder 修改 section 的 order_index。
func (s *EditorService) SetOrder(session, slug, key string, order int) (DraftSection, error) {
	return s.mutate(session, slug, key, func(section *DraftSection) error {
		if order < 0 {
			order = 0
		}
		section.OrderIndex = order
		return nil
	})
}

// SaveSection 去掉 _id 后 PUT 整个 section；没有后端 id 的 section 直接跳过。
// 只有草稿在请求期间没有再被修改时才清除 dirty。
func (s *EditorService) SaveSection(ctx context.Context, session, token, slug, key string) (bool, error) {
	var draft db.SectionDraft
	err := s.db.Where("editor_session = ? AND page_slug = ? AND section_key = ?", session, slug, key).
		First(&draft).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, ErrSectionNotFound
	}
	if err != nil {
		return false, err
	}
	if draft.SectionID == 0 {
		return false, nil
	}
	section, err := toDraftSection(content.Describe(slug), draft)
	if err != nil {
		return false, err
	}

	update := content.SectionUpdate{
		Content:    content.StripItems(section.Content, section.Def.Lists),
		OrderIndex: section.OrderIndex,
		IsActive:   section.IsActive,
	}
	if _, err := s.backend.UpdateSection(ctx, token, section.ID, update); err != nil {
		logger.Warn().Err(err).Str("page", slug).Str("section", key).Msg("save section failed")
		return false, err
	}

	result := s.db.Model(&db.SectionDraft{}).
		Where("id = ? AND content = ? AND order_index = ? AND is_active = ?", draft.ID, draft.Content, draft.OrderIndex, draft.IsActive).
		Update("dirty", false)
	if result.Error != nil {
		return true, fmt.Errorf("mark section %s saved: %w", key, result.Error)
	}
	if result.RowsAffected == 0 {
		logger.Info().Str("page", slug).Str("section", key).Msg("section edited while saving, keeping draft dirty")
	}

	if s.cache != nil {
		s.cache.Invalidate(slug)
	}
	logger.Info().Str("page", slug).Str("section", key).Uint("id", section.ID).Msg("section saved")
	return true, nil
}

// SaveAll 依次保存全部 section，遇到第一个错误即停止。
func (s *EditorService) SaveAll(ctx context.Context, session, token, slug string) (int, error) {
	workspace, err := s.Workspace(session, slug)
	if err != nil {
		return 0, err
	}
	saved := 0
	for _, section := range workspace.Sections {
		ok, err := s.SaveSection(ctx, session, token, slug, section.Key)
		if err != nil {
			return saved, fmt.Errorf("save section %s: %w", section.Key, err)
		}
		if ok {
			saved++
		}
	}
	return saved, nil
}

// Discard 丢弃该页面的本地草稿。
func (s *EditorService) Discard(session, slug string) error {
	if err := s.db.Where("editor_session = ? AND page_slug = ?", session, slug).
		Delete(&db.SectionDraft{}).Error; err != nil {
		return fmt.Errorf("discard drafts for %s: %w", slug, err)
	}
	s.schedulePreview(session, slug, "", "discard")
	return nil
}

// Seed 请求后端生成默认内容，并清理草稿与缓存。
func (s *EditorService) Seed(ctx context.Context, session, token, slug string) error {
	if err := s.backend.SeedPage(ctx, token, slug); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(slug)
	}
	return s.Discard(session, slug)
}

// PurgeStaleDrafts 删除超过保留期的草稿，返回删除条数。
func (s *EditorService) PurgeStaleDrafts() (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.retention)
	result := s.db.Where("updated_at < ?", cutoff).Delete(&db.SectionDraft{})
	if result.Error != nil {
		return 0, fmt.Errorf("purge drafts: %w", result.Error)
	}
	return result.RowsAffected, nil
}
