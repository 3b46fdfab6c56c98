package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/edunet/internal/content"
	"github.com/edunet/internal/logger"
)

// ErrPageEmpty 表示页面没有任何可展示的 section。
var ErrPageEmpty = errors.New("no content available for this page")

type publicSource interface {
	GetPublicPage(ctx context.Context, slug string) ([]content.Section, error)
}

// PublicPage is a page ready to render: active sections in order plus the keyed view.
type PublicPage struct {
	Slug     string
	Def      content.PageDef
	Sections []content.Section
	Data     content.PageData
}

// Keys returns the section keys to render, in page order, skipping absent ones.
// Keys the page definition does not know are appended in backend order.
func (p PublicPage) Keys() []string {
	keys := make([]string, 0, len(p.Data))
	seen := make(map[string]struct{}, len(p.Data))
	for _, key := range p.Def.SectionKeys() {
		if p.Data.Has(key) {
			keys = append(keys, key)
			seen[key] = struct{}{}
		}
	}
	for _, section := range p.Sections {
		if _, ok := seen[section.SectionKey]; ok || !p.Data.Has(section.SectionKey) {
			continue
		}
		seen[section.SectionKey] = struct{}{}
		keys = append(keys, section.SectionKey)
	}
	return keys
}

type cacheEntry struct {
	page    PublicPage
	expires time.Time
}

// PageService 为公开页面提供按 slug 的 TTL 缓存。
type PageService struct {
	source  publicSource
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewPageService 构造 PageService；ttl 为 0 时不缓存。
func NewPageService(source publicSource, ttl time.Duration) *PageService {
	return &PageService{
		source:  source,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// Load 返回公开页面内容，错误结果不会进入缓存。
func (s *PageService) Load(ctx context.Context, slug string) (PublicPage, error) {
	slug = strings.TrimSpace(slug)
	if page, ok := s.cached(slug); ok {
		return page, nil
	}

	sections, err := s.source.GetPublicPage(ctx, slug)
	if err != nil {
		return PublicPage{}, err
	}

	active := make([]content.Section, 0, len(sections))
	for _, section := range sections {
		if section.IsActive {
			active = append(active, section)
		}
	}
	if len(active) == 0 {
		return PublicPage{}, ErrPageEmpty
	}
	content.SortSections(active)

	page := BuildPublicPage(slug, active)
	s.store(slug, page)
	return page, nil
}

// BuildPublicPage keys sections and normalises legacy list names for rendering.
func BuildPublicPage(slug string, sections []content.Section) PublicPage {
	data := content.Keyed(sections)
	for key, object := range data {
		if lists := content.ListsFor(slug, key); len(lists) > 0 {
			normalized := content.Clone(object)
			content.NormalizeLegacy(normalized, lists)
			data[key] = normalized
		}
	}
	return PublicPage{
		Slug:     slug,
		Def:      content.Describe(slug),
		Sections: sections,
		Data:     data,
	}
}

// Chrome 返回页头与页脚内容；任一加载失败时返回空数据以保证页面仍可渲染。
func (s *PageService) Chrome(ctx context.Context) (header, footer content.PageData) {
	header = content.PageData{}
	footer = content.PageData{}
	if page, err := s.Load(ctx, "header"); err == nil {
		header = page.Data
	} else {
		logger.Debug().Err(err).Str("page", "header").Msg("site header unavailable")
	}
	if page, err := s.Load(ctx, "footer"); err == nil {
		footer = page.Data
	} else {
		logger.Debug().Err(err).Str("page", "footer").Msg("site footer unavailable")
	}
	return header, footer
}

// Invalidate 清除某个 slug 的缓存；保存或 seed 后调用。
func (s *PageService) Invalidate(slug string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, strings.TrimSpace(slug))
}

func (s *PageService) cached(slug string) (PublicPage, bool) {
	if s.ttl <= 0 {
		return PublicPage{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[slug]
	if !ok {
		return PublicPage{}, false
	}
	if !s.now().Before(entry.expires) {
		delete(s.entries, slug)
		return PublicPage{}, false
	}
	return entry.page, true
}

func (s *PageService) store(slug string, page PublicPage) {
	if s.ttl <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[slug] = cacheEntry{page: page, expires: s.now().Add(s.ttl)}
}
