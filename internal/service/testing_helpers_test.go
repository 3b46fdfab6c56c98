package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/edunet/internal/content"
	"github.com/edunet/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter int64

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := fmt.Sprintf("file:service-%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	gdb, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

type fakeBackend struct {
	mu        sync.Mutex
	pages     map[string][]content.Section
	summaries []content.PageSummary
	updates   []content.SectionUpdate
	updateIDs []uint
	seeded    []string
	getErr    error
	updateErr map[uint]error
	getCalls  int
	onUpdate  func(id uint)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{pages: make(map[string][]content.Section), updateErr: make(map[uint]error)}
}

func (f *fakeBackend) ListPages(ctx context.Context, token string) ([]content.PageSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summaries, f.getErr
}

func (f *fakeBackend) GetPage(ctx context.Context, token, slug string) ([]content.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	sections := make([]content.Section, len(f.pages[slug]))
	for i, section := range f.pages[slug] {
		section.Content = content.Clone(section.Content)
		sections[i] = section
	}
	return sections, nil
}

func (f *fakeBackend) GetPublicPage(ctx context.Context, slug string) ([]content.Section, error) {
	return f.GetPage(ctx, "", slug)
}

func (f *fakeBackend) UpdateSection(ctx context.Context, token string, id uint, update content.SectionUpdate) (content.Section, error) {
	if f.onUpdate != nil {
		f.onUpdate(id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateErr[id]; err != nil {
		return content.Section{}, err
	}
	f.updates = append(f.updates, update)
	f.updateIDs = append(f.updateIDs, id)
	return content.Section{ID: id, Content: update.Content, OrderIndex: update.OrderIndex, IsActive: update.IsActive}, nil
}

func (f *fakeBackend) SeedPage(ctx context.Context, token, slug string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeded = append(f.seeded, slug)
	return nil
}

func aboutSections() []content.Section {
	return []content.Section{
		{ID: 1, PageSlug: "about", SectionKey: "hero", OrderIndex: 0, IsActive: true, Content: content.Object{"title": "Our Story"}},
		{ID: 2, PageSlug: "about", SectionKey: "timeline", OrderIndex: 2, IsActive: true, Content: content.Object{
			"title": "History",
			"events": []any{
				map[string]any{"year": "1990", "title": "Founded", "desc": "Opened doors"},
				map[string]any{"year": "2005", "title": "New campus"},
			},
		}},
		{ID: 3, PageSlug: "about", SectionKey: "mission_vision", OrderIndex: 1, IsActive: false, Content: content.Object{
			"mission": map[string]any{"title": "Mission"},
		}},
	}
}
