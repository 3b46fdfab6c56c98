package sitecontent

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/edunet/internal/content"
)

// ListPages returns every page slug with its section count.
func (c *Client) ListPages(ctx context.Context, token string) ([]content.PageSummary, error) {
	var pages []content.PageSummary
	if err := c.do(ctx, request{method: http.MethodGet, path: "/site-content/pages", token: token}, &pages); err != nil {
		return nil, err
	}
	return pages, nil
}

// GetPage returns all sections of a page, inactive ones included.
func (c *Client) GetPage(ctx context.Context, token, slug string) ([]content.Section, error) {
	var sections []content.Section
	path := "/site-content/pages/" + url.PathEscape(strings.TrimSpace(slug))
	if err := c.do(ctx, request{method: http.MethodGet, path: path, token: token}, &sections); err != nil {
		return nil, err
	}
	content.SortSections(sections)
	return sections, nil
}

// GetPublicPage returns the active sections of a page without authentication.
func (c *Client) GetPublicPage(ctx context.Context, slug string) ([]content.Section, error) {
	var sections []content.Section
	path := "/site-content/public/" + url.PathEscape(strings.TrimSpace(slug))
	if err := c.do(ctx, request{method: http.MethodGet, path: path}, &sections); err != nil {
		return nil, err
	}
	content.SortSections(sections)
	return sections, nil
}

// UpdateSection PUTs {content, order_index, is_active} for one section.
func (c *Client) UpdateSection(ctx context.Context, token string, id uint, update content.SectionUpdate) (content.Section, error) {
	if update.Content == nil {
		update.Content = content.Object{}
	}
	var section content.Section
	path := fmt.Sprintf("/site-content/sections/%d", id)
	if err := c.do(ctx, request{method: http.MethodPut, path: path, token: token, body: update}, &section); err != nil {
		return content.Section{}, err
	}
	return section, nil
}

// SeedPage asks the backend to create default sections for a page.
func (c *Client) SeedPage(ctx context.Context, token, slug string) error {
	path := "/site-content/seed/" + url.PathEscape(strings.TrimSpace(slug))
	return c.do(ctx, request{method: http.MethodPost, path: path, token: token}, nil)
}
