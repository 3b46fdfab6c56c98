// Package prerender 把公开页面渲染成静态 HTML，并可上传到 S3。
package prerender

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/edunet/internal/logger"
)

// DefaultRoutes 是需要预渲染的公开页面。
var DefaultRoutes = []string{"/", "/about", "/academics", "/admissions", "/facilities", "/contact", "/apply"}

// Page 记录一次渲染结果。
type Page struct {
	Route string
	File  string
	Bytes int
}

// OutputPath 返回路由对应的文件：/ → index.html，/about → about/index.html。
func OutputPath(outDir, route string) string {
	trimmed := strings.Trim(route, "/")
	if trimmed == "" {
		return filepath.Join(outDir, "index.html")
	}
	return filepath.Join(outDir, filepath.FromSlash(trimmed), "index.html")
}

// Render 通过 handler 在进程内请求每个路由，把 200 响应写入 outDir。
func Render(ctx context.Context, handler http.Handler, outDir string, routes []string) ([]Page, error) {
	if len(routes) == 0 {
		routes = DefaultRoutes
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	pages := make([]Page, 0, len(routes))
	for _, route := range routes {
		req := httptest.NewRequest(http.MethodGet, route, nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			return pages, fmt.Errorf("render %s: status %d", route, rec.Code)
		}

		file := OutputPath(outDir, route)
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return pages, fmt.Errorf("create dir for %s: %w", route, err)
		}
		if err := os.WriteFile(file, rec.Body.Bytes(), 0o644); err != nil {
			return pages, fmt.Errorf("write %s: %w", file, err)
		}

		logger.Info().Str("route", route).Str("file", file).Msg("pre-rendered")
		pages = append(pages, Page{Route: route, File: file, Bytes: rec.Body.Len()})
	}
	return pages, nil
}

// CopyStatic 把静态资源目录复制到 dst。
func CopyStatic(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
