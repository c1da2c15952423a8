// Command editor 监听本地草稿文件，按防抖节奏把修改自动保存到简历接口。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"

	"careerDesk/internal/autosave"
	"careerDesk/internal/client"
	"careerDesk/internal/config"
)

func main() {
	_ = godotenv.Load()

	var (
		file       = flag.String("file", "draft.json", "草稿 JSON 文件")
		identityID = flag.String("identity", os.Getenv("EDITOR_IDENTITY_ID"), "身份 ID（必填）")
		apiBase    = flag.String("api", envOr("BACKEND_BASE_URL", "http://localhost:8080"), "API 地址")
		resumeID   = flag.String("resume", "", "要继续编辑的简历 ID")
		token      = flag.String("token", os.Getenv("EDITOR_SESSION_TOKEN"), "会话令牌")
		delay      = flag.Duration("delay", autosave.DefaultDelay, "防抖间隔")
	)
	flag.Parse()

	logger := config.LogConfig{Level: envOr("LOG_LEVEL", "info"), Format: envOr("LOG_FORMAT", "text")}.NewLogger(os.Stderr)
	if strings.TrimSpace(*identityID) == "" {
		log.Fatal("missing required flag: --identity")
	}

	draftPath, err := filepath.Abs(*file)
	if err != nil {
		log.Fatalf("resolve draft path: %v", err)
	}
	locator, err := openLocator(draftPath+".address", *resumeID, logger)
	if err != nil {
		log.Fatalf("open address: %v", err)
	}

	api := client.New(*apiBase, client.WithToken(*token))

	// 已有简历时以服务端内容作为已保存快照，否则从空白开始。
	var initial autosave.Draft
	if id := locator.ResumeID(); id != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		r, err := api.Get(ctx, *identityID, id)
		cancel()
		if err != nil {
			log.Fatalf("load resume %s: %v", id, err)
		}
		initial = fromResume(r)
	}

	session := autosave.NewSession(*identityID, initial, api, locator,
		autosave.WithDelay(*delay),
		autosave.WithLogger(logger),
	)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Fatalf("create watcher: %v", err)
	}
	defer watcher.Close()
	// 监听目录：很多编辑器保存时会替换文件。
	if err := watcher.Add(filepath.Dir(draftPath)); err != nil {
		log.Fatalf("watch %s: %v", filepath.Dir(draftPath), err)
	}

	// photo 记录最近一次读到的头像，草稿未提及头像时保持不变。
	photo := initial.Photo
	feed := func() {
		d, err := loadDraft(draftPath, photo)
		if err != nil {
			logger.Warn("skip unreadable draft", slog.Any("error", err))
			return
		}
		photo = d.Photo
		session.Update(d)
	}
	if _, err := os.Stat(draftPath); err == nil {
		feed()
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	logger.Info("editor watching", slog.String("file", draftPath), slog.String("address", locator.String()))
	warned := false
	for {
		select {
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != draftPath || !evt.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			warned = false
			feed()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Error("watcher error", slog.Any("error", err))
		case <-sigCh:
			if session.HasUnsavedChanges() && !warned {
				fmt.Fprintln(os.Stderr, "有尚未保存的修改，再按一次 Ctrl+C 放弃并退出。")
				warned = true
				continue
			}
			session.Close()
			return
		}
	}
}

// openLocator 从草稿旁的地址文件恢复 resumeId，并在每次改写后写回。
func openLocator(path, resumeID string, logger *slog.Logger) (*autosave.URLLocator, error) {
	addr := "careerdesk://editor/resume"
	raw, err := os.ReadFile(path)
	switch {
	case err == nil && strings.TrimSpace(string(raw)) != "":
		addr = strings.TrimSpace(string(raw))
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	persist := func(a string) {
		if err := os.WriteFile(path, []byte(a+"\n"), 0o644); err != nil {
			logger.Warn("persist address failed", slog.Any("error", err))
		}
	}
	loc, err := autosave.NewURLLocator(addr, persist)
	if err != nil {
		return nil, err
	}
	if resumeID != "" && loc.ResumeID() != resumeID {
		loc.ReplaceResumeID(resumeID)
	}
	return loc, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
