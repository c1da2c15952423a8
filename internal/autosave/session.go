package autosave

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"careerDesk/internal/metrics"
	"careerDesk/internal/resume"
)

// DefaultDelay 是编辑静默多久后触发保存。
const DefaultDelay = 2 * time.Second

// SaveRequest 是一次保存尝试的输入。ResumeID 为空表示首次保存；
// PhotoChanged 为 false 时头像字段不随请求发送。
type SaveRequest struct {
	IdentityID   string
	ResumeID     string
	Draft        Draft
	PhotoChanged bool
}

// Saver 执行新建或更新。
type Saver interface {
	Save(ctx context.Context, req SaveRequest) (*resume.Resume, error)
}

// Locator 读写可寻址的 resumeId 参数，替换时不产生新的历史记录。
type Locator interface {
	ResumeID() string
	ReplaceResumeID(id string)
}

// Notifier 展示短暂的保存结果提示。
type Notifier interface {
	Saved(r *resume.Resume)
	Failed(err error)
}

type Option func(*Session)

func WithDelay(d time.Duration) Option {
	return func(s *Session) { s.delay = d }
}

func WithNotifier(n Notifier) Option {
	return func(s *Session) { s.notifier = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// Session 让远端简历与编辑中的草稿最终一致：
// 防抖、与上次保存的快照比较、串行地新建或更新、同步 resumeId。
type Session struct {
	identityID string
	saver      Saver
	locator    Locator
	notifier   Notifier
	logger     *slog.Logger
	delay      time.Duration
	debouncer  *Debouncer[Draft]

	mu        sync.Mutex
	current   Draft
	lastSaved Draft
	debounced *Draft
	resumeID  string
	saving    bool
	failed    bool
	closed    bool
	inflight  sync.WaitGroup
}

// NewSession 以 initial 作为已保存快照开始一个编辑会话；
// locator 中已有的 resumeId 会作为后续更新的目标。
func NewSession(identityID string, initial Draft, saver Saver, locator Locator, opts ...Option) *Session {
	s := &Session{
		identityID: identityID,
		saver:      saver,
		locator:    locator,
		logger:     slog.Default(),
		delay:      DefaultDelay,
		current:    initial.Clone(),
		lastSaved:  initial.Clone(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = LogNotifier{Logger: s.logger}
	}
	if locator != nil {
		s.resumeID = locator.ResumeID()
	}
	s.debouncer = NewDebouncer(s.delay, s.onDebounced)
	return s
}

// Update 记录一次编辑并重新开始防抖计时。
func (s *Session) Update(d Draft) {
	snapshot := d.Clone()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.current = snapshot
	s.mu.Unlock()
	s.debouncer.Push(snapshot.Clone())
}

// HasUnsavedChanges 实时比较当前草稿与上次保存的快照。
func (s *Session) HasUnsavedChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !Equal(s.current, s.lastSaved)
}

func (s *Session) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

// Failed 报告最近一次保存是否失败；下一次防抖触发时清除。
func (s *Session) Failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

func (s *Session) ResumeID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resumeID
}

// Close 取消待触发的保存并等待进行中的请求结束，不再处理之后的编辑。
func (s *Session) Close() {
	s.debouncer.Stop()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.inflight.Wait()
}

func (s *Session) onDebounced(d Draft) {
	s.mu.Lock()
	s.failed = false
	s.debounced = &d
	req, ok := s.nextLocked()
	s.mu.Unlock()
	if ok {
		s.run(req)
	}
}

// nextLocked 决定是否发起保存；调用方持有 mu。
func (s *Session) nextLocked() (SaveRequest, bool) {
	if s.closed || s.saving || s.failed || s.debounced == nil {
		return SaveRequest{}, false
	}
	snapshot := *s.debounced
	if Equal(snapshot, s.lastSaved) {
		metrics.AutosaveOutcome("skipped")
		return SaveRequest{}, false
	}
	s.saving = true
	s.inflight.Add(1)
	return SaveRequest{
		IdentityID:   s.identityID,
		ResumeID:     s.resumeID,
		Draft:        snapshot,
		PhotoChanged: PhotoChanged(s.lastSaved, snapshot),
	}, true
}

// run 串行执行保存；成功后若已有更新的防抖值则立即继续。
func (s *Session) run(req SaveRequest) {
	for {
		saved, err := s.saver.Save(context.Background(), req)

		s.mu.Lock()
		s.saving = false
		s.inflight.Done()
		if err != nil {
			s.failed = true
			s.mu.Unlock()
			metrics.AutosaveOutcome("failed")
			s.logger.Warn("autosave failed", slog.String("resume_id", req.ResumeID), slog.Any("error", err))
			s.notifier.Failed(err)
			return
		}

		s.resumeID = saved.ID
		s.lastSaved = req.Draft
		if s.locator != nil && s.locator.ResumeID() != saved.ID {
			s.locator.ReplaceResumeID(saved.ID)
		}
		next, ok := s.nextLocked()
		s.mu.Unlock()

		metrics.AutosaveOutcome("saved")
		s.notifier.Saved(saved)
		if !ok {
			return
		}
		req = next
	}
}

// LogNotifier 把保存结果写入日志。
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Saved(r *resume.Resume) {
	n.Logger.Info("resume saved", slog.String("resume_id", r.ID))
}

func (n LogNotifier) Failed(err error) {
	n.Logger.Error("resume save failed", slog.Any("error", err))
}
