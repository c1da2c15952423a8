package autosave

import (
	"fmt"
	"net/url"
	"sync"
)

// ResumeIDParam 是地址中保存简历 ID 的查询参数。
const ResumeIDParam = "resumeId"

// URLLocator 维护一个编辑页地址，就地改写其中的 resumeId，保留其它参数。
type URLLocator struct {
	mu       sync.Mutex
	u        *url.URL
	onChange func(string)
}

// NewURLLocator 解析地址；onChange 在每次改写后收到新地址，可为 nil。
func NewURLLocator(raw string, onChange func(string)) (*URLLocator, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse editor address: %w", err)
	}
	return &URLLocator{u: u, onChange: onChange}, nil
}

func (l *URLLocator) ResumeID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.u.Query().Get(ResumeIDParam)
}

// ReplaceResumeID 改写参数，不记录历史。
func (l *URLLocator) ReplaceResumeID(id string) {
	l.mu.Lock()
	q := l.u.Query()
	q.Set(ResumeIDParam, id)
	l.u.RawQuery = q.Encode()
	addr := l.u.String()
	l.mu.Unlock()

	if l.onChange != nil {
		l.onChange(addr)
	}
}

func (l *URLLocator) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.u.String()
}
