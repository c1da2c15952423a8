package photo

import (
	"bytes"
	"fmt"

	"github.com/dutchcoders/go-clamd"

	"careerDesk/internal/errcode"
)

// ClamdScanner 通过 clamd 守护进程扫描上传内容。
type ClamdScanner struct {
	addr string
}

func NewClamdScanner(addr string) *ClamdScanner {
	return &ClamdScanner{addr: addr}
}

// Scan 发现恶意内容时返回 BadRequest，扫描服务不可用时返回 Internal。
func (s *ClamdScanner) Scan(data []byte) error {
	client := clamd.NewClamd(s.addr)

	abortChan := make(chan bool)
	defer close(abortChan)

	scanChan, err := client.ScanStream(bytes.NewReader(data), abortChan)
	if err != nil {
		return errcode.Internal(fmt.Errorf("scan photo: %w", err))
	}

	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			return errcode.BadRequest("malicious file detected")
		}
	}
	return nil
}
