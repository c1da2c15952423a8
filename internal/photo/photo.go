package photo

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"careerDesk/internal/config"
	"careerDesk/internal/errcode"
)

var allowedTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// Image 是解码并校验后的头像。
type Image struct {
	Data        []byte
	ContentType string
	Ext         string
}

// Scanner 在上传前检查文件内容。
type Scanner interface {
	Scan(data []byte) error
}

// Processor 负责把请求里的编码头像转换为可上传的字节。
type Processor struct {
	maxBytes     int64
	maxDimension int
	scanner      Scanner
}

// NewProcessor 按配置构造 Processor；配置了 CLAMD_ADDR 时启用病毒扫描。
func NewProcessor(cfg config.PhotoConfig) *Processor {
	p := &Processor{maxBytes: cfg.MaxBytes, maxDimension: cfg.MaxDimension}
	if strings.TrimSpace(cfg.ClamdAddr) != "" {
		p.scanner = NewClamdScanner(cfg.ClamdAddr)
	}
	return p
}

// WithScanner 替换扫描器，便于测试。
func (p *Processor) WithScanner(s Scanner) *Processor {
	p.scanner = s
	return p
}

// Decode 解析 data URL 或裸 base64 字符串。
// 非图片编码、超限或扫描未通过时返回 BadRequest。
func (p *Processor) Decode(payload string) (*Image, error) {
	raw := strings.TrimSpace(payload)
	if strings.HasPrefix(raw, "data:") {
		comma := strings.IndexByte(raw, ',')
		if comma < 0 || !strings.HasSuffix(raw[:comma], ";base64") {
			return nil, errcode.BadRequest("photo must be a base64 data url")
		}
		raw = raw[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(raw); err != nil {
			return nil, errcode.BadRequest("photo is not valid base64")
		}
	}
	if len(data) == 0 {
		return nil, errcode.BadRequest("photo is empty")
	}
	if p.maxBytes > 0 && int64(len(data)) > p.maxBytes {
		return nil, errcode.BadRequest(fmt.Sprintf("photo must be at most %d bytes", p.maxBytes))
	}

	mtype := mimetype.Detect(data)
	ext, ok := allowedTypes[mtype.String()]
	if !ok {
		return nil, errcode.BadRequest("photo must be a png, jpeg, webp or gif image")
	}

	if p.scanner != nil {
		if err := p.scanner.Scan(data); err != nil {
			return nil, err
		}
	}

	img := &Image{Data: data, ContentType: mtype.String(), Ext: ext}
	if err := p.downscale(img); err != nil {
		return nil, errcode.BadRequest(err.Error())
	}
	return img, nil
}

// downscale 只处理 png/jpeg，其它格式原样保留。
func (p *Processor) downscale(img *Image) error {
	if p.maxDimension <= 0 || (img.Ext != "png" && img.Ext != "jpg") {
		return nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return fmt.Errorf("decode photo header: %w", err)
	}
	if cfg.Width <= p.maxDimension && cfg.Height <= p.maxDimension {
		return nil
	}

	src, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return fmt.Errorf("decode photo: %w", err)
	}

	w, h := fitWithin(cfg.Width, cfg.Height, p.maxDimension)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	switch img.Ext {
	case "jpg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85})
	default:
		err = png.Encode(&buf, dst)
	}
	if err != nil {
		return fmt.Errorf("encode photo: %w", err)
	}
	img.Data = buf.Bytes()
	return nil
}

func fitWithin(w, h, limit int) (int, int) {
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}
