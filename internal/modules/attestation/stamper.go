package attestation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

const (
	LogoWidth  = 100
	LogoHeight = 50

	logoDesc  = "position:tr, offset:-20 -20, scalefactor:1 abs, rotation:0"
	labelDesc = "fontname:Helvetica, points:12, position:br, offset:-20 20, scalefactor:1 abs, rotation:0, fillcolor:#808080, aligntext:r"
)

var disablePdfcpuConfigDir sync.Once

// ErrNoLogo means no authority logo is configured. Nothing is stamped then.
var ErrNoLogo = errors.New("attestation: no logo configured")

type StamperConfig struct {
	LogoPath string
	Label    string
	Timeout  time.Duration
}

// Stamper overlays the institution logo and a verification label on every
// page of a PDF. It never fails: on any problem the input is returned as is.
type Stamper struct {
	label   string
	timeout time.Duration
	logo    []byte
	logoErr error
	log     *zap.Logger
	now     func() time.Time

	// apply is swapped in tests.
	apply func(pdf []byte, stampedAt time.Time) ([]byte, error)
}

func NewStamper(cfg StamperConfig, log *zap.Logger) *Stamper {
	disablePdfcpuConfigDir.Do(func() {
		model.ConfigPath = "disable"
	})

	s := &Stamper{
		label:   VerifiedLabel(cfg.Label),
		timeout: cfg.Timeout,
		log:     log.With(zap.String("service", "stamper")),
		now:     time.Now,
	}
	if cfg.LogoPath == "" {
		s.logoErr = ErrNoLogo
	} else {
		s.logo, s.logoErr = loadLogo(cfg.LogoPath)
	}
	if s.logoErr != nil {
		s.log.Warn("logo unavailable, documents will not be stamped",
			zap.String("path", cfg.LogoPath), zap.Error(s.logoErr))
	}
	s.apply = s.stamp
	return s
}

// Stamp returns the stamped PDF and true, or the original bytes and false.
func (s *Stamper) Stamp(ctx context.Context, pdf []byte) ([]byte, bool) {
	if s.logoErr != nil {
		return pdf, false
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	stampedAt := s.now().UTC()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("stamp panic: %v", r)}
			}
		}()
		out, err := s.apply(pdf, stampedAt)
		done <- result{out: out, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			s.log.Warn("stamping failed, keeping original", zap.Error(r.err))
			return pdf, false
		}
		return r.out, true
	case <-ctx.Done():
		s.log.Warn("stamping abandoned, keeping original", zap.Error(ctx.Err()))
		return pdf, false
	}
}

func (s *Stamper) stamp(pdf []byte, stampedAt time.Time) ([]byte, error) {
	if len(pdf) == 0 {
		return nil, errors.New("empty document")
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if len(s.logo) == 0 {
		return nil, ErrNoLogo
	}
	logo, err := api.ImageWatermarkForReader(bytes.NewReader(s.logo), logoDesc, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("logo stamp: %w", err)
	}
	cur, err := addWatermark(pdf, logo, conf)
	if err != nil {
		return nil, fmt.Errorf("apply logo: %w", err)
	}

	text := s.label + "\n" + "Verified: " + stampedAt.Format("2006-01-02")
	wm, err := api.TextWatermark(text, labelDesc, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("label stamp: %w", err)
	}
	if cur, err = addWatermark(cur, wm, conf); err != nil {
		return nil, fmt.Errorf("apply label: %w", err)
	}
	return cur, nil
}

func addWatermark(in []byte, wm *model.Watermark, conf *model.Configuration) ([]byte, error) {
	var out bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(in), &out, nil, wm, conf); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// loadLogo decodes a PNG or JPEG and re-encodes it as a LogoWidth x LogoHeight
// PNG, so an absolute scale factor of 1 renders it at that size in points.
func loadLogo(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode logo: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, LogoWidth, LogoHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode logo: %w", err)
	}
	return buf.Bytes(), nil
}

// VerifiedLabel builds the top text line from an authority name.
func VerifiedLabel(authority string) string {
	authority = strings.ToUpper(strings.TrimSpace(authority))
	if authority == "" {
		authority = "INSTITUTION"
	}
	if strings.HasSuffix(authority, " VERIFIED") {
		return authority
	}
	return authority + " VERIFIED"
}
