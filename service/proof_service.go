package service

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"mymerch/catalog"
	"mymerch/logger"
	"mymerch/models"
	"mymerch/storage"
)

//go:embed templates/order_proof.html
var orderProofTemplate string

var proofTemplate = template.Must(template.New("order_proof").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(orderProofTemplate))

// ProofService renders a printable proof sheet of an order for the
// fulfillment team
type ProofService struct {
	images     storage.ImageServer
	publicPath string
	chromePath string
	timeout    time.Duration
	log        *zap.Logger
}

// NewProofService creates a new ProofService. images may be nil when the
// previews live in an external store.
func NewProofService(images storage.ImageServer, publicPath, chromePath string, timeout time.Duration, log *zap.Logger) *ProofService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ProofService{
		images:     images,
		publicPath: publicPath,
		chromePath: chromePath,
		timeout:    timeout,
		log:        logger.OrNop(log),
	}
}

type proofMockup struct {
	models.OrderMockup
	Image template.URL
}

// RenderProofHTML renders the proof sheet. Previews kept by this process are
// inlined as data URLs so the page has no outside requests.
func (s *ProofService) RenderProofHTML(ctx context.Context, order *models.Order) (string, error) {
	mockups := make([]proofMockup, 0, len(order.Mockups))
	for _, m := range order.Mockups {
		mockups = append(mockups, proofMockup{OrderMockup: m, Image: s.previewURL(ctx, m.PreviewImage)})
	}

	data := struct {
		Order     *models.Order
		Mockups   []proofMockup
		CreatedAt string
	}{
		Order:     order,
		Mockups:   mockups,
		CreatedAt: order.CreatedAt.UTC().Format("2006-01-02 15:04 MST"),
	}

	var buf bytes.Buffer
	if err := proofTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

func (s *ProofService) previewURL(ctx context.Context, ref string) template.URL {
	switch {
	case ref == "":
		return ""
	case s.images != nil && s.publicPath != "" && strings.HasPrefix(ref, s.publicPath):
		data, contentType, err := s.images.Open(ctx, strings.TrimPrefix(ref, s.publicPath))
		if err != nil {
			s.log.Warn("⚠️  RenderProofHTML: preview not found", zap.String("ref", ref), zap.Error(err))
			return ""
		}
		return template.URL(catalog.EncodeDataURL(contentType, data))
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return template.URL(ref)
	default:
		// s3:// and other references are not viewable from a browser
		return ""
	}
}

// GeneratePDF prints the proof sheet of order with headless Chrome
func (s *ProofService) GeneratePDF(ctx context.Context, order *models.Order) ([]byte, error) {
	html, err := s.RenderProofHTML(ctx, order)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox, // Required for running in Docker/containers
	)
	if chromePath := s.detectChromePath(); chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	chromedpCtx, chromedpCancel := chromedp.NewContext(allocCtx)
	defer chromedpCancel()

	s.log.Info("📄 GeneratePDF: printing order proof", zap.String("orderId", order.ID), zap.Int("mockups", len(order.Mockups)))

	var pdfBuf []byte
	err = chromedp.Run(chromedpCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			// A4 in inches
			pdfBuf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		s.log.Error("❌ GeneratePDF: failed", zap.String("orderId", order.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	s.log.Info("✓ GeneratePDF: proof ready", zap.String("orderId", order.ID), zap.Int("bytes", len(pdfBuf)))
	return pdfBuf, nil
}

// detectChromePath returns the configured Chrome path, or the first common
// install location that exists. "" lets chromedp search PATH.
func (s *ProofService) detectChromePath() string {
	candidates := []string{
		s.chromePath,
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/snap/bin/chromium",
	}
	for _, path := range candidates {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
