package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/ComplianceRelish/lexassist-backend/internal/logger"
)

// DocumentExtractService OCRs scanned filings and classifies the document
// kind. Like transcription, the extracted text is appended to the brief and
// treated as typed input from then on.
type DocumentExtractService interface {
	ExtractDocument(ctx context.Context, data []byte, mimeType string) (*ExtractionResult, error)
	Close() error
}

type ExtractionResult struct {
	Text           string `json:"text"`
	Classification string `json:"classification"`
	Pages          int    `json:"pages"`
}

type documentExtractService struct {
	log       *logger.Logger
	client    *documentai.DocumentProcessorClient
	processor string
}

func NewDocumentExtractService(ctx context.Context, baseLog *logger.Logger) (DocumentExtractService, error) {
	processor := strings.TrimSpace(os.Getenv("DOCAI_PROCESSOR"))
	if processor == "" {
		return nil, fmt.Errorf("missing DOCAI_PROCESSOR")
	}

	var opts []option.ClientOption
	if creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")); creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	endpoint := strings.TrimSpace(os.Getenv("DOCAI_ENDPOINT"))
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}

	return &documentExtractService{
		log:       baseLog.With("service", "DocumentExtractService"),
		client:    client,
		processor: processor,
	}, nil
}

func (s *documentExtractService) ExtractDocument(ctx context.Context, data []byte, mimeType string) (*ExtractionResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	if mimeType == "" {
		mimeType = "application/pdf"
	}

	resp, err := s.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: s.processor,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: mimeType,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("documentai process: %w", err)
	}

	doc := resp.GetDocument()
	text := strings.TrimSpace(doc.GetText())
	if text == "" {
		return nil, fmt.Errorf("no text extracted")
	}

	out := &ExtractionResult{
		Text:           text,
		Classification: classifyLegalDocument(text),
		Pages:          len(doc.GetPages()),
	}
	s.log.Debug("document extraction complete", "chars", len(out.Text), "pages", out.Pages, "classification", out.Classification)
	return out, nil
}

// classifyLegalDocument labels the document kind from its text. Coarse on
// purpose; the label is display metadata, not an input to analysis.
func classifyLegalDocument(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "first information report") || strings.Contains(lower, "f.i.r"):
		return "fir"
	case strings.Contains(lower, "affidavit"):
		return "affidavit"
	case strings.Contains(lower, "writ petition") || strings.Contains(lower, "petition"):
		return "petition"
	case strings.Contains(lower, "legal notice") || strings.Contains(lower, "notice to quit"):
		return "notice"
	case strings.Contains(lower, "agreement") || strings.Contains(lower, "deed"):
		return "agreement"
	case strings.Contains(lower, "judgment") || strings.Contains(lower, "judgement") || strings.Contains(lower, "order"):
		return "judgment"
	default:
		return "other"
	}
}

func (s *documentExtractService) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
