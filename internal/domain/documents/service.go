package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/medinexus/twin/internal/domain/twin"
	"github.com/medinexus/twin/internal/platform/blobstore"
	"github.com/medinexus/twin/pkg/apperr"
)

// EventRecorder appends the document event after a record is committed.
type EventRecorder interface {
	Record(ctx context.Context, userID, recordID uuid.UUID, timestamp time.Time, payload twin.Payload) twin.WriteOutcome
}

// Analyzer is the language-model surface used for summaries and image
// verdicts. Any failure means the fallback result is stored instead;
// the document record itself is never rolled back.
type Analyzer interface {
	Enabled() bool
	Complete(ctx context.Context, system, user string) (string, error)
	CompleteJSON(ctx context.Context, system, user string, out interface{}) error
}

type Service struct {
	docs   Repository
	events EventRecorder
	ai     Analyzer
	blobs  blobstore.Store
}

func NewService(docs Repository, events EventRecorder, ai Analyzer, blobs blobstore.Store) *Service {
	return &Service{docs: docs, events: events, ai: ai, blobs: blobs}
}

type CreateInput struct {
	Title   string `json:"title"`
	DocType string `json:"doc_type"`
	Content string `json:"content"`
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*Document, twin.WriteOutcome, error) {
	if userID == uuid.Nil {
		return nil, twin.WriteOutcome{}, apperr.Validation("user_id is required")
	}
	var missing []string
	if in.Title == "" {
		missing = append(missing, "title")
	}
	if in.DocType == "" {
		missing = append(missing, "doc_type")
	}
	if len(missing) > 0 {
		return nil, twin.WriteOutcome{}, apperr.Validation("missing required fields", missing...)
	}

	doc := &Document{
		UserID:        userID,
		Title:         in.Title,
		DocType:       in.DocType,
		SummaryStatus: SummaryStatusNone,
	}
	if in.Content != "" {
		doc.Content = &in.Content
		summary, err := s.summarize(ctx, in.Title, in.DocType, in.Content)
		if err != nil {
			fallback := FallbackSummary
			doc.Summary = &fallback
			doc.SummaryStatus = SummaryStatusUnanalyzed
		} else {
			doc.Summary = &summary
			doc.SummaryStatus = SummaryStatusSummarized
		}
	}

	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, twin.WriteOutcome{}, err
	}

	outcome := s.events.Record(ctx, userID, doc.ID, doc.CreatedAt, twin.DocumentPayload{
		DocumentID: doc.ID,
		Title:      doc.Title,
		DocType:    doc.DocType,
	})
	return doc, outcome, nil
}

func (s *Service) summarize(ctx context.Context, title, docType, content string) (string, error) {
	if s.ai == nil || !s.ai.Enabled() {
		return "", errors.New("summarization is not configured")
	}
	system := "You are a medical assistant. Summarize patient documents in plain, non-alarming language."
	user := fmt.Sprintf("Summarize this medical document in two to three sentences.\n\nTitle: %s\nType: %s\n\n%s",
		title, docType, content)
	return s.ai.Complete(ctx, system, user)
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Document, error) {
	return s.docs.GetByID(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, docType string, limit, offset int) ([]*Document, int, error) {
	return s.docs.List(ctx, userID, docType, limit, offset)
}

// Delete removes the document record and its attachment. Timeline
// events that reference the document are kept; history is append-only
// and a deleted record leaves its events behind.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	doc, err := s.docs.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	if doc.FileID != nil {
		if err := s.blobs.Delete(ctx, *doc.FileID); err != nil && !errors.Is(err, blobstore.ErrBlobNotFound) {
			return apperr.Persistence("delete document attachment", err)
		}
	}
	return s.docs.Delete(ctx, userID, id)
}

// AttachFile stores the uploaded content in the blob store and links it
// to the document, replacing any previous attachment.
func (s *Service) AttachFile(ctx context.Context, userID, docID uuid.UUID, fileName, contentType string, content io.Reader) (*Document, error) {
	doc, err := s.docs.GetByID(ctx, userID, docID)
	if err != nil {
		return nil, err
	}

	meta, err := s.blobs.Upload(ctx, blobstore.BlobMetadata{
		FileName:    fileName,
		ContentType: contentType,
		OwnerID:     userID.String(),
	}, content)
	if err != nil {
		switch {
		case errors.Is(err, blobstore.ErrFileTooLarge),
			errors.Is(err, blobstore.ErrInvalidContentType),
			errors.Is(err, blobstore.ErrMissingFileName):
			return nil, apperr.Validation(err.Error(), "file")
		default:
			return nil, apperr.Persistence("store document attachment", err)
		}
	}

	if doc.FileID != nil {
		_ = s.blobs.Delete(ctx, *doc.FileID)
	}
	doc.FileID = &meta.ID
	doc.FileName = &meta.FileName
	if err := s.docs.Update(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// DownloadFile returns the attachment content and its metadata.
func (s *Service) DownloadFile(ctx context.Context, userID, docID uuid.UUID) (io.ReadCloser, *blobstore.BlobMetadata, error) {
	doc, err := s.docs.GetByID(ctx, userID, docID)
	if err != nil {
		return nil, nil, err
	}
	if doc.FileID == nil {
		return nil, nil, apperr.NotFound("document attachment")
	}
	rc, meta, err := s.blobs.Download(ctx, *doc.FileID)
	if errors.Is(err, blobstore.ErrBlobNotFound) {
		return nil, nil, apperr.NotFound("document attachment")
	}
	if err != nil {
		return nil, nil, apperr.Persistence("download document attachment", err)
	}
	return rc, meta, nil
}

// AnalyzeImage produces a verdict for the document's attached image and
// stores it on the record. A failed provider call stores the fallback
// verdict instead of an error.
func (s *Service) AnalyzeImage(ctx context.Context, userID, docID uuid.UUID) (*Document, error) {
	doc, err := s.docs.GetByID(ctx, userID, docID)
	if err != nil {
		return nil, err
	}
	if doc.FileID == nil {
		return nil, apperr.Validation("document has no attached file to analyze", "file")
	}

	now := time.Now().UTC()
	verdict, err := s.analyzeImage(ctx, doc)
	if err != nil {
		doc.Analysis = FallbackAnalysis(now)
	} else {
		verdict.Status = AnalysisStatusAnalyzed
		verdict.AnalyzedAt = now
		doc.Analysis = verdict
	}

	if err := s.docs.Update(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Service) analyzeImage(ctx context.Context, doc *Document) (*ImageAnalysis, error) {
	if s.ai == nil || !s.ai.Enabled() {
		return nil, errors.New("image analysis is not configured")
	}

	fileName := ""
	if doc.FileName != nil {
		fileName = *doc.FileName
	}
	content := ""
	if doc.Content != nil {
		content = *doc.Content
	}

	system := `You are a radiology assistant reviewing a patient-uploaded medical image. ` +
		`Reply with JSON only: {"findings": ["..."], "impression": "...", "recommendations": ["..."]}.`
	user := fmt.Sprintf("Analyze the medical image attached to this document.\n\nTitle: %s\nType: %s\nFile: %s\n\nContext:\n%s",
		doc.Title, doc.DocType, fileName, content)

	var verdict ImageAnalysis
	if err := s.ai.CompleteJSON(ctx, system, user, &verdict); err != nil {
		return nil, err
	}
	if verdict.Findings == nil {
		verdict.Findings = []string{}
	}
	if verdict.Recommendations == nil {
		verdict.Recommendations = []string{}
	}
	return &verdict, nil
}
