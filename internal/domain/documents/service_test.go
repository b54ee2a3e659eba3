package documents

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medinexus/twin/internal/domain/twin"
	"github.com/medinexus/twin/internal/platform/blobstore"
	"github.com/medinexus/twin/pkg/apperr"
)

// -- Mocks --

type mockRepo struct {
	items     map[uuid.UUID]*Document
	createErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Document)}
}

func (m *mockRepo) Create(_ context.Context, d *Document) error {
	if m.createErr != nil {
		return m.createErr
	}
	d.ID = uuid.New()
	d.CreatedAt = time.Now().UTC()
	d.UpdatedAt = d.CreatedAt
	cp := *d
	m.items[d.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, userID, id uuid.UUID) (*Document, error) {
	d, ok := m.items[id]
	if !ok || d.UserID != userID {
		return nil, apperr.NotFound("document")
	}
	cp := *d
	return &cp, nil
}

func (m *mockRepo) List(_ context.Context, userID uuid.UUID, docType string, limit, offset int) ([]*Document, int, error) {
	matched := make([]*Document, 0)
	for _, d := range m.items {
		if d.UserID != userID {
			continue
		}
		if docType != "" && d.DocType != docType {
			continue
		}
		matched = append(matched, d)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	if offset >= len(matched) {
		return []*Document{}, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (m *mockRepo) Update(_ context.Context, d *Document) error {
	if _, ok := m.items[d.ID]; !ok {
		return apperr.NotFound("document")
	}
	d.UpdatedAt = time.Now().UTC()
	cp := *d
	m.items[d.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, userID, id uuid.UUID) error {
	d, ok := m.items[id]
	if !ok || d.UserID != userID {
		return apperr.NotFound("document")
	}
	delete(m.items, id)
	return nil
}

func (m *mockRepo) CountAll(_ context.Context, userID uuid.UUID) (int, error) {
	n := 0
	for _, d := range m.items {
		if d.UserID == userID {
			n++
		}
	}
	return n, nil
}

type recordedEvent struct {
	userID   uuid.UUID
	recordID uuid.UUID
	payload  twin.Payload
}

type mockRecorder struct {
	calls []recordedEvent
	fail  bool
}

func (m *mockRecorder) Record(_ context.Context, userID, recordID uuid.UUID, _ time.Time, payload twin.Payload) twin.WriteOutcome {
	m.calls = append(m.calls, recordedEvent{userID: userID, recordID: recordID, payload: payload})
	if m.fail {
		return twin.WriteOutcome{}
	}
	return twin.WriteOutcome{EventID: uuid.New(), Appended: true}
}

type stubAnalyzer struct {
	enabled bool
	summary string
	verdict *ImageAnalysis
	err     error
}

func (a *stubAnalyzer) Enabled() bool { return a.enabled }

func (a *stubAnalyzer) Complete(_ context.Context, _, _ string) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	return a.summary, nil
}

func (a *stubAnalyzer) CompleteJSON(_ context.Context, _, _ string, out interface{}) error {
	if a.err != nil {
		return a.err
	}
	*out.(*ImageAnalysis) = *a.verdict
	return nil
}

func newTestService() (*Service, *mockRepo, *mockRecorder, *stubAnalyzer, *blobstore.MemoryStore) {
	repo := newMockRepo()
	rec := &mockRecorder{}
	ai := &stubAnalyzer{}
	blobs := blobstore.NewMemoryStore()
	return NewService(repo, rec, ai, blobs), repo, rec, ai, blobs
}

func attachTestFile(t *testing.T, svc *Service, userID, docID uuid.UUID, content string) *Document {
	t.Helper()
	doc, err := svc.AttachFile(context.Background(), userID, docID, "scan.png", "image/png", strings.NewReader(content))
	if err != nil {
		t.Fatalf("attaching file: %v", err)
	}
	return doc
}

// -- Create --

func TestCreate(t *testing.T) {
	svc, repo, rec, _, _ := newTestService()
	userID := uuid.New()

	doc, outcome, err := svc.Create(context.Background(), userID, CreateInput{Title: "Referral letter", DocType: "referral"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID == uuid.Nil {
		t.Error("expected id to be assigned")
	}
	if doc.SummaryStatus != SummaryStatusNone {
		t.Errorf("summary status = %q, want %q", doc.SummaryStatus, SummaryStatusNone)
	}
	if !outcome.Appended {
		t.Error("expected event to be appended")
	}
	if len(repo.items) != 1 {
		t.Errorf("expected 1 stored document, got %d", len(repo.items))
	}
	if len(rec.calls) != 1 {
		t.Fatalf("expected 1 recorded event, got %d", len(rec.calls))
	}
	payload, ok := rec.calls[0].payload.(twin.DocumentPayload)
	if !ok {
		t.Fatalf("payload type = %T, want twin.DocumentPayload", rec.calls[0].payload)
	}
	if payload.DocumentID != doc.ID || payload.Title != "Referral letter" || payload.DocType != "referral" {
		t.Errorf("payload = %+v does not describe the document", payload)
	}
}

func TestCreate_MissingFields(t *testing.T) {
	svc, _, rec, _, _ := newTestService()

	_, _, err := svc.Create(context.Background(), uuid.New(), CreateInput{})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if fields := apperr.FieldsOf(err); len(fields) != 2 {
		t.Errorf("expected 2 missing fields, got %v", fields)
	}
	if len(rec.calls) != 0 {
		t.Error("no event should be recorded for a rejected create")
	}
}

func TestCreate_SummaryFromProvider(t *testing.T) {
	svc, _, _, ai, _ := newTestService()
	ai.enabled = true
	ai.summary = "A routine referral for a knee MRI."

	doc, _, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		Title: "Referral", DocType: "referral", Content: "Please arrange an MRI of the left knee.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.SummaryStatus != SummaryStatusSummarized {
		t.Errorf("summary status = %q, want %q", doc.SummaryStatus, SummaryStatusSummarized)
	}
	if doc.Summary == nil || *doc.Summary != ai.summary {
		t.Errorf("summary = %v, want %q", doc.Summary, ai.summary)
	}
}

func TestCreate_ProviderFailureFallsBack(t *testing.T) {
	svc, repo, rec, ai, _ := newTestService()
	ai.enabled = true
	ai.err = errors.New("upstream timeout")

	doc, outcome, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		Title: "Discharge note", DocType: "discharge", Content: "Admitted for observation overnight.",
	})
	if err != nil {
		t.Fatalf("a summary failure must not fail the create: %v", err)
	}
	if doc.SummaryStatus != SummaryStatusUnanalyzed {
		t.Errorf("summary status = %q, want %q", doc.SummaryStatus, SummaryStatusUnanalyzed)
	}
	if doc.Summary == nil || *doc.Summary != FallbackSummary {
		t.Errorf("summary = %v, want the fallback text", doc.Summary)
	}
	if len(repo.items) != 1 {
		t.Error("the record must be kept when the summary call fails")
	}
	if !outcome.Appended || len(rec.calls) != 1 {
		t.Error("the document event must still be appended")
	}
}

func TestCreate_ProviderDisabledFallsBack(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	doc, _, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		Title: "Note", DocType: "note", Content: "Some content.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.SummaryStatus != SummaryStatusUnanalyzed {
		t.Errorf("summary status = %q, want %q", doc.SummaryStatus, SummaryStatusUnanalyzed)
	}
}

func TestCreate_AppendFailureIsPartial(t *testing.T) {
	svc, repo, rec, _, _ := newTestService()
	rec.fail = true

	doc, outcome, err := svc.Create(context.Background(), uuid.New(), CreateInput{Title: "Note", DocType: "note"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Appended {
		t.Error("outcome should report the event was not appended")
	}
	if _, ok := repo.items[doc.ID]; !ok {
		t.Error("the record must not be rolled back when the append fails")
	}
}

// -- Delete --

type twinRepoStub struct{ events []*twin.TwinEvent }

func (s *twinRepoStub) Append(_ context.Context, e *twin.TwinEvent) error {
	s.events = append(s.events, e)
	return nil
}

func (s *twinRepoStub) Query(_ context.Context, userID uuid.UUID, _ twin.QueryFilter) ([]*twin.TwinEvent, int, error) {
	out := make([]*twin.TwinEvent, 0)
	for _, e := range s.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func TestDelete_TimelineEventSurvives(t *testing.T) {
	stub := &twinRepoStub{}
	timeline := twin.NewService(stub, zerolog.Nop())
	svc := NewService(newMockRepo(), timeline, &stubAnalyzer{}, blobstore.NewMemoryStore())
	userID := uuid.New()

	doc, outcome, err := svc.Create(context.Background(), userID, CreateInput{Title: "MRI report", DocType: "imaging"})
	if err != nil {
		t.Fatalf("creating document: %v", err)
	}
	if !outcome.Appended {
		t.Fatal("expected the document event to be appended")
	}

	if err := svc.Delete(context.Background(), userID, doc.ID); err != nil {
		t.Fatalf("deleting document: %v", err)
	}

	docs, _, err := svc.List(context.Background(), userID, "", 20, 0)
	if err != nil {
		t.Fatalf("listing documents: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected the document to be gone from listings, got %d", len(docs))
	}

	events, total, err := timeline.Timeline(context.Background(), userID, twin.QueryFilter{})
	if err != nil {
		t.Fatalf("reading timeline: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected the event to survive the delete, got %d events", total)
	}
	if events[0].ID != outcome.EventID {
		t.Errorf("surviving event = %s, want %s", events[0].ID, outcome.EventID)
	}
	payload, ok := events[0].Payload.(twin.DocumentPayload)
	if !ok || payload.DocumentID != doc.ID {
		t.Errorf("surviving event payload = %+v, want a reference to %s", events[0].Payload, doc.ID)
	}
}

func TestDelete_RemovesAttachment(t *testing.T) {
	svc, _, _, _, blobs := newTestService()
	userID := uuid.New()

	doc, _, err := svc.Create(context.Background(), userID, CreateInput{Title: "Scan", DocType: "imaging"})
	if err != nil {
		t.Fatalf("creating document: %v", err)
	}
	doc = attachTestFile(t, svc, userID, doc.ID, "pixels")

	if err := svc.Delete(context.Background(), userID, doc.ID); err != nil {
		t.Fatalf("deleting document: %v", err)
	}
	if _, _, err := blobs.Download(context.Background(), *doc.FileID); !errors.Is(err, blobstore.ErrBlobNotFound) {
		t.Errorf("expected the attachment to be removed, got %v", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	err := svc.Delete(context.Background(), uuid.New(), uuid.New())
	if !apperr.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestDelete_WrongOwner(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	doc, _, err := svc.Create(context.Background(), uuid.New(), CreateInput{Title: "Note", DocType: "note"})
	if err != nil {
		t.Fatalf("creating document: %v", err)
	}
	if err := svc.Delete(context.Background(), uuid.New(), doc.ID); !apperr.IsNotFound(err) {
		t.Errorf("expected not-found error for a different owner, got %v", err)
	}
}

// -- Attachments --

func TestAttachFile(t *testing.T) {
	svc, _, _, _, blobs := newTestService()
	userID := uuid.New()

	doc, _, err := svc.Create(context.Background(), userID, CreateInput{Title: "Scan", DocType: "imaging"})
	if err != nil {
		t.Fatalf("creating document: %v", err)
	}
	doc = attachTestFile(t, svc, userID, doc.ID, "pixels")

	if doc.FileID == nil || doc.FileName == nil || *doc.FileName != "scan.png" {
		t.Fatalf("expected the attachment to be linked, got file_id=%v file_name=%v", doc.FileID, doc.FileName)
	}
	rc, meta, err := blobs.Download(context.Background(), *doc.FileID)
	if err != nil {
		t.Fatalf("downloading blob: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "pixels" || meta.ContentType != "image/png" {
		t.Errorf("stored blob = %q (%s), want the uploaded content", data, meta.ContentType)
	}
}

func TestAttachFile_RejectsUnknownContentType(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	userID := uuid.New()

	doc, _, err := svc.Create(context.Background(), userID, CreateInput{Title: "Scan", DocType: "imaging"})
	if err != nil {
		t.Fatalf("creating document: %v", err)
	}

	_, err = svc.AttachFile(context.Background(), userID, doc.ID, "evil.exe", "application/octet-stream", bytes.NewReader([]byte{0x4d, 0x5a}))
	if !apperr.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestAttachFile_ReplacesPrevious(t *testing.T) {
	svc, _, _, _, blobs := newTestService()
	userID := uuid.New()

	doc, _, err := svc.Create(context.Background(), userID, CreateInput{Title: "Scan", DocType: "imaging"})
	if err != nil {
		t.Fatalf("creating document: %v", err)
	}
	first := attachTestFile(t, svc, userID, doc.ID, "v1")
	second := attachTestFile(t, svc, userID, doc.ID, "v2")

	if *first.FileID == *second.FileID {
		t.Fatal("expected a fresh blob id for the replacement")
	}
	if _, _, err := blobs.Download(context.Background(), *first.FileID); !errors.Is(err, blobstore.ErrBlobNotFound) {
		t.Errorf("expected the replaced blob to be removed, got %v", err)
	}
}

func TestDownloadFile_NoAttachment(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	userID := uuid.New()

	doc, _, err := svc.Create(context.Background(), userID, CreateInput{Title: "Note", DocType: "note"})
	if err != nil {
		t.Fatalf("creating document: %v", err)
	}
	if _, _, err := svc.DownloadFile(context.Background(), userID, doc.ID); !apperr.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

// -- Image analysis --

func TestAnalyzeImage_StoresVerdict(t *testing.T) {
	svc, repo, _, ai, _ := newTestService()
	ai.enabled = true
	ai.verdict = &ImageAnalysis{
		Findings:        []string{"mild joint space narrowing"},
		Impression:      "early osteoarthritis",
		Recommendations: []string{"weight-bearing X-ray in 12 months"},
	}
	userID := uuid.New()

	doc, _, err := svc.Create(context.Background(), userID, CreateInput{Title: "Knee X-ray", DocType: "imaging"})
	if err != nil {
		t.Fatalf("creating document: %v", err)
	}
	attachTestFile(t, svc, userID, doc.ID, "pixels")

	doc, err = svc.AnalyzeImage(context.Background(), userID, doc.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Analysis == nil || doc.Analysis.Status != AnalysisStatusAnalyzed {
		t.Fatalf("analysis = %+v, want an analyzed verdict", doc.Analysis)
	}
	if doc.Analysis.Impression != "early osteoarthritis" {
		t.Errorf("impression = %q", doc.Analysis.Impression)
	}
	stored, _ := repo.GetByID(context.Background(), userID, doc.ID)
	if stored.Analysis == nil {
		t.Error("the verdict must be persisted on the record")
	}
}

func TestAnalyzeImage_FallbackOnProviderFailure(t *testing.T) {
	svc, _, _, ai, _ := newTestService()
	ai.enabled = true
	ai.err = errors.New("upstream timeout")
	userID := uuid.New()

	doc, _, err := svc.Create(context.Background(), userID, CreateInput{Title: "Knee X-ray", DocType: "imaging"})
	if err != nil {
		t.Fatalf("creating document: %v", err)
	}
	attachTestFile(t, svc, userID, doc.ID, "pixels")

	doc, err = svc.AnalyzeImage(context.Background(), userID, doc.ID)
	if err != nil {
		t.Fatalf("a provider failure must not fail the request: %v", err)
	}
	if doc.Analysis == nil || doc.Analysis.Status != AnalysisStatusUnanalyzed {
		t.Fatalf("analysis = %+v, want the unanalyzed fallback", doc.Analysis)
	}
	if doc.Analysis.Impression != "analysis unavailable" {
		t.Errorf("impression = %q, want the fallback text", doc.Analysis.Impression)
	}
}

func TestAnalyzeImage_RequiresAttachment(t *testing.T) {
	svc, _, _, ai, _ := newTestService()
	ai.enabled = true
	userID := uuid.New()

	doc, _, err := svc.Create(context.Background(), userID, CreateInput{Title: "Note", DocType: "note"})
	if err != nil {
		t.Fatalf("creating document: %v", err)
	}
	if _, err := svc.AnalyzeImage(context.Background(), userID, doc.ID); !apperr.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

// -- List --

func TestList_FilterByType(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	userID := uuid.New()

	for _, in := range []CreateInput{
		{Title: "X-ray", DocType: "imaging"},
		{Title: "Referral", DocType: "referral"},
		{Title: "MRI", DocType: "imaging"},
	} {
		if _, _, err := svc.Create(context.Background(), userID, in); err != nil {
			t.Fatalf("creating document: %v", err)
		}
	}

	docs, total, err := svc.List(context.Background(), userID, "imaging", 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(docs) != 2 {
		t.Errorf("got %d docs (total %d), want 2", len(docs), total)
	}
	for _, d := range docs {
		if d.DocType != "imaging" {
			t.Errorf("doc %q has type %q", d.Title, d.DocType)
		}
	}
}
