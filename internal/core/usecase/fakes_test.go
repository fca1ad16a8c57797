package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/lucabarone/invoiceflow/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type statusWrite struct {
	id      string
	status  domain.DocumentStatus
	message string
}

type fakeDocRepo struct {
	mu      sync.Mutex
	docs    map[string]*domain.Document
	writes  []statusWrite
	deleted []string

	createErr error
	updateErr error
}

func newFakeDocRepo(docs ...*domain.Document) *fakeDocRepo {
	repo := &fakeDocRepo{docs: make(map[string]*domain.Document)}
	for _, doc := range docs {
		copied := *doc
		repo.docs[doc.ID] = &copied
	}
	return repo
}

func (r *fakeDocRepo) Create(_ context.Context, doc *domain.Document) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *doc
	r.docs[doc.ID] = &copied
	return nil
}

func (r *fakeDocRepo) GetByID(_ context.Context, id, ownerID string) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.OwnerID != ownerID {
		return nil, domain.ErrDocumentNotFound
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeDocRepo) GetForProcessing(_ context.Context, id string) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeDocRepo) ListByOwner(_ context.Context, ownerID string, _ domain.ListFilter) ([]domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Document
	for _, doc := range r.docs {
		if doc.OwnerID == ownerID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (r *fakeDocRepo) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, statusWrite{id: id, status: status, message: errMessage})
	if doc, ok := r.docs[id]; ok {
		doc.Status = status
		doc.Error = errMessage
	}
	return nil
}

func (r *fakeDocRepo) SetDefective(_ context.Context, id, ownerID string, defective bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.OwnerID != ownerID {
		return domain.ErrDocumentNotFound
	}
	doc.IsDefective = defective
	return nil
}

func (r *fakeDocRepo) Delete(_ context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.OwnerID != ownerID {
		return domain.ErrDocumentNotFound
	}
	delete(r.docs, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeDocRepo) statusHistory(id string) []domain.DocumentStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.DocumentStatus
	for _, write := range r.writes {
		if write.id == id {
			out = append(out, write.status)
		}
	}
	return out
}

type fakeResultRepo struct {
	mu      sync.Mutex
	rawText map[string]string
	parsed  map[string]*domain.ParsedResult
	edits   map[string]string

	upsertErr error
	saveErr   error
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{
		rawText: make(map[string]string),
		parsed:  make(map[string]*domain.ParsedResult),
		edits:   make(map[string]string),
	}
}

func (r *fakeResultRepo) UpsertRawText(_ context.Context, documentID, rawText string) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rawText[documentID] = rawText
	return nil
}

func (r *fakeResultRepo) SaveParsed(_ context.Context, documentID string, parsed *domain.ParsedResult) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsed[documentID] = parsed
	return nil
}

func (r *fakeResultRepo) SaveManualEdit(_ context.Context, documentID string, parsed *domain.ParsedResult, editedBy string) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsed[documentID] = parsed
	r.edits[documentID] = editedBy
	return nil
}

func (r *fakeResultRepo) GetByDocumentID(_ context.Context, documentID string) (*domain.DocumentResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rawText, hasText := r.rawText[documentID]
	parsed, hasParsed := r.parsed[documentID]
	if !hasText && !hasParsed {
		return nil, domain.ErrResultNotFound
	}
	return &domain.DocumentResult{
		DocumentID:     documentID,
		RawText:        rawText,
		Parsed:         parsed,
		ManuallyEdited: r.edits[documentID] != "",
		EditedBy:       r.edits[documentID],
	}, nil
}

type fakeStorage struct {
	mu      sync.Mutex
	saved   map[string][]byte
	removed []string
	saveErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{saved: make(map[string][]byte)}
}

func (s *fakeStorage) key(ownerID, name string) string { return ownerID + "/" + name }

func (s *fakeStorage) Save(_ context.Context, ownerID, name string, data io.Reader) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	content, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[s.key(ownerID, name)] = content
	return nil
}

func (s *fakeStorage) Open(_ context.Context, ownerID, name string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.saved[s.key(ownerID, name)]
	if !ok {
		return nil, errors.New("no such stored file")
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (s *fakeStorage) Remove(_ context.Context, ownerID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, s.key(ownerID, name))
	s.removed = append(s.removed, s.key(ownerID, name))
	return nil
}

type fakeQueue struct {
	mu         sync.Mutex
	published  []string
	publishErr error
}

func (q *fakeQueue) PublishProcessDocument(_ context.Context, documentID string) error {
	if q.publishErr != nil {
		return q.publishErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, documentID)
	return nil
}

func (q *fakeQueue) SubscribeProcessDocument(context.Context, func(context.Context, string) error) error {
	return nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (e *fakeExtractor) Extract(context.Context, *domain.Document) (string, error) {
	return e.text, e.err
}

type fakeClassifier struct {
	classification domain.Classification
	err            error
	calls          int
}

func (c *fakeClassifier) Classify(context.Context, string) (domain.Classification, error) {
	c.calls++
	return c.classification, c.err
}

type fakeSemantics struct {
	amounts *domain.Amounts
	err     error
	calls   int
}

func (s *fakeSemantics) ExtractAmounts(context.Context, string, domain.DocumentSubtype) (*domain.Amounts, error) {
	s.calls++
	return s.amounts, s.err
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []domain.CompletionEvent
}

func (n *fakeNotifier) NotifyCompletion(_ context.Context, event domain.CompletionEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}
