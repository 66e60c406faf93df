package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturard/internal/core/apperror"
	"facturard/internal/core/entity"
	"facturard/internal/core/id"
	"facturard/internal/core/numerator"
	"facturard/internal/core/types"
	"facturard/internal/domain"
	"facturard/internal/domain/documents/invoice"
	"facturard/internal/infrastructure/http/v1/handlers"
	"facturard/internal/infrastructure/http/v1/middleware"
)

type fakeDocuments struct {
	issued   []invoice.IssueInvoiceRequest
	notes    []invoice.IssueCreditNoteRequest
	issueErr error
	noteErr  error
}

func (f *fakeDocuments) IssueInvoice(_ context.Context, req invoice.IssueInvoiceRequest) (*invoice.Document, error) {
	if f.issueErr != nil {
		return nil, f.issueErr
	}
	f.issued = append(f.issued, req)
	doc := &invoice.Document{
		Document:           entity.NewDocument(id.New()),
		Kind:               invoice.KindInvoice,
		SequenceIdentifier: "E320000000001",
		DocumentType:       req.DocumentType,
		Series:             numerator.SeriesElectronic,
		Status:             invoice.StatusPending,
	}
	doc.Date = req.Date
	doc.Currency = "DOP"
	doc.SetLines(req.Lines)
	return doc, nil
}

func (f *fakeDocuments) IssueCreditNote(_ context.Context, req invoice.IssueCreditNoteRequest) (*invoice.Document, error) {
	if f.noteErr != nil {
		return nil, f.noteErr
	}
	f.notes = append(f.notes, req)
	return &invoice.Document{
		Document:           entity.NewDocument(id.New()),
		Kind:               invoice.KindCreditNote,
		SequenceIdentifier: "E340000000001",
		DocumentType:       numerator.TypeENotaCredito,
		Series:             numerator.SeriesElectronic,
		Status:             invoice.StatusPending,
	}, nil
}

func (f *fakeDocuments) MarkPaid(context.Context, id.ID) (*invoice.Document, error) {
	return nil, apperror.NewInvalidStatusTransition("modified", "paid")
}

func (f *fakeDocuments) Cancel(context.Context, id.ID) (*invoice.Document, error) {
	return nil, apperror.NewNotFound("document", "x")
}

func (f *fakeDocuments) Get(context.Context, id.ID) (*invoice.Document, error) {
	return nil, apperror.NewNotFound("document", "x")
}

func (f *fakeDocuments) GetBySequence(_ context.Context, ncf string) (*invoice.Document, error) {
	return &invoice.Document{Document: entity.NewDocument(id.New()), SequenceIdentifier: ncf}, nil
}

func (f *fakeDocuments) List(context.Context, domain.ListFilter, invoice.ListFilter) (domain.ListResult[*invoice.Document], error) {
	return domain.ListResult[*invoice.Document]{Limit: 50}, nil
}

func newDocumentRouter(svc handlers.DocumentService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	handlers.NewDocumentHandler(handlers.NewBaseHandler(), svc).RegisterRoutes(r.Group("/documents"))
	return r
}

func post(r *gin.Engine, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestDocumentHandler_Issue(t *testing.T) {
	svc := &fakeDocuments{}
	r := newDocumentRouter(svc)

	w, body := post(r, "/documents", `{
		"documentType": "32",
		"customerTaxId": "131-88844-5",
		"date": "2024-05-10",
		"lines": [{"description": "Servicio", "quantity": "2", "unitPrice": 500, "taxRate": 18}]
	}`)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "E320000000001", body["sequenceIdentifier"])
	assert.Equal(t, "2024-05-10", body["date"])
	assert.Equal(t, "1180", body["total"])

	require.Len(t, svc.issued, 1)
	req := svc.issued[0]
	assert.Equal(t, numerator.TypeEConsumo, req.DocumentType)
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), req.Date)
	assert.True(t, req.Lines[0].UnitPrice.Equal(types.MustMoney("500")))
}

func TestDocumentHandler_IssueRejectsInvalidTaxID(t *testing.T) {
	svc := &fakeDocuments{}
	r := newDocumentRouter(svc)

	w, body := post(r, "/documents", `{
		"documentType": "31",
		"customerTaxId": "131888446",
		"lines": [{"description": "x", "quantity": 1, "unitPrice": 1, "taxRate": 18}]
	}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeInvalidTaxID, body["code"])
	assert.Empty(t, svc.issued)
}

func TestDocumentHandler_IssueRequiresLines(t *testing.T) {
	r := newDocumentRouter(&fakeDocuments{})

	w, body := post(r, "/documents", `{"documentType": "32", "lines": []}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeValidation, body["code"])
}

func TestDocumentHandler_ServiceErrors(t *testing.T) {
	svc := &fakeDocuments{
		issueErr: apperror.NewNoSequenceAvailable("32"),
		noteErr:  apperror.NewAlreadyAnnulled("E320000000001", "E340000000001"),
	}
	r := newDocumentRouter(svc)

	w, body := post(r, "/documents", `{"documentType": "32", "lines": [{"description": "x", "quantity": 1, "unitPrice": 1, "taxRate": 0}]}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperror.CodeNoSequenceAvailable, body["code"])

	w, body = post(r, "/documents/"+id.New().String()+"/credit-note", `{"reason": "devolución"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperror.CodeAlreadyAnnulled, body["code"])

	w, body = post(r, "/documents/"+id.New().String()+"/pay", ``)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperror.CodeInvalidStatusTransition, body["code"])
}

func TestDocumentHandler_CreditNote(t *testing.T) {
	svc := &fakeDocuments{}
	r := newDocumentRouter(svc)
	originalID := id.New()

	w, body := post(r, "/documents/"+originalID.String()+"/credit-note", `{"reason": "devolución"}`)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "credit_note", body["kind"])
	require.Len(t, svc.notes, 1)
	assert.Equal(t, originalID, svc.notes[0].OriginalID)
	assert.Empty(t, svc.notes[0].Lines)
}

func TestDocumentHandler_CreditNoteRequiresReasonAndID(t *testing.T) {
	r := newDocumentRouter(&fakeDocuments{})

	w, _ := post(r, "/documents/"+id.New().String()+"/credit-note", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = post(r, "/documents/not-a-uuid/credit-note", `{"reason": "x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentHandler_GetBySequence(t *testing.T) {
	r := newDocumentRouter(&fakeDocuments{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/by-ncf/B0100000005", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sequenceIdentifier":"B0100000005"`)
}
