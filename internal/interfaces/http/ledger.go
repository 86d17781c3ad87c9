package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"finanzas/internal/domain/ledger"
	"finanzas/internal/domain/session"
	"finanzas/internal/infrastructure/export"
	"finanzas/internal/shared/messages"
	"finanzas/internal/shared/middleware"
)

// LedgerService is the part of ledger.Service the handlers use.
type LedgerService interface {
	Entries(ctx context.Context, sess *session.Session, f ledger.Filter) ([]*ledger.Entry, error)
	Refresh(ctx context.Context, sess *session.Session) error
	Create(ctx context.Context, sess *session.Session, params ledger.CreateParams) (*ledger.Entry, error)
	Delete(ctx context.Context, sess *session.Session, id string) error
	SettleFull(ctx context.Context, sess *session.Session, id string) (*ledger.SettlementResult, error)
	SettlePartial(ctx context.Context, sess *session.Session, id string, amount decimal.Decimal) (*ledger.SettlementResult, error)
	Summary(ctx context.Context, sess *session.Session) (*ledger.Overview, error)
	Obligations(ctx context.Context, sess *session.Session, kind ledger.Kind) ([]ledger.Obligation, error)
	Categories(ctx context.Context, sess *session.Session) (*ledger.CategoryOptions, error)
}

type LedgerHandler struct {
	service  LedgerService
	msgs     *messages.Messages
	validate *validator.Validate
	now      func() time.Time
}

func NewLedgerHandler(service LedgerService, msgs *messages.Messages) *LedgerHandler {
	if msgs == nil {
		msgs = messages.Default()
	}
	return &LedgerHandler{
		service:  service,
		msgs:     msgs,
		validate: newValidator(),
		now:      time.Now,
	}
}

// Request DTOs

type CreateEntryRequest struct {
	Name     string          `json:"nombre" validate:"required,max=120"`
	Amount   decimal.Decimal `json:"monto" validate:"gt=0"`
	Kind     string          `json:"tipo" validate:"required,oneof=ingreso egreso"`
	Category string          `json:"categoria" validate:"max=60"`
	Paid     bool            `json:"pagado"`
	DueDate  string          `json:"fecha_vencimiento" validate:"omitempty,datetime=2006-01-02"`
}

type SettleRequest struct {
	// Amount is the partial payment. Absent means settle in full.
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

// HandleListEntries returns the session's history, filtered by the q,
// category and date query parameters. refresh=true reloads from the store.
func (h *LedgerHandler) HandleListEntries(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		if err := h.service.Refresh(r.Context(), sess); err != nil {
			h.fail(w, sess, "refreshing entries", err, h.msgs.LoadFailed)
			return
		}
	}

	entries, err := h.service.Entries(r.Context(), sess, filterFromQuery(r))
	if err != nil {
		h.fail(w, sess, "listing entries", err, h.msgs.LoadFailed)
		return
	}
	if entries == nil {
		entries = []*ledger.Entry{}
	}

	writeJSON(w, http.StatusOK, entries)
}

// HandleCreateEntry records a new income or expense.
func (h *LedgerHandler) HandleCreateEntry(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Error decoding create entry request: %v", err)
		writeError(w, http.StatusBadRequest, h.msgs.InvalidEntry)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		if firstInvalidField(err) == "monto" {
			writeError(w, http.StatusBadRequest, h.msgs.InvalidAmount)
			return
		}
		writeError(w, http.StatusBadRequest, h.msgs.InvalidEntry)
		return
	}

	params, err := req.toParams()
	if err != nil {
		writeError(w, http.StatusBadRequest, h.msgs.InvalidEntry)
		return
	}

	entry, err := h.service.Create(r.Context(), sess, params)
	if err != nil {
		h.fail(w, sess, "creating entry", err, h.msgs.SaveFailed)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// HandleDeleteEntry removes an entry.
func (h *LedgerHandler) HandleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, h.msgs.NotFound)
		return
	}

	if err := h.service.Delete(r.Context(), sess, id); err != nil {
		h.fail(w, sess, "deleting entry "+id, err, h.msgs.DeleteFailed)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleSettleEntry settles an entry in full, or partially when the body
// carries an amount.
func (h *LedgerHandler) HandleSettleEntry(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, h.msgs.NotFound)
		return
	}

	var req SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Printf("Error decoding settle request: %v", err)
		writeError(w, http.StatusBadRequest, h.msgs.InvalidAmount)
		return
	}

	var (
		result *ledger.SettlementResult
		err    error
	)
	if req.Amount == nil {
		result, err = h.service.SettleFull(r.Context(), sess, id)
	} else {
		result, err = h.service.SettlePartial(r.Context(), sess, id, *req.Amount)
	}
	if err != nil {
		h.fail(w, sess, "settling entry "+id, err, h.msgs.SettleFailed)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleExportEntries streams the filtered history as an XLSX workbook.
func (h *LedgerHandler) HandleExportEntries(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	entries, err := h.service.Entries(r.Context(), sess, filterFromQuery(r))
	if err != nil {
		h.fail(w, sess, "exporting entries", err, h.msgs.LoadFailed)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, entries); err != nil {
		log.Printf("Error building export for user %d: %v", sess.UserID, err)
		writeError(w, http.StatusInternalServerError, h.msgs.Internal)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(h.now().Format("2006-01-02"))+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("Error writing export for user %d: %v", sess.UserID, err)
	}
}

// HandleSummary returns balance, totals, the expense breakdown and the
// pending counts.
func (h *LedgerHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	overview, err := h.service.Summary(r.Context(), sess)
	if err != nil {
		h.fail(w, sess, "computing summary", err, h.msgs.LoadFailed)
		return
	}

	writeJSON(w, http.StatusOK, overview)
}

// HandleObligations lists pending entries of ?kind= (egreso by default),
// earliest due date first.
func (h *LedgerHandler) HandleObligations(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	kind := ledger.KindExpense
	if raw := r.URL.Query().Get("kind"); raw != "" {
		parsed, err := ledger.ParseKind(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, h.msgs.InvalidEntry)
			return
		}
		kind = parsed
	}

	obligations, err := h.service.Obligations(r.Context(), sess, kind)
	if err != nil {
		h.fail(w, sess, "listing obligations", err, h.msgs.LoadFailed)
		return
	}
	if obligations == nil {
		obligations = []ledger.Obligation{}
	}

	writeJSON(w, http.StatusOK, obligations)
}

// HandleCategories returns categories in use and the suggestions per kind.
func (h *LedgerHandler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	options, err := h.service.Categories(r.Context(), sess)
	if err != nil {
		h.fail(w, sess, "listing categories", err, h.msgs.LoadFailed)
		return
	}

	writeJSON(w, http.StatusOK, options)
}

func (h *LedgerHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := middleware.SessionFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, h.msgs.SessionRequired)
		return nil, false
	}
	return sess, true
}

func (h *LedgerHandler) fail(w http.ResponseWriter, sess *session.Session, op string, err error, fallback string) {
	status, msg := ledgerError(h.msgs, err, fallback)
	if status >= http.StatusInternalServerError {
		log.Printf("Error %s for user %d: %v", op, sess.UserID, err)
	}
	writeError(w, status, msg)
}

func (req CreateEntryRequest) toParams() (ledger.CreateParams, error) {
	kind, err := ledger.ParseKind(req.Kind)
	if err != nil {
		return ledger.CreateParams{}, err
	}

	params := ledger.CreateParams{
		Name:     req.Name,
		Amount:   req.Amount,
		Kind:     kind,
		Category: req.Category,
		Paid:     req.Paid,
	}
	if req.DueDate != "" {
		due, err := time.Parse(time.DateOnly, req.DueDate)
		if err != nil {
			return ledger.CreateParams{}, err
		}
		params.DueDate = &due
	}
	return params, nil
}

func filterFromQuery(r *http.Request) ledger.Filter {
	q := r.URL.Query()
	return ledger.Filter{
		Search:   q.Get("q"),
		Category: q.Get("category"),
		Date:     q.Get("date"),
	}
}
