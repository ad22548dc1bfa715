// Package httpapi exposes the admin REST API over the application services.
package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	app "github.com/auroraseo/clinicgraph/internal/app"
	"github.com/auroraseo/clinicgraph/internal/domain/account"
	"github.com/auroraseo/clinicgraph/internal/domain/crawljob"
	"github.com/auroraseo/clinicgraph/internal/domain/linkplan"
	"github.com/auroraseo/clinicgraph/internal/domain/location"
	"github.com/auroraseo/clinicgraph/internal/domain/page"
	"github.com/auroraseo/clinicgraph/internal/domain/prompt"
	"github.com/auroraseo/clinicgraph/internal/domain/schemadoc"
	"github.com/auroraseo/clinicgraph/internal/middleware"
	schemasvc "github.com/auroraseo/clinicgraph/internal/services/schema"
)

// Options configures the API handler.
type Options struct {
	JWTSecret []byte
	TokenTTL  time.Duration
	AuditMax  int
	AuditPath string
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app    *app.Application
	audit  *auditLog
	secret []byte
	ttl    time.Duration
}

// NewHandler returns a mux exposing the admin REST API. Every route except
// /healthz and /metrics expects an authenticated identity on the request
// context.
func NewHandler(application *app.Application, opts Options) (http.Handler, error) {
	sink, err := newFileAuditSink(opts.AuditPath)
	if err != nil {
		return nil, err
	}
	h := &handler{
		app:    application,
		audit:  newAuditLog(opts.AuditMax, sink),
		secret: opts.JWTSecret,
		ttl:    opts.TokenTTL,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.health)
	mux.HandleFunc("/accounts", h.accounts)
	mux.HandleFunc("/accounts/", h.accountResources)
	mux.HandleFunc("/audit", h.auditEntries)
	return h.recordAudit(mux), nil
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) accounts(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPost:
		if !requireOperator(w, id) {
			return
		}
		var payload struct {
			Name     string            `json:"name"`
			Domain   string            `json:"domain"`
			Vertical string            `json:"vertical"`
			Metadata map[string]string `json:"metadata"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		acct, err := h.app.Accounts.CreateAccount(r.Context(), account.Account{
			Name:     payload.Name,
			Domain:   payload.Domain,
			Vertical: payload.Vertical,
			Metadata: payload.Metadata,
		})
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, acct)

	case http.MethodGet:
		if id.Operator() {
			accts, err := h.app.Accounts.ListAccounts(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, accts)
			return
		}
		acct, err := h.app.Accounts.GetAccount(r.Context(), id.AccountID)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, []account.Account{acct})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) accountResources(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/accounts"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	accountID := parts[0]

	if !id.CanAccess(accountID) {
		writeError(w, http.StatusForbidden, errors.New("forbidden"))
		return
	}

	if len(parts) == 1 {
		h.accountByID(w, r, id, accountID)
		return
	}

	switch parts[1] {
	case "users":
		h.accountUsers(w, r, id, accountID, parts[2:])
	case "locations":
		h.accountLocations(w, r, id, accountID, parts[2:])
	case "pages":
		h.accountPages(w, r, id, accountID, parts[2:])
	case "schemas":
		h.accountSchemas(w, r, id, accountID, parts[2:])
	case "tiers":
		h.accountTiers(w, r, id, accountID, parts[2:])
	case "prompts":
		h.accountPrompts(w, r, id, accountID, parts[2:])
	case "linkplans":
		h.accountLinkPlans(w, r, id, accountID, parts[2:])
	case "reviews":
		h.accountReviews(w, r, id, accountID, parts[2:])
	case "crawls":
		h.accountCrawls(w, r, id, accountID, parts[2:])
	case "export":
		h.accountExport(w, r, accountID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) accountByID(w http.ResponseWriter, r *http.Request, id middleware.Identity, accountID string) {
	switch r.Method {
	case http.MethodGet:
		acct, err := h.app.Accounts.GetAccount(r.Context(), accountID)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, acct)

	case http.MethodPut:
		if !requireAdmin(w, id) {
			return
		}
		var payload struct {
			Name     string            `json:"name"`
			Domain   string            `json:"domain"`
			Vertical string            `json:"vertical"`
			Status   string            `json:"status"`
			Metadata map[string]string `json:"metadata"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		acct, err := h.app.Accounts.UpdateAccount(r.Context(), account.Account{
			ID:       accountID,
			Name:     payload.Name,
			Domain:   payload.Domain,
			Vertical: payload.Vertical,
			Status:   payload.Status,
			Metadata: payload.Metadata,
		})
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, acct)

	case http.MethodDelete:
		if !requireOperator(w, id) {
			return
		}
		if _, err := h.app.Accounts.ArchiveAccount(r.Context(), accountID); err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) accountUsers(w http.ResponseWriter, r *http.Request, id middleware.Identity, accountID string, rest []string) {
	if !requireAdmin(w, id) {
		return
	}

	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			users, err := h.app.Accounts.ListUsers(r.Context(), accountID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, users)
		case http.MethodPost:
			var payload struct {
				Email string `json:"email"`
				Name  string `json:"name"`
				Role  string `json:"role"`
			}
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			u, err := h.app.Accounts.CreateUser(r.Context(), account.User{
				AccountID: accountID,
				Email:     payload.Email,
				Name:      payload.Name,
				Role:      account.Role(payload.Role),
			})
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			writeJSON(w, http.StatusCreated, u)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	userID := rest[0]
	existing, err := h.app.Accounts.GetUser(r.Context(), userID)
	if err != nil || existing.AccountID != accountID {
		writeError(w, http.StatusNotFound, errors.New("user not found"))
		return
	}

	if len(rest) == 2 && rest[1] == "token" {
		h.mintToken(w, r, existing)
		return
	}
	if len(rest) > 1 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, existing)
	case http.MethodPut:
		var payload struct {
			Name   string `json:"name"`
			Role   string `json:"role"`
			Active *bool  `json:"active"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		update := account.User{ID: userID, Name: payload.Name, Role: account.Role(payload.Role), Active: existing.Active}
		if payload.Active != nil {
			update.Active = *payload.Active
		}
		u, err := h.app.Accounts.UpdateUser(r.Context(), update)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	case http.MethodDelete:
		if _, err := h.app.Accounts.DeactivateUser(r.Context(), userID); err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) mintToken(w http.ResponseWriter, r *http.Request, u account.User) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if len(h.secret) == 0 {
		writeError(w, http.StatusServiceUnavailable, errors.New("token signing not configured"))
		return
	}
	if !u.Active {
		writeError(w, http.StatusConflict, errors.New("user is deactivated"))
		return
	}
	token, err := middleware.IssueToken(h.secret, u, h.ttl)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"token": token})
}

func (h *handler) accountLocations(w http.ResponseWriter, r *http.Request, id middleware.Identity, accountID string, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			locs, err := h.app.Locations.List(r.Context(), accountID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, locs)
		case http.MethodPost:
			if !requireWrite(w, id) {
				return
			}
			var payload locationPayload
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			loc, err := h.app.Locations.Create(r.Context(), payload.toLocation(accountID, ""))
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			writeJSON(w, http.StatusCreated, loc)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	locationID := rest[0]
	existing, err := h.app.Locations.Get(r.Context(), locationID)
	if err != nil || existing.AccountID != accountID {
		writeError(w, http.StatusNotFound, errors.New("location not found"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, existing)
	case http.MethodPut:
		if !requireWrite(w, id) {
			return
		}
		var payload locationPayload
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		loc, err := h.app.Locations.Update(r.Context(), payload.toLocation(accountID, locationID))
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, loc)
	case http.MethodDelete:
		if !requireWrite(w, id) {
			return
		}
		if err := h.app.Locations.Delete(r.Context(), locationID); err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) accountPages(w http.ResponseWriter, r *http.Request, id middleware.Identity, accountID string, rest []string) {
	if len(rest) == 0 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var (
			pages []page.Page
			err   error
		)
		if status := r.URL.Query().Get("status"); status != "" {
			pages, err = h.app.Stores.Pages.ListPagesByStatus(r.Context(), accountID, status, 0)
		} else {
			pages, err = h.app.Stores.Pages.ListPages(r.Context(), accountID)
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, pages)
		return
	}

	pageID := rest[0]
	p, err := h.app.Stores.Pages.GetPage(r.Context(), pageID)
	if err != nil || p.AccountID != accountID {
		writeError(w, http.StatusNotFound, errors.New("page not found"))
		return
	}

	if len(rest) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, p)
		return
	}

	switch rest[1] {
	case "classify":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !requireWrite(w, id) {
			return
		}
		classified, err := h.app.Classify.ClassifyPage(r.Context(), p)
		if err != nil {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		writeJSON(w, http.StatusOK, classified)

	case "schema":
		switch r.Method {
		case http.MethodGet:
			doc, err := h.app.Schema.GetByPage(r.Context(), pageID)
			if err != nil {
				writeError(w, errStatus(err), err)
				return
			}
			writeJSON(w, http.StatusOK, doc)
		case http.MethodPost:
			if !requireWrite(w, id) {
				return
			}
			doc, err := h.app.Schema.Generate(r.Context(), pageID, true)
			if err != nil {
				writeError(w, errStatus(err), err)
				return
			}
			writeJSON(w, http.StatusCreated, doc)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) accountSchemas(w http.ResponseWriter, r *http.Request, id middleware.Identity, accountID string, rest []string) {
	if len(rest) == 0 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		docs, err := h.app.Schema.List(r.Context(), accountID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, docs)
		return
	}

	docID := rest[0]
	doc, err := h.app.Schema.Get(r.Context(), docID)
	if err != nil || doc.AccountID != accountID {
		writeError(w, http.StatusNotFound, errors.New("schema not found"))
		return
	}

	if len(rest) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, doc)
		return
	}

	if r.Method != http.MethodPost || !requireWrite(w, id) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	var updated schemadoc.Doc
	switch rest[1] {
	case "approve":
		updated, err = h.app.Schema.Approve(r.Context(), docID)
	case "reject":
		updated, err = h.app.Schema.Reject(r.Context(), docID)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) accountTiers(w http.ResponseWriter, r *http.Request, id middleware.Identity, accountID string, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			tiers, err := h.app.Schema.Tiers(r.Context(), accountID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, tiers)
		case http.MethodPut:
			if !requireAdmin(w, id) {
				return
			}
			var payload struct {
				PageType string `json:"page_type"`
				Tier     string `json:"tier"`
			}
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			override, err := h.app.Schema.SetTier(r.Context(), accountID,
				page.Type(strings.ToUpper(payload.PageType)), schemadoc.Tier(strings.ToUpper(payload.Tier)))
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			writeJSON(w, http.StatusOK, override)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !requireAdmin(w, id) {
		return
	}
	if err := h.app.Schema.ClearTier(r.Context(), accountID, page.Type(strings.ToUpper(rest[0]))); err != nil {
		writeError(w, errStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) accountPrompts(w http.ResponseWriter, r *http.Request, id middleware.Identity, accountID string, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			list, err := h.app.Prompts.List(r.Context(), accountID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, list)
		case http.MethodPost:
			if !requireWrite(w, id) {
				return
			}
			var payload struct {
				Name    string `json:"name"`
				Purpose string `json:"purpose"`
				Body    string `json:"body"`
				System  string `json:"system"`
				Active  bool   `json:"active"`
			}
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			p, err := h.app.Prompts.Create(r.Context(), prompt.Prompt{
				AccountID: accountID,
				Name:      payload.Name,
				Purpose:   prompt.Purpose(payload.Purpose),
				Body:      payload.Body,
				System:    payload.System,
				Active:    payload.Active,
			})
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			writeJSON(w, http.StatusCreated, p)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	promptID := rest[0]
	existing, err := h.app.Prompts.Get(r.Context(), promptID)
	if err != nil || existing.AccountID != accountID {
		writeError(w, http.StatusNotFound, errors.New("prompt not found"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, existing)
	case http.MethodPut:
		if !requireWrite(w, id) {
			return
		}
		var payload struct {
			Name   string `json:"name"`
			Body   string `json:"body"`
			System string `json:"system"`
			Active *bool  `json:"active"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		update := prompt.Prompt{ID: promptID, Name: payload.Name, Body: payload.Body, System: payload.System, Active: existing.Active}
		if payload.Active != nil {
			update.Active = *payload.Active
		}
		p, err := h.app.Prompts.Update(r.Context(), update)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) accountLinkPlans(w http.ResponseWriter, r *http.Request, id middleware.Identity, accountID string, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			links, err := h.app.LinkPlans.List(r.Context(), accountID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, links)
		case http.MethodPost:
			if !requireWrite(w, id) {
				return
			}
			var payload struct {
				SourcePage string `json:"source_page"`
				TargetPage string `json:"target_page"`
				AnchorText string `json:"anchor_text"`
			}
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			link, err := h.app.LinkPlans.Propose(r.Context(), linkplan.Link{
				AccountID:  accountID,
				SourcePage: payload.SourcePage,
				TargetPage: payload.TargetPage,
				AnchorText: payload.AnchorText,
			})
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			writeJSON(w, http.StatusCreated, link)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	linkID := rest[0]
	existing, err := h.app.LinkPlans.Get(r.Context(), linkID)
	if err != nil || existing.AccountID != accountID {
		writeError(w, http.StatusNotFound, errors.New("link plan not found"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, existing)
	case http.MethodPut:
		if !requireWrite(w, id) {
			return
		}
		var payload struct {
			Status string `json:"status"`
			Note   string `json:"note"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		link, err := h.app.LinkPlans.SetStatus(r.Context(), linkID, payload.Status, payload.Note)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, link)
	case http.MethodDelete:
		if !requireWrite(w, id) {
			return
		}
		if err := h.app.LinkPlans.Delete(r.Context(), linkID); err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) accountReviews(w http.ResponseWriter, r *http.Request, id middleware.Identity, accountID string, rest []string) {
	if len(rest) == 0 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		items, err := h.app.Reviews.List(r.Context(), accountID, r.URL.Query().Get("state"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
		return
	}

	itemID := rest[0]
	existing, err := h.app.Reviews.Get(r.Context(), itemID)
	if err != nil || existing.AccountID != accountID {
		writeError(w, http.StatusNotFound, errors.New("review item not found"))
		return
	}

	if len(rest) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, existing)
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !requireWrite(w, id) {
		return
	}
	var payload struct {
		Note string `json:"note"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	switch rest[1] {
	case "resolve":
		item, err := h.app.Reviews.Resolve(r.Context(), itemID, payload.Note)
		if err != nil {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	case "dismiss":
		item, err := h.app.Reviews.Dismiss(r.Context(), itemID, payload.Note)
		if err != nil {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) accountCrawls(w http.ResponseWriter, r *http.Request, id middleware.Identity, accountID string, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			jobs, err := h.app.Crawl.List(r.Context(), accountID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, jobs)
		case http.MethodPost:
			if !requireWrite(w, id) {
				return
			}
			var payload struct {
				SeedURL  string `json:"seed_url"`
				MaxPages int    `json:"max_pages"`
				MaxDepth int    `json:"max_depth"`
			}
			if r.ContentLength > 0 {
				if err := decodeJSON(r.Body, &payload); err != nil {
					writeError(w, http.StatusBadRequest, err)
					return
				}
			}
			job, err := h.app.Crawl.Enqueue(r.Context(), crawljob.Job{
				AccountID: accountID,
				SeedURL:   payload.SeedURL,
				MaxPages:  payload.MaxPages,
				MaxDepth:  payload.MaxDepth,
			})
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			writeJSON(w, http.StatusAccepted, job)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	job, err := h.app.Crawl.Get(r.Context(), rest[0])
	if err != nil || job.AccountID != accountID {
		writeError(w, http.StatusNotFound, errors.New("crawl job not found"))
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *handler) accountExport(w http.ResponseWriter, r *http.Request, accountID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="pages.csv"`)
	if err := h.app.Schema.ExportCSV(r.Context(), w, accountID); err != nil {
		// headers already sent; the CSV is truncated at this point
		return
	}
}

func (h *handler) auditEntries(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !requireAdmin(w, id) {
		return
	}
	tenant := id.AccountID
	if id.Operator() {
		tenant = r.URL.Query().Get("account")
	}
	writeJSON(w, http.StatusOK, h.audit.list(tenant, 0))
}

// recordAudit wraps the mux and records every authenticated request.
func (h *handler) recordAudit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		id, ok := middleware.FromContext(r.Context())
		if !ok {
			return
		}
		h.audit.add(auditEntry{
			Time:       time.Now().UTC(),
			User:       id.UserID,
			Role:       string(id.Role),
			Tenant:     tenantFromPath(r.URL.Path, id),
			Path:       r.URL.Path,
			Method:     r.Method,
			Status:     rec.status,
			RemoteAddr: r.RemoteAddr,
		})
	})
}

func tenantFromPath(path string, id middleware.Identity) string {
	if rest, ok := strings.CutPrefix(path, "/accounts/"); ok && rest != "" {
		return strings.Split(rest, "/")[0]
	}
	return id.AccountID
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

type locationPayload struct {
	Name       string  `json:"name"`
	Street     string  `json:"street"`
	City       string  `json:"city"`
	Region     string  `json:"region"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	Phone      string  `json:"phone"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	BookingURL string  `json:"booking_url"`
	Primary    bool    `json:"primary"`
}

func (p locationPayload) toLocation(accountID, id string) location.Location {
	return location.Location{
		ID:         id,
		AccountID:  accountID,
		Name:       p.Name,
		Street:     p.Street,
		City:       p.City,
		Region:     p.Region,
		PostalCode: p.PostalCode,
		Country:    p.Country,
		Phone:      p.Phone,
		Latitude:   p.Latitude,
		Longitude:  p.Longitude,
		BookingURL: p.BookingURL,
		Primary:    p.Primary,
	}
}

func (h *handler) identity(w http.ResponseWriter, r *http.Request) (middleware.Identity, bool) {
	id, ok := middleware.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errors.New("authentication required"))
		return middleware.Identity{}, false
	}
	return id, true
}

func requireWrite(w http.ResponseWriter, id middleware.Identity) bool {
	if !id.Role.CanWrite() {
		writeError(w, http.StatusForbidden, errors.New("write access required"))
		return false
	}
	return true
}

func requireAdmin(w http.ResponseWriter, id middleware.Identity) bool {
	if id.Role != account.RoleAdmin {
		writeError(w, http.StatusForbidden, errors.New("admin role required"))
		return false
	}
	return true
}

func requireOperator(w http.ResponseWriter, id middleware.Identity) bool {
	if !id.Operator() {
		writeError(w, http.StatusForbidden, errors.New("operator access required"))
		return false
	}
	return true
}

// errStatus maps service errors to HTTP status codes.
func errStatus(err error) int {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound
	case errors.Is(err, schemasvc.ErrTierBlocked):
		return http.StatusConflict
	case errors.Is(err, schemasvc.ErrPreflightFailed):
		return http.StatusUnprocessableEntity
	case strings.Contains(err.Error(), "not found"):
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
