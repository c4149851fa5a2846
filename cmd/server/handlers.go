package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/boqview/internal/boq"
	"github.com/Simplici0/boqview/internal/export"
	"github.com/Simplici0/boqview/internal/store"
	"github.com/Simplici0/boqview/internal/tabular"
	"github.com/Simplici0/boqview/internal/workspace"
)

const maxUploadBytes = 16 << 20

type baseViewData struct {
	ErrorMessage   string
	SuccessMessage string
	User           string
}

type loginViewData struct {
	baseViewData
}

type boqListViewData struct {
	baseViewData
	Query string
	BOQs  []store.BOQ
}

type boqViewData struct {
	baseViewData
	View   workspace.View
	Fields []boq.Field
}

func (s *server) base(r *http.Request) baseViewData {
	user, _ := s.auth.User(r)
	return baseViewData{
		ErrorMessage:   r.URL.Query().Get("error"),
		SuccessMessage: r.URL.Query().Get("success"),
		User:           user,
	}
}

func (s *server) handleHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/boqs", http.StatusSeeOther)
}

func (s *server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.auth.User(r); ok {
		http.Redirect(w, r, "/boqs", http.StatusSeeOther)
		return
	}
	s.renderTemplate(w, http.StatusOK, "login.html", loginViewData{})
}

func (s *server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	valid, err := s.auth.ValidateCredentials(r.Context(), email, password)
	if err != nil {
		s.log.Error("validate credentials", "error", err)
		http.Error(w, "authentication error", http.StatusInternalServerError)
		return
	}
	if !valid {
		s.log.Warn("login rejected", "email", email)
		s.renderTemplate(w, http.StatusUnauthorized, "login.html", loginViewData{baseViewData: baseViewData{ErrorMessage: "Invalid email or password."}})
		return
	}

	s.auth.SetSessionCookie(w, email)
	http.Redirect(w, r, "/boqs", http.StatusSeeOther)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *server) handleBOQList(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	boqs, err := s.store.ListBOQs(r.Context(), query)
	if err != nil {
		s.serverError(w, "failed to load boqs", err)
		return
	}
	s.renderTemplate(w, http.StatusOK, "boqs.html", boqListViewData{baseViewData: s.base(r), Query: query, BOQs: boqs})
}

func (s *server) handleBOQUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid upload", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		redirectWithMessage(w, r, "/boqs", "error", "Choose a .csv or .xlsx file to upload.")
		return
	}
	defer file.Close()

	records, err := tabular.Parse(file, header.Filename)
	if errors.Is(err, tabular.ErrUnsupportedFormat) {
		redirectWithMessage(w, r, "/boqs", "error", "Only .csv and .xlsx files are supported.")
		return
	}
	if err != nil {
		s.log.Warn("unreadable upload", "file", header.Filename, "error", err)
		redirectWithMessage(w, r, "/boqs", "error", "The file could not be read.")
		return
	}
	if len(records) == 0 {
		redirectWithMessage(w, r, "/boqs", "error", "The file has no rows.")
		return
	}

	created, err := s.store.CreateBOQ(r.Context(), r.FormValue("title"), header.Filename, records)
	if err != nil {
		s.serverError(w, "failed to save boq", err)
		return
	}
	s.log.Info("boq uploaded", "boq_id", created.ID, "file", header.Filename, "rows", created.Rows)
	http.Redirect(w, r, "/boqs/"+created.ID, http.StatusSeeOther)
}

func (s *server) handleBOQView(w http.ResponseWriter, r *http.Request) {
	view, err := s.ws.View(r.Context(), chi.URLParam(r, "id"), s.viewer(w, r))
	if err != nil {
		s.engineError(w, r, err)
		return
	}
	s.renderTemplate(w, http.StatusOK, "boq.html", boqViewData{
		baseViewData: s.base(r),
		View:         view,
		Fields:       []boq.Field{boq.FieldQuantity, boq.FieldRate, boq.FieldMarkup},
	})
}

func (s *server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		code = strings.TrimSpace(r.FormValue("code"))
	}
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}
	if _, err := s.ws.Toggle(r.Context(), id, s.viewer(w, r), code); err != nil {
		s.engineError(w, r, err)
		return
	}
	http.Redirect(w, r, "/boqs/"+id+"#row-"+url.PathEscape(code), http.StatusSeeOther)
}

func (s *server) handleExpandAll(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.ws.ExpandAll(r.Context(), id, s.viewer(w, r)); err != nil {
		s.engineError(w, r, err)
		return
	}
	http.Redirect(w, r, "/boqs/"+id, http.StatusSeeOther)
}

func (s *server) handleCollapseAll(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.ws.CollapseAll(r.Context(), id, s.viewer(w, r)); err != nil {
		s.engineError(w, r, err)
		return
	}
	http.Redirect(w, r, "/boqs/"+id, http.StatusSeeOther)
}

func (s *server) handleRowEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pos, err := strconv.Atoi(chi.URLParam(r, "pos"))
	if err != nil || pos < 0 {
		http.Error(w, "invalid row position", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	field := boq.Field(strings.ToLower(strings.TrimSpace(r.FormValue("field"))))
	if err := s.ws.Edit(r.Context(), id, pos, field, r.FormValue("value")); err != nil {
		s.engineError(w, r, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/boqs/%s#pos-%d", id, pos), http.StatusSeeOther)
}

func (s *server) handleRowsJSON(w http.ResponseWriter, r *http.Request) {
	detail, err := s.ws.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.engineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRowsPayload(detail))
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.ws.Export(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.engineError(w, r, err)
		return
	}
	out, err := export.GenerateExcel(data)
	if err != nil {
		s.serverError(w, "failed to build spreadsheet", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFileName(data.Title)))
	_, _ = w.Write(out)
}

func (s *server) handleBOQDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteBOQ(r.Context(), id); err != nil {
		s.engineError(w, r, err)
		return
	}
	s.ws.Evict(id)
	s.log.Info("boq deleted", "boq_id", id)
	redirectWithMessage(w, r, "/boqs", "success", "BOQ deleted.")
}

// engineError maps workspace and store errors to status codes.
func (s *server) engineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, boq.ErrRowNotFound):
		http.NotFound(w, r)
	case errors.Is(err, boq.ErrNotEditable), errors.Is(err, boq.ErrUnknownField):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.serverError(w, "request failed", err)
	}
}

func (s *server) serverError(w http.ResponseWriter, msg string, err error) {
	s.log.Error(msg, "error", err)
	http.Error(w, msg, http.StatusInternalServerError)
}

func redirectWithMessage(w http.ResponseWriter, r *http.Request, path, key, msg string) {
	http.Redirect(w, r, path+"?"+key+"="+url.QueryEscape(msg), http.StatusSeeOther)
}

func exportFileName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		}
		return -1
	}, strings.TrimSpace(title))
	if name == "" {
		name = "boq"
	}
	return name + ".xlsx"
}
