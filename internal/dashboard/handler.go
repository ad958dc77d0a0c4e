package dashboard

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/pulsedash/pulsedash/internal/activity"
	"github.com/pulsedash/pulsedash/internal/freshness"
	"github.com/pulsedash/pulsedash/internal/localtime"
	"github.com/pulsedash/pulsedash/internal/platform/httpx"
	"github.com/pulsedash/pulsedash/internal/snapshot"
	"github.com/pulsedash/pulsedash/internal/view"
)

// Handler wires the dashboard HTTP endpoints.
type Handler struct {
	logger        *slog.Logger
	templates     *view.Engine
	provider      Provider
	conv          *localtime.Converter
	validate      *validator.Validate
	supportsDates bool
	title         string
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, templates *view.Engine, provider Provider, conv *localtime.Converter, supportsDates bool) *Handler {
	return &Handler{
		logger:        logger,
		templates:     templates,
		provider:      provider,
		conv:          conv,
		validate:      validator.New(),
		supportsDates: supportsDates,
		title:         "Assessments Dashboard",
	}
}

// MountRoutes registers dashboard routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.ShowDashboard)
	r.Get("/export.csv", h.ExportCSV)

	limiter := httprate.Limit(5, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))
	r.With(limiter).Post("/refresh", h.Refresh)
}

// ShowDashboard renders the filtered table, or the explicit no-data state
// when the fetch fails.
func (h *Handler) ShowDashboard(w http.ResponseWriter, r *http.Request) {
	vm := h.loadViewModel(r)
	h.render(w, vm)
}

func (h *Handler) loadViewModel(r *http.Request) ViewModel {
	filters, err := parseFilters(r.URL.Query(), h.validate)
	if err != nil {
		return ViewModel{
			Filters:            filters,
			SupportsDateFilter: h.supportsDates,
			LoadError:          err.Error(),
			filterErr:          err,
		}
	}

	vm := ViewModel{}
	report, fetchedAt, err := h.provider.Fetch(r.Context())
	if err != nil {
		h.logger.Error("load dashboard data", slog.Any("error", err))
		vm = ViewModel{Filters: filters, SupportsDateFilter: h.supportsDates}
		vm.LoadError = loadErrorMessage(err)
		vm.fetchErr = err
	} else {
		vm = buildViewModel(report, fetchedAt, filters, h.conv, h.supportsDates)
	}

	switch r.URL.Query().Get("refresh") {
	case "ok":
		vm.RefreshNotice = "Data refreshed."
	case "denied":
		vm.RefreshNotice = "Incorrect password. Data not refreshed."
		vm.RefreshFailed = true
	case "disabled":
		vm.RefreshNotice = "Manual refresh is not configured."
		vm.RefreshFailed = true
	case "unavailable":
		vm.RefreshNotice = "Refresh is not available for this deployment; the snapshot is updated externally."
		vm.RefreshFailed = true
	case "failed":
		vm.RefreshNotice = "Refresh could not be completed."
		vm.RefreshFailed = true
	}
	return vm
}

// Refresh handles the credential-gated manual refresh. The outcome travels
// back to the dashboard as a query flag; the cache stays untouched on a bad
// credential.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	credential := r.PostFormValue("secret")

	outcome := "ok"
	if err := h.provider.Refresh(r.Context(), credential); err != nil {
		switch {
		case errors.Is(err, freshness.ErrBadCredential):
			outcome = "denied"
		case errors.Is(err, freshness.ErrNoCredentialConfigured):
			outcome = "disabled"
		case errors.Is(err, ErrRefreshUnsupported):
			outcome = "unavailable"
		default:
			h.logger.Error("refresh", slog.Any("error", err))
			outcome = "failed"
		}
	}
	http.Redirect(w, r, "/?refresh="+url.QueryEscape(outcome), http.StatusSeeOther)
}

// ExportCSV streams the currently filtered table.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	vm := h.loadViewModel(r)
	if vm.filterErr != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, vm.filterErr))
		return
	}
	if vm.fetchErr != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrUnavailable, loadErrorMessage(vm.fetchErr)))
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="assessments.csv"`)
	if err := writeCSV(w, vm.Rows); err != nil {
		h.logger.Error("export csv", slog.Any("error", err))
	}
}

func (h *Handler) render(w http.ResponseWriter, vm ViewModel) {
	data := view.TemplateData{Title: h.title, Data: vm}
	if err := h.templates.Render(w, "pages/dashboard.html", data); err != nil {
		h.logger.Error("render dashboard", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func loadErrorMessage(err error) string {
	switch {
	case errors.Is(err, activity.ErrNoCredentials):
		return "Unable to load data: database credentials are missing or incomplete."
	case errors.Is(err, activity.ErrSourceUnavailable):
		return "Unable to load data: the database could not be reached."
	case errors.Is(err, snapshot.ErrNotFound):
		return "No data found. Make sure the snapshot file exists and has been exported."
	default:
		return "Unable to load data."
	}
}
