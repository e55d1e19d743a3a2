package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/visitlog/internal/export"
	"github.com/kalambet/visitlog/internal/logbook"
	"github.com/kalambet/visitlog/internal/query"
	"github.com/kalambet/visitlog/internal/report"
)

type AppDeps struct {
	Book     *logbook.Book
	Exporter *export.Exporter
	Token    string
	Metrics  *Metrics         // optional; a private registry is created when nil
	Now      func() time.Time // optional; defaults to time.Now
}

func NewAppHandler(deps AppDeps) http.Handler {
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics(deps.Book)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	r := chi.NewRouter()
	r.Use(deps.Metrics.Middleware)

	r.Get("/health", handleHealth)
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/reports", handleListReports(deps))
		r.Post("/reports", handleSubmitReport(deps))
		r.Post("/reports/batch", handleAddBatch(deps))
		r.Get("/reports/{id}", handleGetReport(deps))
		r.Put("/reports/{id}", handleUpdateReport(deps))
		r.Delete("/reports/{id}", handleDeleteReport(deps))

		r.Get("/report-number", handleReportNumber(deps))
		r.Get("/serial/next", handleNextSerial(deps))
		r.Get("/defaults", handleDefaults(deps))
		r.Get("/suggestions/{kind}", handleSuggestions(deps))
		r.Get("/recent", handleRecent(deps))

		r.Get("/draft", handleListDraft(deps))
		r.Delete("/draft", handleClearDraft(deps))
		r.Post("/draft/commit", handleCommitDraft(deps))
		r.Delete("/draft/{index}", handleRemoveDraft(deps))
		r.Post("/draft/{index}/take", handleTakeDraft(deps))

		r.Post("/exports", handleCreateExport(deps))
		r.Get("/exports", handleListExports(deps))
		r.Get("/exports/{name}", handleDownloadExport(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleListReports(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		col := query.ColumnDate
		if s := q.Get("sort"); s != "" {
			c, err := query.ParseColumn(s)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
				return
			}
			col = c
		}
		dir := query.Desc
		if s := q.Get("dir"); s != "" {
			d, err := query.ParseDirection(s)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
				return
			}
			dir = d
		}

		all := deps.Book.Reports.List()
		if q.Get("month") != "" || q.Get("year") != "" {
			month, errM := strconv.Atoi(q.Get("month"))
			year, errY := strconv.Atoi(q.Get("year"))
			if errM != nil || errY != nil || month < 1 || month > 12 || year < 1 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "month and year must be given together, month in 1-12")
				return
			}
			all = query.MonthYear(all, month, year)
		}

		view := query.View(all, q.Get("q"), col, dir)
		if view == nil {
			view = []report.Report{}
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func handleSubmitReport(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode, err := logbook.ParseMode(r.URL.Query().Get("mode"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		var in report.Report
		if !decodeBody(w, r, &in) {
			return
		}

		sub, err := deps.Book.Submit(in, mode)
		if err != nil {
			writeError(w, err)
			return
		}
		code := http.StatusCreated
		if sub.Staged {
			code = http.StatusAccepted
		}
		writeJSON(w, code, sub)
	}
}

func handleAddBatch(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in []report.Report
		if !decodeBody(w, r, &in) {
			return
		}

		batch := make([]report.Report, len(in))
		for i, rep := range in {
			rep = rep.Normalize()
			if err := rep.Validate(); err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "entry %d: %v", i, err)
				return
			}
			if rep.ReportNo == "" {
				num, err := report.NumberForDate(rep.Date)
				if err != nil {
					httpError(w, http.StatusBadRequest, "invalid_request_error", "entry %d: %v", i, err)
					return
				}
				rep.ReportNo = num
			}
			batch[i] = rep
		}

		added, err := deps.Book.Reports.AddBatch(batch)
		if err != nil {
			writeError(w, err)
			return
		}
		if added == nil {
			added = []report.Report{}
		}
		writeJSON(w, http.StatusCreated, added)
	}
}

func handleGetReport(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, _, err := deps.Book.Reports.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

func handleUpdateReport(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var in report.Report
		if !decodeBody(w, r, &in) {
			return
		}
		in = in.Normalize()
		if err := in.Validate(); err != nil {
			writeError(w, err)
			return
		}

		if err := deps.Book.Reports.UpdateByID(id, in); err != nil {
			writeError(w, err)
			return
		}
		updated, _, err := deps.Book.Reports.Get(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func handleDeleteReport(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Book.Reports.RemoveByID(chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleReportNumber(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		if date == "" {
			date = report.FormatDate(deps.Now())
		}
		num, err := report.NumberForDate(date)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"date": date, "report_no": num})
	}
}

func handleNextSerial(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"next_serial": deps.Book.Reports.NextSerial()})
	}
}

func handleDefaults(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Book.Defaults(deps.Now()))
	}
}

func handleSuggestions(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := logbook.SuggestionKind(chi.URLParam(r, "kind"))
		list := deps.Book.Suggestions(kind)
		if list == nil {
			httpError(w, http.StatusNotFound, "not_found", "unknown suggestion list %q", kind)
			return
		}

		var values []string
		if q := r.URL.Query().Get("q"); q != "" {
			values = list.Match(q)
		} else {
			values = list.Values()
		}
		if values == nil {
			values = []string{}
		}
		writeJSON(w, http.StatusOK, values)
	}
}

func handleRecent(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := deps.Book.Recent.Entries()
		if entries == nil {
			entries = []report.Report{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func handleListDraft(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := deps.Book.Draft.Entries()
		if entries == nil {
			entries = []report.Report{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func handleCommitDraft(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		added, err := deps.Book.Commit()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, added)
	}
}

func handleClearDraft(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := deps.Book.Draft.Clear()
		writeJSON(w, http.StatusOK, map[string]int{"discarded": n})
	}
}

func handleRemoveDraft(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, ok := parseIndexParam(w, chi.URLParam(r, "index"))
		if !ok {
			return
		}
		if err := deps.Book.Draft.Remove(i); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
	}
}

func handleTakeDraft(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, ok := parseIndexParam(w, chi.URLParam(r, "index"))
		if !ok {
			return
		}
		rep, err := deps.Book.Draft.Take(i)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}
