package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"
	"time"

	appLog "rxremind/internal/log"
	"rxremind/internal/model"
	"rxremind/internal/refill"
	"rxremind/internal/schedule"
)

//go:embed templates/print.html
var templatesFS embed.FS

var printTemplate = template.Must(
	template.New("print.html").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templatesFS, "templates/print.html"),
)

type printRow struct {
	model.Medication
	Times model.ScheduleTimes
}

type printPage struct {
	Prescription model.Prescription
	Rows         []printRow
	RefillDate   string
	PrintedAt    time.Time
}

// handlePrintPrescription renders the printable page that headless Chromium
// turns into a PDF. The body carries data-ready="true" once rendered.
func (s *Server) handlePrintPrescription(w http.ResponseWriter, r *http.Request) {
	p, err := s.mgr.Prescription(r.Context(), r.PathValue("id"))
	if err != nil {
		writeManagerError(w, "print prescription", err)
		return
	}

	page := printPage{
		Prescription: p,
		Rows:         make([]printRow, 0, len(p.Medications)),
		PrintedAt:    s.mgr.Now(),
	}
	for _, m := range p.Medications {
		page.Rows = append(page.Rows, printRow{Medication: m, Times: schedule.ParseFrequency(m.Frequency)})
	}
	if date, ok := refill.ResolveRefillDate(p.Date, p.Medications); ok {
		page.RefillDate = date
	}

	var buf bytes.Buffer
	if err := printTemplate.Execute(&buf, page); err != nil {
		appLog.Error("print template failed", err, "id", p.ID)
		writeError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
