package web

import (
	"net/http"
	"time"

	"rxremind/internal/ics"
	appLog "rxremind/internal/log"
	"rxremind/internal/model"
	"rxremind/internal/refill"
	"rxremind/internal/schedule"
)

// maxUpcomingDays caps the /api/upcoming window.
const maxUpcomingDays = 60

type frequencyResponse struct {
	Text  string              `json:"text"`
	Times model.ScheduleTimes `json:"times"`
}

// handleFrequency previews the schedule for a free-text frequency.
//
// GET /api/frequency?text=1-0-1
func (s *Server) handleFrequency(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	writeJSON(w, http.StatusOK, frequencyResponse{
		Text:  text,
		Times: schedule.ParseFrequency(text),
	})
}

func (s *Server) handleFrequencyRules(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, schedule.Rules())
}

type refillDateRequest struct {
	Date        string             `json:"date"`
	Medications []model.Medication `json:"medications"`
}

type refillDateResponse struct {
	RefillDate string `json:"refill_date"`
	CourseDays int    `json:"course_days"`
}

// handleRefillDate computes a refill date without saving anything.
func (s *Server) handleRefillDate(w http.ResponseWriter, r *http.Request) {
	var req refillDateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	date, ok := refill.ResolveRefillDate(req.Date, req.Medications)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "could not determine a refill date")
		return
	}
	days, _ := refill.LongestCourse(req.Medications)
	writeJSON(w, http.StatusOK, refillDateResponse{RefillDate: date, CourseDays: days})
}

func (s *Server) handleListPrescriptions(w http.ResponseWriter, r *http.Request) {
	ps, err := s.mgr.Prescriptions(r.Context())
	if err != nil {
		writeManagerError(w, "list prescriptions", err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

type saveResponse struct {
	Prescription  model.Prescription    `json:"prescription"`
	Refill        *model.RefillReminder `json:"refill,omitempty"`
	RefillCreated bool                  `json:"refill_created"`
	RefillError   string                `json:"refill_error,omitempty"`
}

// handleSavePrescription stores a prescription and schedules its refill.
// A missing refill date is reported in the body, not as a failure.
func (s *Server) handleSavePrescription(w http.ResponseWriter, r *http.Request) {
	var p model.Prescription
	if !decodeJSON(w, r, &p) {
		return
	}
	res, err := s.mgr.SavePrescription(r.Context(), p)
	if err != nil {
		writeManagerError(w, "save prescription", err)
		return
	}
	resp := saveResponse{
		Prescription:  res.Prescription,
		Refill:        res.Refill,
		RefillCreated: res.RefillCreated,
	}
	if res.RefillErr != nil {
		resp.RefillError = res.RefillErr.Error()
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetPrescription(w http.ResponseWriter, r *http.Request) {
	p, err := s.mgr.Prescription(r.Context(), r.PathValue("id"))
	if err != nil {
		writeManagerError(w, "get prescription", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type renameRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleRenamePrescription(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := s.mgr.RenamePrescription(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		writeManagerError(w, "rename prescription", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePrescription(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.DeletePrescription(r.Context(), r.PathValue("id")); err != nil {
		writeManagerError(w, "delete prescription", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListReminders(w http.ResponseWriter, r *http.Request) {
	rs, err := s.mgr.Reminders(r.Context())
	if err != nil {
		writeManagerError(w, "list reminders", err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

type setReminderRequest struct {
	PrescriptionID string `json:"prescription_id"`
	MedicationName string `json:"medication_name"`
}

func (s *Server) handleSetReminder(w http.ResponseWriter, r *http.Request) {
	var req setReminderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rem, err := s.mgr.SetReminder(r.Context(), req.PrescriptionID, req.MedicationName)
	if err != nil {
		writeManagerError(w, "set reminder", err)
		return
	}
	writeJSON(w, http.StatusCreated, rem)
}

func (s *Server) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.DeleteReminder(r.Context(), r.PathValue("id")); err != nil {
		writeManagerError(w, "delete reminder", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListRefills(w http.ResponseWriter, r *http.Request) {
	rs, err := s.mgr.Refills(r.Context())
	if err != nil {
		writeManagerError(w, "list refills", err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (s *Server) handleDeleteRefill(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.DeleteRefill(r.Context(), r.PathValue("id")); err != nil {
		writeManagerError(w, "delete refill", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type upcomingResponse struct {
	Doses      []ics.Dose `json:"doses"`
	RangeStart time.Time  `json:"range_start"`
	RangeEnd   time.Time  `json:"range_end"`
}

// handleUpcoming lists concrete doses from now on.
//
// GET /api/upcoming?days=7
func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	days := parseIntDefault(r.URL.Query().Get("days"), s.cfg.UpcomingDays)
	if days <= 0 {
		days = s.cfg.UpcomingDays
	}
	if days > maxUpcomingDays {
		days = maxUpcomingDays
	}

	rs, err := s.mgr.Reminders(r.Context())
	if err != nil {
		writeManagerError(w, "upcoming", err)
		return
	}
	from := s.mgr.Now()
	to := from.AddDate(0, 0, days)

	appLog.Debug("api upcoming request", "days", days, "reminders", len(rs))
	writeJSON(w, http.StatusOK, upcomingResponse{
		Doses:      ics.Upcoming(rs, from, to),
		RangeStart: from,
		RangeEnd:   to,
	})
}

// handleCalendar serves every reminder and refill as an iCalendar feed.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ps, err := s.mgr.Prescriptions(ctx)
	if err != nil {
		writeManagerError(w, "calendar", err)
		return
	}
	rs, err := s.mgr.Reminders(ctx)
	if err != nil {
		writeManagerError(w, "calendar", err)
		return
	}
	refills, err := s.mgr.Refills(ctx)
	if err != nil {
		writeManagerError(w, "calendar", err)
		return
	}

	body := ics.Export(ics.ExportOptions{
		Prescriptions: ps,
		Reminders:     rs,
		Refills:       refills,
		Now:           s.mgr.Now(),
	})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="rxremind.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
