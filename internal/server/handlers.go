package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/Mr-Dark-debug/fastline/internal/config"
	"github.com/Mr-Dark-debug/fastline/internal/database"
	"github.com/Mr-Dark-debug/fastline/internal/metrics"
	"github.com/Mr-Dark-debug/fastline/internal/timeline"
	"github.com/Mr-Dark-debug/fastline/internal/transfer"
	"github.com/Mr-Dark-debug/fastline/pkg/jsonutil"
	"github.com/gorilla/mux"
)

// maxBodyBytes caps request bodies; imports are the largest.
const maxBodyBytes = 10 * 1024 * 1024

// ============================================================
// Request / response types
// ============================================================

type startRequest struct {
	Start       *time.Time `json:"start,omitempty"`
	GoalMinutes *int       `json:"goal_minutes,omitempty"`
	Note        string     `json:"note,omitempty"`
}

type stopRequest struct {
	End *time.Time `json:"end,omitempty"`
}

// updateRequest carries the fields of a fast to change; nil leaves a
// field as it is.
type updateRequest struct {
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
	GoalMinutes *int       `json:"goal_minutes,omitempty"`
	Note        *string    `json:"note,omitempty"`
}

type preferenceRequest struct {
	Value *string `json:"value"`
}

type activeResponse struct {
	Fast           *database.Fast `json:"fast"`
	ElapsedMinutes int            `json:"elapsed_minutes"`
	GoalReached    bool           `json:"goal_reached"`
}

type dayResponse struct {
	Date          string             `json:"date"`
	Segments      []timeline.Segment `json:"segments"`
	ActiveMinutes int                `json:"active_minutes"`
}

type monthResponse struct {
	Year  int                    `json:"year"`
	Month int                    `json:"month"`
	Days  []timeline.DayTimeline `json:"days"`
}

// requestError is a client error carrying its status code.
type requestError struct {
	code int
	msg  string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{code: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCounters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Counters())
}

func (s *Server) handleListFasts(w http.ResponseWriter, r *http.Request) {
	settings, _ := s.current()
	q := r.URL.Query()
	var filter database.FastFilter

	if v := q.Get("since"); v != "" {
		t, err := parseTimeParam(v, settings.Location)
		if err != nil {
			s.writeError(w, badRequest("invalid since: %v", err))
			return
		}
		filter.Since = &t
	}
	if v := q.Get("until"); v != "" {
		t, err := parseTimeParam(v, settings.Location)
		if err != nil {
			s.writeError(w, badRequest("invalid until: %v", err))
			return
		}
		filter.Until = &t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, badRequest("invalid limit %q", v))
			return
		}
		filter.Limit = n
	}
	filter.OnlyCompleted = q.Get("completed") == "true"

	fasts, err := s.store.QueryFasts(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if fasts == nil {
		fasts = []*database.Fast{}
	}
	writeJSON(w, http.StatusOK, fasts)
}

func (s *Server) handleActiveFast(w http.ResponseWriter, r *http.Request) {
	fast, err := s.store.ActiveFast(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := activeResponse{Fast: fast}
	if fast != nil {
		now := s.now()
		resp.ElapsedMinutes = int(fast.Duration(now) / time.Minute)
		resp.GoalReached = fast.GoalReached(now)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetFast(w http.ResponseWriter, r *http.Request) {
	fast, err := s.store.GetFast(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fast)
}

func (s *Server) handleStartFast(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	start := s.now()
	if req.Start != nil {
		start = *req.Start
	}
	settings, _ := s.current()
	goal := settings.DefaultGoal
	if req.GoalMinutes != nil {
		if *req.GoalMinutes < 0 {
			s.writeError(w, badRequest("goal_minutes must not be negative"))
			return
		}
		goal = time.Duration(*req.GoalMinutes) * time.Minute
	}

	fast, err := s.store.StartFast(r.Context(), start, goal, req.Note)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.purgeDays()
	atomic.AddInt64(&s.counters.FastsStarted, 1)
	metrics.FastsStarted.Inc()
	metrics.SetActive(true)
	s.logger.Info().Str("id", fast.ID).Int("goal_minutes", fast.GoalMinutes).Msg("Fast started")

	writeJSON(w, http.StatusCreated, fast)
}

func (s *Server) handleStopFast(w http.ResponseWriter, r *http.Request) {
	var req stopRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	end := s.now()
	if req.End != nil {
		end = *req.End
	}

	fast, err := s.store.StopFast(r.Context(), end)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.purgeDays()
	atomic.AddInt64(&s.counters.FastsStopped, 1)
	metrics.FastsStopped.Inc()
	metrics.SetActive(false)
	s.logger.Info().Str("id", fast.ID).Dur("duration", fast.Duration(end)).Msg("Fast stopped")

	writeJSON(w, http.StatusOK, fast)
}

func (s *Server) handleDeleteFast(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.store.DeleteFast(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.purgeDays()
	s.syncActiveGauge(r.Context())
	s.logger.Info().Str("id", id).Msg("Fast deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateFast(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	fast, err := s.store.GetFast(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	if req.Start != nil {
		fast.StartTime = *req.Start
	}
	if req.End != nil {
		if fast.Ongoing() {
			s.writeError(w, badRequest("fast %s is ongoing; stop it instead", fast.ID))
			return
		}
		fast.EndTime = req.End
	}
	if req.GoalMinutes != nil {
		if *req.GoalMinutes < 0 {
			s.writeError(w, badRequest("goal_minutes must not be negative"))
			return
		}
		fast.GoalMinutes = *req.GoalMinutes
	}
	if req.Note != nil {
		fast.Note = *req.Note
	}

	if err := s.store.UpdateFast(r.Context(), fast); err != nil {
		s.writeError(w, err)
		return
	}

	s.purgeDays()
	s.logger.Info().Str("id", fast.ID).Msg("Fast updated")
	writeJSON(w, http.StatusOK, fast)
}

func (s *Server) handleDayTimeline(w http.ResponseWriter, r *http.Request) {
	day, err := timeline.ParseDay(mux.Vars(r)["date"])
	if err != nil {
		s.writeError(w, badRequest("invalid date: %v", err))
		return
	}

	key := day.String()
	if resp, ok := s.days.Get(key); ok {
		metrics.ObserveDayCache(true)
		writeJSON(w, http.StatusOK, resp)
		return
	}
	metrics.ObserveDayCache(false)

	gen := s.dayGeneration()
	settings, _ := s.current()
	loc := settings.Location
	now := s.now()
	dayEnd := day.End(loc)
	fasts, err := s.store.FastsOverlapping(r.Context(), day.Start(loc), dayEnd)
	if err != nil {
		s.writeError(w, err)
		return
	}

	segs := timeline.Segments(day, loc, now, database.Intervals(fasts))
	resp := dayResponse{
		Date:          key,
		Segments:      segs,
		ActiveMinutes: int(timeline.ActiveDuration(segs, day.Length(loc)) / time.Minute),
	}
	if settled(fasts, dayEnd, now) {
		s.cacheDay(gen, key, resp)
	}
	writeJSON(w, http.StatusOK, resp)
}

// settled reports whether a day timeline can no longer change without a
// write: the day is over and none of its fasts is still open.
func settled(fasts []*database.Fast, dayEnd, now time.Time) bool {
	if now.Before(dayEnd) {
		return false
	}
	for _, f := range fasts {
		if f.Ongoing() {
			return false
		}
	}
	return true
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	year, err := strconv.Atoi(vars["year"])
	if err != nil || year < 1 || year > 9999 {
		s.writeError(w, badRequest("invalid year %q", vars["year"]))
		return
	}
	month, err := strconv.Atoi(vars["month"])
	if err != nil || month < 1 || month > 12 {
		s.writeError(w, badRequest("invalid month %q", vars["month"]))
		return
	}

	settings, _ := s.current()
	loc := settings.Location
	first := timeline.Day{Year: year, Month: time.Month(month), Day: 1}
	next := first.AddDays(timeline.DaysIn(year, time.Month(month)))
	fasts, err := s.store.FastsOverlapping(r.Context(), first.Start(loc), next.Start(loc))
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, monthResponse{
		Year:  year,
		Month: month,
		Days:  timeline.Month(year, time.Month(month), loc, s.now(), database.Intervals(fasts)),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 366 {
			s.writeError(w, badRequest("days must be between 1 and 366"))
			return
		}
		days = n
	}

	_, analyzer := s.current()
	report, err := analyzer.FullReport(r.Context(), days, s.now())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	settings, _ := s.current()
	now := s.now()
	doc, err := transfer.Build(r.Context(), s.store, now)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="fastline-%s.json"`, now.In(settings.Location).Format("20060102")))
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	doc, err := transfer.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, badRequest("%v", err))
		return
	}

	opts := transfer.ImportOptions{SkipPreferences: r.URL.Query().Get("skip_preferences") == "true"}
	result, err := transfer.Apply(r.Context(), s.store, doc, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if result.Preferences > 0 {
		if err := s.LoadPreferences(r.Context()); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to reload preferences")
		}
	}
	s.purgeDays()
	atomic.AddInt64(&s.counters.FastsImported, int64(result.Fasts))
	metrics.FastsImported.Add(float64(result.Fasts))
	s.syncActiveGauge(r.Context())
	s.logger.Info().Int("fasts", result.Fasts).Int("preferences", result.Preferences).Msg("Import applied")

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.store.Preferences(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (s *Server) handleSetPreference(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	var req preferenceRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Value == nil {
		s.writeError(w, badRequest("value is required"))
		return
	}
	if err := config.ValidatePreference(key, *req.Value); err != nil {
		s.writeError(w, badRequest("%v", err))
		return
	}

	if err := s.store.SetPreference(r.Context(), key, *req.Value); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.LoadPreferences(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info().Str("key", key).Str("value", *req.Value).Msg("Preference set")
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": *req.Value})
}

func (s *Server) handleDeletePreference(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if err := s.store.DeletePreference(r.Context(), key); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.LoadPreferences(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info().Str("key", key).Msg("Preference removed")
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================
// Helpers
// ============================================================

// decodeBody decodes an optional JSON body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v any) error {
	err := jsonutil.DecodeStrict(io.LimitReader(r.Body, maxBodyBytes), v)
	if err != nil && !errors.Is(err, io.EOF) {
		return badRequest("invalid request body: %v", err)
	}
	return nil
}

// parseTimeParam accepts RFC 3339 timestamps or YYYY-MM-DD dates, the
// latter meaning midnight in loc.
func parseTimeParam(v string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	day, err := timeline.ParseDay(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("want RFC 3339 or YYYY-MM-DD, got %q", v)
	}
	return day.Start(loc), nil
}

// statusFor maps store and request errors to HTTP status codes.
func statusFor(err error) int {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.code
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, database.ErrFastInProgress), errors.Is(err, database.ErrNoActiveFast):
		return http.StatusConflict
	case errors.Is(err, database.ErrInvalidInterval), errors.Is(err, transfer.ErrUnsupportedVersion):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		atomic.AddInt64(&s.counters.ErrorCount, 1)
		s.logger.Error().Err(err).Msg("Request failed")
		msg = "internal error"
	}
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
