package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/reprodlocal/reprod/internal/app"
	"github.com/reprodlocal/reprod/internal/types"
)

const maxBodyBytes = 1 << 20

func (s *Server) registerAPI(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/courses", s.listCourses)
	mux.HandleFunc("POST /api/scan", s.scan)
	mux.HandleFunc("GET /api/courses/{id}/modules", s.courseModules)
	mux.HandleFunc("GET /api/courses/{id}/stats", s.courseStats)
	mux.HandleFunc("GET /api/courses/{id}/notes", s.courseNotes)
	mux.HandleFunc("POST /api/courses/{id}/touch", s.touchCourse)
	mux.HandleFunc("DELETE /api/courses/{id}", s.deleteCourse)
	mux.HandleFunc("GET /api/modules/{id}/videos", s.moduleVideos)

	mux.HandleFunc("GET /api/videos/recent", s.recentVideos)
	mux.HandleFunc("GET /api/videos/completed", s.completedVideos)
	mux.HandleFunc("GET /api/videos/incomplete", s.incompleteVideos)
	mux.HandleFunc("GET /api/videos/{id}/progress", s.getProgress)
	mux.HandleFunc("PUT /api/videos/{id}/progress", s.updateProgress)
	mux.HandleFunc("POST /api/videos/{id}/complete", s.markCompleted)
	mux.HandleFunc("POST /api/videos/{id}/incomplete", s.markIncomplete)
	mux.HandleFunc("POST /api/videos/{id}/play", s.playVideo)
	mux.HandleFunc("GET /api/videos/{id}/notes", s.videoNotes)
	mux.HandleFunc("GET /api/videos/{id}/bookmarks", s.videoBookmarks)

	mux.HandleFunc("GET /api/notes", s.allNotes)
	mux.HandleFunc("POST /api/notes", s.createNote)
	mux.HandleFunc("PUT /api/notes/{id}", s.updateNote)
	mux.HandleFunc("DELETE /api/notes/{id}", s.deleteNote)

	mux.HandleFunc("GET /api/bookmarks", s.allBookmarks)
	mux.HandleFunc("POST /api/bookmarks", s.createBookmark)
	mux.HandleFunc("DELETE /api/bookmarks/{id}", s.deleteBookmark)

	mux.HandleFunc("GET /api/settings", s.allSettings)
	mux.HandleFunc("GET /api/settings/{key}", s.getSetting)
	mux.HandleFunc("PUT /api/settings/{key}", s.setSetting)

	mux.HandleFunc("GET /api/activity", s.activity)

	mux.HandleFunc("GET /api/player", s.playerStatus)
	mux.HandleFunc("POST /api/player/stop", s.stopPlayer)
}

func (s *Server) listCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.svc.ListCourses(r.Context())
	respond(w, courses, err)
}

type scanRequest struct {
	Path string `json:"path"`
}

// scan scans the given path, or the configured roots when path is empty.
func (s *Server) scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, err)
		return
	}
	var courses []types.Course
	var err error
	if req.Path == "" {
		courses, err = s.svc.ScanDefaultRoots(r.Context())
	} else {
		courses, err = s.svc.ScanDirectory(r.Context(), req.Path)
	}
	respond(w, courses, err)
}

func (s *Server) courseModules(w http.ResponseWriter, r *http.Request) {
	modules, err := s.svc.CourseModules(r.Context(), r.PathValue("id"))
	respond(w, modules, err)
}

func (s *Server) courseStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.CourseStats(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"course_id":   stats.CourseID,
		"total":       stats.Total,
		"completed":   stats.Completed,
		"in_progress": stats.InProgress,
		"percent":     stats.Percent(),
	})
}

func (s *Server) courseNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.svc.NotesByCourse(r.Context(), r.PathValue("id"))
	respond(w, notes, err)
}

func (s *Server) touchCourse(w http.ResponseWriter, r *http.Request) {
	respondEmpty(w, s.svc.TouchCourse(r.Context(), r.PathValue("id")))
}

func (s *Server) deleteCourse(w http.ResponseWriter, r *http.Request) {
	respondEmpty(w, s.svc.DeleteCourse(r.Context(), r.PathValue("id")))
}

func (s *Server) moduleVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.svc.ModuleVideos(r.Context(), r.PathValue("id"))
	respond(w, videos, err)
}

func (s *Server) recentVideos(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	videos, err := s.svc.RecentVideos(r.Context(), limit)
	respond(w, videos, err)
}

func (s *Server) completedVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.svc.CompletedVideos(r.Context(), r.URL.Query().Get("course"))
	respond(w, videos, err)
}

func (s *Server) incompleteVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.svc.IncompleteVideos(r.Context(), r.URL.Query().Get("course"))
	respond(w, videos, err)
}

func (s *Server) getProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.GetProgress(r.Context(), r.PathValue("id"))
	respond(w, p, err)
}

type progressRequest struct {
	CurrentTime float64 `json:"current_time"`
	Duration    float64 `json:"duration"`
	Completed   bool    `json:"completed"`
}

func (s *Server) updateProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	p, err := s.svc.UpdateProgress(r.Context(), r.PathValue("id"), req.CurrentTime, req.Duration, req.Completed)
	respond(w, p, err)
}

func (s *Server) markCompleted(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.MarkCompleted(r.Context(), r.PathValue("id"))
	respond(w, p, err)
}

func (s *Server) markIncomplete(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.MarkIncomplete(r.Context(), r.PathValue("id"))
	respond(w, p, err)
}

func (s *Server) playVideo(w http.ResponseWriter, r *http.Request) {
	video, err := s.svc.PlayVideo(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"video":  video,
		"player": s.svc.PlayerStatus(),
	})
}

func (s *Server) videoNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.svc.NotesByVideo(r.Context(), r.PathValue("id"))
	respond(w, notes, err)
}

func (s *Server) videoBookmarks(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, fmt.Errorf("video id is required: %w", types.ErrInvalidInput))
		return
	}
	bookmarks, err := s.svc.Bookmarks(r.Context(), id)
	respond(w, bookmarks, err)
}

func (s *Server) allNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.svc.AllNotes(r.Context())
	respond(w, notes, err)
}

func (s *Server) createNote(w http.ResponseWriter, r *http.Request) {
	var in app.NoteInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, err)
		return
	}
	note, err := s.svc.CreateNote(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

type noteUpdate struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s *Server) updateNote(w http.ResponseWriter, r *http.Request) {
	var req noteUpdate
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	note, err := s.svc.UpdateNote(r.Context(), r.PathValue("id"), req.Title, req.Content)
	respond(w, note, err)
}

func (s *Server) deleteNote(w http.ResponseWriter, r *http.Request) {
	respondEmpty(w, s.svc.DeleteNote(r.Context(), r.PathValue("id")))
}

func (s *Server) allBookmarks(w http.ResponseWriter, r *http.Request) {
	bookmarks, err := s.svc.Bookmarks(r.Context(), "")
	respond(w, bookmarks, err)
}

type bookmarkRequest struct {
	VideoID     string  `json:"video_id"`
	Timestamp   float64 `json:"timestamp"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
}

func (s *Server) createBookmark(w http.ResponseWriter, r *http.Request) {
	var req bookmarkRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	b, err := s.svc.CreateBookmark(r.Context(), req.VideoID, req.Timestamp, req.Title, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) deleteBookmark(w http.ResponseWriter, r *http.Request) {
	respondEmpty(w, s.svc.DeleteBookmark(r.Context(), r.PathValue("id")))
}

func (s *Server) allSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.svc.AllSettings(r.Context())
	respond(w, settings, err)
}

func (s *Server) getSetting(w http.ResponseWriter, r *http.Request) {
	setting, err := s.svc.GetSetting(r.Context(), r.PathValue("key"))
	respond(w, setting, err)
}

type settingRequest struct {
	Value string `json:"value"`
	Type  string `json:"type"`
}

func (s *Server) setSetting(w http.ResponseWriter, r *http.Request) {
	var req settingRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	setting, err := s.svc.SetSetting(r.Context(), r.PathValue("key"), req.Value, req.Type)
	respond(w, setting, err)
}

// activity filters by ?type= or ?since= (RFC 3339) and caps with ?limit=.
func (s *Server) activity(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	var entries []types.ActivityLog
	switch {
	case q.Get("type") != "":
		entries, err = s.svc.ActivityByType(r.Context(), q.Get("type"), limit)
	case q.Get("since") != "":
		since, perr := time.Parse(time.RFC3339, q.Get("since"))
		if perr != nil {
			writeError(w, fmt.Errorf("since must be RFC 3339: %w", types.ErrInvalidInput))
			return
		}
		entries, err = s.svc.ActivitySince(r.Context(), since, limit)
	default:
		entries, err = s.svc.RecentActivity(r.Context(), limit)
	}
	respond(w, entries, err)
}

func (s *Server) playerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.PlayerStatus())
}

func (s *Server) stopPlayer(w http.ResponseWriter, r *http.Request) {
	s.svc.Stop()
	writeJSON(w, http.StatusOK, s.svc.PlayerStatus())
}

func respond(w http.ResponseWriter, v any, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func respondEmpty(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, app.HTTPStatus(err), map[string]string{"error": app.Message(err)})
}

// decodeJSON reads the request body into v. An empty body is accepted only
// when optional is set.
func decodeJSON(r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		return fmt.Errorf("malformed request body: %w: %w", types.ErrInvalidInput, err)
	}
	return nil
}

func intQuery(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer: %w", key, types.ErrInvalidInput)
	}
	return n, nil
}
