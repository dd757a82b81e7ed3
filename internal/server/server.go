// Package server exposes the mashup pipeline over HTTP: an HTML form, the
// POST endpoint it submits to, and a health check.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mashup-go/internal/logger"
	"mashup-go/internal/types"
)

const acceptedMessage = "Mashup request processed successfully. Result will be sent to your email."

// Runner executes one mashup request to completion.
type Runner interface {
	RunMashup(ctx context.Context, query string, count, trimSeconds int, destination string) error
}

type Server struct {
	runner Runner
	log    *logger.Logger
}

func New(runner Runner, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	return &Server{runner: runner, log: log.Module("server")}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /mashup", s.handleMashup)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})
	return mux
}

var indexPage = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<form method="post" action="/mashup">
  <label>Singer name <input type="text" name="singer_name" required></label><br>
  <label>Number of videos <input type="number" name="num_videos" min="1" required></label><br>
  <label>Duration of each clip (seconds) <input type="number" name="audio_duration" min="1" required></label><br>
  <label>Email <input type="email" name="email" required></label><br>
  <button type="submit">Create mashup</button>
</form>
</body>
</html>
`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexPage.Execute(w, struct{ Title string }{"Mashup"}); err != nil {
		s.log.WithRequest(r).WithField("error", err.Error()).Error("render index")
	}
}

func (s *Server) handleMashup(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "mashup")

	req, err := parseRequest(r)
	if err != nil {
		reqLog.WithField("error", err.Error()).Warn("rejected request")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	reqLog = reqLog.WithField("singer_name", req.Query).WithField("num_videos", req.Count).
		WithField("audio_duration", req.TrimSeconds).WithField("email", req.Destination)
	reqLog.Info("mashup request received")

	// An accepted request runs to completion even if the client goes away.
	ctx := context.WithoutCancel(r.Context())

	start := time.Now()
	err = s.runner.RunMashup(ctx, req.Query, req.Count, req.TrimSeconds, req.Destination)
	reqLog = reqLog.WithField("duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		reqLog.WithField("error", err.Error()).Warn("mashup failed")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Mashup processing failed: " + err.Error()})
		return
	}
	reqLog.Info("mashup finished")
	writeJSON(w, http.StatusOK, map[string]string{"message": acceptedMessage})
}

// parseRequest coerces the submitted form into a validated Request.
func parseRequest(r *http.Request) (types.Request, error) {
	if err := r.ParseForm(); err != nil {
		return types.Request{}, fmt.Errorf("bad form: %w", err)
	}
	count, err := formInt(r, "num_videos")
	if err != nil {
		return types.Request{}, err
	}
	trim, err := formInt(r, "audio_duration")
	if err != nil {
		return types.Request{}, err
	}
	req := types.Request{
		Query:       strings.TrimSpace(r.PostForm.Get("singer_name")),
		Count:       count,
		TrimSeconds: trim,
		Destination: strings.TrimSpace(r.PostForm.Get("email")),
	}
	if err := req.Validate(); err != nil {
		return types.Request{}, err
	}
	return req, nil
}

func formInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.PostForm.Get(key))
	if raw == "" {
		return 0, fmt.Errorf("%w: missing %s", types.ErrInvalidRequest, key)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", types.ErrInvalidRequest, key, raw)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(body)
}
