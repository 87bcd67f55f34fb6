package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/shahabahmd/soil-vegetation-detection/internal/detect"
	"github.com/shahabahmd/soil-vegetation-detection/internal/screen"
)

// User-facing alert messages. Validation and network failures surface as
// blocking alert dialogs on the rendered page, not inline elements.
const (
	MsgSelectImageFirst  = "Please select an image first."
	MsgNotAnImage        = "Only image files can be analyzed."
	MsgUploadFailed      = "The upload could not be read. Please try again."
	MsgNoDetectionResult = "No detections were returned for this image."
	MsgDetectionFailed   = "Something went wrong while detecting. Please try again."
	MsgDetectionBusy     = "A detection is already in progress."
)

// modelOption is one dropdown entry.
type modelOption struct {
	Value    detect.Model
	Label    string
	Selected bool
}

// pageData is everything the index template renders from.
type pageData struct {
	Models []modelOption
	Snap   screen.Snapshot
	Alert  string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	controller := s.session(w, r)
	s.renderPage(w, controller.Snapshot(), "")
}

// handleDetect is the single state-update path both entry points (drop
// target and file picker) converge on: it applies the image selection, the
// model choice and the submission in order, then re-renders the page.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	controller := s.session(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		log.Warn().Err(err).Msg("failed to parse upload form")
		s.renderPage(w, controller.Snapshot(), MsgUploadFailed)
		return
	}

	if model, err := detect.ParseModel(r.FormValue("model")); err == nil {
		controller.ChangeModel(model)
	}

	if alert := s.applyUpload(r, controller); alert != "" {
		s.renderPage(w, controller.Snapshot(), alert)
		return
	}

	alert := ""
	if err := controller.Submit(r.Context()); err != nil {
		switch {
		case errors.Is(err, screen.ErrNoImage):
			alert = MsgSelectImageFirst
		case errors.Is(err, screen.ErrBusy):
			alert = MsgDetectionBusy
		case errors.Is(err, detect.ErrEmptyResult):
			alert = MsgNoDetectionResult
		default:
			alert = MsgDetectionFailed
		}
	}

	s.renderPage(w, controller.Snapshot(), alert)
}

// applyUpload reads the optional file field and feeds it to the controller.
// A missing file is not an error here: submitting without ever selecting an
// image is caught by the controller's own validation. Returns an alert
// message when the upload itself is unusable.
func (s *Server) applyUpload(r *http.Request, controller *screen.Controller) string {
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return ""
	}
	if err != nil {
		log.Warn().Err(err).Msg("failed to read uploaded file")
		return MsgUploadFailed
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		log.Warn().Err(err).Str("name", header.Filename).Msg("failed to read upload bytes")
		return MsgUploadFailed
	}
	if len(data) == 0 {
		return ""
	}

	// The picker advertises image/*, but drag-and-drop can hand over any
	// file, so sniff the real content type.
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		log.Warn().Str("name", header.Filename).Str("contentType", contentType).Msg("rejected non-image upload")
		return MsgNotAnImage
	}

	controller.SelectImage(header.Filename, contentType, data)
	return ""
}

// handlePreview serves the session's uploaded bytes for the original-image
// panel. Tokens from superseded selections or evicted sessions do not
// resolve.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	controller, ok := s.sessions.Get(cookie.Value)
	if !ok {
		http.NotFound(w, r)
		return
	}

	data, contentType, ok := controller.PreviewBytes(r.PathValue("token"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) renderPage(w http.ResponseWriter, snap screen.Snapshot, alert string) {
	data := pageData{
		Snap:  snap,
		Alert: alert,
	}
	for _, m := range detect.Models {
		data.Models = append(data.Models, modelOption{
			Value:    m,
			Label:    m.Label(),
			Selected: m == snap.Model,
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "index.html.tmpl", data); err != nil {
		log.Error().Err(err).Msg("failed to render page")
	}
}
