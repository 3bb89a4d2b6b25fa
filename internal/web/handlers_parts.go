package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/partflow/internal/core"
	"github.com/JonMunkholm/partflow/internal/web/templates"
)

// multipartMemory is how much of a multipart body is buffered in memory;
// the rest spills to temporary files.
const multipartMemory = 8 << 20

// multipartOverhead allows for form boundaries and fields on top of the file.
const multipartOverhead = 1 << 20

// maxJSONBody bounds JSON part creation requests.
const maxJSONBody = 1 << 20

// handleImport imports a catalog file from the "file" form field.
// Optional form fields: encoding, group_column.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.respondFormError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size > maxSize {
		s.respondError(w, r, fmt.Errorf("%w: %d bytes", core.ErrFileTooLarge, header.Size), http.StatusRequestEntityTooLarge)
		return
	}

	opts := core.ImportOptions{
		FileName: header.Filename,
		Encoding: strings.TrimSpace(r.FormValue("encoding")),
	}
	if v := strings.TrimSpace(r.FormValue("group_column")); v != "" {
		col, err := strconv.Atoi(v)
		if err != nil || col < 0 {
			s.respondError(w, r, &core.ValidationError{Field: "group_column", Message: "must be a non-negative column index"}, http.StatusBadRequest)
			return
		}
		opts.GroupColumn = &col
	}

	res, err := s.service.ImportParts(r.Context(), file, actingUser(r), opts)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		templates.ImportSummary(res).Render(r.Context(), w)
		return
	}
	writeJSON(w, res)
}

// handleCreatePart creates one part from a JSON body, or from a multipart
// form with an optional "drawing" file.
func (s *Server) handleCreatePart(w http.ResponseWriter, r *http.Request) {
	var (
		in   core.PartInput
		opts core.CreateOptions
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+multipartOverhead)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			s.respondFormError(w, r, err)
			return
		}
		defer r.MultipartForm.RemoveAll()

		var err error
		if in, err = partInputFromForm(r); err != nil {
			s.respondError(w, r, err, http.StatusBadRequest)
			return
		}

		if file, header, err := r.FormFile("drawing"); err == nil {
			defer file.Close()
			opts.Drawing = &core.Attachment{FileName: header.Filename, Content: file}
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			s.respondError(w, r, &core.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()}, http.StatusBadRequest)
			return
		}
	}

	part, err := s.service.CreatePart(r.Context(), in, actingUser(r), opts)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusCreated)
		templates.PartCreated(part).Render(r.Context(), w)
		return
	}
	writeJSONStatus(w, http.StatusCreated, part)
}

func partInputFromForm(r *http.Request) (core.PartInput, error) {
	in := core.PartInput{
		DesignationCode:    r.FormValue("designation_code"),
		ProductDesignation: r.FormValue("product_designation"),
		Name:               r.FormValue("name"),
		Size:               r.FormValue("size"),
		Material:           r.FormValue("material"),
	}

	qty, err := strconv.Atoi(strings.TrimSpace(r.FormValue("quantity_total")))
	if err != nil {
		return in, &core.ValidationError{Field: "quantity_total", Message: "must be a whole number"}
	}
	in.QuantityTotal = qty

	if v := strings.TrimSpace(r.FormValue("route_template_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return in, &core.ValidationError{Field: "route_template_id", Message: "must be a numeric id"}
		}
		in.RouteTemplateID = &id
	}
	return in, nil
}

// respondFormError reports a multipart parse failure, distinguishing an
// oversized body from a malformed one.
func (s *Server) respondFormError(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		s.respondError(w, r, fmt.Errorf("%w: %w", core.ErrFileTooLarge, err), http.StatusRequestEntityTooLarge)
		return
	}
	s.respondError(w, r, &core.ValidationError{Field: "form", Message: err.Error()}, http.StatusBadRequest)
}

// handleCompleteStage records the part's next route step as completed by the acting user.
func (s *Server) handleCompleteStage(w http.ResponseWriter, r *http.Request) {
	part, err := s.service.CompleteNextStage(r.Context(), pathParam(r, "code"), actingUser(r))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, part)
}

func (s *Server) handleGetPart(w http.ResponseWriter, r *http.Request) {
	part, err := s.service.GetPart(r.Context(), pathParam(r, "code"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, part)
}

// handleGetDrawing serves the drawing attached to a part.
func (s *Server) handleGetDrawing(w http.ResponseWriter, r *http.Request) {
	part, err := s.service.GetPart(r.Context(), pathParam(r, "code"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	path := s.service.AttachmentPath(part.DrawingFilename)
	if path == "" {
		err := fmt.Errorf("drawing of part %q: %w", part.DesignationCode, core.ErrNotFound)
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, path)
}
