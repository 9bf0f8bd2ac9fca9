package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/JonMunkholm/brokerstatements/internal/core"
	"github.com/JonMunkholm/brokerstatements/internal/logging"
	"github.com/JonMunkholm/brokerstatements/internal/sheet"
)

// maxMemory is the part of a multipart upload kept in memory.
const maxMemory = 8 << 20

// formatInfo describes one registered statement format.
type formatInfo struct {
	Key             string `json:"key"`
	Broker          string `json:"broker"`
	Label           string `json:"label"`
	Detectable      bool   `json:"detectable"`
	PortfolioMarker string `json:"portfolioMarker,omitempty"`
}

// tableErrorResponse reports a table that failed while others succeeded.
type tableErrorResponse struct {
	Table   string `json:"table"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statementResponse is the body of a parsed statement. Errors lists the
// tables whose records were discarded.
type statementResponse struct {
	Result *core.Result         `json:"result"`
	Errors []tableErrorResponse `json:"errors,omitempty"`
}

// handleListFormats returns the registered formats ordered by broker.
func (s *Server) handleListFormats(w http.ResponseWriter, r *http.Request) {
	all := core.All()
	out := make([]formatInfo, 0, len(all))
	for _, f := range all {
		out = append(out, formatInfo{
			Key:             f.Key,
			Broker:          f.Broker,
			Label:           f.Label,
			Detectable:      f.Detect != nil,
			PortfolioMarker: f.PortfolioMarker,
		})
	}
	render.JSON(w, r, out)
}

// handleParseStatement parses the uploaded "file" form field.
//
// Optional form values: "portfolio" overrides the statement's account and
// "date" (YYYY-MM-DD) stamps records of undated tables.
func (s *Server) handleParseStatement(w http.ResponseWriter, r *http.Request) {
	formatKey := chi.URLParam(r, "format")

	in, err := s.readStatement(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	in.Format = formatKey

	if err := s.limiter.Acquire(r.Context()); err != nil {
		if errors.Is(err, core.ErrTooManyParses) {
			s.metrics.Rejected()
			w.Header().Set("Retry-After", "5")
		}
		s.respondError(w, r, err, statusFor(err))
		return
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Parse.Timeout)
	defer cancel()

	logger := logging.WithFields(ctx, "file", in.Name, "format", formatKey)
	in.Logger = logger

	start := time.Now()
	res, err := core.ParseStatement(ctx, in)
	s.metrics.Observe(formatKey, res, err, time.Since(start))

	if res == nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	resp := statementResponse{Result: res}
	for _, te := range core.TableErrors(err) {
		msg := core.MapError(te)
		resp.Errors = append(resp.Errors, tableErrorResponse{
			Table:   te.Table,
			Error:   te.Error(),
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
		})
	}
	if len(resp.Errors) > 0 {
		logger.Warn("statement parsed with table errors",
			"statement_id", res.StatementID,
			"failed_tables", len(resp.Errors),
		)
	}
	logger.Info("statement parsed",
		"statement_id", res.StatementID,
		"detected_format", res.Format,
		"records", res.RecordCount(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	render.JSON(w, r, resp)
}

// readStatement reads the upload and form values into a StatementInput.
func (s *Server) readStatement(w http.ResponseWriter, r *http.Request) (core.StatementInput, error) {
	var in core.StatementInput

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Parse.MaxFileSize)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return in, uploadError(err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return in, fmt.Errorf("no file provided: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return in, uploadError(err)
	}

	wb, err := sheet.Open(header.Filename, data)
	if err != nil {
		return in, err
	}

	in.Name = header.Filename
	in.Workbook = wb
	in.Registrar = s.registrar
	in.Portfolio = r.FormValue("portfolio")
	in.DefaultPortfolio = s.cfg.Parse.DefaultPortfolio

	if v := r.FormValue("date"); v != "" {
		d, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return in, fmt.Errorf("invalid statement date %q: %w", v, err)
		}
		in.Date = d
	}
	return in, nil
}

// uploadError recognizes a body cut by http.MaxBytesReader, which multipart
// parsing does not always wrap.
func uploadError(err error) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) || strings.Contains(err.Error(), "request body too large") {
		return fmt.Errorf("%w: %v", errFileTooLarge, err)
	}
	return fmt.Errorf("read upload: %w", err)
}
