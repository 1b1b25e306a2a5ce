package http_handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"strconv"
	"strings"

	sdklogger "github.com/anthanhphan/gosdk/logger"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fileconv/fileconv/internal/convert/config"
	"github.com/fileconv/fileconv/internal/convert/domain"
	"github.com/fileconv/fileconv/internal/convert/port"
)

type Server struct {
	app     *fiber.App
	cfg     *config.Config
	service port.ConversionService
}

func NewServer(cfg *config.Config, service port.ConversionService) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit:         int(cfg.Limits.MaxUploadBytes),
		StreamRequestBody: true,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	s := &Server{
		app:     app,
		cfg:     cfg,
		service: service,
	}

	// Routes
	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	s.app.Post("/files", s.handleUpload)
	s.app.Get("/files/:id", s.handleArtifact)
	s.app.Post("/files/:id/convert", s.handleConvert)
	s.app.Post("/files/:id/extract", s.handleExtract)
	s.app.Post("/files/:id/compress", s.handleCompress)
	s.app.Put("/owners/:id/options", s.handleOptions)
	s.app.Get("/formats", s.handleFormats)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}

func (s *Server) Start() error {
	return s.app.Listen(s.cfg.Server.Addr)
}

func (s *Server) Stop(ctx context.Context) error {
	return s.app.Shutdown()
}

func (s *Server) sendJSONError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	ownerID, ownerSet := int64(0), false
	if raw := c.Get("X-Owner-ID"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return s.sendJSONError(c, fiber.StatusBadRequest, "Invalid X-Owner-ID header")
		}
		ownerID, ownerSet = parsed, true
	}

	contentType := c.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		return s.sendJSONError(c, fiber.StatusBadRequest, "Content-Type must be multipart/form-data")
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return s.sendJSONError(c, fiber.StatusBadRequest, "Invalid Content-Type")
	}
	boundary, ok := params["boundary"]
	if !ok {
		return s.sendJSONError(c, fiber.StatusBadRequest, "Missing boundary in Content-Type")
	}

	// Use raw request body stream
	bodyStream := c.Context().RequestBodyStream()
	if bodyStream == nil {
		bodyStream = bytes.NewReader(c.Body())
	}
	mr := multipart.NewReader(bodyStream, boundary)

	var fileName string
	var src io.Reader
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return s.sendJSONError(c, fiber.StatusBadRequest, fmt.Sprintf("Failed to read multipart: %v", err))
		}
		if part.FileName() != "" {
			fileName = part.FileName()
			src = part
			break
		}
		// The owner_id field must precede the file part in the stream.
		if part.FormName() == "owner_id" && !ownerSet {
			raw, _ := io.ReadAll(io.LimitReader(part, 32))
			parsed, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
			if err == nil {
				ownerID, ownerSet = parsed, true
			}
		}
		_ = part.Close()
	}
	if src == nil {
		return s.sendJSONError(c, fiber.StatusBadRequest, "Missing file part")
	}
	if !ownerSet {
		return s.sendJSONError(c, fiber.StatusBadRequest, "Missing owner_id field or X-Owner-ID header")
	}

	declaredSize := int64(c.Context().Request.Header.ContentLength())
	artifact, err := s.service.Ingest(c.Context(), ownerID, fileName, declaredSize, src)
	if err != nil {
		status := fiber.StatusBadRequest
		switch {
		case errors.Is(err, port.ErrUploadTooLarge):
			status = fiber.StatusRequestEntityTooLarge
		case errors.Is(err, port.ErrIOFailure):
			status = fiber.StatusInternalServerError
		}
		sdklogger.Warnw("Upload rejected", "file_name", fileName, "owner_id", ownerID, "error", err.Error())
		return s.sendJSONError(c, status, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(artifact)
}

func (s *Server) handleArtifact(c *fiber.Ctx) error {
	artifact, err := s.service.GetArtifact(c.Params("id"))
	if err != nil {
		return s.sendJSONError(c, fiber.StatusNotFound, err.Error())
	}
	return c.JSON(artifact)
}

func (s *Server) handleConvert(c *fiber.Ctx) error {
	target := c.Query("target")
	if target == "" {
		return s.sendJSONError(c, fiber.StatusBadRequest, "Missing 'target' query parameter")
	}
	outcome := s.service.Convert(c.Context(), c.Params("id"), target)
	return s.deliverOutcome(c, outcome)
}

func (s *Server) handleCompress(c *fiber.Ctx) error {
	outcome := s.service.Compress(c.Context(), c.Params("id"))
	return s.deliverOutcome(c, outcome)
}

// deliverOutcome sends the converted file back and removes it from disk. The
// orchestrator has already enforced the delivery ceiling, so the whole file
// fits in one response body.
func (s *Server) deliverOutcome(c *fiber.Ctx, outcome domain.ConversionOutcome) error {
	if !outcome.Succeeded() {
		return s.sendJSONError(c, failureStatus(outcome.Reason), outcome.Message)
	}

	body, err := os.ReadFile(outcome.OutputPath)
	if err != nil {
		sdklogger.Errorw("Delivery read failed", "path", outcome.OutputPath, "error", err.Error())
		return s.sendJSONError(c, fiber.StatusInternalServerError, "Converted file could not be read")
	}
	s.service.Discard(outcome.OutputPath)

	name := outputFilename(outcome.OutputPath)
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Set("Content-Type", "application/octet-stream")
	c.Set("X-File-Category", string(domain.KindOf(domain.ExtensionOf(name))))
	c.Set("X-Conversion-Status", string(outcome.Status))
	c.Set("X-Conversion-Message", outcome.Message)
	return c.Send(body)
}

func (s *Server) handleExtract(c *fiber.Ctx) error {
	res := s.service.Extract(c.Context(), c.Params("id"))
	if !res.Succeeded() {
		return s.sendJSONError(c, failureStatus(res.Reason), res.Message)
	}

	listed, withheld := domain.BoundedListing(res.Files, s.cfg.Limits.MaxListedEntries)
	return c.JSON(fiber.Map{
		"status":   res.Status,
		"message":  res.Message,
		"files":    listed,
		"withheld": withheld,
	})
}

func (s *Server) handleOptions(c *fiber.Ctx) error {
	ownerID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return s.sendJSONError(c, fiber.StatusBadRequest, "Invalid owner id")
	}

	var req struct {
		Key   string `json:"key"`
		Value int    `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.sendJSONError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	opts, err := s.service.UpdateOption(ownerID, req.Key, req.Value)
	if err != nil {
		return s.sendJSONError(c, fiber.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(opts)
}

func (s *Server) handleFormats(c *fiber.Ctx) error {
	return c.JSON(domain.AllCapabilities())
}

// failureStatus maps an outcome's failure class to an HTTP status.
func failureStatus(reason domain.FailureReason) int {
	switch reason {
	case domain.ReasonUnknownArtifact:
		return fiber.StatusNotFound
	case domain.ReasonServerBusy:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusUnprocessableEntity
	}
}

func outputFilename(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
