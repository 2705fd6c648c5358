package handler

import (
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/filestore/internal/api/metrics"
	"github.com/99minutos/filestore/internal/core/domain"
	"github.com/99minutos/filestore/internal/core/ports"
)

const (
	msgFileNotFound = "File not found"
	msgInvalidFile  = "Invalid file"
	msgFileMissing  = "file is required"
	msgTooLarge     = "File too large"
)

type FileHandler struct {
	files    ports.FileService
	maxBytes int64
	log      zerolog.Logger
}

func NewFileHandler(files ports.FileService, maxBytes int64, log zerolog.Logger) *FileHandler {
	return &FileHandler{files: files, maxBytes: maxBytes, log: log}
}

// Upload stores the multipart field "file".
//
// @Summary      Upload a file
// @Tags         files
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "File to upload"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  messageResponse
// @Failure      403   {object}  map[string]string
// @Failure      413   {object}  messageResponse
// @Failure      500   {object}  messageResponse
// @Router       /file/upload [post]
func (h *FileHandler) Upload(c echo.Context) error {
	in, cleanup, err := h.uploadInput(c)
	if err != nil {
		return h.fail(c, "upload", err)
	}
	defer cleanup()

	f, err := h.files.Upload(c.Request().Context(), in)
	if err != nil {
		return h.fail(c, "upload", err)
	}

	metrics.FileOperationsTotal.WithLabelValues("upload", "ok").Inc()
	metrics.UploadedBytes.Observe(float64(f.Size))
	return c.JSON(http.StatusOK, messageResponse{Message: "Uploaded!"})
}

// List returns one page of file metadata.
//
// @Summary      List files
// @Tags         files
// @Produce      json
// @Param        list_size  query     int  false  "Page size (default 10, max 100)"
// @Param        page       query     int  false  "Page number (default 1)"
// @Success      200        {array}   domain.File
// @Failure      403        {object}  map[string]string
// @Failure      500        {object}  messageResponse
// @Router       /file/list [get]
func (h *FileHandler) List(c echo.Context) error {
	size, _ := strconv.Atoi(c.QueryParam("list_size"))
	page, _ := strconv.Atoi(c.QueryParam("page"))

	files, err := h.files.List(c.Request().Context(), ports.ListFilesInput{Page: page, Size: size})
	if err != nil {
		return h.fail(c, "list", err)
	}
	metrics.FileOperationsTotal.WithLabelValues("list", "ok").Inc()
	return c.JSON(http.StatusOK, files)
}

// Get returns the metadata of one file.
//
// @Summary      File metadata
// @Tags         files
// @Produce      json
// @Param        id   path      string  true  "File ID"
// @Success      200  {object}  domain.File
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  messageResponse
// @Failure      500  {object}  messageResponse
// @Router       /file/{id} [get]
func (h *FileHandler) Get(c echo.Context) error {
	f, err := h.files.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, "get", err)
	}
	metrics.FileOperationsTotal.WithLabelValues("get", "ok").Inc()
	return c.JSON(http.StatusOK, f)
}

// Download streams the stored bytes as an attachment.
//
// @Summary      Download a file
// @Tags         files
// @Produce      octet-stream
// @Param        id   path      string  true  "File ID"
// @Success      200  {file}    binary
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  messageResponse
// @Failure      500  {object}  messageResponse
// @Router       /file/download/{id} [get]
func (h *FileHandler) Download(c echo.Context) error {
	f, rc, err := h.files.Open(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, "download", err)
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition,
		mime.FormatMediaType("attachment", map[string]string{"filename": f.FileName()}))
	if f.Size > 0 {
		c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(f.Size, 10))
	}
	metrics.FileOperationsTotal.WithLabelValues("download", "ok").Inc()
	return c.Stream(http.StatusOK, f.MimeType, rc)
}

// Update replaces the bytes and metadata of a file.
//
// @Summary      Replace a file
// @Tags         files
// @Accept       multipart/form-data
// @Produce      json
// @Param        id    path      string  true  "File ID"
// @Param        file  formData  file    true  "Replacement file"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  messageResponse
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  messageResponse
// @Failure      413   {object}  messageResponse
// @Failure      500   {object}  messageResponse
// @Router       /file/update/{id} [put]
func (h *FileHandler) Update(c echo.Context) error {
	in, cleanup, err := h.uploadInput(c)
	if err != nil {
		return h.fail(c, "update", err)
	}
	defer cleanup()

	if _, err := h.files.Replace(c.Request().Context(), c.Param("id"), in); err != nil {
		return h.fail(c, "update", err)
	}
	metrics.FileOperationsTotal.WithLabelValues("update", "ok").Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: "Updated!"})
}

// Delete removes a file and its bytes.
//
// @Summary      Delete a file
// @Tags         files
// @Produce      json
// @Param        id   path      string  true  "File ID"
// @Success      200  {object}  messageResponse
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  messageResponse
// @Failure      500  {object}  messageResponse
// @Router       /file/delete/{id} [delete]
func (h *FileHandler) Delete(c echo.Context) error {
	if err := h.files.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return h.fail(c, "delete", err)
	}
	metrics.FileOperationsTotal.WithLabelValues("delete", "ok").Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: "File deleted successfully"})
}

var (
	errFileMissing = errors.New(msgFileMissing)
	errTooLarge    = errors.New(msgTooLarge)
)

// uploadInput reads the "file" form field under the size limit.
func (h *FileHandler) uploadInput(c echo.Context) (ports.UploadInput, func(), error) {
	ownerID, err := ctxUserID(c)
	if err != nil {
		return ports.UploadInput{}, nil, err
	}

	req := c.Request()
	if h.maxBytes > 0 {
		req.Body = http.MaxBytesReader(c.Response(), req.Body, h.maxBytes)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ports.UploadInput{}, nil, errTooLarge
		}
		return ports.UploadInput{}, nil, errFileMissing
	}

	src, err := fh.Open()
	if err != nil {
		return ports.UploadInput{}, nil, err
	}

	cleanup := func() {
		_ = src.Close()
		if req.MultipartForm != nil {
			_ = req.MultipartForm.RemoveAll()
		}
	}
	return ports.UploadInput{
		OriginalName: fh.Filename,
		MimeType:     fh.Header.Get(echo.HeaderContentType),
		Size:         fh.Size,
		Body:         src,
		OwnerID:      ownerID,
	}, cleanup, nil
}

// fail renders the public error for a file operation and counts it.
func (h *FileHandler) fail(c echo.Context, op string, err error) error {
	var (
		code   int
		msg    string
		result string
	)
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		metrics.FileOperationsTotal.WithLabelValues(op, "forbidden").Inc()
		return he
	case errors.Is(err, domain.ErrFileNotFound):
		code, msg, result = http.StatusNotFound, msgFileNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidFile), errors.Is(err, errFileMissing):
		code, msg, result = http.StatusBadRequest, msgInvalidFile, "invalid"
		if errors.Is(err, errFileMissing) {
			msg = msgFileMissing
		}
	case errors.Is(err, errTooLarge):
		code, msg, result = http.StatusRequestEntityTooLarge, msgTooLarge, "invalid"
	default:
		h.log.Error().Err(err).Str("op", op).Str("file_id", c.Param("id")).Msg("file operation failed")
		code, msg, result = http.StatusInternalServerError, msgServerError, "error"
	}
	metrics.FileOperationsTotal.WithLabelValues(op, result).Inc()
	return c.JSON(code, messageResponse{Message: msg})
}
