package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"filevault/internal/http/middleware"
	"filevault/internal/model"
	"filevault/internal/service"
)

type uploadResponse struct {
	Message string `json:"message"`
	FileURL string `json:"fileUrl"`
	FileID  string `json:"fileId"`
}

type listResponse struct {
	Files []model.FileRecord `json:"files"`
}

type downloadResponse struct {
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// UploadFile stores the multipart field "file" for the caller.
//
// @Summary Upload a file
// @Tags files
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param file formData file true "file to upload"
// @Success 200 {object} uploadResponse
// @Failure 400 {object} errorPayload
// @Failure 401 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /upload [post]
func UploadFile(svc service.FileService, log *zap.Logger) fiber.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		id, ok := middleware.IdentityFromCtx(c)
		if !ok {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		events := make(chan service.ProgressEvent, progressBuffer)
		res, err := svc.Upload(c.UserContext(), id, model.UploadedFile{
			Filename:  fh.Filename,
			MimeType:  fh.Header.Get(fiber.HeaderContentType),
			SizeBytes: fh.Size,
			Content:   f,
		}, service.WithProgress(events))
		logProgress(log.With(
			zap.String("request_id", middleware.RequestIDFromCtx(c)),
			zap.String("owner_id", id.SubjectID),
		), events)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(uploadResponse{
			Message: "File uploaded successfully",
			FileURL: res.FileURL,
			FileID:  res.FileID,
		})
	}
}

// progressBuffer holds every stage of one upload.
const progressBuffer = 8

// logProgress drains the events buffered by Upload without blocking.
func logProgress(log *zap.Logger, events <-chan service.ProgressEvent) {
	var last service.Stage
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Stage == service.StageFailed {
				log.Info("upload aborted",
					zap.String("file_id", ev.FileID),
					zap.String("last_stage", string(last)),
					zap.Int64("bytes_staged", ev.BytesStaged),
					zap.Error(ev.Err),
				)
				continue
			}
			last = ev.Stage
			log.Debug("upload progress",
				zap.String("file_id", ev.FileID),
				zap.String("stage", string(ev.Stage)),
				zap.Int64("bytes_staged", ev.BytesStaged),
			)
		default:
			return
		}
	}
}

// ListFiles returns the caller's files.
//
// @Summary List files
// @Tags files
// @Produce json
// @Security BearerAuth
// @Success 200 {object} listResponse
// @Failure 401 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /files [get]
func ListFiles(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := middleware.IdentityFromCtx(c)
		if !ok {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
		}

		files, err := svc.List(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(listResponse{Files: files})
	}
}

// GetFile issues a presigned download URL.
//
// @Summary Get a download URL
// @Tags files
// @Produce json
// @Security BearerAuth
// @Param fileId path string true "file id"
// @Success 200 {object} downloadResponse
// @Failure 401 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /files/{fileId} [get]
func GetFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := middleware.IdentityFromCtx(c)
		if !ok {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
		}

		res, err := svc.GetDownload(c.UserContext(), id, c.Params("fileId"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(downloadResponse{URL: res.URL, Filename: res.Filename, ContentType: res.ContentType})
	}
}

// DeleteFile removes one of the caller's files.
//
// @Summary Delete a file
// @Tags files
// @Produce json
// @Security BearerAuth
// @Param fileId path string true "file id"
// @Success 200 {object} messageResponse
// @Failure 401 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /files/{fileId} [delete]
func DeleteFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := middleware.IdentityFromCtx(c)
		if !ok {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
		}

		if err := svc.Delete(c.UserContext(), id, c.Params("fileId")); err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(messageResponse{Message: "File deleted successfully"})
	}
}
