package controller

import (
	"errors"
	"io"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/picvault/picvault-service/engine"
	"github.com/picvault/picvault-service/entity"
	"github.com/picvault/picvault-service/http/controller/dto"
	"github.com/picvault/picvault-service/utils"
)

var keyPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

var errPayloadTooLarge = errors.New("payload too large")

// UploadImage accepts a multipart form with a "file" part, or a raw body with
// a Content-Type header for programmatic clients.
func (ctrl *Controller) UploadImage(c *gin.Context) {
	ctx := c.Request.Context()

	data, mimeType, originalName, err := ctrl.readUploadPayload(c)
	if err != nil {
		if errors.Is(err, errPayloadTooLarge) {
			utils.JSON413(c, "Payload exceeds maximum upload size")
			return
		}
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Image] Failed to read upload payload: %v", err)
		utils.JSON400(c, "Failed to read upload payload")
		return
	}

	record, err := ctrl.Engine.Upload(ctx, data, mimeType, originalName)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrInvalidPayload):
			utils.JSON400(c, "Empty or invalid payload")
		case errors.Is(err, engine.ErrUnsupportedType):
			utils.JSON415(c, "Unsupported media type: "+mimeType)
		case errors.Is(err, engine.ErrQuotaExceeded):
			ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Image] Storage quota exceeded")
			utils.JSON503(c, "Storage quota exceeded")
		case errors.Is(err, engine.ErrStorageUnavailable), errors.Is(err, engine.ErrTimeout):
			ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Image] Storage unavailable during upload")
			utils.JSON503(c, "Storage temporarily unavailable")
		default:
			ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Image] Upload failed")
			utils.JSON500(c, "Upload failed")
		}
		return
	}

	utils.JSON201(c, imageResponse(record))
}

// GetImage serves the stored bytes under the stored mime type. The key is
// the content address, so responses are immutable and cacheable.
func (ctrl *Controller) GetImage(c *gin.Context) {
	ctx := c.Request.Context()

	key := c.Param("key")
	if !keyPattern.MatchString(key) {
		utils.JSON404(c, "Image not found")
		return
	}

	data, mimeType, err := ctrl.Engine.Fetch(ctx, key)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrNotFound):
			utils.JSON404(c, "Image not found")
		case errors.Is(err, engine.ErrStorageUnavailable), errors.Is(err, engine.ErrTimeout):
			ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Image] Cold tier failure serving key %s", key)
			utils.JSON503(c, "Storage temporarily unavailable")
		default:
			ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Image] Fetch failed for key %s", key)
			utils.JSON500(c, "Fetch failed")
		}
		return
	}

	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, mimeType, data)
}

func (ctrl *Controller) EnableImage(c *gin.Context) {
	ctrl.toggleImage(c, true)
}

func (ctrl *Controller) DisableImage(c *gin.Context) {
	ctrl.toggleImage(c, false)
}

func (ctrl *Controller) toggleImage(c *gin.Context, enabled bool) {
	ctx := c.Request.Context()

	key := c.Param("key")
	if !keyPattern.MatchString(key) {
		utils.JSON404(c, "Image not found")
		return
	}

	var err error
	if enabled {
		err = ctrl.Engine.Enable(ctx, key)
	} else {
		err = ctrl.Engine.Disable(ctx, key)
	}
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			utils.JSON404(c, "Image not found")
			return
		}
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Image] Status toggle failed for key %s", key)
		utils.JSON500(c, "Status toggle failed")
		return
	}

	utils.JSON200(c, gin.H{"key": key, "enabled": enabled})
}

// PinImage exempts an already-cached image from eviction. A key that is not
// currently hot cannot be pinned; fetch it first.
func (ctrl *Controller) PinImage(c *gin.Context) {
	ctx := c.Request.Context()

	key := c.Param("key")
	if !keyPattern.MatchString(key) {
		utils.JSON404(c, "Image not found")
		return
	}

	if err := ctrl.Engine.Pin(ctx, key); err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			utils.JSON404(c, "Image is not in the hot cache")
			return
		}
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Image] Pin failed for key %s", key)
		utils.JSON500(c, "Pin failed")
		return
	}

	utils.JSON200(c, gin.H{"key": key, "pinned": true})
}

// ListImages pages through metadata records, newest first.
func (ctrl *Controller) ListImages(c *gin.Context) {
	ctx := c.Request.Context()

	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		utils.JSON400(c, "Invalid offset")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 200 {
		utils.JSON400(c, "Invalid limit")
		return
	}

	images, err := ctrl.Repository.ImageRepo.List(ctx, offset, limit)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Image] Listing failed")
		utils.JSON500(c, "Listing failed")
		return
	}

	items := make([]dto.ImageResponseDTO, 0, len(images))
	for i := range images {
		items = append(items, imageResponse(&images[i]))
	}
	utils.JSON200(c, gin.H{"items": items, "offset": offset, "limit": limit})
}

// readUploadPayload supports both multipart uploads and raw-body uploads.
// Both paths are capped at the configured upload limit before the bytes are
// buffered, so an oversized request cannot balloon memory.
func (ctrl *Controller) readUploadPayload(c *gin.Context) ([]byte, string, string, error) {
	maxSize := ctrl.Config.EnvConfig.Upload.MaxSize

	fileHeader, err := c.FormFile("file")
	if err == nil {
		if fileHeader.Size > maxSize {
			return nil, "", "", errPayloadTooLarge
		}

		f, err := fileHeader.Open()
		if err != nil {
			return nil, "", "", err
		}
		defer f.Close()

		data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
		if err != nil {
			return nil, "", "", err
		}
		if int64(len(data)) > maxSize {
			return nil, "", "", errPayloadTooLarge
		}

		contentType := fileHeader.Header.Get("Content-Type")
		if contentType == "" {
			contentType = http.DetectContentType(data)
		}
		return data, contentType, fileHeader.Filename, nil
	}

	// Raw-body fallback for programmatic clients.
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", "", errPayloadTooLarge
		}
		return nil, "", "", err
	}
	contentType := c.ContentType()
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, c.Query("name"), nil
}

func imageResponse(record *entity.Image) dto.ImageResponseDTO {
	return dto.ImageResponseDTO{
		Key:          record.Key,
		OriginalName: record.OriginalName,
		Extension:    record.Extension,
		Size:         record.Size,
		MimeType:     record.MimeType,
		ViewCount:    record.ViewCount,
		CreatedAt:    record.CreatedAt,
	}
}
