package handler

import (
	"errors"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"diaryapi/internal/service"
	"diaryapi/internal/storage"
)

const uploadCacheControl = "public, max-age=31536000, immutable"

// formFile returns the "file" field, or the first file of any field when "file" is absent.
func formFile(c *fiber.Ctx) (*multipart.FileHeader, bool) {
	if fh, err := c.FormFile("file"); err == nil {
		return fh, true
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, false
	}
	for _, files := range form.File {
		if len(files) > 0 {
			return files[0], true
		}
	}
	return nil, false
}

// UploadImage godoc
// @Summary Upload an image
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "jpeg, png, gif or webp, at most 5 MiB"
// @Success 200 {object} dataResponse{data=service.UploadResult}
// @Failure 400 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/upload [post]
func UploadImage(svc service.UploadService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, ok := formFile(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		res, err := svc.Upload(c.UserContext(), f, fh.Filename, fh.Header.Get(fiber.HeaderContentType))
		switch {
		case err == nil:
			return c.JSON(dataResponse{Data: res})
		case errors.Is(err, service.ErrUnsupportedType):
			return writeError(c, fiber.StatusBadRequest, "UNSUPPORTED_TYPE", "only jpeg, png, gif and webp images are allowed")
		case errors.Is(err, service.ErrFileTooLarge):
			return writeError(c, fiber.StatusBadRequest, "FILE_TOO_LARGE", "file exceeds the upload limit")
		default:
			return writeError(c, fiber.StatusInternalServerError, "UPLOAD_FAILED", "upload failed")
		}
	}
}

// ServeUpload godoc
// @Summary Download a stored image
// @Tags uploads
// @Produce image/jpeg,image/png,image/gif,image/webp
// @Param name path string true "stored file name"
// @Success 200 {file} binary
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /uploads/{name} [get]
func ServeUpload(svc service.UploadService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc, info, err := svc.Open(c.UserContext(), c.Params("name"))
		switch {
		case errors.Is(err, storage.ErrInvalidKey):
			return writeError(c, fiber.StatusBadRequest, "INVALID_NAME", "invalid file name")
		case errors.Is(err, service.ErrImageNotFound):
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "file not found")
		case err != nil:
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "file access failed")
		}

		c.Set(fiber.HeaderContentType, info.ContentType)
		c.Set(fiber.HeaderCacheControl, uploadCacheControl)
		size := -1
		if info.Size > 0 {
			size = int(info.Size)
		}
		// fasthttp closes rc once the body is written.
		return c.SendStream(rc, size)
	}
}
