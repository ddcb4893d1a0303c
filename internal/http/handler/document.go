package handler

import (
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"lawdocs/internal/http/middleware"
	"lawdocs/internal/model"
	"lawdocs/internal/repository"
	"lawdocs/internal/service"
)

// Handlers decode HTTP/multipart input and hand plain values to the service;
// no pipeline logic lives here. Each handler is an exported constructor so it
// can be mounted and tested in isolation.

// UploadDocument handles POST /documents/upload (multipart/form-data).
// Form fields: file, title, documentType, caseId?, clientId?, description?,
// tags? (comma-separated).
func UploadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		in := service.UploadInput{
			OwnerID:      middleware.UserID(c),
			File:         fileUpload(fh, f),
			Title:        strings.TrimSpace(c.FormValue("title")),
			DocumentType: model.DocumentType(c.FormValue("documentType")),
			CaseID:       c.FormValue("caseId"),
			ClientID:     c.FormValue("clientId"),
			Description:  c.FormValue("description"),
			Tags:         splitTags(c.FormValue("tags")),
		}

		doc, err := svc.Upload(c.UserContext(), in)
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// ListDocuments handles GET /documents?documentType=&caseId=&tag=.
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := repository.DocumentFilter{
			DocumentType: model.DocumentType(c.Query("documentType")),
			CaseID:       c.Query("caseId"),
			Tag:          c.Query("tag"),
		}

		items, err := svc.List(c.UserContext(), middleware.UserID(c), f)
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": items, "total": len(items)})
	}
}

// GetDocument handles GET /documents/:id.
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		doc, err := svc.Get(c.UserContext(), middleware.UserID(c), id)
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DownloadDocument handles GET /documents/:id/download. The response streams
// the stored bytes with the original filename as an attachment.
func DownloadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		rc, doc, err := svc.Download(c.UserContext(), middleware.UserID(c), id)
		if err != nil {
			return mapServiceError(c, err)
		}

		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.OriginalName))
		c.Set(fiber.HeaderContentType, doc.MimeType)
		return c.SendStream(rc, int(doc.SizeBytes))
	}
}

// updateRequest is the JSON body for metadata-only updates. Pointer fields
// distinguish "not sent" from "sent empty"; absent fields are left untouched.
type updateRequest struct {
	Title        *string             `json:"title"`
	Description  *string             `json:"description"`
	DocumentType *model.DocumentType `json:"document_type"`
	CaseID       *string             `json:"case_id"`
	ClientID     *string             `json:"client_id"`
	Tags         *[]string           `json:"tags"`
}

// UpdateDocument handles PUT /documents/:id. A JSON body updates metadata
// only; a multipart body may additionally carry a replacement file.
func UpdateDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		var in service.UpdateInput
		if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
			form, err := c.MultipartForm()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse multipart form")
			}
			in = updateInputFromForm(form)

			if fhs := form.File["file"]; len(fhs) > 0 {
				f, err := fhs[0].Open()
				if err != nil {
					return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
				}
				defer f.Close()
				fu := fileUpload(fhs[0], f)
				in.File = &fu
			}
		} else {
			var body updateRequest
			if err := c.BodyParser(&body); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
			}
			in = service.UpdateInput{
				Title:        body.Title,
				Description:  body.Description,
				DocumentType: body.DocumentType,
				CaseID:       body.CaseID,
				ClientID:     body.ClientID,
				Tags:         body.Tags,
			}
		}

		doc, err := svc.Update(c.UserContext(), middleware.UserID(c), id, in)
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DeleteDocument handles DELETE /documents/:id. Returns 200 even when the
// backing file was already absent; metadata removal is the authoritative
// signal that the document is gone.
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		if err := svc.Delete(c.UserContext(), middleware.UserID(c), id); err != nil {
			return mapServiceError(c, err)
		}
		return c.JSON(fiber.Map{"status": "deleted"})
	}
}

// updateInputFromForm applies presence semantics to multipart fields: only
// keys actually sent in the form become non-nil pointers.
func updateInputFromForm(form *multipart.Form) service.UpdateInput {
	var in service.UpdateInput

	if v, ok := formValue(form, "title"); ok {
		in.Title = &v
	}
	if v, ok := formValue(form, "description"); ok {
		in.Description = &v
	}
	if v, ok := formValue(form, "documentType"); ok {
		dt := model.DocumentType(v)
		in.DocumentType = &dt
	}
	if v, ok := formValue(form, "caseId"); ok {
		in.CaseID = &v
	}
	if v, ok := formValue(form, "clientId"); ok {
		in.ClientID = &v
	}
	if v, ok := formValue(form, "tags"); ok {
		tags := splitTags(v)
		in.Tags = &tags
	}
	return in
}

func formValue(form *multipart.Form, key string) (string, bool) {
	vs, ok := form.Value[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

func fileUpload(fh *multipart.FileHeader, f multipart.File) service.FileUpload {
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	return service.FileUpload{
		Reader:       f,
		OriginalName: fh.Filename,
		MimeType:     ct,
		SizeBytes:    fh.Size,
	}
}

// splitTags parses the comma-separated tags form field, dropping empties.
func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
