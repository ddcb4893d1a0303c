package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lawdocs/internal/http/middleware"
	"lawdocs/internal/model"
	"lawdocs/internal/repository"
	"lawdocs/internal/service"
	serviceMocks "lawdocs/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// asUser injects the owner ID the auth middleware would normally provide.
func asUser(id string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(middleware.UserIDLocalKey, id)
		return c.Next()
	}
}

func multipartBody(t *testing.T, fields map[string]string, fileName, fileContent string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte(fileContent))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db down"))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestUploadDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Post("/documents/upload", asUser("user-1"), UploadDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		body, ct := multipartBody(t, map[string]string{
			"title":        "Retainer Agreement",
			"documentType": "case",
			"caseId":       "case-7",
			"tags":         "retainer, signed",
		}, "retainer.pdf", "pdf bytes")

		expected := &model.Document{ID: uuid.NewString(), Title: "Retainer Agreement"}
		mockSvc.On("Upload", mock.Anything, mock.MatchedBy(func(in service.UploadInput) bool {
			return in.OwnerID == "user-1" &&
				in.Title == "Retainer Agreement" &&
				in.DocumentType == model.DocumentTypeCase &&
				in.CaseID == "case-7" &&
				in.File.OriginalName == "retainer.pdf" &&
				len(in.Tags) == 2 && in.Tags[1] == "signed"
		})).Return(expected, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result model.Document
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, expected.ID, result.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/documents/upload", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "FILE_REQUIRED", res.Error.Code)
	})

	t.Run("validation error maps to 400", func(t *testing.T) {
		body, ct := multipartBody(t, map[string]string{"documentType": "standalone"}, "x.txt", "x")

		mockSvc.On("Upload", mock.Anything, mock.Anything).
			Return(nil, service.ErrFileTooLarge).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "VALIDATION_ERROR", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("storage error maps to 500", func(t *testing.T) {
		body, ct := multipartBody(t, map[string]string{"title": "x", "documentType": "standalone"}, "x.txt", "x")

		mockSvc.On("Upload", mock.Anything, mock.Anything).
			Return(nil, errors.New("disk full")).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestListDocuments(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents", asUser("user-1"), ListDocuments(mockSvc))

	t.Run("query params become the filter", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, "user-1", repository.DocumentFilter{
			DocumentType: model.DocumentTypeCase,
			CaseID:       "case-7",
			Tag:          "urgent",
		}).Return([]model.Document{{ID: "d1"}}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents?documentType=case&caseId=case-7&tag=urgent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result struct {
			Data  []model.Document `json:"data"`
			Total int              `json:"total"`
		}
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Len(t, result.Data, 1)
		assert.Equal(t, 1, result.Total)
		mockSvc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, "user-1", repository.DocumentFilter{}).
			Return(nil, errors.New("db fail")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents", nil))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestGetDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents/:id", asUser("user-1"), GetDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Get", mock.Anything, "user-1", id).
			Return(&model.Document{ID: id}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id, nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Get", mock.Anything, "user-1", id).
			Return(nil, service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id, nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/not-a-uuid", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_ID", res.Error.Code)
	})
}

func TestDownloadDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents/:id/download", asUser("user-1"), DownloadDocument(mockSvc))

	t.Run("streams bytes with attachment headers", func(t *testing.T) {
		id := uuid.NewString()
		doc := &model.Document{
			ID:           id,
			OriginalName: "retainer.pdf",
			MimeType:     "application/pdf",
			SizeBytes:    9,
		}
		mockSvc.On("Download", mock.Anything, "user-1", id).
			Return(io.NopCloser(strings.NewReader("pdf bytes")), doc, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, `attachment; filename="retainer.pdf"`, resp.Header.Get(fiber.HeaderContentDisposition))
		assert.Equal(t, "application/pdf", resp.Header.Get(fiber.HeaderContentType))

		b, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "pdf bytes", string(b))
		mockSvc.AssertExpectations(t)
	})

	t.Run("file missing despite record", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Download", mock.Anything, "user-1", id).
			Return(nil, nil, service.ErrFileMissing).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "FILE_NOT_FOUND", res.Error.Code)
	})
}

func TestUpdateDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Put("/documents/:id", asUser("user-1"), UpdateDocument(mockSvc))

	t.Run("json body applies presence semantics", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Update", mock.Anything, "user-1", id, mock.MatchedBy(func(in service.UpdateInput) bool {
			return in.Title != nil && *in.Title == "New Title" &&
				in.Description == nil && in.Tags == nil && in.File == nil
		})).Return(&model.Document{ID: id, Title: "New Title"}, nil).Once()

		req := httptest.NewRequest(http.MethodPut, "/documents/"+id, strings.NewReader(`{"title":"New Title"}`))
		req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("multipart body with replacement file", func(t *testing.T) {
		id := uuid.NewString()
		body, ct := multipartBody(t, map[string]string{"description": ""}, "amended.pdf", "new bytes")

		mockSvc.On("Update", mock.Anything, "user-1", id, mock.MatchedBy(func(in service.UpdateInput) bool {
			return in.Title == nil &&
				in.Description != nil && *in.Description == "" &&
				in.File != nil && in.File.OriginalName == "amended.pdf"
		})).Return(&model.Document{ID: id}, nil).Once()

		req := httptest.NewRequest(http.MethodPut, "/documents/"+id, body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid json", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodPut, "/documents/"+id, strings.NewReader("{not json"))
		req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Update", mock.Anything, "user-1", id, mock.Anything).
			Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodPut, "/documents/"+id, strings.NewReader(`{"title":"x"}`))
		req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDeleteDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Delete("/documents/:id", asUser("user-1"), DeleteDocument(mockSvc))

	t.Run("success returns 200 with a body", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Delete", mock.Anything, "user-1", id).Return(nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "deleted", body["status"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Delete", mock.Anything, "user-1", id).Return(service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	mockSvc := new(serviceMocks.MockDocumentService)
	RegisterRoutes(app, nil, mockSvc, "test-secret")

	t.Run("documents routes require authentication", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents", nil))

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("not found route", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/non-existent", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/health", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "METHOD_NOT_ALLOWED", res.Error.Code)
	})
}
