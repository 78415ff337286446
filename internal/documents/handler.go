package documents

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"coi-backend/internal/export"
	"coi-backend/internal/render"
	"coi-backend/internal/shared/server/respond"
)

const defaultMaxUploadSize = 20 << 20 // 20MB

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// metadataFields are the optional uploader fields read from the upload form.
var metadataFields = []string{"custom_name", "external_id", "tenant_code", "property_no", "action"}

// Handler wires HTTP handlers to the pipeline and review workflow.
type Handler struct {
	Pipeline      *Orchestrator
	Review        *Workflow
	Issuer        string
	MaxUploadSize int64
}

// NewHandler constructs a Handler. maxUploadSize <= 0 selects the default.
func NewHandler(pipeline *Orchestrator, review *Workflow, issuer string, maxUploadSize int64) *Handler {
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxUploadSize
	}
	return &Handler{Pipeline: pipeline, Review: review, Issuer: issuer, MaxUploadSize: maxUploadSize}
}

// RegisterRoutes attaches document routes to the router group. uploadMW
// runs in front of the upload route only.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, uploadMW ...gin.HandlerFunc) {
	rg.POST("/upload", append(uploadMW, h.upload)...)
	rg.GET("/get_documents", h.listDocuments)
	rg.GET("/get_processed_files", h.listProcessedFiles)
	rg.GET("/get_json/:filename", h.getJSON)
	rg.GET("/download_json/:filename", h.downloadJSON)
	rg.GET("/download_pdf/:filename", h.downloadPDF)
	rg.POST("/save_json/:filename", h.saveJSON)
	rg.POST("/mark_complete/:filename", h.markComplete)
	rg.DELETE("/delete_document/:filename", h.deleteDocument)
	rg.GET("/export_documents", h.exportDocuments)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			respond.Error(c, http.StatusRequestEntityTooLarge, "validation_error", "File too large", nil)
		case hasEmptyFileField(c):
			respond.Error(c, http.StatusBadRequest, "validation_error", "No selected file", nil)
		default:
			respond.Error(c, http.StatusBadRequest, "validation_error", "No file part", nil)
		}
		return
	}
	if strings.TrimSpace(fileHeader.Filename) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "No selected file", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", err)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", err)
		return
	}

	var meta Metadata
	for _, field := range metadataFields {
		value, ok := c.GetPostForm(field)
		if !ok {
			continue
		}
		v := strPtr(value)
		switch field {
		case "custom_name":
			meta.CustomName = v
		case "external_id":
			meta.ExternalID = v
		case "tenant_code":
			meta.TenantCode = v
		case "property_no":
			meta.PropertyNo = v
		case "action":
			meta.Action = v
		}
	}

	name, err := h.Pipeline.Process(c.Request.Context(), Upload{
		FileName: fileHeader.Filename,
		Data:     data,
		Meta:     meta,
	})
	if err != nil {
		c.Set("filename", fileHeader.Filename)
		// backend failures keep the upload contract's 500
		writeError(c, err, http.StatusInternalServerError, "failed to process file")
		return
	}
	c.Set("filename", name)
	c.Set("statusTransition", "->"+string(StatusUploaded))
	respond.OK(c, UploadResponse{Message: "File processed successfully", Filename: name})
}

// hasEmptyFileField reports whether the form carried a "file" part with no
// file name, which multipart parsing files under values.
func hasEmptyFileField(c *gin.Context) bool {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return false
	}
	_, ok := form.Value["file"]
	return ok
}

func (h *Handler) listDocuments(c *gin.Context) {
	records, err := h.Review.ListDocuments(c.Request.Context())
	if err != nil {
		writeError(c, err, http.StatusBadGateway, "failed to load documents")
		return
	}
	respond.OK(c, records)
}

func (h *Handler) listProcessedFiles(c *gin.Context) {
	names, err := h.Review.ListArtifactFilenames(c.Request.Context())
	if err != nil {
		writeError(c, err, http.StatusBadGateway, "failed to list files")
		return
	}
	respond.OK(c, names)
}

func (h *Handler) getJSON(c *gin.Context) {
	filename := c.Param("filename")
	c.Set("filename", filename)
	data, err := h.Review.GetArtifact(c.Request.Context(), filename)
	if err != nil {
		writeError(c, err, http.StatusBadGateway, "failed to read file")
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

func (h *Handler) downloadJSON(c *gin.Context) {
	filename := c.Param("filename")
	c.Set("filename", filename)
	data, err := h.Review.GetArtifact(c.Request.Context(), filename)
	if err != nil {
		writeError(c, err, http.StatusBadGateway, "failed to read file")
		return
	}
	c.Header("Content-Disposition", attachment(filename))
	c.Data(http.StatusOK, "application/json", data)
}

func (h *Handler) downloadPDF(c *gin.Context) {
	filename := c.Param("filename")
	c.Set("filename", filename)
	data, err := h.Review.GetArtifact(c.Request.Context(), filename)
	if err != nil {
		writeError(c, err, http.StatusBadGateway, "failed to read file")
		return
	}
	out, err := render.Certificate(data, render.Options{Issuer: h.Issuer})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "render_error", "failed to render PDF", err)
		return
	}
	pdfName := strings.TrimSuffix(filename, ".json") + ".pdf"
	c.Header("Content-Disposition", attachment(pdfName))
	c.Data(http.StatusOK, "application/pdf", out)
}

func (h *Handler) saveJSON(c *gin.Context) {
	filename := c.Param("filename")
	c.Set("filename", filename)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadSize)
	body, err := c.GetRawData()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read request body", err)
		return
	}
	if err := h.Review.SaveEdits(c.Request.Context(), filename, body); err != nil {
		writeError(c, err, http.StatusBadGateway, "failed to save file")
		return
	}
	c.Set("statusTransition", "->"+string(StatusInProgress))
	respond.OK(c, SuccessResponse{Success: true})
}

func (h *Handler) markComplete(c *gin.Context) {
	filename := c.Param("filename")
	c.Set("filename", filename)
	if err := h.Review.MarkVerified(c.Request.Context(), filename); err != nil {
		writeError(c, err, http.StatusBadGateway, "failed to update status")
		return
	}
	c.Set("statusTransition", "->"+string(StatusVerified))
	respond.OK(c, SuccessResponse{Success: true})
}

func (h *Handler) deleteDocument(c *gin.Context) {
	filename := c.Param("filename")
	c.Set("filename", filename)
	if err := h.Review.Delete(c.Request.Context(), filename); err != nil {
		writeError(c, err, http.StatusBadGateway, "failed to delete document")
		return
	}
	respond.OK(c, MessageResponse{Message: fmt.Sprintf("Document %s deleted successfully.", filename)})
}

func (h *Handler) exportDocuments(c *gin.Context) {
	records, err := h.Review.ListDocuments(c.Request.Context())
	if err != nil {
		writeError(c, err, http.StatusBadGateway, "failed to load documents")
		return
	}
	data, err := export.Workbook(toExportRows(records))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "export_error", "failed to export documents", err)
		return
	}
	c.Header("Content-Disposition", attachment("documents.xlsx"))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// writeError maps a pipeline or workflow error to its response. backendStatus
// is used for recognition and extraction failures.
func writeError(c *gin.Context, err error, backendStatus int, fallback string) {
	switch {
	case errors.Is(err, ErrValidation):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), err)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "File not found", err)
	case errors.Is(err, ErrDuplicate):
		respond.Error(c, http.StatusConflict, "duplicate", err.Error(), err)
	case errors.Is(err, ErrInvalidTransition):
		respond.Error(c, http.StatusConflict, "invalid_transition", err.Error(), err)
	case errors.Is(err, ErrRecognition):
		respond.Error(c, backendStatus, "recognition_error", err.Error(), err)
	case errors.Is(err, ErrExtraction):
		respond.Error(c, backendStatus, "extraction_error", err.Error(), err)
	case errors.Is(err, ErrStorage):
		respond.Error(c, http.StatusInternalServerError, "storage_error", fallback, err)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, err)
	}
}

func attachment(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}
