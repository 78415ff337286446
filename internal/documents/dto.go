package documents

import "coi-backend/internal/export"

// UploadResponse is returned by a successful upload.
type UploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
}

// SuccessResponse acknowledges a review action.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// MessageResponse carries a confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}

func toExportRows(records []Record) []export.Row {
	rows := make([]export.Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, export.Row{
			Filename:   r.Filename,
			CustomName: deref(r.CustomName),
			ExternalID: deref(r.ExternalID),
			TenantCode: deref(r.TenantCode),
			PropertyNo: deref(r.PropertyNo),
			Action:     deref(r.Action),
			UploadDate: r.UploadDate,
			Status:     string(r.Status),
		})
	}
	return rows
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
