package httpadapter

import (
	"net/http"

	"github.com/kirillkom/document-structurer/internal/core/domain"
)

// mapErrorToHTTPStatus checks ErrTemporary before ErrClassification so that
// a model outage surfaces as 503 rather than 502.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound), domain.IsKind(err, domain.ErrFileNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrExtraction):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrClassification):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
