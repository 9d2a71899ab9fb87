package api

import (
	"net/http"

	service "github.com/okian/stride/internal/app"
)

// CompanyDependencies exposes the static company profile.
type CompanyDependencies interface {
	CompanyDetails() service.CompanyDetails
}

// CompanyHandler serves the company profile.
type CompanyHandler struct {
	deps CompanyDependencies
}

// NewCompanyHandler creates a new company handler.
func NewCompanyHandler(deps CompanyDependencies) *CompanyHandler {
	return &CompanyHandler{deps: deps}
}

// HandleGet handles GET /api/company_details.
func (h *CompanyHandler) HandleGet(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.CompanyDetails())
}
