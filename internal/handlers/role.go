package handlers

import (
	"net/http"

	"stk-crm/internal/models"
)

// IsSalesExecutive returns true if the current user has the sales executive role.
func IsSalesExecutive(r *http.Request) bool {
	p := principal(r)
	return p != nil && p.Role == models.RoleSalesExecutive
}

// ownsLead hides other executives' leads from a sales executive. Other roles
// reach leads through store scoped queries instead.
func ownsLead(r *http.Request, lead *models.Lead) bool {
	if !IsSalesExecutive(r) {
		return true
	}
	return lead.SalesExecutiveID == principal(r).UserID
}
