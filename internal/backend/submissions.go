package backend

import (
	"context"
	"net/http"
	"net/url"
)

const submissionsPath = "/admin/vendor-business-types/submissions"

// Submissions lists vendor business type submissions.  Query keys such as
// status, page, limit, and search are passed through.
func (a *API) Submissions(ctx context.Context, q url.Values) (*Envelope, error) {
	return a.get(ctx, submissionsPath, q)
}

func (a *API) PendingSubmissions(ctx context.Context, q url.Values) (*Envelope, error) {
	return a.get(ctx, submissionsPath+"/pending", q)
}

func (a *API) ExpiringSubmissions(ctx context.Context) (*Envelope, error) {
	return a.get(ctx, submissionsPath+"/expiring", nil)
}

func (a *API) Submission(ctx context.Context, id string) (*Envelope, error) {
	return a.get(ctx, submissionsPath+"/"+seg(id), nil)
}

// ApproveSubmission approves id.  convertToStandard promotes the vendor's
// type into the standard catalogue.
func (a *API) ApproveSubmission(ctx context.Context, id string, convertToStandard bool) (*Envelope, error) {
	return a.sendJSON(ctx, http.MethodPost, submissionsPath+"/"+seg(id)+"/approve",
		map[string]bool{"convertToStandard": convertToStandard})
}

func (a *API) RejectSubmission(ctx context.Context, id, reason string) (*Envelope, error) {
	return a.sendJSON(ctx, http.MethodPost, submissionsPath+"/"+seg(id)+"/reject",
		map[string]string{"reason": reason})
}

func (a *API) DeleteSubmission(ctx context.Context, id string) (*Envelope, error) {
	return a.sendJSON(ctx, http.MethodDelete, submissionsPath+"/"+seg(id), nil)
}

func (a *API) UpdateSubmissionNotes(ctx context.Context, id, notes string) (*Envelope, error) {
	return a.sendJSON(ctx, http.MethodPatch, submissionsPath+"/"+seg(id)+"/notes",
		map[string]string{"adminNotes": notes})
}

// MarkExpired asks the backend to expire overdue pending submissions.
func (a *API) MarkExpired(ctx context.Context) (*Envelope, error) {
	return a.sendJSON(ctx, http.MethodPost, submissionsPath+"/mark-expired", nil)
}

func (a *API) SubmissionStats(ctx context.Context) (*Envelope, error) {
	return a.get(ctx, "/admin/vendor-business-types/stats", nil)
}

func (a *API) VendorCounts(ctx context.Context) (*Envelope, error) {
	return a.get(ctx, "/admin/vendor-business-types/vendor-counts", nil)
}
