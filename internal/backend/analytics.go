package backend

import (
	"context"
	"net/http"
	"net/url"
)

const analyticsPath = "/admin/vendor-analytics"

func (a *API) AnalyticsSummary(ctx context.Context) (*Envelope, error) {
	return a.get(ctx, analyticsPath+"/summary", nil)
}

func (a *API) AnalyticsBusinessTypes(ctx context.Context, q url.Values) (*Envelope, error) {
	return a.get(ctx, analyticsPath+"/business-types", q)
}

func (a *API) AnalyticsCategories(ctx context.Context, businessTypeID string, q url.Values) (*Envelope, error) {
	return a.get(ctx, analyticsPath+"/categories/"+seg(businessTypeID), q)
}

func (a *API) AnalyticsSubcategories(ctx context.Context, businessTypeID, categoryID string, q url.Values) (*Envelope, error) {
	return a.get(ctx, analyticsPath+"/subcategories/"+seg(businessTypeID)+"/"+seg(categoryID), q)
}

func (a *API) AnalyticsVendors(ctx context.Context, q url.Values) (*Envelope, error) {
	return a.get(ctx, analyticsPath+"/vendors", q)
}

// AnalyticsExport returns the export body undecoded so it can be streamed
// to the browser as a download.
func (a *API) AnalyticsExport(ctx context.Context, q url.Values) (*Raw, error) {
	return a.send(ctx, request{method: http.MethodGet, path: analyticsPath + "/export", query: q})
}
