// Package http implements the HTTP request handlers of the Sponsorama web service.
// Handlers stay thin: they parse and validate requests, delegate to the services
// package and render the result.
//
// # Routes
//
//	POST   /api/campaigns/upload   multipart field "files", workbooks or zip archives
//	GET    /api/campaigns          current filtered view
//	DELETE /api/campaigns          clear the dataset
//	GET    /api/campaigns/summary  indicators of the filtered records
//	GET    /api/campaigns/facets   period and target values
//	GET    /api/campaigns/filter   current filter
//	PUT    /api/campaigns/filter   replace the filter
//	PATCH  /api/campaigns/filter   change some facets
//	DELETE /api/campaigns/filter   reset the filter
//	GET    /api/campaigns/export   ?format=csv|xlsx, filtered records as an attachment
//	GET    /api/health             component health
//
// # Error Handling
//
// Every error is written as an RFC 7807 problem by internal/errors.ErrorHandler:
//
//	{
//	    "type": "/errors/campaigns/no-valid-data",
//	    "title": "Unprocessable Entity",
//	    "status": 422,
//	    "detail": "no valid data found",
//	    "error_code": "NO_VALID_DATA",
//	    "details": [{"file": "a.xlsx", "reason": "..."}],
//	    "trace_id": "..."
//	}
//
// # Testing
//
// Handlers are tested with httptest against a real service over in-memory
// workbooks, or a testify mock where a service failure is needed.
package http
