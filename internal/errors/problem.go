package errors

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"
)

// ContentTypeProblem is the media type of RFC 7807 responses.
const ContentTypeProblem = "application/problem+json"

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Extensions are flattened into the top-level JSON object.
	Extensions map[string]any `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// WriteProblem writes pd as an application/problem+json response.
func WriteProblem(w http.ResponseWriter, pd *ProblemDetails) {
	w.Header().Set("Content-Type", ContentTypeProblem)
	w.WriteHeader(pd.Status)
	json.NewEncoder(w).Encode(pd)
}

// MarshalJSON includes extensions alongside the standard members.
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]any, len(pd.Extensions)+5)
	for k, v := range pd.Extensions {
		data[k] = v
	}

	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status
	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}
	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]any),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value any) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// WithTraceID sets the trace_id extension. An empty id leaves it out.
func (pd *ProblemDetails) WithTraceID(id string) *ProblemDetails {
	if id == "" {
		return pd
	}
	return pd.WithExtension("trace_id", id)
}
