// ABOUTME: Wire types for the HubSpot CRM v3 API
// ABOUTME: Search requests/responses, raw records, owners, and pipelines
package hubspot

import "fmt"

// RawRecord is one entity instance as the API returns it. Property values
// arrive as strings; a missing or null property stays nil so downstream
// normalization can distinguish unknown from empty.
type RawRecord struct {
	ID           string                        `json:"id"`
	Properties   map[string]*string            `json:"properties"`
	Associations map[string]AssociationResults `json:"associations,omitempty"`
}

// Prop returns the named property value, nil when absent or null.
func (r *RawRecord) Prop(name string) *string {
	if r.Properties == nil {
		return nil
	}
	return r.Properties[name]
}

// AssociationID returns the first associated object ID under key, or "".
func (r *RawRecord) AssociationID(key string) string {
	assoc, ok := r.Associations[key]
	if !ok || len(assoc.Results) == 0 {
		return ""
	}
	return assoc.Results[0].ID
}

type AssociationResults struct {
	Results []AssociationRef `json:"results"`
}

type AssociationRef struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
}

// Owner is a CRM user. The owners endpoint returns attributes at the top
// level rather than inside a properties map.
type Owner struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Archived  bool   `json:"archived"`
}

// Pipeline is one deal pipeline with its ordered stages.
type Pipeline struct {
	ID     string          `json:"id"`
	Label  string          `json:"label"`
	Stages []PipelineStage `json:"stages"`
}

type PipelineStage struct {
	ID           string        `json:"id"`
	Label        string        `json:"label"`
	DisplayOrder int           `json:"displayOrder"`
	Metadata     StageMetadata `json:"metadata"`
}

// StageMetadata values are strings on the wire ("true", "0.5").
type StageMetadata struct {
	IsClosed    string `json:"isClosed"`
	Probability string `json:"probability"`
}

type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Sorts        []sortSpec    `json:"sorts"`
	Properties   []string      `json:"properties"`
	Limit        int           `json:"limit"`
	After        string        `json:"after,omitempty"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
	HighValue    string `json:"highValue,omitempty"`
}

type sortSpec struct {
	PropertyName string `json:"propertyName"`
	Direction    string `json:"direction"`
}

type searchResponse struct {
	Total   int         `json:"total"`
	Results []RawRecord `json:"results"`
	Paging  *paging     `json:"paging,omitempty"`
}

type listResponse struct {
	Results []RawRecord `json:"results"`
	Paging  *paging     `json:"paging,omitempty"`
}

type ownersResponse struct {
	Results []Owner `json:"results"`
	Paging  *paging `json:"paging,omitempty"`
}

type pipelinesResponse struct {
	Results []Pipeline `json:"results"`
}

type paging struct {
	Next *pagingNext `json:"next,omitempty"`
}

type pagingNext struct {
	After string `json:"after"`
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hubspot API error %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether the error is worth retrying in place.
func (e *APIError) Transient() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
