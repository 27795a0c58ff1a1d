package cms

import "time"

// ListResponse is the CMS collection items listing.
type ListResponse struct {
	Items      []Item     `json:"items"`
	Pagination Pagination `json:"pagination"`
}

type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

type Item struct {
	ID            string         `json:"id"`
	CMSLocaleID   string         `json:"cmsLocaleId"`
	IsDraft       bool           `json:"isDraft"`
	IsArchived    bool           `json:"isArchived"`
	LastPublished *time.Time     `json:"lastPublished"`
	LastUpdated   *time.Time     `json:"lastUpdated"`
	FieldData     map[string]any `json:"fieldData"`
}
