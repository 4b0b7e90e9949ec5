// Package upload persists binary attachments and hands back retrievable URLs.
package upload

import "context"

// Result is the contract shared with the hosted media service: a fetchable
// URL plus the provider-side identifier.
type Result struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

type Uploader interface {
	Upload(ctx context.Context, data []byte, filename string) (Result, error)
}
