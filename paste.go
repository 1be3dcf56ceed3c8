package main

import "net/url"

const (
	PastePath = "/api/v1/paste"

	// ReadName is the metric name for reads; the id is collapsed so every
	// read lands in one bucket.
	ReadName = PastePath + "/[id]"

	ContentPrefix = "Random content from pasteload: "
	ContentLength = 256
)

type PasteRequest struct {
	Content   string `json:"content"`
	ExpiresIn string `json:"expires_in"`
	Syntax    string `json:"syntax"`
}

type PasteResponse struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
}

func NewPasteRequest(rng Rng, profile Profile) PasteRequest {
	return PasteRequest{
		Content:   ContentPrefix + rng.String(ContentLength),
		ExpiresIn: rng.Choice(profile.ExpiresIn),
		Syntax:    rng.Choice(profile.Syntaxes),
	}
}

func readPath(id string) string {
	return PastePath + "/" + url.PathEscape(id)
}
