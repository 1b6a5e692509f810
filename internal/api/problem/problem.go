// Package problem renders API errors as RFC 7807 problem documents.
package problem

import (
	"encoding/json"
	"net/http"
)

const (
	contentType = "application/problem+json"
	typeBase    = "https://errors.tradeyard.io/"
)

// Details is the wire form of a problem document. RequestID carries the
// trace id so a client report can be matched to server logs.
type Details struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail"`
	Instance  string `json:"instance"`
	RequestID string `json:"request_id"`
}

// Type expands an error slug into the registry URL used in Details.Type.
func Type(slug string) string {
	return typeBase + slug
}

// Write renders a problem document. An empty title falls back to the
// standard status text; an empty type becomes about:blank per the RFC.
func Write(w http.ResponseWriter, r *http.Request, status int, problemType, title, detail string) {
	if problemType == "" {
		problemType = "about:blank"
	}
	if title == "" {
		title = http.StatusText(status)
	}

	doc := Details{
		Type:   problemType,
		Title:  title,
		Status: status,
		Detail: detail,
	}
	if r != nil {
		doc.Instance = r.URL.Path
		doc.RequestID = r.Header.Get("X-Trace-ID")
	}
	if doc.RequestID == "" {
		doc.RequestID = w.Header().Get("X-Trace-ID")
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(doc)
}
