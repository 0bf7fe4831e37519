package search

import "encoding/json"

// ResultDocument is a backend search response passed through unchanged, plus
// the result total extracted from its pagination metadata for history
// bookkeeping.
type ResultDocument struct {
	Payload json.RawMessage
	Total   int
}

// ExtractTotal pulls data.pagination.total out of a backend response
// document, defaulting to zero when absent or malformed.
func ExtractTotal(payload []byte) int {
	var parsed struct {
		Data struct {
			Pagination struct {
				Total *float64 `json:"total"`
			} `json:"pagination"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return 0
	}
	if parsed.Data.Pagination.Total == nil {
		return 0
	}
	return int(*parsed.Data.Pagination.Total)
}
