package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// AnalysisRequest asks a worker to start an analysis for a company.
type AnalysisRequest struct {
	Company   string `json:"company"`
	RequestID string `json:"requestId,omitempty"`
}

// ErrMissingCompany is returned for a request that names no company.
var ErrMissingCompany = errors.New("analysis request has no company")

// EncodeAnalysisRequest serializes a request for the request topic.
func EncodeAnalysisRequest(req AnalysisRequest) ([]byte, error) {
	if strings.TrimSpace(req.Company) == "" {
		return nil, ErrMissingCompany
	}
	return json.Marshal(req)
}

// DecodeAnalysisRequest parses a request message body.
func DecodeAnalysisRequest(body []byte) (AnalysisRequest, error) {
	var req AnalysisRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return AnalysisRequest{}, fmt.Errorf("decode analysis request: %w", err)
	}
	req.Company = strings.TrimSpace(req.Company)
	if req.Company == "" {
		return req, ErrMissingCompany
	}
	return req, nil
}
