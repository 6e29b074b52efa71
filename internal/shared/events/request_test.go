package events

import (
	"errors"
	"testing"
)

func TestDecodeAnalysisRequest(t *testing.T) {
	body, err := EncodeAnalysisRequest(AnalysisRequest{Company: "acme", RequestID: "req-1"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	req, err := DecodeAnalysisRequest(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Company != "acme" || req.RequestID != "req-1" {
		t.Fatalf("unexpected request: %+v", req)
	}

	if _, err := DecodeAnalysisRequest([]byte(`{"company":"  "}`)); !errors.Is(err, ErrMissingCompany) {
		t.Fatalf("expected ErrMissingCompany, got %v", err)
	}
	if _, err := DecodeAnalysisRequest([]byte(`not json`)); err == nil || errors.Is(err, ErrMissingCompany) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if _, err := EncodeAnalysisRequest(AnalysisRequest{}); !errors.Is(err, ErrMissingCompany) {
		t.Fatalf("expected ErrMissingCompany on encode, got %v", err)
	}
}
