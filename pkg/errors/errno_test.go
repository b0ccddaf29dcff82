package errors

import (
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
)

func TestMakeCode(t *testing.T) {
	tests := []struct {
		service  int
		category int
		sequence int
		expected int
	}{
		{0, 0, 0, 0},
		{0, 1, 1, 1001},
		{10, 8, 1, 1008001},
		{10, 8, 2, 1008002},
		{20, 4, 1, 2004001},
		{20, 5, 2, 2005002},
		{90, 10, 1, 9010001},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d_%d", tt.service, tt.category, tt.sequence), func(t *testing.T) {
			got := MakeCode(tt.service, tt.category, tt.sequence)
			if got != tt.expected {
				t.Errorf("MakeCode(%d, %d, %d) = %d, want %d",
					tt.service, tt.category, tt.sequence, got, tt.expected)
			}
		})
	}
}

func TestParseCode(t *testing.T) {
	tests := []struct {
		code             int
		expectedService  int
		expectedCategory int
		expectedSequence int
	}{
		{0, 0, 0, 0},
		{1001, 0, 1, 1},
		{1008002, 10, 8, 2},
		{2004001, 20, 4, 1},
		{9010001, 90, 10, 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.code), func(t *testing.T) {
			service, category, sequence := ParseCode(tt.code)
			if service != tt.expectedService || category != tt.expectedCategory || sequence != tt.expectedSequence {
				t.Errorf("ParseCode(%d) = (%d, %d, %d), want (%d, %d, %d)",
					tt.code, service, category, sequence,
					tt.expectedService, tt.expectedCategory, tt.expectedSequence)
			}
		})
	}
}

func TestErrno_WithCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := ErrStructuredStore.WithCause(cause)

	// WithCause 生成副本，不修改注册的原始 Errno
	if ErrStructuredStore.cause != nil {
		t.Error("WithCause must not mutate the registered Errno")
	}
	if err.Code != ErrStructuredStore.Code {
		t.Errorf("code = %d, want %d", err.Code, ErrStructuredStore.Code)
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}
}

func TestErrno_WithMessagef(t *testing.T) {
	err := ErrSectionNotFound.WithMessagef("section %s not found", "abc")

	if err.MessageEN != "section abc not found" {
		t.Errorf("message = %q", err.MessageEN)
	}
	if err.Code != ErrSectionNotFound.Code {
		t.Errorf("code changed: %d", err.Code)
	}
	if ErrSectionNotFound.MessageEN != "Section not found" {
		t.Error("WithMessagef must not mutate the registered Errno")
	}
}

func TestErrno_HTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		errno    *Errno
		expected int
	}{
		{"not_found", ErrSectionNotFound, http.StatusNotFound},
		{"conflict", ErrSlugConflict, http.StatusConflict},
		{"bad_request", ErrHasChildren, http.StatusBadRequest},
		{"internal", ErrStructuredStore, http.StatusInternalServerError},
		{"bad_gateway", ErrEmbedding, http.StatusBadGateway},
		{"zero_defaults_to_500", &Errno{Code: 9999999}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.errno.HTTPStatus(); got != tt.expected {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestErrno_GRPCStatus(t *testing.T) {
	if got := ErrSectionNotFound.GRPCStatus(); got != codes.NotFound {
		t.Errorf("GRPCStatus() = %v, want NotFound", got)
	}
	if got := ErrEmbedding.GRPCStatus(); got != codes.Unavailable {
		t.Errorf("GRPCStatus() = %v, want Unavailable", got)
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil) != nil {
		t.Error("FromError(nil) should return nil")
	}

	// Errno 原样返回
	if got := FromError(ErrSlugConflict); got != ErrSlugConflict {
		t.Error("FromError should return the Errno unchanged")
	}

	// 普通错误包装为 ErrInternal
	plain := fmt.Errorf("boom")
	got := FromError(plain)
	if got.Code != ErrInternal.Code {
		t.Errorf("code = %d, want %d", got.Code, ErrInternal.Code)
	}
	if got.Unwrap() != plain {
		t.Error("cause should be the original error")
	}
}

func TestIsCode(t *testing.T) {
	err := ErrSlugConflict.WithMessagef("slug %q taken", "intro")

	if !IsCode(err, ErrSlugConflict.Code) {
		t.Error("IsCode should match after WithMessagef")
	}
	if IsCode(err, ErrSectionNotFound.Code) {
		t.Error("IsCode should not match a different code")
	}
	if IsCode(fmt.Errorf("plain"), ErrInternal.Code) {
		t.Error("IsCode should not match plain errors")
	}
}

func TestLookup(t *testing.T) {
	e, ok := Lookup(ErrSectionNotFound.Code)
	if !ok || e != ErrSectionNotFound {
		t.Error("Lookup should find registered errno")
	}

	if _, ok := Lookup(9999998); ok {
		t.Error("Lookup should not find unregistered code")
	}
}

func TestIsClientError(t *testing.T) {
	if !IsClientError(ErrSectionNotFound.Code) {
		t.Error("not-found should be a client error")
	}
	if !IsClientError(ErrSlugConflict.Code) {
		t.Error("conflict should be a client error")
	}
	if IsClientError(ErrStructuredStore.Code) {
		t.Error("database errors are not client errors")
	}
	if !IsServerError(ErrStructuredStore.Code) {
		t.Error("database errors are server errors")
	}
}
