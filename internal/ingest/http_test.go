package ingest

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"buffwatch/internal/domain"
)

type testSink struct {
	frames []domain.Frame
	err    error
}

func (s *testSink) Push(frame domain.Frame) error {
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, frame)
	return nil
}

func testFrameJSON(id int) string {
	return fmt.Sprintf(`{"type":"tick","dt":1739876543210,"logged_in":true,"local":{"id":%d,"name":"Me","class_job":19,"level":90,"hp":1000},"party":[{"id":%d,"hp":1000},{"id":77,"hp":500}]}`, id, id)
}

func TestHTTPHandlerAcceptsSingleFrame(t *testing.T) {
	t.Parallel()

	sink := &testSink{}
	handler := NewHTTPHandler(sink, 1<<20)
	request := httptest.NewRequest(http.MethodPost, "/frames", strings.NewReader(testFrameJSON(1)))
	response := httptest.NewRecorder()

	handler.ServeHTTP(response, request)
	if response.Code != http.StatusAccepted {
		t.Fatalf("expected status %d, got %d", http.StatusAccepted, response.Code)
	}
	if len(sink.frames) != 1 || sink.frames[0].Local.ID() != 1 || len(sink.frames[0].Party) != 2 {
		t.Fatalf("unexpected frames %+v", sink.frames)
	}
}

func TestHTTPHandlerAcceptsBatchInOrder(t *testing.T) {
	t.Parallel()

	sink := &testSink{}
	handler := NewHTTPHandler(sink, 1<<20)
	payload := fmt.Sprintf("[%s,%s]", testFrameJSON(1), testFrameJSON(2))
	request := httptest.NewRequest(http.MethodPost, "/frames", strings.NewReader(payload))
	response := httptest.NewRecorder()

	handler.ServeHTTP(response, request)
	if response.Code != http.StatusAccepted {
		t.Fatalf("expected status %d, got %d", http.StatusAccepted, response.Code)
	}
	if len(sink.frames) != 2 || sink.frames[0].Local.ID() != 1 || sink.frames[1].Local.ID() != 2 {
		t.Fatalf("unexpected frames %+v", sink.frames)
	}
	if sink.frames[1].Party[1].ID() != 77 {
		t.Fatalf("retained frame must survive scratch release, got %+v", sink.frames[1].Party)
	}
}

func TestHTTPHandlerRejectsInvalidPayloads(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
	}{
		{name: "empty batch", payload: "[]"},
		{name: "empty body", payload: "  "},
		{name: "unknown type", payload: `{"type":"bogus"}`},
		{name: "tick without local", payload: `{"type":"tick","logged_in":true}`},
		{name: "trailing tokens", payload: testFrameJSON(1) + `{}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			sink := &testSink{}
			handler := NewHTTPHandler(sink, 1<<20)
			request := httptest.NewRequest(http.MethodPost, "/frames", strings.NewReader(tc.payload))
			response := httptest.NewRecorder()

			handler.ServeHTTP(response, request)
			if response.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d", http.StatusBadRequest, response.Code)
			}
			if len(sink.frames) != 0 {
				t.Fatalf("unexpected pushed frames %d", len(sink.frames))
			}
		})
	}
}

func TestHTTPHandlerMethodAndLimits(t *testing.T) {
	t.Parallel()

	handler := NewHTTPHandler(&testSink{}, 16)
	response := httptest.NewRecorder()
	handler.ServeHTTP(response, httptest.NewRequest(http.MethodGet, "/frames", nil))
	if response.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, response.Code)
	}

	response = httptest.NewRecorder()
	handler.ServeHTTP(response, httptest.NewRequest(http.MethodPost, "/frames", strings.NewReader(testFrameJSON(1))))
	if response.Code != http.StatusBadRequest {
		t.Fatalf("expected oversized body rejected, got %d", response.Code)
	}
}

func TestHTTPHandlerReturnsServiceUnavailableOnPushError(t *testing.T) {
	t.Parallel()

	sink := &testSink{err: errors.New("sink unavailable")}
	handler := NewHTTPHandler(sink, 1<<20)
	request := httptest.NewRequest(http.MethodPost, "/frames", strings.NewReader(testFrameJSON(1)))
	response := httptest.NewRecorder()

	handler.ServeHTTP(response, request)
	if response.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, response.Code)
	}
}

func TestReleaseDecodeScratchDropsOversizedBuffer(t *testing.T) {
	t.Parallel()

	scratch := &decodeScratch{
		frames: make([]domain.Frame, 0, maxPooledBatchCapacity+1),
	}
	releaseDecodeScratch(scratch)
	if cap(scratch.frames) > maxPooledBatchCapacity {
		t.Fatalf("expected capped pooled capacity, got %d", cap(scratch.frames))
	}
}
