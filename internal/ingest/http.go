package ingest

import (
	"io"
	"net/http"

	"buffwatch/internal/domain"
)

// FrameSink receives decoded frames from feed interfaces.
// Params: decoded frame copied by value.
// Returns: processing error.
type FrameSink interface {
	Push(frame domain.Frame) error
}

// HTTPHandler decodes JSON frames and forwards them to sink.
// Params: sink receives validated frames, max body limits payload size.
// Returns: HTTP handler for local frame endpoint.
type HTTPHandler struct {
	sink        FrameSink
	maxBodySize int64
}

// NewHTTPHandler creates frame HTTP handler.
// Params: sink and max request body size in bytes.
// Returns: configured handler.
func NewHTTPHandler(sink FrameSink, maxBodySize int64) *HTTPHandler {
	return &HTTPHandler{sink: sink, maxBodySize: maxBodySize}
}

// ServeHTTP handles one frame or frame batch request.
// Params: HTTP request/response writer pair.
// Returns: writes status code according to decode/push result.
func (h *HTTPHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		writer.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	request.Body = http.MaxBytesReader(writer, request.Body, h.maxBodySize)
	defer request.Body.Close()
	body, err := io.ReadAll(request.Body)
	if err != nil {
		writer.WriteHeader(http.StatusBadRequest)
		return
	}

	scratch := acquireDecodeScratch()
	defer releaseDecodeScratch(scratch)
	frames, err := decodeFramePayloadInto(body, scratch)
	if err != nil {
		http.Error(writer, err.Error(), http.StatusBadRequest)
		return
	}

	if err := pushFrames(h.sink, frames); err != nil {
		writer.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	writer.WriteHeader(http.StatusAccepted)
}
