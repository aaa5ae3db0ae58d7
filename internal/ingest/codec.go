package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"buffwatch/internal/domain"
)

const maxPooledBatchCapacity = 256

type decodeScratch struct {
	frames []domain.Frame
}

var decodeScratchPool = sync.Pool{
	New: func() any {
		return &decodeScratch{frames: make([]domain.Frame, 0, 4)}
	},
}

// decodeSingleFrame decodes one frame and rejects trailing JSON tokens.
// Params: json decoder for a single frame object.
// Returns: validated frame or decode error.
func decodeSingleFrame(decoder *json.Decoder) (domain.Frame, error) {
	frame, err := domain.DecodeFrameReader(decoder)
	if err != nil {
		return domain.Frame{}, err
	}
	if err := ensureJSONEOF(decoder); err != nil {
		return domain.Frame{}, err
	}
	return frame, nil
}

// decodeFramePayloadInto auto-detects batch vs single payload.
// Params: raw JSON bytes with one object or array, and pooled scratch.
// Returns: validated frames backed by scratch storage.
func decodeFramePayloadInto(raw []byte, scratch *decodeScratch) ([]domain.Frame, error) {
	payload := bytes.TrimSpace(raw)
	if len(payload) == 0 {
		return nil, errors.New("empty payload")
	}
	decoder := json.NewDecoder(bytes.NewReader(payload))
	if payload[0] == '[' {
		return decodeBatchFramesInto(decoder, scratch)
	}
	frame, err := decodeSingleFrame(decoder)
	if err != nil {
		return nil, err
	}
	frames := append(scratch.frames[:0], frame)
	scratch.frames = frames
	return frames, nil
}

func decodeBatchFramesInto(decoder *json.Decoder, scratch *decodeScratch) ([]domain.Frame, error) {
	frames := scratch.frames[:0]
	if err := decoder.Decode(&frames); err != nil {
		return nil, fmt.Errorf("decode frame batch: %w", err)
	}
	if len(frames) == 0 {
		return nil, errors.New("frame batch must contain at least one frame")
	}
	for i := range frames {
		if err := frames[i].Validate(); err != nil {
			return nil, fmt.Errorf("frame[%d]: %w", i, err)
		}
	}
	if err := ensureJSONEOF(decoder); err != nil {
		return nil, err
	}
	scratch.frames = frames
	return frames, nil
}

func acquireDecodeScratch() *decodeScratch {
	return decodeScratchPool.Get().(*decodeScratch)
}

func releaseDecodeScratch(scratch *decodeScratch) {
	if scratch == nil {
		return
	}
	for i := range scratch.frames {
		scratch.frames[i] = domain.Frame{}
	}
	if cap(scratch.frames) > maxPooledBatchCapacity {
		scratch.frames = make([]domain.Frame, 0, 4)
	} else {
		scratch.frames = scratch.frames[:0]
	}
	decodeScratchPool.Put(scratch)
}

// ensureJSONEOF rejects trailing tokens after a decoded JSON payload.
// Params: decoder positioned after primary decode.
// Returns: nil on EOF or error on trailing tokens.
func ensureJSONEOF(decoder *json.Decoder) error {
	var extra json.RawMessage
	err := decoder.Decode(&extra)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("decode trailing json: %w", err)
	}
	return errors.New("unexpected trailing json tokens")
}

// pushFrames sends frames to sink in order.
// Params: frame sink and frame slice.
// Returns: first push error or nil.
func pushFrames(sink FrameSink, frames []domain.Frame) error {
	for i := range frames {
		if err := sink.Push(frames[i]); err != nil {
			return err
		}
	}
	return nil
}
