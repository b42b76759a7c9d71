package recorder

import (
	"bufio"
	"io"

	"main/internal/model"
)

// Reader decodes recorded frames sequentially. There is no index or
// footer; knowing each tag's fixed payload size is the only way to walk
// the stream, which is exactly what Next does.
type Reader struct {
	r       *bufio.Reader
	payload [depthPayloadSize]byte
}

// NewReader wraps an io.Reader with frame decoding.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next recorded event. io.EOF signals a clean end of
// stream; io.ErrUnexpectedEOF a truncated trailing frame.
func (r *Reader) Next() (model.MarketEvent, error) {
	var ev model.MarketEvent

	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r.r, header[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return ev, io.ErrUnexpectedEOF
		}
		return ev, err
	}

	ev.Kind = model.Kind(header[0])
	ev.Instrument = header[1]

	size, ok := payloadSize(ev.Kind)
	if !ok {
		return ev, ErrUnknownFrameType
	}
	p := r.payload[:size]
	if _, err := io.ReadFull(r.r, p); err != nil {
		if err == io.EOF {
			return ev, io.ErrUnexpectedEOF
		}
		return ev, err
	}

	decodePayload(&ev, p)
	return ev, nil
}
