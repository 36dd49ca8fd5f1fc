package inline

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"nwitter-backend/internal/shared/apperror"
)

// DefaultMaxBytes is the raw size cap for inline images (1 MiB).
const DefaultMaxBytes int64 = 1 << 20

var errEmptyFile = errors.New("file is empty")

// Encoder turns an uploaded image into a data URI that can be stored in a
// document field.
type Encoder struct {
	MaxBytes int64
}

func NewEncoder(maxBytes int64) *Encoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Encoder{MaxBytes: maxBytes}
}

// Encode reads r (declared to hold size bytes) and returns
// "data:<media type>;base64,<payload>".
//
// Errors: apperror.ErrPayloadTooLarge when the file is over the cap (checked
// against the declared size before reading and against the bytes actually
// read), apperror.ErrDecode when reading fails, apperror.ErrValidation when
// the content is not an image.
func (e *Encoder) Encode(ctx context.Context, r io.Reader, size int64) (string, error) {
	if size > e.MaxBytes {
		return "", apperror.PayloadTooLarge(size, e.MaxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(&contextReader{ctx: ctx, r: r}, e.MaxBytes+1))
	if err != nil {
		return "", apperror.Decode(err)
	}
	if int64(len(data)) > e.MaxBytes {
		return "", apperror.PayloadTooLarge(int64(len(data)), e.MaxBytes)
	}
	if len(data) == 0 {
		return "", apperror.Decode(errEmptyFile)
	}

	mediaType := strings.SplitN(mimetype.Detect(data).String(), ";", 2)[0]
	if !strings.HasPrefix(mediaType, "image/") {
		return "", apperror.Validation("file is not an image (" + mediaType + ")")
	}

	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// contextReader stops a long read once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
