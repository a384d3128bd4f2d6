package canvas

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	_ "golang.org/x/image/webp"

	"workwithme/internal/domain"
)

// MaxImageSide bounds the width and height of imported images.
const MaxImageSide = 4096

const pngDataURLPrefix = "data:image/png;base64,"

// EncodePNG returns the canvas as PNG bytes.
func (c *Canvas) EncodePNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, c.img); err != nil {
		return nil, fmt.Errorf("encode canvas: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadPNG replaces the canvas with an encoded image.
func (c *Canvas) LoadPNG(data []byte) error {
	if c.maxBytes > 0 && len(data) > c.maxBytes {
		return tooLarge("canvas.LoadPNG", c.maxBytes)
	}
	img, err := decodeImage(data)
	if err != nil {
		return err
	}
	c.replace(img)
	return nil
}

// DataURL returns the canvas as a PNG data URL.
func (c *Canvas) DataURL() (string, error) {
	data, err := c.EncodePNG()
	if err != nil {
		return "", err
	}
	return pngDataURLPrefix + base64.StdEncoding.EncodeToString(data), nil
}

// LoadDataURL replaces the canvas with the image in a data URL. PNG,
// JPEG, GIF and WebP are accepted; transparent areas become white.
func (c *Canvas) LoadDataURL(url string) error {
	data, err := DecodeDataURL(url, c.maxBytes)
	if err != nil {
		return err
	}
	return c.LoadPNG(data)
}

// DecodeDataURL extracts the payload of a base64 image data URL. A
// positive maxBytes rejects payloads that decode to more bytes.
func DecodeDataURL(url string, maxBytes int) ([]byte, error) {
	const op = "canvas.DecodeDataURL"

	rest, ok := strings.CutPrefix(strings.TrimSpace(url), "data:")
	if !ok {
		return nil, domain.NewDomainError(op, domain.ErrInvalidImage, "not a data url")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, domain.NewDomainError(op, domain.ErrInvalidImage, "missing payload")
	}
	if !strings.HasPrefix(meta, "image/") || !strings.HasSuffix(meta, ";base64") {
		return nil, domain.NewDomainError(op, domain.ErrInvalidImage, fmt.Sprintf("unsupported media type %q", meta))
	}
	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(payload)) > maxBytes+2 {
		return nil, tooLarge(op, maxBytes)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, domain.NewDomainError(op, domain.ErrInvalidImage, err.Error())
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return nil, tooLarge(op, maxBytes)
	}
	return data, nil
}

func tooLarge(op string, maxBytes int) error {
	return domain.NewDomainError(op, domain.ErrInvalidImage, fmt.Sprintf("image exceeds %d bytes", maxBytes))
}

func decodeImage(data []byte) (image.Image, error) {
	const op = "canvas.decodeImage"

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, domain.NewDomainError(op, domain.ErrInvalidImage, err.Error())
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxImageSide || cfg.Height > MaxImageSide {
		return nil, domain.NewDomainError(op, domain.ErrInvalidImage,
			fmt.Sprintf("dimensions %dx%d out of range", cfg.Width, cfg.Height))
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, domain.NewDomainError(op, domain.ErrInvalidImage, err.Error())
	}
	return img, nil
}
