package glubblog

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lemmi/glubblog/backend"
	"github.com/pkg/errors"
)

const DefaultImageCDN = "https://cdn.sanity.io/images"

// ImageBuilder turns image references into URLs of the image pipeline.
type ImageBuilder struct {
	ProjectID string
	Dataset   string
	// BaseURL defaults to DefaultImageCDN.
	BaseURL string
}

type ImageOptions struct {
	Width  int
	Height int
	// Fit defaults to "max".
	Fit string
}

type imageRef struct {
	id     string
	width  int
	height int
	format string
}

// parseImageRef splits references of the form image-<id>-<W>x<H>-<format>.
func parseImageRef(ref string) (imageRef, error) {
	parts := strings.Split(ref, "-")
	if len(parts) < 4 || parts[0] != "image" {
		return imageRef{}, errors.Errorf("malformed image reference %q", ref)
	}
	n := len(parts)
	dims := strings.SplitN(parts[n-2], "x", 2)
	if len(dims) != 2 {
		return imageRef{}, errors.Errorf("malformed image dimensions in %q", ref)
	}
	w, err := strconv.Atoi(dims[0])
	if err != nil {
		return imageRef{}, errors.Wrapf(err, "malformed image width in %q", ref)
	}
	h, err := strconv.Atoi(dims[1])
	if err != nil {
		return imageRef{}, errors.Wrapf(err, "malformed image height in %q", ref)
	}
	return imageRef{
		id:     strings.Join(parts[1:n-2], "-"),
		width:  w,
		height: h,
		format: parts[n-1],
	}, nil
}

func round(f float64) int {
	return int(math.Round(f))
}

// cropRect returns the source rectangle left after cropping, and false when
// nothing is cropped.
func cropRect(c *backend.Crop, width, height int) (left, top, w, h int, ok bool) {
	if c == nil || (c.Left == 0 && c.Top == 0 && c.Right == 0 && c.Bottom == 0) {
		return 0, 0, 0, 0, false
	}
	fw, fh := float64(width), float64(height)
	left = round(c.Left * fw)
	top = round(c.Top * fh)
	w = round(fw - c.Right*fw - float64(left))
	h = round(fh - c.Bottom*fh - float64(top))
	return left, top, w, h, true
}

// focalPoint places the hotspot centre inside the region left after
// cropping, as fractions of that region.
func focalPoint(hs *backend.Hotspot, c *backend.Crop, width, height int) (x, y float64) {
	x, y = hs.X, hs.Y
	if l, t, w, h, ok := cropRect(c, width, height); ok && w > 0 && h > 0 {
		x = (hs.X*float64(width) - float64(l)) / float64(w)
		y = (hs.Y*float64(height) - float64(t)) / float64(h)
	}
	clamp := func(f float64) float64 {
		return math.Round(math.Max(0, math.Min(1, f))*1000) / 1000
	}
	return clamp(x), clamp(y)
}

func formatFraction(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// URL builds the address of img. With fit "crop" the hotspot, if any,
// decides which part of the image is kept. Assets that already carry a URL are
// returned as they are.
func (b ImageBuilder) URL(img *backend.Image, opts ImageOptions) (string, error) {
	if img == nil {
		return "", errors.New("no image")
	}
	if img.Asset.URL != "" && img.Asset.Ref == "" {
		return img.Asset.URL, nil
	}
	if b.ProjectID == "" || b.Dataset == "" {
		return "", errors.New("image builder needs project id and dataset")
	}
	ref, err := parseImageRef(img.Asset.Ref)
	if err != nil {
		return "", err
	}

	base := b.BaseURL
	if base == "" {
		base = DefaultImageCDN
	}
	u := fmt.Sprintf("%s/%s/%s/%s-%dx%d.%s",
		strings.TrimSuffix(base, "/"), b.ProjectID, b.Dataset,
		ref.id, ref.width, ref.height, ref.format)

	var params []string
	if l, t, w, h, ok := cropRect(img.Crop, ref.width, ref.height); ok {
		params = append(params, fmt.Sprintf("rect=%d,%d,%d,%d", l, t, w, h))
	}
	if opts.Width > 0 {
		params = append(params, "w="+strconv.Itoa(opts.Width))
	}
	if opts.Height > 0 {
		params = append(params, "h="+strconv.Itoa(opts.Height))
	}
	fit := opts.Fit
	if fit == "" {
		fit = "max"
	}
	params = append(params, "fit="+fit)
	if fit == "crop" && img.Hotspot != nil {
		x, y := focalPoint(img.Hotspot, img.Crop, ref.width, ref.height)
		params = append(params, "crop=focalpoint", "fp-x="+formatFraction(x), "fp-y="+formatFraction(y))
	}
	params = append(params, "auto=format")

	return u + "?" + strings.Join(params, "&"), nil
}
