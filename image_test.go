package glubblog

import (
	"testing"

	"github.com/lemmi/glubblog/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testImages = ImageBuilder{ProjectID: "abc123", Dataset: "production"}

func refImage(ref string) *backend.Image {
	return &backend.Image{Asset: backend.Asset{Ref: ref}}
}

func TestImageURL(t *testing.T) {
	u, err := testImages.URL(refImage("image-Tb9Ew8CXIwaY6R1kjMvI0uRR-2000x3000-jpg"), ImageOptions{Width: 500, Height: 500})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.sanity.io/images/abc123/production/Tb9Ew8CXIwaY6R1kjMvI0uRR-2000x3000.jpg?w=500&h=500&fit=max&auto=format", u)
}

func TestImageURLNoSize(t *testing.T) {
	u, err := testImages.URL(refImage("image-abc-10x20-png"), ImageOptions{Fit: "crop"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.sanity.io/images/abc123/production/abc-10x20.png?fit=crop&auto=format", u)
}

func TestImageURLCrop(t *testing.T) {
	img := refImage("image-abc-1000x500-jpg")
	img.Crop = &backend.Crop{Left: 0.1, Top: 0.2, Right: 0.1, Bottom: 0}
	u, err := testImages.URL(img, ImageOptions{Width: 200})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.sanity.io/images/abc123/production/abc-1000x500.jpg?rect=100,100,800,400&w=200&fit=max&auto=format", u)

	img.Crop = &backend.Crop{}
	u, err = testImages.URL(img, ImageOptions{})
	require.NoError(t, err)
	assert.NotContains(t, u, "rect=")
}

func TestImageURLHotspot(t *testing.T) {
	img := refImage("image-abc-1000x500-jpg")
	img.Hotspot = &backend.Hotspot{X: 0.25, Y: 0.5, Width: 0.2, Height: 0.2}

	u, err := testImages.URL(img, ImageOptions{Width: 200, Height: 200, Fit: "crop"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.sanity.io/images/abc123/production/abc-1000x500.jpg?w=200&h=200&fit=crop&crop=focalpoint&fp-x=0.25&fp-y=0.5&auto=format", u)

	// the focal point is relative to what the crop leaves
	img.Crop = &backend.Crop{Left: 0.2, Right: 0.3}
	u, err = testImages.URL(img, ImageOptions{Width: 200, Height: 200, Fit: "crop"})
	require.NoError(t, err)
	assert.Contains(t, u, "rect=200,0,500,500&")
	assert.Contains(t, u, "&fp-x=0.1&fp-y=0.5&")

	// only cropping fits use the hotspot
	u, err = testImages.URL(img, ImageOptions{Width: 200})
	require.NoError(t, err)
	assert.NotContains(t, u, "focalpoint")
}

func TestImageURLResolvedAsset(t *testing.T) {
	img := &backend.Image{Asset: backend.Asset{URL: "/static/images/hello.jpg"}}
	u, err := ImageBuilder{}.URL(img, ImageOptions{Width: 500})
	require.NoError(t, err)
	assert.Equal(t, "/static/images/hello.jpg", u)
}

func TestImageURLErrors(t *testing.T) {
	_, err := testImages.URL(nil, ImageOptions{})
	assert.Error(t, err)

	for _, ref := range []string{"", "file-abc-10x10-pdf", "image-abc-10-png", "image-abc-axb-png"} {
		_, err := testImages.URL(refImage(ref), ImageOptions{})
		assert.Error(t, err, ref)
	}

	_, err = ImageBuilder{}.URL(refImage("image-abc-10x10-png"), ImageOptions{})
	assert.Error(t, err)
}

func TestParseImageRefWithDashes(t *testing.T) {
	ref, err := parseImageRef("image-a-b-c-64x32-webp")
	require.NoError(t, err)
	assert.Equal(t, imageRef{id: "a-b-c", width: 64, height: 32, format: "webp"}, ref)
}
