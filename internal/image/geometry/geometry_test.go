package geometry_test

import (
	goimage "image"
	"image/color"
	"testing"

	"github.com/DMarby/image-api/internal/image"
	"github.com/DMarby/image-api/internal/image/geometry"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestDimensions(t *testing.T) {
	tests := []struct {
		Name           string
		Width, Height  int
		Options        image.ResizeOptions
		ExpectedWidth  int
		ExpectedHeight int
	}{
		{"percentage", 800, 600, image.ResizeOptions{Percentage: floatPtr(50)}, 400, 300},
		{"percentage upscale", 800, 600, image.ResizeOptions{Percentage: floatPtr(150)}, 1200, 900},
		{"percentage rounds", 101, 51, image.ResizeOptions{Percentage: floatPtr(50)}, 51, 26},
		{"width keeps aspect ratio", 800, 600, image.ResizeOptions{Width: intPtr(400), MaintainAspectRatio: true}, 400, 300},
		{"height keeps aspect ratio", 800, 600, image.ResizeOptions{Height: intPtr(150), MaintainAspectRatio: true}, 200, 150},
		{"width without aspect ratio", 800, 600, image.ResizeOptions{Width: intPtr(400)}, 400, 600},
		{"height without aspect ratio", 800, 600, image.ResizeOptions{Height: intPtr(100)}, 800, 100},
		{"exact box", 800, 600, image.ResizeOptions{Width: intPtr(100), Height: intPtr(100)}, 100, 100},
		{"fits inside box by width", 800, 600, image.ResizeOptions{Width: intPtr(400), Height: intPtr(400), MaintainAspectRatio: true}, 400, 300},
		{"fits inside box by height", 800, 600, image.ResizeOptions{Width: intPtr(1000), Height: intPtr(300), MaintainAspectRatio: true}, 400, 300},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			width, height, err := geometry.Dimensions(test.Width, test.Height, test.Options)
			if err != nil {
				t.Fatal(err)
			}

			if width != test.ExpectedWidth || height != test.ExpectedHeight {
				t.Errorf("expected %dx%d, got %dx%d", test.ExpectedWidth, test.ExpectedHeight, width, height)
			}
		})
	}
}

func TestDimensionsErrors(t *testing.T) {
	tests := []struct {
		Name          string
		Width, Height int
		Options       image.ResizeOptions
	}{
		{"no options", 800, 600, image.ResizeOptions{}},
		{"percentage with width", 800, 600, image.ResizeOptions{Percentage: floatPtr(50), Width: intPtr(10)}},
		{"zero percentage", 800, 600, image.ResizeOptions{Percentage: floatPtr(0)}},
		{"negative width", 800, 600, image.ResizeOptions{Width: intPtr(-1)}},
		{"zero height", 800, 600, image.ResizeOptions{Height: intPtr(0)}},
		{"resolves to zero", 800, 600, image.ResizeOptions{Percentage: floatPtr(0.01)}},
		{"aspect ratio resolves to zero", 1000, 1, image.ResizeOptions{Width: intPtr(1), MaintainAspectRatio: true}},
		{"exceeds maximum dimension", 10000, 10, image.ResizeOptions{Percentage: floatPtr(200)}},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			_, _, err := geometry.Dimensions(test.Width, test.Height, test.Options)
			if image.KindOf(err) != image.KindValidation {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func testImage(width, height int) *goimage.NRGBA {
	img := goimage.NewNRGBA(goimage.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 0, A: 255})
		}
	}
	return img
}

func TestResize(t *testing.T) {
	img := testImage(800, 600)
	original := append([]uint8(nil), img.Pix...)

	resized, err := geometry.Resize(img, image.ResizeOptions{Percentage: floatPtr(50)})
	if err != nil {
		t.Fatal(err)
	}

	if resized.Bounds().Dx() != 400 || resized.Bounds().Dy() != 300 {
		t.Errorf("wrong dimensions %v", resized.Bounds())
	}

	if string(original) != string(img.Pix) {
		t.Error("input image was modified")
	}
}

func TestCrop(t *testing.T) {
	img := testImage(800, 600)

	t.Run("keeps the pixels inside the rectangle", func(t *testing.T) {
		cropped, err := geometry.Crop(img, image.Rectangle{Left: 100, Top: 100, Right: 500, Bottom: 400})
		if err != nil {
			t.Fatal(err)
		}

		bounds := cropped.Bounds()
		if bounds.Dx() != 400 || bounds.Dy() != 300 {
			t.Fatalf("wrong dimensions %v", bounds)
		}

		r, g, _, _ := cropped.At(bounds.Min.X, bounds.Min.Y).RGBA()
		if r>>8 != 100 || g>>8 != 100 {
			t.Errorf("wrong origin pixel %d,%d", r>>8, g>>8)
		}
	})

	t.Run("translates images that don't start at the origin", func(t *testing.T) {
		sub := img.SubImage(goimage.Rect(50, 50, 150, 150))

		cropped, err := geometry.Crop(sub, image.Rectangle{Left: 0, Top: 0, Right: 10, Bottom: 10})
		if err != nil {
			t.Fatal(err)
		}

		bounds := cropped.Bounds()
		r, g, _, _ := cropped.At(bounds.Min.X, bounds.Min.Y).RGBA()
		if r>>8 != 50 || g>>8 != 50 {
			t.Errorf("wrong origin pixel %d,%d", r>>8, g>>8)
		}
	})

	tests := []struct {
		Name      string
		Rectangle image.Rectangle
	}{
		{"right out of bounds", image.Rectangle{Left: 100, Top: 100, Right: 900, Bottom: 400}},
		{"bottom out of bounds", image.Rectangle{Left: 0, Top: 0, Right: 10, Bottom: 601}},
		{"negative left", image.Rectangle{Left: -1, Top: 0, Right: 10, Bottom: 10}},
		{"empty width", image.Rectangle{Left: 10, Top: 0, Right: 10, Bottom: 10}},
		{"inverted height", image.Rectangle{Left: 0, Top: 20, Right: 10, Bottom: 10}},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			_, err := geometry.Crop(img, test.Rectangle)
			if image.KindOf(err) != image.KindValidation {
				t.Errorf("expected validation error, got %v", err)
			}

			if err != nil && image.Message(err) != "Invalid crop coordinates. Image dimensions are 800x600." {
				t.Errorf("wrong message %q", image.Message(err))
			}
		})
	}
}
