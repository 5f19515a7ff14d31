package quadbatch

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Unpremultiply converts premultiplied RGBA pixels, the layout every backend
// reads back, into a straight-alpha image suitable for encoding.
func Unpremultiply(pixels []byte, width, height int) (*image.NRGBA, error) {
	if width < 0 || height < 0 || len(pixels) != 4*width*height {
		return nil, errors.Wrapf(ErrInvalidPixels, "%d bytes for %dx%d", len(pixels), width, height)
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(pixels); i += 4 {
		r, g, b, a := pixels[i], pixels[i+1], pixels[i+2], pixels[i+3]
		if a > 0 && a < 255 {
			r = uint8(min(int(r)*255/int(a), 255))
			g = uint8(min(int(g)*255/int(a), 255))
			b = uint8(min(int(b)*255/int(a), 255))
		}
		img.Pix[i] = r
		img.Pix[i+1] = g
		img.Pix[i+2] = b
		img.Pix[i+3] = a
	}
	return img, nil
}

// WriteSnapshot encodes img as a PNG named <timestamp>_<label>.png inside dir,
// creating dir if needed, and returns the file's path.
func WriteSnapshot(dir, label string, img image.Image) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "quadbatch: snapshot dir %s", dir)
	}
	path := filepath.Join(dir, time.Now().Format("20060102_150405")+"_"+sanitizeLabel(label)+".png")
	return path, writePNG(path, img)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "quadbatch: create %s", path)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return errors.Wrapf(err, "quadbatch: encode %s", path)
	}
	return f.Close()
}

// sanitizeLabel keeps ASCII letters, digits, '-' and '.' and turns every
// other rune into '_'. A blank label becomes "unlabeled".
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "unlabeled"
	}
	return strings.Map(func(r rune) rune {
		if r < utf8.RuneSelf && (r == '-' || r == '.' || isAlnum(byte(r))) {
			return r
		}
		return '_'
	}, label)
}

func isAlnum(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}
