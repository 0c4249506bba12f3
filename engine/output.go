package engine

import (
	"bufio"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/anima-toon/engine/core"
	"github.com/spaghettifunk/anima-toon/engine/renderer/toon"
	"golang.org/x/image/bmp"
)

// Output encodings, chosen by file extension.
const (
	FormatPNG  = ".png"
	FormatBMP  = ".bmp"
	FormatRGBA = ".rgba"
)

// OutputFormat returns the encoding for path.
func OutputFormat(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case FormatPNG, FormatBMP, FormatRGBA:
		return ext, nil
	default:
		return "", fmt.Errorf("%w: unsupported output extension %q (want .png, .bmp or .rgba)", core.ErrInvalidConfig, ext)
	}
}

// VariantPath inserts the material id before the extension:
// out.png becomes out-m2.png.
func VariantPath(path string, materialID uint8) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s-m%d%s", strings.TrimSuffix(path, ext), materialID, ext)
}

// WriteImage encodes res to path. The file is written next to its final
// name and renamed into place so watchers never see a partial image.
func WriteImage(path string, res *toon.Result) error {
	format, err := OutputFormat(path)
	if err != nil {
		return err
	}
	img, err := res.Image()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".toon-*"+format)
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	switch format {
	case FormatPNG:
		err = png.Encode(w, img)
	case FormatBMP:
		err = bmp.Encode(w, img)
	case FormatRGBA:
		_, err = w.Write(res.Pixels)
	}
	if err == nil {
		err = w.Flush()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}
