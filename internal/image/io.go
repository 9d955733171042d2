package image

import (
	"bufio"
	"fmt"
	"image/png"
	"io"
	"os"
)

// EncodePNG writes the pixmap as PNG.
func (p *Pixmap) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, p.ToStdImage()); err != nil {
		return fmt.Errorf("image: encode PNG: %w", err)
	}
	return nil
}

// SavePNG writes the pixmap to a PNG file.
func (p *Pixmap) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("image: create %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	if err := p.EncodePNG(bw); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("image: write %s: %w", path, err)
	}
	return f.Close()
}
