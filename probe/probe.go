// Package probe reads media metadata through exiftool. It is only used at
// scan time; a probe failure downgrades the item to unknown duration rather
// than failing the scan.
package probe

import (
	"fmt"

	exiftool "github.com/barasher/go-exiftool"
)

// Metadata is the subset of file metadata the library cares about.
type Metadata struct {
	DurationSeconds float64
	Width           int
	Height          int
	MIMEType        string
}

// Prober wraps a long-lived exiftool process.
type Prober struct {
	et *exiftool.Exiftool
}

// New starts the exiftool sidecar. Callers must Close it.
func New() (*Prober, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("start exiftool: %w", err)
	}
	return &Prober{et: et}, nil
}

// Close shuts the exiftool process down.
func (p *Prober) Close() error {
	return p.et.Close()
}

// Probe extracts metadata for one file. Fields exiftool does not report
// stay at their zero value; only a failed extraction is an error.
func (p *Prober) Probe(path string) (Metadata, error) {
	fms := p.et.ExtractMetadata(path)
	if len(fms) == 0 {
		return Metadata{}, fmt.Errorf("probe %s: no metadata", path)
	}
	fm := fms[0]
	if fm.Err != nil {
		return Metadata{}, fmt.Errorf("probe %s: %w", path, fm.Err)
	}

	var meta Metadata
	if d, err := fm.GetFloat("Duration"); err == nil {
		meta.DurationSeconds = d
	}
	if w, err := fm.GetInt("ImageWidth"); err == nil {
		meta.Width = int(w)
	}
	if h, err := fm.GetInt("ImageHeight"); err == nil {
		meta.Height = int(h)
	}
	if m, err := fm.GetString("MIMEType"); err == nil {
		meta.MIMEType = m
	}
	return meta, nil
}
