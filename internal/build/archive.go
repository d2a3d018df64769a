package build

import (
	"archive/zip"
	"bytes"
	"fmt"
	"time"
)

// EntryName is the only member of every archive. Handlers are referenced as
// "index.<export>" regardless of the source file name.
const EntryName = "index.js"

// archiveEpoch is the smallest timestamp representable in a zip header. A
// fixed value keeps archives byte-identical across runs.
var archiveEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// zipSingle empaqueta el contenido en un zip con un único miembro
func zipSingle(name string, content []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: archiveEpoch,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating archive entry %s: %w", name, err)
	}
	if _, err := w.Write(content); err != nil {
		return nil, fmt.Errorf("error writing archive entry %s: %w", name, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("error closing archive: %w", err)
	}

	return buf.Bytes(), nil
}
