package monitor

import (
	"fmt"
	"io"
	"os"

	"github.com/pwalsh/cachemon/internal/errors"
)

// OpenDestination opens the output stream for a run. Text output appends so
// repeated runs accumulate in the same file; XML and CSV truncate. The
// second return value reports whether the XML declaration and root-open
// element still need to be written, decided by whether the destination
// already holds content. An empty path selects stdout, which the caller must
// not close.
func OpenDestination(path string, enc Encoding) (*os.File, bool, error) {
	if path == "" {
		return os.Stdout, true, nil
	}

	var f *os.File
	var err error
	if enc == EncodingText {
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	} else {
		f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	}
	if err != nil {
		return nil, false, errors.WrapWithCode(err, errors.ErrOutput,
			fmt.Sprintf("error opening %q output file", path),
			"Check the path and its directory permissions.")
	}

	prologue := true
	if enc == EncodingXML {
		pos, err := f.Seek(0, io.SeekEnd)
		if err != nil {
			f.Close()
			return nil, false, errors.WrapWithCode(err, errors.ErrOutput,
				fmt.Sprintf("error seeking %q output file", path), "")
		}
		prologue = pos == 0
	}
	return f, prologue, nil
}
