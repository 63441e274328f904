package tabular

import (
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// DecodeReader wraps r so its bytes are transcoded from the named charset to
// UTF-8. Older portal extracts ship as windows-1252 or iso-8859-1; an empty
// or utf-8 charset returns r unchanged.
func DecodeReader(charset string, r io.Reader) (io.Reader, error) {
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return r, nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, eris.Wrapf(err, "tabular: unsupported charset %q", charset)
	}
	return enc.NewDecoder().Reader(r), nil
}
