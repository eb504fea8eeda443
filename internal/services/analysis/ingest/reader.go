package ingest

import (
	"io"

	"claimguard/internal/adapters/ingest/claimsfile"
	"claimguard/internal/services/analysis/domain"
)

type readerFactory struct {
	opts []claimsfile.Option
}

// NewReaderFactory wraps the claims reader, comma zero keeps the default delimiter
func NewReaderFactory(comma rune) domain.ReaderFactory {
	var opts []claimsfile.Option
	if comma != 0 {
		opts = append(opts, claimsfile.WithComma(comma))
	}
	return readerFactory{opts: opts}
}

// New reads the header of rc and returns a chunked reader
func (f readerFactory) New(rc io.ReadCloser) (domain.ReaderPort, error) {
	r, err := claimsfile.NewReader(rc, f.opts...)
	if err != nil {
		return nil, err
	}
	return r, nil
}
