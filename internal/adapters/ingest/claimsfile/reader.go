package claimsfile

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"claimguard/internal/core/claims"
	perr "claimguard/internal/platform/errors"
	"claimguard/internal/platform/logger"
	ptime "claimguard/internal/platform/time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// Column is a logical input column
type Column int

// Logical columns
const (
	ColBilling Column = iota
	ColServicing
	ColCode
	ColPeriod
	ColSubjects
	ColUnits
	ColPaid
	numColumns
)

// aliases lists accepted header names per column, first match wins
var aliases = [numColumns][]string{
	ColBilling:   {"BILLING_PROVIDER_NPI_NUM", "BILLING_NPI", "NPI"},
	ColServicing: {"SERVICING_PROVIDER_NPI_NUM", "SERVICING_NPI"},
	ColCode:      {"HCPCS_CODE", "PROCEDURE_CODE", "CODE"},
	ColPeriod:    {"CLAIM_FROM_MONTH", "CLAIM_MONTH", "MONTH"},
	ColSubjects:  {"TOTAL_UNIQUE_BENEFICIARIES", "BENEFICIARIES", "BENE_COUNT"},
	ColUnits:     {"TOTAL_CLAIMS", "CLAIMS", "CLAIM_COUNT"},
	ColPaid:      {"TOTAL_PAID", "PAID", "AMOUNT"},
}

// optional columns may be absent from the header
var optional = [numColumns]bool{ColServicing: true}

// Stats counts rows seen by a Reader
type Stats struct {
	Rows    int
	Valid   int
	Dropped int
}

// Chunk is one bounded slice of the source
type Chunk struct {
	Records []claims.RawRecord
	Rows    int
	Dropped int
}

// Reader streams validated RawRecords from delimited text
type Reader struct {
	rc      io.ReadCloser
	cr      *csv.Reader
	idx     [numColumns]int
	stats   Stats
	err     error
	sampled bool
}

// Option configures a Reader
type Option func(*csv.Reader)

// WithComma sets the field delimiter
func WithComma(r rune) Option {
	return func(c *csv.Reader) { c.Comma = r }
}

// NewReader reads and resolves the header row. A header missing a required
// column is a parse error
func NewReader(rc io.ReadCloser, opts ...Option) (*Reader, error) {
	cr := csv.NewReader(rc)
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true
	for _, o := range opts {
		o(cr)
	}

	header, err := cr.Read()
	if err != nil {
		_ = rc.Close()
		if errors.Is(err, io.EOF) {
			return nil, perr.Parsef("claimsfile: empty source, no header row")
		}
		return nil, perr.Wrap(err, perr.ErrorCodeParse, "claimsfile: read header")
	}
	idx, err := resolveHeader(header)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	return &Reader{rc: rc, cr: cr, idx: idx}, nil
}

func resolveHeader(header []string) ([numColumns]int, error) {
	fold := cases.Fold()
	pos := make(map[string]int, len(header))
	for i, h := range header {
		key := fold.String(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := pos[key]; !dup {
			pos[key] = i
		}
	}

	var idx [numColumns]int
	var missing []string
	for c := Column(0); c < numColumns; c++ {
		idx[c] = -1
		for _, name := range aliases[c] {
			if i, ok := pos[fold.String(name)]; ok {
				idx[c] = i
				break
			}
		}
		if idx[c] < 0 && !optional[c] {
			missing = append(missing, aliases[c][0])
		}
	}
	if len(missing) > 0 {
		return idx, perr.Parsef("claimsfile: missing required columns %v in header %v", missing, header)
	}
	return idx, nil
}

// Next returns the next row. valid is false when the row failed validation
// and was dropped. Returns io.EOF at the end of input
func (r *Reader) Next() (rec claims.RawRecord, valid bool, err error) {
	if r.err != nil {
		return claims.RawRecord{}, false, r.err
	}
	fields, err := r.cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			r.err = io.EOF
			return claims.RawRecord{}, false, io.EOF
		}
		r.err = perr.Wrap(err, perr.ErrorCodeParse, "claimsfile: read row")
		return claims.RawRecord{}, false, r.err
	}
	r.stats.Rows++

	rec, valid = r.parse(fields)
	if !valid {
		r.stats.Dropped++
		return rec, false, nil
	}
	r.stats.Valid++

	if !r.sampled {
		r.sampled = true
		logger.Named("claimsfile").Debug().
			Str("billing_id", rec.BillingID).
			Str("code", rec.Code).
			Str("period", rec.Period).
			Int64("units", rec.Units).
			Str("paid", rec.Paid.String()).
			Msg("claimsfile: sample row")
	}
	return rec, true, nil
}

// ReadChunk reads up to n rows, valid or not. It returns io.EOF only when no
// row at all was read
func (r *Reader) ReadChunk(n int) (Chunk, error) {
	var ch Chunk
	for ch.Rows < n {
		rec, ok, err := r.Next()
		if errors.Is(err, io.EOF) {
			if ch.Rows == 0 {
				return ch, io.EOF
			}
			return ch, nil
		}
		if err != nil {
			return ch, err
		}
		ch.Rows++
		if !ok {
			ch.Dropped++
			continue
		}
		ch.Records = append(ch.Records, rec)
	}
	return ch, nil
}

func (r *Reader) field(fields []string, c Column) string {
	i := r.idx[c]
	if i < 0 || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

// parse applies the row rules: billing id, code and period present, and
// units, subjects and paid all positive. Unparseable numbers count as zero
func (r *Reader) parse(fields []string) (claims.RawRecord, bool) {
	rec := claims.RawRecord{
		BillingID:   r.field(fields, ColBilling),
		ServicingID: r.field(fields, ColServicing),
		Code:        r.field(fields, ColCode),
		Period:      ptime.Period(r.field(fields, ColPeriod)),
		Units:       toCount(r.field(fields, ColUnits)),
		Subjects:    toCount(r.field(fields, ColSubjects)),
		Paid:        toMoney(r.field(fields, ColPaid)),
	}
	if rec.BillingID == "" || rec.Code == "" || rec.Period == "" {
		return rec, false
	}
	if rec.Units <= 0 || rec.Subjects <= 0 || !rec.Paid.IsPositive() {
		return rec, false
	}
	return rec, true
}

func toCount(s string) int64 {
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f)
}

func toMoney(s string) decimal.Decimal {
	s = strings.TrimPrefix(strings.ReplaceAll(s, ",", ""), "$")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Stats returns counts so far
func (r *Reader) Stats() Stats { return r.stats }

// Close closes the underlying source
func (r *Reader) Close() error {
	if r.rc == nil {
		return nil
	}
	return r.rc.Close()
}
