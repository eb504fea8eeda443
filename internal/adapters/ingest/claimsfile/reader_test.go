package claimsfile

import (
	"errors"
	"io"
	"strings"
	"testing"

	perr "claimguard/internal/platform/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func src(s string) io.ReadCloser { return io.NopCloser(strings.NewReader(s)) }

const sample = `BILLING_PROVIDER_NPI_NUM,SERVICING_PROVIDER_NPI_NUM,HCPCS_CODE,CLAIM_FROM_MONTH,TOTAL_UNIQUE_BENEFICIARIES,TOTAL_CLAIMS,TOTAL_PAID
1000000001,2000000001,99213,2024-01-01,50,100,12000.50
1000000001,2000000001,99213,2024-02-01,0,120,14400
,2000000002,99214,2024-01-01,10,20,100
1000000003,,99214,2024-01-01,10,20,-5
1000000004,2000000004,99215,2024-01-01,12.0,30,abc
1000000005,2000000005,99215,2024-03-01,9,30.0,900
`

func TestReader_ValidatesRows(t *testing.T) {
	r, err := NewReader(src(sample))
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	var valid []string
	for {
		rec, ok, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		if ok {
			valid = append(valid, rec.BillingID)
		}
	}
	assert.Equal(t, []string{"1000000001", "1000000005"}, valid)
	assert.Equal(t, Stats{Rows: 6, Valid: 2, Dropped: 4}, r.Stats())
}

func TestReader_ParsesFields(t *testing.T) {
	r, err := NewReader(src(sample))
	require.NoError(t, err)

	rec, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2000000001", rec.ServicingID)
	assert.Equal(t, "99213", rec.Code)
	assert.Equal(t, "2024-01-01", rec.Period)
	assert.Equal(t, int64(50), rec.Subjects)
	assert.Equal(t, int64(100), rec.Units)
	assert.True(t, rec.Paid.Equal(decimal.RequireFromString("12000.50")))
}

func TestReader_HeaderAliasesAnyCase(t *testing.T) {
	in := "npi,procedure_code,Claim_Month,bene_count,claims,Amount\nA1,X,2024-01,5,10,100\n"
	r, err := NewReader(src(in))
	require.NoError(t, err)
	rec, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A1", rec.BillingID)
	assert.Equal(t, "", rec.ServicingID)
	assert.Equal(t, int64(10), rec.Units)
}

func TestReader_MissingColumnIsParseError(t *testing.T) {
	_, err := NewReader(src("NPI,CODE,MONTH,CLAIMS,PAID\n"))
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeParse))
	assert.Contains(t, err.Error(), "TOTAL_UNIQUE_BENEFICIARIES")

	_, err = NewReader(src(""))
	assert.True(t, perr.IsCode(err, perr.ErrorCodeParse))
}

func TestReader_BrokenRowIsFatal(t *testing.T) {
	in := "NPI,CODE,MONTH,BENE_COUNT,CLAIMS,PAID\nA,X,2024-01,1,1,1\nB,X,2024-01\n"
	r, err := NewReader(src(in))
	require.NoError(t, err)

	_, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)

	_, _, err = r.Next()
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeParse))

	// sticky
	_, _, again := r.Next()
	assert.Equal(t, err, again)
}

func TestReader_ReadChunk(t *testing.T) {
	r, err := NewReader(src(sample))
	require.NoError(t, err)

	c1, err := r.ReadChunk(4)
	require.NoError(t, err)
	assert.Equal(t, 4, c1.Rows)
	assert.Equal(t, 3, c1.Dropped)
	assert.Len(t, c1.Records, 1)

	c2, err := r.ReadChunk(4)
	require.NoError(t, err)
	assert.Equal(t, 2, c2.Rows)
	assert.Len(t, c2.Records, 1)

	_, err = r.ReadChunk(4)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_WithComma(t *testing.T) {
	in := "NPI|CODE|MONTH|BENE_COUNT|CLAIMS|PAID\nA|X|2024-01|1|2|3.5\n"
	r, err := NewReader(src(in), WithComma('|'))
	require.NoError(t, err)
	rec, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, rec.Paid.Equal(decimal.RequireFromString("3.5")))
}

func TestToMoneyAndCount(t *testing.T) {
	assert.True(t, toMoney("$1,234.50").Equal(decimal.RequireFromString("1234.50")))
	assert.True(t, toMoney("").IsZero())
	assert.True(t, toMoney("n/a").IsZero())
	assert.Equal(t, int64(12), toCount("12.9"))
	assert.Equal(t, int64(0), toCount("x"))
}
