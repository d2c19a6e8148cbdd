package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/runway/internal/common"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestCSVReader_Read(t *testing.T) {
	input := `Date,Description,Amount,Balance
2024-03-01,NETFLIX.COM,-15.99,984.01
03/02/2024,"ACME PAYROLL, INC",2500.00,"3,484.01"
3/5/24,BLUE BOTTLE,(6.50),
`
	result, err := NewCSVReader(nil).Read(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 3)
	assert.Zero(t, result.Skipped)

	first := result.Transactions[0]
	assert.Equal(t, day(2024, 3, 1), first.PostingDate)
	assert.Equal(t, "NETFLIX.COM", first.Description)
	assert.Equal(t, "-15.99", first.Amount.StringFixed(2))
	require.True(t, first.BalanceAfter.Valid)
	assert.Equal(t, "984.01", first.BalanceAfter.Decimal.StringFixed(2))
	assert.Equal(t, "csv", first.Source)
	assert.NotEmpty(t, first.Hash)

	second := result.Transactions[1]
	assert.Equal(t, day(2024, 3, 2), second.PostingDate)
	assert.Equal(t, "ACME PAYROLL, INC", second.Description)
	assert.Equal(t, "3484.01", second.BalanceAfter.Decimal.StringFixed(2))

	third := result.Transactions[2]
	assert.Equal(t, day(2024, 3, 5), third.PostingDate)
	assert.Equal(t, "-6.50", third.Amount.StringFixed(2))
	assert.False(t, third.BalanceAfter.Valid)
}

func TestCSVReader_IdenticalRowsStayDistinct(t *testing.T) {
	input := `date,description,amount
2024-03-05,BLUE BOTTLE,-6.50
2024-03-05,BLUE BOTTLE,-6.50
`
	first, err := NewCSVReader(nil).Read(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, first.Transactions, 2)
	assert.NotEqual(t, first.Transactions[0].Hash, first.Transactions[1].Hash)

	again, err := NewCSVReader(nil).Read(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, first.Transactions[1].Hash, again.Transactions[1].Hash)
}

func TestCSVReader_HeaderAliases(t *testing.T) {
	input := `Running Balance,Amount,Payee,Posting Date
100.00,-5.00,COFFEE,2024-01-10
`
	result, err := NewCSVReader(nil).Read(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "COFFEE", result.Transactions[0].Description)
	assert.Equal(t, day(2024, 1, 10), result.Transactions[0].PostingDate)
	assert.Equal(t, "100.00", result.Transactions[0].BalanceAfter.Decimal.StringFixed(2))
}

func TestCSVReader_DebitCreditColumns(t *testing.T) {
	input := `Transaction Date,Description,Debit,Credit
2024-02-01,RENT,1500.00,
2024-02-02,ACME PAYROLL,,2500.00
2024-02-03,NOTHING,,
`
	result, err := NewCSVReader(nil).Read(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)
	assert.Equal(t, "-1500.00", result.Transactions[0].Amount.StringFixed(2))
	assert.Equal(t, "2500.00", result.Transactions[1].Amount.StringFixed(2))
	assert.Equal(t, 1, result.Skipped)
}

func TestCSVReader_SkipsMalformedRows(t *testing.T) {
	input := `date,description,amount
2024-01-01,GOOD,-1.00
yesterday,BAD DATE,-1.00
2024-01-02,BAD AMOUNT,ten dollars
2024-01-03,,-1.00

2024-01-04,ALSO GOOD,-2.00
`
	result, err := NewCSVReader(nil).Read(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)
	assert.Equal(t, "GOOD", result.Transactions[0].Description)
	assert.Equal(t, "ALSO GOOD", result.Transactions[1].Description)
	assert.Equal(t, 3, result.Skipped)
}

func TestCSVReader_MissingColumns(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "no date", header: "description,amount"},
		{name: "no description", header: "date,amount"},
		{name: "no amount", header: "date,description,balance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCSVReader(nil).Read(context.Background(), strings.NewReader(tt.header+"\n"))
			require.ErrorIs(t, err, ErrUnsupportedFormat)
		})
	}
}

func TestCSVReader_EmptyInput(t *testing.T) {
	result, err := NewCSVReader(nil).Read(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, result.Transactions)
}

func TestCSVReader_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCSVReader(nil).Read(ctx, strings.NewReader("date,description,amount\n2024-01-01,X,-1\n"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "-15.99", want: "-15.99"},
		{input: "$1,234.56", want: "1234.56"},
		{input: "(12.00)", want: "-12.00"},
		{input: "($7.25)", want: "-7.25"},
		{input: " 3 ", want: "3.00"},
		{input: "", wantErr: true},
		{input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseAmount(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, common.ErrMalformedRecord)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestParseDate(t *testing.T) {
	for _, input := range []string{"2024-07-04", "07/04/2024", "7/4/2024", "07/04/24", "2024/07/04", "Jul 4, 2024"} {
		got, err := parseDate(input)
		require.NoError(t, err, input)
		assert.Equal(t, day(2024, 7, 4), got, input)
	}

	_, err := parseDate("4th of July")
	require.ErrorIs(t, err, common.ErrMalformedRecord)
}

func TestForPath(t *testing.T) {
	tests := []struct {
		want    any
		path    string
		wantErr bool
	}{
		{path: "statement.csv", want: &CSVReader{}},
		{path: "statement.CSV", want: &CSVReader{}},
		{path: "statement.ofx", want: &OFXReader{}},
		{path: "statement.qfx", want: &OFXReader{}},
		{path: "statement.pdf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			reader, err := ForPath(tt.path, nil)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, reader)
		})
	}
}
