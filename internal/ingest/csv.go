package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/runway/internal/common"
	"github.com/Veraticus/runway/internal/model"
)

// Header aliases seen in exports from common US banks.
var (
	dateHeaders        = []string{"date", "posting date", "posted date", "transaction date", "post date"}
	descriptionHeaders = []string{"description", "payee", "name", "memo", "details"}
	amountHeaders      = []string{"amount", "transaction amount"}
	debitHeaders       = []string{"debit", "withdrawal", "withdrawals"}
	creditHeaders      = []string{"credit", "deposit", "deposits"}
	balanceHeaders     = []string{"balance", "running balance", "balance after", "running bal."}
)

var dateLayouts = []string{
	model.DateLayout,
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"2006/01/02",
	"Jan 2, 2006",
}

// CSVReader reads date,description,amount,balance statements. Columns are
// matched by header name, case-insensitively, in any order.
type CSVReader struct {
	logger *slog.Logger
}

// NewCSVReader creates a CSV statement reader. A nil logger uses the default logger.
func NewCSVReader(logger *slog.Logger) *CSVReader {
	return &CSVReader{logger: common.ComponentLogger(logger, "ingest.csv")}
}

type csvColumns struct {
	date, description, amount, debit, credit, balance int
}

// Read parses every row, skipping rows whose date or amount cannot be parsed.
func (r *CSVReader) Read(ctx context.Context, in io.Reader) (*Result, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &Result{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols, err := locateColumns(header)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			r.skip(result, line, err)
			continue
		}
		if isBlank(record) {
			continue
		}

		txn, err := cols.parse(record)
		if err != nil {
			r.skip(result, line, err)
			continue
		}
		result.Transactions = append(result.Transactions, txn)
	}

	model.NumberDuplicates(result.Transactions)

	r.logger.Debug("read CSV statement",
		"transactions", len(result.Transactions),
		"skipped", result.Skipped)

	return result, nil
}

func (r *CSVReader) skip(result *Result, line int, err error) {
	result.Skipped++
	r.logger.Debug("skipping CSV row", "line", line, "error", err)
}

func locateColumns(header []string) (csvColumns, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}

	find := func(aliases []string) int {
		for _, alias := range aliases {
			if i, ok := index[alias]; ok {
				return i
			}
		}
		return -1
	}

	cols := csvColumns{
		date:        find(dateHeaders),
		description: find(descriptionHeaders),
		amount:      find(amountHeaders),
		debit:       find(debitHeaders),
		credit:      find(creditHeaders),
		balance:     find(balanceHeaders),
	}

	switch {
	case cols.date < 0:
		return cols, fmt.Errorf("%w: CSV header has no date column", ErrUnsupportedFormat)
	case cols.description < 0:
		return cols, fmt.Errorf("%w: CSV header has no description column", ErrUnsupportedFormat)
	case cols.amount < 0 && cols.debit < 0 && cols.credit < 0:
		return cols, fmt.Errorf("%w: CSV header has no amount column", ErrUnsupportedFormat)
	}
	return cols, nil
}

func (c csvColumns) parse(record []string) (model.Transaction, error) {
	date, err := parseDate(field(record, c.date))
	if err != nil {
		return model.Transaction{}, err
	}

	description := strings.TrimSpace(field(record, c.description))
	if description == "" {
		return model.Transaction{}, fmt.Errorf("%w: empty description", common.ErrMalformedRecord)
	}

	var amount decimal.Decimal
	if c.amount >= 0 {
		amount, err = parseAmount(field(record, c.amount))
		if err != nil {
			return model.Transaction{}, err
		}
	} else {
		amount, err = splitAmount(field(record, c.debit), field(record, c.credit))
		if err != nil {
			return model.Transaction{}, err
		}
	}

	txn := model.Transaction{
		PostingDate: date,
		Description: description,
		Amount:      amount,
		Source:      "csv",
	}

	if raw := strings.TrimSpace(field(record, c.balance)); raw != "" {
		balance, err := parseAmount(raw)
		if err != nil {
			return model.Transaction{}, err
		}
		txn.BalanceAfter = decimal.NewNullDecimal(balance)
	}

	return txn, nil
}

// splitAmount combines separate debit and credit columns into a signed amount.
func splitAmount(debit, credit string) (decimal.Decimal, error) {
	debit, credit = strings.TrimSpace(debit), strings.TrimSpace(credit)
	switch {
	case debit != "":
		amount, err := parseAmount(debit)
		return amount.Abs().Neg(), err
	case credit != "":
		amount, err := parseAmount(credit)
		return amount.Abs(), err
	default:
		return decimal.Zero, fmt.Errorf("%w: row has neither debit nor credit", common.ErrMalformedRecord)
	}
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return model.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparsable date %q", common.ErrMalformedRecord, raw)
}

// parseAmount accepts "$1,234.56", "-12.00" and accounting-style "(12.00)".
func parseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: unparsable amount %q", common.ErrMalformedRecord, raw)
	}
	if negative {
		amount = amount.Abs().Neg()
	}
	return amount, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
