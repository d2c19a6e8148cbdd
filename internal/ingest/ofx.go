package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/runway/internal/common"
	"github.com/Veraticus/runway/internal/model"
)

var (
	severityPattern = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// Opening tags left without their closing bracket at end of line.
	unclosedTagPattern = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// OFXReader reads OFX and QFX bank and credit card statements.
type OFXReader struct {
	logger *slog.Logger
}

// NewOFXReader creates an OFX statement reader. A nil logger uses the default logger.
func NewOFXReader(logger *slog.Logger) *OFXReader {
	return &OFXReader{logger: common.ComponentLogger(logger, "ingest.ofx")}
}

// preprocessOFX fixes common formatting issues in bank exports.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityPattern.ReplaceAllStringFunc(content, strings.ToUpper)
	return unclosedTagPattern.ReplaceAllString(content, "$1>")
}

// Read parses every bank and credit card statement in the file. The ledger
// balance is attached to the last transaction posted on or before its as-of date.
func (r *OFXReader) Read(ctx context.Context, in io.Reader) (*Result, error) {
	content, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	result := &Result{}
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		bankStmts++
		r.appendStatement(result, stmt.BankTranList.Transactions, stmt.BalAmt, stmt.DtAsOf)
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		ccStmts++
		r.appendStatement(result, stmt.BankTranList.Transactions, stmt.BalAmt, stmt.DtAsOf)
	}

	model.NumberDuplicates(result.Transactions)

	r.logger.Debug("read OFX statement",
		"transactions", len(result.Transactions),
		"skipped", result.Skipped,
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return result, nil
}

func (r *OFXReader) appendStatement(result *Result, txns []ofxgo.Transaction, balance ofxgo.Amount, asOf ofxgo.Date) {
	start := len(result.Transactions)
	for _, ofxTx := range txns {
		txn, err := convertOFXTransaction(ofxTx)
		if err != nil {
			result.Skipped++
			r.logger.Debug("skipping OFX transaction", "fitid", string(ofxTx.FiTID), "error", err)
			continue
		}
		result.Transactions = append(result.Transactions, txn)
	}

	if asOf.IsZero() {
		return
	}
	ledger, err := decimal.NewFromString(balance.FloatString(2))
	if err != nil {
		return
	}

	cutoff := model.Day(asOf.Time)
	last := -1
	for i := start; i < len(result.Transactions); i++ {
		date := result.Transactions[i].PostingDate
		if date.After(cutoff) {
			continue
		}
		if last < 0 || !date.Before(result.Transactions[last].PostingDate) {
			last = i
		}
	}
	if last >= 0 {
		result.Transactions[last].BalanceAfter = decimal.NewNullDecimal(ledger)
	}
}

func convertOFXTransaction(ofxTx ofxgo.Transaction) (model.Transaction, error) {
	if ofxTx.DtPosted.IsZero() {
		return model.Transaction{}, fmt.Errorf("%w: missing posting date", common.ErrMalformedRecord)
	}

	amount, err := decimal.NewFromString(ofxTx.TrnAmt.FloatString(2))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("%w: amount %q", common.ErrMalformedRecord, ofxTx.TrnAmt.String())
	}

	description := ofxDescription(ofxTx)
	if description == "" {
		return model.Transaction{}, fmt.Errorf("%w: empty description", common.ErrMalformedRecord)
	}

	txn := model.Transaction{
		PostingDate: model.Day(ofxTx.DtPosted.Time),
		Description: description,
		Amount:      amount,
		Source:      "ofx",
		Reference:   strings.TrimSpace(string(ofxTx.FiTID)),
	}
	return txn, nil
}

// ofxDescription keeps the raw statement text; merchant cleanup happens later.
func ofxDescription(tx ofxgo.Transaction) string {
	if tx.Payee != nil && strings.TrimSpace(string(tx.Payee.Name)) != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := strings.TrimSpace(string(tx.Name))
	if memo := strings.TrimSpace(string(tx.Memo)); memo != "" && (name == "" || isGenericDescription(name)) {
		return memo
	}
	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}
