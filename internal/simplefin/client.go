// Package simplefin syncs bank transactions through a SimpleFIN Bridge access URL.
package simplefin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/runway/internal/common"
	"github.com/Veraticus/runway/internal/model"
	"github.com/Veraticus/runway/internal/service"
)

var _ service.TransactionSource = (*Client)(nil)

// Config holds SimpleFIN configuration. Either AccessURL or a one-time
// setup Token is required; a claimed token is cached in StateFile.
type Config struct {
	AccessURL string
	Token     string
	StateFile string
}

// Validate ensures a credential is present.
func (c *Config) Validate() error {
	if c.AccessURL == "" && c.Token == "" {
		return fmt.Errorf("%w: simplefin access URL or setup token is required", common.ErrMissingConfig)
	}
	if c.AccessURL != "" && !isHTTPURL(c.AccessURL) {
		return fmt.Errorf("%w: simplefin access URL must be http(s)", common.ErrInvalidConfig)
	}
	return nil
}

// Client fetches transactions for every account behind one access URL.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	accessURL  string
	retryOpts  common.RetryOptions
}

// SimpleFIN API response types.
type accountSet struct {
	Errors   []string  `json:"errors"`
	Accounts []account `json:"accounts"`
}

type account struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Currency     string        `json:"currency"`
	Balance      string        `json:"balance"`
	Transactions []transaction `json:"transactions"`
	BalanceDate  int64         `json:"balance-date"`
}

type transaction struct {
	ID          string `json:"id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Payee       string `json:"payee"`
	Posted      int64  `json:"posted"`
	Pending     bool   `json:"pending"`
}

// NewClient creates a client, claiming cfg.Token when no access URL is known.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     common.ComponentLogger(logger, "simplefin"),
		accessURL:  strings.TrimSuffix(cfg.AccessURL, "/"),
		retryOpts: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		},
	}

	if c.accessURL == "" {
		auth, err := loadOrClaimAuth(ctx, c.httpClient, cfg, c.logger)
		if err != nil {
			return nil, err
		}
		c.accessURL = strings.TrimSuffix(auth.AccessURL, "/")
	}
	return c, nil
}

// GetTransactions fetches posted transactions between start and end, inclusive.
func (c *Client) GetTransactions(ctx context.Context, start, end time.Time) ([]model.Transaction, error) {
	start, end = model.Day(start), model.Day(end)
	if start.After(end) {
		return nil, errors.New("start date must be before end date")
	}

	q := url.Values{}
	q.Set("start-date", strconv.FormatInt(start.Unix(), 10))
	// end-date is exclusive.
	q.Set("end-date", strconv.FormatInt(end.AddDate(0, 0, 1).Unix(), 10))

	set, err := c.fetchAccounts(ctx, q)
	if err != nil {
		return nil, err
	}

	var transactions []model.Transaction
	skipped := 0
	for _, acct := range set.Accounts {
		converted, n := convertAccount(acct, start, end)
		transactions = append(transactions, converted...)
		skipped += n
	}

	c.logger.Info("Fetched SimpleFIN transactions",
		"accounts", len(set.Accounts),
		"count", len(transactions),
		"skipped", skipped)
	return transactions, nil
}

// GetAccounts returns the ids of every account behind the access URL.
func (c *Client) GetAccounts(ctx context.Context) ([]string, error) {
	q := url.Values{}
	q.Set("balances-only", "1")

	set, err := c.fetchAccounts(ctx, q)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(set.Accounts))
	for _, acct := range set.Accounts {
		ids = append(ids, acct.ID)
	}
	return ids, nil
}

func (c *Client) fetchAccounts(ctx context.Context, q url.Values) (*accountSet, error) {
	var set accountSet
	err := common.WithRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.accessURL+"/accounts?"+q.Encode(), nil)
		if err != nil {
			return &common.RetryableError{Err: err, Retryable: false}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &common.RetryableError{Err: fmt.Errorf("failed to fetch accounts: %w", err), Retryable: true}
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return &common.RetryableError{
				Err:       fmt.Errorf("SimpleFIN API error: %d - %s", resp.StatusCode, strings.TrimSpace(string(body))),
				Retryable: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
			}
		}

		if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
			return &common.RetryableError{Err: fmt.Errorf("failed to decode response: %w", err), Retryable: false}
		}
		return nil
	}, c.retryOpts)
	if err != nil {
		return nil, err
	}

	for _, msg := range set.Errors {
		c.logger.Warn("SimpleFIN reported a problem", "message", msg)
	}
	return &set, nil
}

// convertAccount converts the account's posted transactions inside [start, end]
// and attaches the account balance to the latest one posted on or before the
// balance date. It returns the number of lines it could not convert.
func convertAccount(acct account, start, end time.Time) ([]model.Transaction, int) {
	out := make([]model.Transaction, 0, len(acct.Transactions))
	skipped := 0
	for _, tx := range acct.Transactions {
		if tx.Pending {
			continue
		}
		txn, err := convertTransaction(tx)
		if err != nil {
			skipped++
			continue
		}
		if txn.PostingDate.Before(start) || txn.PostingDate.After(end) {
			continue
		}
		out = append(out, txn)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PostingDate.Before(out[j].PostingDate)
	})
	model.NumberDuplicates(out)

	balance, err := decimal.NewFromString(strings.TrimSpace(acct.Balance))
	if err != nil || acct.BalanceDate == 0 {
		return out, skipped
	}
	asOf := model.Day(time.Unix(acct.BalanceDate, 0).UTC())
	for i := len(out) - 1; i >= 0; i-- {
		if !out[i].PostingDate.After(asOf) {
			out[i].BalanceAfter = decimal.NewNullDecimal(balance)
			break
		}
	}
	return out, skipped
}

// convertTransaction keeps SimpleFIN's sign convention: negative is money out.
func convertTransaction(tx transaction) (model.Transaction, error) {
	if tx.Posted == 0 {
		return model.Transaction{}, fmt.Errorf("%w: missing posted date", common.ErrMalformedRecord)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(tx.Amount))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("%w: amount %q", common.ErrMalformedRecord, tx.Amount)
	}

	description := strings.TrimSpace(tx.Description)
	if description == "" {
		description = strings.TrimSpace(tx.Payee)
	}
	if description == "" {
		return model.Transaction{}, fmt.Errorf("%w: empty description", common.ErrMalformedRecord)
	}

	txn := model.Transaction{
		PostingDate: model.Day(time.Unix(tx.Posted, 0).UTC()),
		Description: description,
		Amount:      amount,
		Source:      "simplefin",
		Reference:   strings.TrimSpace(tx.ID),
	}
	return txn, nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
