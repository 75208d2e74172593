package orange

import (
	"context"
	"fmt"

	"github.com/mateuszdrab/orangepl-exporter/internal/config"
)

// Documents is everything fetched for one account in one scrape.
type Documents struct {
	Info            AccountInfo
	BillingAccounts []BillingAccount
	// Statuses is keyed by billing account code.
	Statuses map[string]*PrepaidStatus
}

// Fetcher retrieves account data with a bearer token. Calls are strictly
// sequential since each depends on the previous answer.
type Fetcher struct {
	client *Client
	gen    config.Generation
}

func NewFetcher(client *Client, gen config.Generation) *Fetcher {
	return &Fetcher{client: client, gen: gen}
}

// Fetch resolves the customer, lists its billing accounts and loads the
// status of every mobileprepaid one.
func (f *Fetcher) Fetch(ctx context.Context, token string, cred config.Credential) (*Documents, error) {
	vars := map[string]string{"username": cred.Username, "customerId": cred.CustomerID}

	info, err := f.customer(ctx, token, vars)
	if err != nil {
		return nil, &StageError{Stage: StageCustomer, Err: err}
	}
	vars["customerId"] = info.CustomerID

	accounts, err := f.billingAccounts(ctx, token, vars)
	if err != nil {
		return nil, &StageError{Stage: StageBillingAccounts, Err: err}
	}

	docs := &Documents{
		Info:            info,
		BillingAccounts: accounts,
		Statuses:        make(map[string]*PrepaidStatus),
	}
	for _, ba := range accounts {
		if ba.Type != MobilePrepaid || ba.Code == "" {
			continue
		}
		vars["code"] = ba.Code
		status, err := f.prepaidStatus(ctx, token, vars)
		if err != nil {
			return nil, &StageError{Stage: StagePrepaidStatus, Err: fmt.Errorf("billing account %s: %w", ba.Code, err)}
		}
		docs.Statuses[ba.Code] = status
	}
	return docs, nil
}

func (f *Fetcher) customer(ctx context.Context, token string, vars map[string]string) (AccountInfo, error) {
	endpoint, err := f.client.endpoint(f.gen.CustomerPath, vars, nil)
	if err != nil {
		return AccountInfo{}, err
	}
	var doc map[string]any
	if err := f.client.getJSON(ctx, endpoint, token, &doc); err != nil {
		return AccountInfo{}, err
	}
	id := stringField(doc, f.gen.CustomerIDField)
	if id == "" {
		return AccountInfo{}, &SchemaError{Document: "customer", Field: f.gen.CustomerIDField, Err: errMissing}
	}
	return AccountInfo{CustomerID: id}, nil
}

func (f *Fetcher) billingAccounts(ctx context.Context, token string, vars map[string]string) ([]BillingAccount, error) {
	endpoint, err := f.client.endpoint(f.gen.BillingAccountsPath, vars, nil)
	if err != nil {
		return nil, err
	}
	var docs []map[string]any
	if err := f.client.getJSON(ctx, endpoint, token, &docs); err != nil {
		return nil, err
	}
	accounts := make([]BillingAccount, 0, len(docs))
	for _, doc := range docs {
		accounts = append(accounts, BillingAccount{
			Type: stringField(doc, f.gen.AccountTypeField),
			Code: stringField(doc, f.gen.AccountCodeField),
			Name: stringField(doc, f.gen.AccountNameField),
		})
	}
	return accounts, nil
}

func (f *Fetcher) prepaidStatus(ctx context.Context, token string, vars map[string]string) (*PrepaidStatus, error) {
	endpoint, err := f.client.endpoint(f.gen.StatusPath, vars, nil)
	if err != nil {
		return nil, err
	}
	var status PrepaidStatus
	if err := f.client.getJSON(ctx, endpoint, token, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// stringField returns doc[key] as a string. Numbers are formatted without
// an exponent; anything else yields "".
func stringField(doc map[string]any, key string) string {
	switch v := doc[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
