package gauges

import (
	"errors"
	"fmt"
	"time"

	"github.com/mateuszdrab/orangepl-exporter/internal/orange"
)

var errMissing = errors.New("missing")

// Project maps the documents fetched for one account onto the metric
// schema. It is a pure function of its inputs; timestamps are read as wall
// clock time in loc.
//
// Failures are contained to the smallest affected group and returned as
// problems next to the observations that could still be derived: a billing
// account without a code yields nothing, a missing expiry date or gc drops
// that account's prepaid series, and a broken pc, fraction sum or balance
// item drops only its own series.
func Project(username string, docs *orange.Documents, loc *time.Location) ([]Observation, []error) {
	var (
		obs      []Observation
		problems []error
	)
	customerID := docs.Info.CustomerID

	obs = append(obs, Observation{AccountsInfo, []string{username, customerID}, 1})

	for _, ba := range docs.BillingAccounts {
		if ba.Code == "" {
			problems = append(problems, &orange.SchemaError{Document: "billing account " + ba.Name, Field: "code", Err: errMissing})
			continue
		}
		obs = append(obs, Observation{BillingAccountsInfo, []string{username, customerID, ba.Type, ba.Code, ba.Name}, 1})

		if ba.Type != orange.MobilePrepaid {
			continue
		}
		status := docs.Statuses[ba.Code]
		if status == nil {
			continue
		}
		group, errs := projectPrepaid([]string{username, customerID, ba.Code}, status, loc)
		for _, err := range errs {
			problems = append(problems, fmt.Errorf("billing account %s: %w", ba.Code, err))
		}
		obs = append(obs, group...)
	}
	return obs, problems
}

// projectPrepaid returns no observations when the expiry date or gc, which
// the whole group depends on, is absent or malformed. Optional parts (pc,
// fraction sums, balance items) fail on their own.
func projectPrepaid(base []string, status *orange.PrepaidStatus, loc *time.Location) ([]Observation, []error) {
	schemaErr := func(field string, err error) error {
		return &orange.SchemaError{Document: "prepaid status", Field: field, Err: err}
	}
	var obs []Observation

	expiry, err := orange.ParseTimestamp(status.AccountExpiryDate, loc)
	if err != nil {
		return nil, []error{schemaErr("accountExpiryDate", err)}
	}
	obs = append(obs, Observation{PrepaidExpiryDate, base, float64(expiry.Unix())})

	if status.GC == nil {
		return nil, []error{schemaErr("gc", errMissing)}
	}
	gc, err := status.GC.Value.Amount.Int()
	if err != nil {
		return nil, []error{schemaErr("gc.value.amount", err)}
	}
	obs = append(obs, Observation{PrepaidCash, withLabels(base, "gc"), float64(gc) / 100})

	var problems []error
	if status.PC != nil {
		if pc, err := status.PC.Value.Amount.Int(); err != nil {
			problems = append(problems, schemaErr("pc.value.amount", err))
		} else {
			obs = append(obs, Observation{PrepaidCash, withLabels(base, "pc"), float64(pc) / 100})
		}
	}

	for _, name := range orange.DataFractions {
		fraction := status.Fractions[name]
		if fraction == nil {
			continue
		}
		if sum, err := fraction.Sum.Amount.Int(); err != nil {
			problems = append(problems, schemaErr("fractions."+name+".sum.amount", err))
		} else {
			obs = append(obs, Observation{PrepaidAllowanceData, withLabels(base, name), float64(sum * 1024)})
		}

		for i, item := range fraction.Balances {
			itemObs, err := projectBalanceItem(base, name, item, loc)
			if err != nil {
				problems = append(problems, schemaErr(fmt.Sprintf("fractions.%s.balances[%d]", name, i), err))
				continue
			}
			obs = append(obs, itemObs...)
		}
	}
	return obs, problems
}

func projectBalanceItem(base []string, fraction string, item orange.BalanceItem, loc *time.Location) ([]Observation, error) {
	dataType := item.Type
	if dataType == "" {
		dataType = fraction
	}
	amount, err := item.Value.Amount.Int()
	if err != nil {
		return nil, fmt.Errorf("value.amount: %w", err)
	}
	expiry, err := orange.ParseTimestamp(item.ExpiryDate, loc)
	if err != nil {
		return nil, fmt.Errorf("expiryDate: %w", err)
	}
	labels := withLabels(base, dataType, item.Description)
	return []Observation{
		{PrepaidAllowanceDataItem, labels, float64(amount * 1024)},
		{PrepaidAllowanceDataItemExpiryDate, labels, float64(expiry.Unix())},
	}, nil
}
