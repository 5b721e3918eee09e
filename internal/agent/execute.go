package agent

import (
	"context"
	"errors"
	"fmt"
	"log"

	"stockbot/internal/catalog"
	"stockbot/internal/metrics"
	"stockbot/internal/operation"
)

// execute performs op. Every concrete operation type has a case; a new type
// without one fails loudly instead of silently doing nothing.
func (a *Agent) execute(ctx context.Context, sess *Session, op operation.Operation) Reply {
	actor := sess.Username
	switch o := op.(type) {
	case operation.LookupProduct:
		products, err := a.catalog.Find(ctx, o.Query)
		if err != nil {
			return a.storeFailure(op, err)
		}
		a.observe(string(op.Kind()), metrics.OutcomeExecuted)
		return message(FormatLookup(o.Query, products))

	case operation.GenerateReport:
		if a.reports == nil {
			return failure("Report generation is not configured.", errors.New("agent: no reporter"))
		}
		res, err := a.reports.Generate(ctx, o.Days)
		if err != nil {
			return a.storeFailure(op, err)
		}
		a.observe(string(op.Kind()), metrics.OutcomeExecuted)
		r := message(res.Message())
		r.Report = &res
		return r

	case operation.AddProduct:
		res, err := a.catalog.Insert(ctx, actor, o.Product())
		return a.committed(op, res, err)

	case operation.UpdateProduct:
		res, err := a.catalog.UpdateFields(ctx, actor, o.ID, o.Changes())
		return a.committed(op, res, err)

	case operation.UpdateStock:
		res, err := a.catalog.SetStock(ctx, actor, o.ID, o.Stock)
		return a.committed(op, res, err)

	case operation.UpdatePrice:
		res, err := a.catalog.SetPrice(ctx, actor, o.ID, o.Price)
		return a.committed(op, res, err)
	}
	panic(fmt.Sprintf("agent: no executor for %T", op))
}

func (a *Agent) committed(op operation.Operation, res catalog.Result, err error) Reply {
	if errors.Is(err, catalog.ErrAuditIncomplete) {
		log.Printf("agent: %s committed without full history: %v", op, err)
		a.observe(string(op.Kind()), metrics.OutcomeCommitted)
		return failure(res.Message+"\nWarning: the change was saved but the history could not be updated.", err)
	}
	if err != nil {
		return a.storeFailure(op, err)
	}
	a.observe(string(op.Kind()), metrics.OutcomeCommitted)
	return message(res.Message)
}

// storeFailure turns store errors into user-facing text.
func (a *Agent) storeFailure(op operation.Operation, err error) Reply {
	a.observe(string(op.Kind()), metrics.OutcomeFailed)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return failure(fmt.Sprintf("The product with ID %d does not exist.", productID(op)), err)
	case errors.Is(err, catalog.ErrDuplicateKey):
		return failure(fmt.Sprintf("A product with ID %d already exists. Nothing was changed.", productID(op)), err)
	case errors.Is(err, catalog.ErrMalformed):
		log.Printf("agent: %s: %v", op, err)
		return failure("The catalog file is damaged; the operation was not run.", err)
	}
	log.Printf("agent: %s failed: %v", op, err)
	return failure(fmt.Sprintf("Could not complete %s.", op.Kind()), err)
}

func productID(op operation.Operation) int {
	switch o := op.(type) {
	case operation.AddProduct:
		return o.ID
	case operation.UpdateProduct:
		return o.ID
	case operation.UpdateStock:
		return o.ID
	case operation.UpdatePrice:
		return o.ID
	}
	return 0
}
