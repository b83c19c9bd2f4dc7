package verification

import (
	"context"
	"fmt"
	"sync"

	"docverify/internal/domain"
)

// Effect is a best-effort action fired after a committed transition.
type Effect struct {
	Name string
	Run  func(ctx context.Context) error
}

// Result reports the outcome of one Effect. Callers log failures and move on.
type Result struct {
	Name string
	Err  error
}

type Dispatcher struct {
	notifier Notifier
	auditor  Auditor
}

func NewDispatcher(notifier Notifier, auditor Auditor) *Dispatcher {
	return &Dispatcher{notifier: notifier, auditor: auditor}
}

// Dispatch runs all effects concurrently and waits for every one of them.
func (d *Dispatcher) Dispatch(ctx context.Context, effects ...Effect) []Result {
	results := make([]Result, len(effects))
	var wg sync.WaitGroup
	for i, e := range effects {
		wg.Add(1)
		go func(i int, e Effect) {
			defer wg.Done()
			results[i] = Result{Name: e.Name, Err: run(ctx, e)}
		}(i, e)
	}
	wg.Wait()
	return results
}

func run(ctx context.Context, e Effect) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if e.Run == nil {
		return nil
	}
	return e.Run(ctx)
}

// NotifyOwner builds the owner notification for a decision.
func (d *Dispatcher) NotifyOwner(doc domain.Document, action Action, reason string) Effect {
	return Effect{
		Name: "notify_owner",
		Run: func(ctx context.Context) error {
			if d.notifier == nil {
				return nil
			}
			if action == ActionReject {
				return d.notifier.NotifyDocumentRejected(ctx, doc.UserID, doc, reason)
			}
			return d.notifier.NotifyDocumentApproved(ctx, doc.UserID, doc)
		},
	}
}

func (d *Dispatcher) Audit(actorID string, action Action, documentID string, details map[string]any) Effect {
	return Effect{
		Name: "audit",
		Run: func(ctx context.Context) error {
			if d.auditor == nil {
				return nil
			}
			return d.auditor.Record(ctx, actorID, string(action), domain.ResourceDocument, documentID, details)
		},
	}
}
