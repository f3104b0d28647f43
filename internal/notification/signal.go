package notification

import (
	"context"
	"fmt"
	"log"
	"strings"

	"trading-signals/internal/model"
)

// SignalAlert turns a fired event into an alert. Strong signals (L+, R+)
// are raised as warnings, plain ones as info.
func SignalAlert(ev model.SignalEvent) Alert {
	labels := ev.Emission.Labels()
	level := AlertInfo
	if ev.Emission.LPlus || ev.Emission.RPlus {
		level = AlertWarning
	}

	return Alert{
		Level: level,
		Title: fmt.Sprintf("%s %s %s", strings.Join(labels, "/"), ev.Symbol, ev.Timeframe),
		Message: fmt.Sprintf("bar #%d at %s close %.2f",
			ev.EventIndex, ev.TS.UTC().Format("2006-01-02 15:04"), ev.Frame.Bar.Close),
		Fields: map[string]any{
			"symbol":      ev.Symbol,
			"tf":          ev.Timeframe,
			"index":       ev.Index,
			"event_index": ev.EventIndex,
			"labels":      labels,
		},
	}
}

// Alerter forwards fired signals to a Notifier.
type Alerter struct {
	n Notifier

	// OnError is called when delivery fails. Defaults to logging.
	OnError func(ev model.SignalEvent, err error)
}

// NewAlerter creates an Alerter.
func NewAlerter(n Notifier) *Alerter {
	return &Alerter{n: n}
}

// Publish sends an alert when ev fired at least one signal.
func (a *Alerter) Publish(ctx context.Context, ev model.SignalEvent) error {
	if !ev.Emission.Any() {
		return nil
	}
	return a.n.Send(ctx, SignalAlert(ev))
}

// Run consumes events until ctx is cancelled or ch is closed.
func (a *Alerter) Run(ctx context.Context, ch <-chan model.SignalEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := a.Publish(ctx, ev); err != nil {
				if a.OnError != nil {
					a.OnError(ev, err)
				} else {
					log.Printf("[notify] %s #%d: %v", ev.Symbol, ev.Index, err)
				}
			}
		}
	}
}
