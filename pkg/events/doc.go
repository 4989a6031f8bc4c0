/*
Package events provides an in-memory, in-process event broker used to
observe supervisor/manager/worker lifecycle transitions.

This is strictly an internal notification bus (log tailing, future
dashboards) and is not the data or result transport described in pkg/transport
— it never crosses a process boundary.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	broker.Publish(&events.Event{Type: events.EventManagerStarted, Message: "lp-ingest"})
*/
package events
