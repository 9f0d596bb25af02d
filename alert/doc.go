// Package alert models inbound monitoring alerts and knows how to
// recognize and parse Datadog RUM error notifications.
//
// The package is transport-agnostic: a Message carries only the text and
// the channel it arrived on. Delivery (chat webhook, queue consumer,
// replay file) is behind the Feed interface.
package alert
