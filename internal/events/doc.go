// Package events provides a minimal in-process event system used to
// publish task lifecycle transitions (created, acknowledged, deferred,
// reminded) to registered handlers. The default handler writes an audit
// trail to the structured log.
package events
