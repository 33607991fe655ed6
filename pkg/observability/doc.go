/*
Package observability turns state machine lifecycle hooks into Prometheus
metrics and structured log records.

Both producers return domain.LifecycleHooks and can be combined with
LifecycleHooks.Merge before being handed to a Wizard or a session.Service.
*/
package observability
