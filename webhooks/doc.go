// Package webhooks contains payment-provider webhook verification and
// reconciliation components.
//
// Deliveries follow record-then-process: an event row is reserved under the
// provider event id's unique constraint before any side effect runs, so a
// redelivery after a crash replays against processed=false instead of
// re-inserting, and duplicate deliveries are acknowledged without effect.
package webhooks
