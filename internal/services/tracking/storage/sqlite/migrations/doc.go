// Package migrations embeds SQL migration scripts for the tracking store.
//
// Why this package exists:
// - It centralizes schema history for the event journal and read models.
// - It allows upgrade and replay-safe evolution without manual operator SQL.
// - It supports both development bootstrap and production migration workflows.
package migrations
