/*
Package scheduler implements the dealer's allocation and completion
logic: deciding which group of rows a worker should probe next, and
applying the outcome once probing finishes (spec.md §4).

# Allocation

Allocate walks pkg/types.TableTypes in priority order (services, then
aliases, then imports) and, within each table, both address families a
worker advertises. For each (table, af) pair it asks that table's
pkg/workqueue.WorkQueue for the next available group, using now and
freq to decide whether a dealt group has timed out and should be
reclaimed, or an available group is due for a re-check.

# Completion

MarkComplete applies one probe outcome to the status record behind a
group: every outcome increments test_no; a success extends uptime, a
failure resets uptime and increments the cumulative failed_tests count.
An import row is disabled on its first success, or on any outcome once
it has already been tested pkg/types.ImportTestNo times. InsertServices
promotes a successful import's discovered services into the services
table and then completes the import as a success if at least one group
was inserted, as a failure otherwise. UpdateAlias records a freshly
resolved IP against an alias and cascades it to every row that
references the alias and whose current IP is not public, is a
never-tested import, has been tested at least twice without ever
succeeding, or was last up more than 2 × pkg/types.MaxServerDowntimeSeconds
ago.

The scheduler does not talk to storage directly; pkg/store.MemoryStore
is the source of truth, and pkg/storage durably snapshots whatever
MemoryStore holds.
*/
package scheduler
