/*
Package types defines the data model shared by the dealer's store,
scheduler, catalogue builder, and HTTP surface.

# Core types

  - Alias, Import, Service: the three monitored tables (see store.MemoryStore).
  - Status: the liveness/uptime record attached 1:1 to a table row.
  - Group: a cohort of rows (1, or exactly 4 for stun-change) scheduled
    and scored as a unit.
  - Row: the interface Alias/Import/Service satisfy so the scheduler can
    operate on any of them generically (IP cascades, group membership).
  - CatalogueEntry / Catalogue: the scored, pre-rendered public listing
    built by catalogue.Builder and served from /servers.

# Enumerations

AddressFamily, ServiceType, TableType, and StatusKind follow the same
pattern: typed strings with a package-level slice giving the fixed
iteration order the scheduler depends on (ValidAFs, ServiceTypes,
TableTypes, StatusKinds). Protocol is a typed string with no such slice.
*/
package types
