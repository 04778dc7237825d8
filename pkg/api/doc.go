/*
Package api implements the dealer's HttpSurface (spec.md §4.7): the
plain JSON HTTP protocol workers and the public use to pull work, report
results, and read the ranked server catalogue.

# Architecture

	┌──────────────────────── HTTPSURFACE ───────────────────────┐
	│                                                              │
	│  POST /work       → scheduler.Allocate                      │
	│  POST /complete   → scheduler.MarkComplete (per entry)       │
	│  POST /insert     → scheduler.InsertServices                │
	│  POST /alias      → scheduler.UpdateAlias                    │
	│  GET  /servers    → catalogue.Builder.Cached() (public)       │
	│  GET  /metrics    → prometheus                               │
	│                                                              │
	│  every response: Cache-Control: no-store, pretty JSON        │
	│  mutating endpoints: loopback-only (127.0.0.1 / ::1)         │
	└──────────────────────────────────────────────────────────────┘

# Usage

	surface := api.NewHTTPSurface(sched, catalogueBuilder)
	if err := surface.Start(ctx, ":8080"); err != nil {
		log.Fatal(err)
	}

# Request validation

Every request body is decoded with DisallowUnknownFields: a field not in
the recognized schema is a 400, not a silently ignored extra (spec.md
§9, "duck-typed rows at the HTTP boundary").

# See Also

  - pkg/scheduler for the operations these handlers call
  - pkg/catalogue for the cached listing GET /servers serves verbatim
  - spec.md §4.7 for the endpoint table and §7 for the error taxonomy
*/
package api
