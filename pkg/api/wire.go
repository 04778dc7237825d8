package api

// workRequest is the body of POST /work (spec.md §4.7). A worker
// advertises the address families it can probe (stack_type: "v4",
// "v6", or "dual") and may narrow the table it wants work from.
type workRequest struct {
	StackType        string `json:"stack_type,omitempty"`
	TableType        string `json:"table_type,omitempty"`
	CurrentTime      int64  `json:"current_time,omitempty"`
	MonitorFrequency int64  `json:"monitor_frequency,omitempty"`
}

// completeRequest is the body of POST /complete.
type completeRequest struct {
	Statuses []completeEntry `json:"statuses"`
}

type completeEntry struct {
	StatusID  uint64 `json:"status_id"`
	IsSuccess bool   `json:"is_success"`
	T         int64  `json:"t,omitempty"`
}

// insertRequest is the body of POST /insert (spec.md §4.4.3): a list of
// prospective groups, each a list of services sharing one new group id,
// plus the status_id of the import work that discovered them.
type insertRequest struct {
	ImportsList [][]servicePayload `json:"imports_list"`
	StatusID    uint64             `json:"status_id"`
}

// servicePayload carries exactly the fields a worker may propose for a
// new Service; group_id and status_id are assigned by the scheduler and
// are not accepted from the wire (duck-typed rows, spec.md §9).
type servicePayload struct {
	Type     string  `json:"type"`
	AF       string  `json:"af"`
	Proto    string  `json:"proto"`
	IP       string  `json:"ip"`
	Port     int     `json:"port"`
	User     *string `json:"user,omitempty"`
	Password *string `json:"password,omitempty"`
	AliasID  *uint64 `json:"alias_id,omitempty"`
}

// aliasRequest is the body of POST /alias (spec.md §4.4.4).
type aliasRequest struct {
	AliasID     uint64 `json:"alias_id"`
	IP          string `json:"ip"`
	CurrentTime int64  `json:"current_time,omitempty"`
}

// errorResponse is returned, still pretty-printed, for any non-2xx
// response a handler produces.
type errorResponse struct {
	Error string `json:"error"`
}
