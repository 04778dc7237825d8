package types

import "time"

// AddressFamily is the IP address family a row operates under.
type AddressFamily string

const (
	AFv4 AddressFamily = "v4"
	AFv6 AddressFamily = "v6"
)

// ValidAFs lists the address families the dealer schedules over, in the
// fixed order used when a worker advertises dual-stack support.
var ValidAFs = []AddressFamily{AFv4, AFv6}

// Protocol is the transport protocol of a monitored endpoint.
type Protocol string

const (
	ProtoUDP Protocol = "udp"
	ProtoTCP Protocol = "tcp"
)

// ServiceType identifies the kind of network infrastructure server.
type ServiceType string

const (
	ServiceStunMap    ServiceType = "stun-map"
	ServiceStunChange ServiceType = "stun-change"
	ServiceMQTT       ServiceType = "mqtt"
	ServiceTURN       ServiceType = "turn"
	ServiceNTP        ServiceType = "ntp"
)

// ServiceTypes is the fixed set of monitored service types.
var ServiceTypes = []ServiceType{ServiceStunMap, ServiceStunChange, ServiceMQTT, ServiceTURN, ServiceNTP}

// TableType names one of the three monitored tables.
type TableType string

const (
	TableAliases  TableType = "aliases"
	TableImports  TableType = "imports"
	TableServices TableType = "services"
)

// TableTypes is the fixed dealer priority order: services first, then
// aliases, then imports (see scheduler.Allocate).
var TableTypes = []TableType{TableServices, TableAliases, TableImports}

// StatusKind is the position of a group in the work-scheduling lifecycle.
type StatusKind string

const (
	StatusInit      StatusKind = "init"
	StatusAvailable StatusKind = "available"
	StatusDealt     StatusKind = "dealt"
	StatusDisabled  StatusKind = "disabled"
)

// StatusKinds is the fixed iteration order of a WorkQueue's four sublists.
var StatusKinds = []StatusKind{StatusInit, StatusAvailable, StatusDealt, StatusDisabled}

// Alias is a DNS fully-qualified name paired with the address family it
// resolves under and the most recently observed IP.
type Alias struct {
	ID      uint64        `json:"id"`
	AF      AddressFamily `json:"af"`
	FQN     string        `json:"fqn"`
	IP      string        `json:"ip"`
	GroupID uint64        `json:"group_id"`
}

// Import is a candidate server not yet promoted to active monitoring.
type Import struct {
	ID         uint64        `json:"id"`
	ImportType ServiceType   `json:"import_type"`
	AF         AddressFamily `json:"af"`
	IP         string        `json:"ip,omitempty"`
	Port       int           `json:"port"`
	User       *string       `json:"user,omitempty"`
	Password   *string       `json:"password,omitempty"`
	FQN        *string       `json:"fqn,omitempty"`
	AliasID    *uint64       `json:"alias_id,omitempty"`
	GroupID    uint64        `json:"group_id"`
	StatusID   uint64        `json:"status_id"`
}

// Service is an actively-monitored endpoint.
type Service struct {
	ID       uint64        `json:"id"`
	Type     ServiceType   `json:"type"`
	AF       AddressFamily `json:"af"`
	Proto    Protocol      `json:"proto"`
	IP       string        `json:"ip"`
	Port     int           `json:"port"`
	User     *string       `json:"user,omitempty"`
	Password *string       `json:"password,omitempty"`
	AliasID  *uint64       `json:"alias_id,omitempty"`
	GroupID  uint64        `json:"group_id"`
	StatusID uint64        `json:"status_id"`
}

// Status is the liveness/uptime record attached 1:1 to a row in
// imports ∪ services ∪ aliases.
type Status struct {
	ID          uint64     `json:"id"`
	TableType   TableType  `json:"table_type"`
	RowID       uint64     `json:"row_id"`
	Status      StatusKind `json:"status"`
	TestNo      int64      `json:"test_no"`
	FailedTests int64      `json:"failed_tests"`
	LastStatus  int64      `json:"last_status"`
	LastSuccess int64      `json:"last_success"`
	LastUptime  int64      `json:"last_uptime"`
	Uptime      int64      `json:"uptime"`
	MaxUptime   int64      `json:"max_uptime"`
}

// Group is a cohort of related rows scheduled and scored together. Every
// row in the group shares GroupID and StatusID.
type Group struct {
	ID        uint64
	TableType TableType
	AF        AddressFamily
	StatusID  uint64
	RowIDs    []uint64
}

// Row is the common interface satisfied by Alias, Import, and Service so
// that the scheduler and store can operate on them generically.
type Row interface {
	RowID() uint64
	RowTableType() TableType
	RowAF() AddressFamily
	RowGroupID() uint64
	RowAliasID() *uint64
	RowIP() string
	SetRowIP(ip string)
}

func (a *Alias) RowID() uint64           { return a.ID }
func (a *Alias) RowTableType() TableType { return TableAliases }
func (a *Alias) RowAF() AddressFamily    { return a.AF }
func (a *Alias) RowGroupID() uint64      { return a.GroupID }
func (a *Alias) RowAliasID() *uint64     { return nil }
func (a *Alias) RowIP() string           { return a.IP }
func (a *Alias) SetRowIP(ip string)      { a.IP = ip }

func (i *Import) RowID() uint64           { return i.ID }
func (i *Import) RowTableType() TableType { return TableImports }
func (i *Import) RowAF() AddressFamily    { return i.AF }
func (i *Import) RowGroupID() uint64      { return i.GroupID }
func (i *Import) RowAliasID() *uint64     { return i.AliasID }
func (i *Import) RowIP() string           { return i.IP }
func (i *Import) SetRowIP(ip string)      { i.IP = ip }

func (s *Service) RowID() uint64           { return s.ID }
func (s *Service) RowTableType() TableType { return TableServices }
func (s *Service) RowAF() AddressFamily    { return s.AF }
func (s *Service) RowGroupID() uint64      { return s.GroupID }
func (s *Service) RowAliasID() *uint64     { return s.AliasID }
func (s *Service) RowIP() string           { return s.IP }
func (s *Service) SetRowIP(ip string)      { s.IP = ip }

// CatalogueEntry is one scored, flattened service row in the public
// listing, combining Service fields with its Status and discovered FQNs.
type CatalogueEntry struct {
	ID          uint64        `json:"id"`
	Type        ServiceType   `json:"type"`
	AF          AddressFamily `json:"af"`
	Proto       Protocol      `json:"proto"`
	IP          string        `json:"ip"`
	Port        int           `json:"port"`
	FQNs        []string      `json:"fqns"`
	TestNo      int64         `json:"test_no"`
	FailedTests int64         `json:"failed_tests"`
	Uptime      int64         `json:"uptime"`
	MaxUptime   int64         `json:"max_uptime"`
	LastSuccess int64         `json:"last_success"`
	Score       float64       `json:"score"`
}

// Catalogue is the public, ranked, protocol/AF-partitioned listing built
// by catalogue.Builder and served verbatim from /servers.
type Catalogue struct {
	ByType    map[ServiceType]map[AddressFamily]map[Protocol][][]*CatalogueEntry `json:"by_type"`
	Timestamp int64                                                              `json:"timestamp"`
}

// Constants shared between the scheduler and API surface (spec.md §6).
const (
	WorkerTimeoutSeconds     = 120
	MonitorFrequencySeconds  = 3600
	MaxServerDowntimeSeconds = 600
	ImportTestNo             = 3
	CatalogueRefreshInterval = 60 * time.Second
)
