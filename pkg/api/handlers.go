package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/cuemby/netwatch/pkg/store"
	"github.com/cuemby/netwatch/pkg/types"
)

// handleWork implements POST /work (spec.md §4.4.1, §4.7).
func (s *HTTPSurface) handleWork(r *http.Request) (int, interface{}) {
	var req workRequest
	if err := decodeStrict(r, &req); err != nil {
		return http.StatusBadRequest, errorResponse{Error: "invalid request body"}
	}

	now := req.CurrentTime
	if now == 0 {
		now = time.Now().Unix()
	}
	freq := req.MonitorFrequency
	if freq == 0 {
		freq = types.MonitorFrequencySeconds
	}

	stack := stackAFs(req.StackType)
	var tableFilter *types.TableType
	if tt, ok := parseTableType(req.TableType); ok {
		tableFilter = &tt
	}

	rows, err := s.scheduler.Allocate(stack, tableFilter, now, freq)
	if err != nil {
		s.logger.Error().Err(err).Msg("allocate failed")
		return http.StatusInternalServerError, errorResponse{Error: "allocation failed"}
	}
	if rows == nil {
		rows = []types.Row{}
	}
	return http.StatusOK, rows
}

// stackAFs maps a worker's advertised stack_type to the AF candidate
// list, defaulting to both families for "dual" or any unrecognized
// value (matching the original dealer's permissive fallback).
func stackAFs(stackType string) []types.AddressFamily {
	switch types.AddressFamily(stackType) {
	case types.AFv4:
		return []types.AddressFamily{types.AFv4}
	case types.AFv6:
		return []types.AddressFamily{types.AFv6}
	default:
		return types.ValidAFs
	}
}

func parseTableType(s string) (types.TableType, bool) {
	tt := types.TableType(s)
	for _, valid := range types.TableTypes {
		if tt == valid {
			return tt, true
		}
	}
	return "", false
}

// handleComplete implements POST /complete (spec.md §4.4.2, §4.7). Each
// status is applied independently; an unknown status_id is skipped, not
// fatal to the rest of the batch (spec.md §7, "Propagation policy").
func (s *HTTPSurface) handleComplete(r *http.Request) (int, interface{}) {
	var req completeRequest
	if err := decodeStrict(r, &req); err != nil {
		return http.StatusBadRequest, errorResponse{Error: "invalid request body"}
	}

	results := make([]int, 0, len(req.Statuses))
	for _, entry := range req.Statuses {
		t := entry.T
		if t == 0 {
			t = time.Now().Unix()
		}
		if err := s.scheduler.MarkComplete(entry.IsSuccess, entry.StatusID, t); err != nil {
			if errors.Is(err, store.ErrUnknownStatus) {
				continue
			}
			s.logger.Error().Err(err).Uint64("status_id", entry.StatusID).Msg("mark_complete failed")
			continue
		}
		results = append(results, 1)
	}
	return http.StatusOK, results
}

// handleInsert implements POST /insert (spec.md §4.4.3, §4.7).
func (s *HTTPSurface) handleInsert(r *http.Request) (int, interface{}) {
	var req insertRequest
	if err := decodeStrict(r, &req); err != nil {
		return http.StatusBadRequest, errorResponse{Error: "invalid request body"}
	}

	importsList := make([][]types.Service, 0, len(req.ImportsList))
	for _, group := range req.ImportsList {
		services := make([]types.Service, 0, len(group))
		for _, svc := range group {
			services = append(services, types.Service{
				Type:     types.ServiceType(svc.Type),
				AF:       types.AddressFamily(svc.AF),
				Proto:    types.Protocol(svc.Proto),
				IP:       svc.IP,
				Port:     svc.Port,
				User:     svc.User,
				Password: svc.Password,
				AliasID:  svc.AliasID,
			})
		}
		importsList = append(importsList, services)
	}

	if err := s.scheduler.InsertServices(importsList, req.StatusID); err != nil {
		if errors.Is(err, store.ErrUnknownStatus) {
			return http.StatusOK, []interface{}{}
		}
		s.logger.Error().Err(err).Uint64("status_id", req.StatusID).Msg("insert_services failed")
		return http.StatusInternalServerError, errorResponse{Error: "insert failed"}
	}
	return http.StatusOK, []interface{}{}
}

// handleAlias implements POST /alias (spec.md §4.4.4, §4.7).
func (s *HTTPSurface) handleAlias(r *http.Request) (int, interface{}) {
	var req aliasRequest
	if err := decodeStrict(r, &req); err != nil {
		return http.StatusBadRequest, errorResponse{Error: "invalid request body"}
	}

	now := req.CurrentTime
	if now == 0 {
		now = time.Now().Unix()
	}

	err := s.scheduler.UpdateAlias(req.AliasID, req.IP, now)
	switch {
	case err == nil:
		return http.StatusOK, []interface{}{}
	case errors.Is(err, store.ErrUnknownAlias):
		return http.StatusNotFound, errorResponse{Error: "unknown alias_id"}
	case errors.Is(err, store.ErrInvalidInput):
		return http.StatusBadRequest, errorResponse{Error: "ip must be public"}
	default:
		s.logger.Error().Err(err).Uint64("alias_id", req.AliasID).Msg("update_alias failed")
		return http.StatusInternalServerError, errorResponse{Error: "alias update failed"}
	}
}

// handleServers implements GET /servers (spec.md §4.5, §4.7): the
// cached catalogue string, returned verbatim, with no loopback check.
func (s *HTTPSurface) handleServers(r *http.Request) (int, interface{}) {
	return http.StatusOK, rawJSON(s.catalogue.Cached())
}

// rawJSON marshals to its argument unchanged (an empty string marshals
// as {}), letting handleServers
// return the catalogue builder's already-rendered JSON string without a
// second round of encoding that would double-escape it.
type rawJSON string

func (j rawJSON) MarshalJSON() ([]byte, error) {
	if j == "" {
		return []byte("{}"), nil
	}
	return []byte(j), nil
}
