package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cuemby/netwatch/pkg/catalogue"
	"github.com/cuemby/netwatch/pkg/scheduler"
	"github.com/cuemby/netwatch/pkg/store"
	"github.com/cuemby/netwatch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopSnapshotter struct{}

func (noopSnapshotter) Snapshot(*store.MemoryStore) error { return nil }

func newTestSurface(t *testing.T) (*HTTPSurface, *store.MemoryStore) {
	t.Helper()
	ms := store.New(nil)
	sched := scheduler.New(ms, nil)
	cat := catalogue.New(ms, noopSnapshotter{}, 0)
	return NewHTTPSurface(sched, cat), ms
}

func doJSON(t *testing.T, surface *HTTPSurface, method, path string, body interface{}, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	} else {
		req.RemoteAddr = "127.0.0.1:54321"
	}
	rec := httptest.NewRecorder()
	surface.Handler().ServeHTTP(rec, req)
	return rec
}

func TestWorkReturnsEmptyArrayWhenNothingPending(t *testing.T) {
	surface, _ := newTestSurface(t)
	rec := doJSON(t, surface, http.MethodPost, "/work", workRequest{StackType: "v4"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestWorkReturnsPendingImport(t *testing.T) {
	surface, ms := newTestSurface(t)
	imp, err := ms.InsertImport(types.Import{ImportType: types.ServiceStunMap, AF: types.AFv4, IP: "203.0.113.1", Port: 3478})
	require.NoError(t, err)
	require.NoError(t, ms.AddWork(types.TableImports, types.AFv4, imp.GroupID, []uint64{imp.ID}, types.StatusInit))

	rec := doJSON(t, surface, http.MethodPost, "/work", workRequest{StackType: "v4"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, float64(imp.ID), rows[0]["id"])
}

func TestMutatingEndpointsRejectNonLoopback(t *testing.T) {
	surface, _ := newTestSurface(t)
	rec := doJSON(t, surface, http.MethodPost, "/work", workRequest{}, "203.0.113.50:9999")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServersEndpointAllowsNonLoopback(t *testing.T) {
	surface, _ := newTestSurface(t)
	rec := doJSON(t, surface, http.MethodGet, "/servers", nil, "203.0.113.50:9999")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWorkRejectsUnknownFields(t *testing.T) {
	surface, _ := newTestSurface(t)
	req := httptest.NewRequest(http.MethodPost, "/work", bytes.NewBufferString(`{"stack_type":"v4","bogus":1}`))
	req.RemoteAddr = "127.0.0.1:1"
	rec := httptest.NewRecorder()
	surface.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompleteCycleDisablesImportOnSuccess(t *testing.T) {
	surface, ms := newTestSurface(t)
	imp, err := ms.InsertImport(types.Import{ImportType: types.ServiceStunMap, AF: types.AFv4, IP: "203.0.113.2", Port: 3478})
	require.NoError(t, err)
	require.NoError(t, ms.AddWork(types.TableImports, types.AFv4, imp.GroupID, []uint64{imp.ID}, types.StatusInit))

	workRec := doJSON(t, surface, http.MethodPost, "/work", workRequest{StackType: "v4"}, "")
	require.Equal(t, http.StatusOK, workRec.Code)

	completeRec := doJSON(t, surface, http.MethodPost, "/complete", completeRequest{
		Statuses: []completeEntry{{StatusID: imp.StatusID, IsSuccess: true}},
	}, "")
	assert.Equal(t, http.StatusOK, completeRec.Code)

	var results []int
	require.NoError(t, json.Unmarshal(completeRec.Body.Bytes(), &results))
	assert.Equal(t, []int{1}, results)

	st, ok := ms.GetStatus(imp.StatusID)
	require.True(t, ok)
	assert.Equal(t, types.StatusDisabled, st.Status)
}

func TestCompleteSkipsUnknownStatusID(t *testing.T) {
	surface, _ := newTestSurface(t)
	rec := doJSON(t, surface, http.MethodPost, "/complete", completeRequest{
		Statuses: []completeEntry{{StatusID: 99999, IsSuccess: true}},
	}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestAliasUnknownIDReturns404(t *testing.T) {
	surface, _ := newTestSurface(t)
	rec := doJSON(t, surface, http.MethodPost, "/alias", aliasRequest{AliasID: 404, IP: "203.0.113.9"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAliasRejectsNonPublicIP(t *testing.T) {
	surface, ms := newTestSurface(t)
	alias, err := ms.InsertAlias(types.AFv4, "stun.example.com")
	require.NoError(t, err)

	rec := doJSON(t, surface, http.MethodPost, "/alias", aliasRequest{AliasID: alias.ID, IP: "10.0.0.1"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInsertCreatesServiceGroupAndDisablesImport(t *testing.T) {
	surface, ms := newTestSurface(t)
	imp, err := ms.InsertImport(types.Import{ImportType: types.ServiceTURN, AF: types.AFv4, IP: "203.0.113.3", Port: 3478})
	require.NoError(t, err)
	require.NoError(t, ms.AddWork(types.TableImports, types.AFv4, imp.GroupID, []uint64{imp.ID}, types.StatusInit))

	rec := doJSON(t, surface, http.MethodPost, "/insert", insertRequest{
		ImportsList: [][]servicePayload{
			{{Type: string(types.ServiceTURN), AF: string(types.AFv4), Proto: string(types.ProtoUDP), IP: "203.0.113.3", Port: 3478}},
		},
		StatusID: imp.StatusID,
	}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, ms.AllServices(), 1)

	st, ok := ms.GetStatus(imp.StatusID)
	require.True(t, ok)
	assert.Equal(t, types.StatusDisabled, st.Status)
}

func TestServersEndpointReturnsCachedCatalogueVerbatim(t *testing.T) {
	surface, _ := newTestSurface(t)
	rec := doJSON(t, surface, http.MethodGet, "/servers", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.JSONEq(t, surface.catalogue.Cached(), rec.Body.String())
}
