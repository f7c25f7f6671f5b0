package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldepi/geostat-cli/internal/model"
	"github.com/fieldepi/geostat-cli/internal/store"
)

func newServeTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "serve.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestHandleListRuns(t *testing.T) {
	st := newServeTestStore(t)
	ctx := context.Background()

	_, err := st.CreateRun(ctx, model.DatasetRef{Path: "a.csv", Label: "a", Records: 10})
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, model.DatasetRef{Path: "b.csv", Label: "b", Records: 20})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	rr := httptest.NewRecorder()
	handleListRuns(st)(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var runs []model.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
	assert.Len(t, runs, 2)
}

func TestHandleListRuns_StatusFilter(t *testing.T) {
	st := newServeTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, model.DatasetRef{Path: "a.csv", Label: "a", Records: 10})
	require.NoError(t, err)
	require.NoError(t, st.UpdateRunStatus(ctx, run.ID, model.RunStatusComplete))
	_, err = st.CreateRun(ctx, model.DatasetRef{Path: "b.csv", Label: "b", Records: 20})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/runs?status=complete", nil)
	rr := httptest.NewRecorder()
	handleListRuns(st)(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var runs []model.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestHandleListRuns_InvalidLimit(t *testing.T) {
	st := newServeTestStore(t)

	req := httptest.NewRequest(http.MethodGet, "/runs?limit=abc", nil)
	rr := httptest.NewRecorder()
	handleListRuns(st)(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleGetRun(t *testing.T) {
	st := newServeTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, model.DatasetRef{Path: "a.csv", Label: "a", Records: 10})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Get("/runs/{id}", handleGetRun(st))

	req := httptest.NewRequest(http.MethodGet, "/runs/"+run.ID, nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var got model.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, run.ID, got.ID)

	req = httptest.NewRequest(http.MethodGet, "/runs/nonexistent", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, http.StatusBadRequest, "bad input")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "bad input", body["error"])
}
