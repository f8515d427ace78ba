package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/grewanderer/datapact/report"
)

const reportPrefix = "validations/"

type docsAPI struct {
	logger *slog.Logger
	store  report.Store
}

func newDocsAPI(logger *slog.Logger, store report.Store) *docsAPI {
	return &docsAPI{logger: logger, store: store}
}

func (api *docsAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/runs", api.handleListRuns)
	mux.HandleFunc("GET /api/v1/runs/{run_id}", api.handleGetRun)
	mux.HandleFunc("GET /api/v1/reports/{key...}", api.handleGetReport)
}

type runListItem struct {
	RunID    string   `json:"run_id"`
	Reports  int      `json:"reports"`
	Datasets []string `json:"datasets"`
}

type runReport struct {
	Key     string `json:"key"`
	Dataset string `json:"dataset"`
	Event   string `json:"event"`
	Suite   string `json:"suite"`

	Success   *bool `json:"success,omitempty"`
	Evaluated int   `json:"evaluated_expectations,omitempty"`
	Unmet     int   `json:"unsuccessful_expectations,omitempty"`
}

// reportKey is the parsed form of validations/<run_id>/<dataset>/<event>-<suite>.json.
type reportKey struct {
	key     string
	runID   string
	dataset string
	event   string
	suite   string
}

func parseReportKey(key string) (reportKey, bool) {
	rest, ok := strings.CutPrefix(key, reportPrefix)
	if !ok {
		return reportKey{}, false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 {
		return reportKey{}, false
	}
	name, ok := strings.CutSuffix(parts[2], ".json")
	if !ok {
		return reportKey{}, false
	}
	event, suite, ok := strings.Cut(name, "-")
	if !ok || event == "" || suite == "" {
		return reportKey{}, false
	}
	return reportKey{
		key:     key,
		runID:   parts[0],
		dataset: parts[1],
		event:   event,
		suite:   suite,
	}, true
}

func (api *docsAPI) handleListRuns(w http.ResponseWriter, r *http.Request) {
	keys, err := api.store.List(r.Context(), reportPrefix)
	if err != nil {
		api.logger.Error("report store list failed", "error", err)
		api.writeError(w, r, http.StatusBadGateway, "store_error")
		return
	}

	counts := make(map[string]int)
	datasets := make(map[string]map[string]struct{})
	for _, key := range keys {
		parsed, ok := parseReportKey(key)
		if !ok {
			continue
		}
		counts[parsed.runID]++
		if datasets[parsed.runID] == nil {
			datasets[parsed.runID] = make(map[string]struct{})
		}
		datasets[parsed.runID][parsed.dataset] = struct{}{}
	}

	out := make([]runListItem, 0, len(counts))
	for runID, n := range counts {
		names := make([]string, 0, len(datasets[runID]))
		for name := range datasets[runID] {
			names = append(names, name)
		}
		sort.Strings(names)
		out = append(out, runListItem{RunID: runID, Reports: n, Datasets: names})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunID < out[j].RunID })

	api.writeJSON(w, http.StatusOK, map[string]any{"runs": out})
}

func (api *docsAPI) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimSpace(r.PathValue("run_id"))
	if runID == "" {
		api.writeError(w, r, http.StatusBadRequest, "run_id_required")
		return
	}

	keys, err := api.store.List(r.Context(), reportPrefix+runID+"/")
	if err != nil {
		api.logger.Error("report store list failed", "run_id", runID, "error", err)
		api.writeError(w, r, http.StatusBadGateway, "store_error")
		return
	}

	out := make([]runReport, 0, len(keys))
	for _, key := range keys {
		parsed, ok := parseReportKey(key)
		if !ok || parsed.runID != runID {
			continue
		}
		item := runReport{
			Key:     parsed.key,
			Dataset: parsed.dataset,
			Event:   parsed.event,
			Suite:   parsed.suite,
		}

		body, err := api.store.Get(r.Context(), key)
		if err == nil {
			var doc report.Document
			if err := json.Unmarshal(body, &doc); err == nil {
				success := doc.Success
				item.Success = &success
				item.Evaluated = doc.Validation.Statistics.EvaluatedExpectations
				item.Unmet = doc.Validation.Statistics.UnsuccessfulExpectations
			}
		}
		out = append(out, item)
	}
	if len(out) == 0 {
		api.writeError(w, r, http.StatusNotFound, "not_found")
		return
	}

	api.writeJSON(w, http.StatusOK, map[string]any{"run_id": runID, "reports": out})
}

func (api *docsAPI) handleGetReport(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.PathValue("key"))
	if key == "" {
		api.writeError(w, r, http.StatusBadRequest, "key_required")
		return
	}
	if !strings.HasPrefix(key, reportPrefix) && !strings.HasPrefix(key, "suites/") {
		api.writeError(w, r, http.StatusNotFound, "not_found")
		return
	}

	body, err := api.store.Get(r.Context(), key)
	if err != nil {
		api.writeError(w, r, http.StatusNotFound, "not_found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (api *docsAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func (api *docsAPI) writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
	api.writeJSON(w, status, map[string]any{
		"error":      code,
		"request_id": r.Header.Get("X-Request-Id"),
	})
}
