package cli

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mchmarny/healthscore/pkg/config"
	"github.com/mchmarny/healthscore/pkg/data"
	"github.com/mchmarny/healthscore/pkg/hierarchy"
	"github.com/mchmarny/healthscore/pkg/measurement"
	"github.com/mchmarny/healthscore/pkg/strategy"
)

const (
	maxRequestBytes  = 10 << 20
	resultLimitMax   = 500
	resultLimitParam = "limit"
)

// EvaluateRequest is the body of POST /api/evaluate.
type EvaluateRequest struct {
	Hierarchy    *hierarchy.Hierarchy       `json:"hierarchy"`
	Measurements []*measurement.Measurement `json:"measurements"`
	Strict       *bool                      `json:"strict,omitempty"`
	Duplicates   string                     `json:"duplicates,omitempty"`
	// Project stores the result under this name when set.
	Project string `json:"project,omitempty"`
}

// EvaluateResponse wraps the result with its stored id, if saved.
type EvaluateResponse struct {
	ID     string `json:"id,omitempty"`
	Result any    `json:"result"`
}

// Catalog lists what the service can evaluate.
type Catalog struct {
	Versions   []string               `json:"versions,omitempty"`
	Latest     string                 `json:"latest,omitempty"`
	Strategies []hierarchy.StrategyID `json:"strategies,omitempty"`
	Transforms []string               `json:"transforms,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func evaluateAPIHandler(c *config.Config, store *data.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "error reading request body")
			return
		}

		var req EvaluateRequest
		if err := json.Unmarshal(b, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
			return
		}
		if req.Hierarchy == nil {
			writeError(w, http.StatusBadRequest, "hierarchy is required")
			return
		}

		conf := *c
		if req.Strict != nil {
			conf.Strict = *req.Strict
		}
		if req.Duplicates != "" {
			conf.Duplicates = req.Duplicates
		}

		opts, err := engineOptions(&conf)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		res, err := evaluate(r.Context(), req.Hierarchy, req.Measurements, opts)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		out := &EvaluateResponse{Result: res}
		if req.Project != "" {
			e, err := store.SaveResult(r.Context(), req.Project, res)
			if err != nil {
				slog.Error("failed to save result", "project", req.Project, "error", err)
				writeError(w, http.StatusInternalServerError, "error saving result")
				return
			}
			out.ID = e.ID
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func listResultsAPIHandler(store *data.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project := r.URL.Query().Get("project")
		limit := queryParamInt(r, resultLimitParam, historyLimitDefault)

		list, err := store.ListResults(r.Context(), project, limit)
		if err != nil {
			slog.Error("failed to list results", "error", err)
			writeError(w, http.StatusInternalServerError, "error listing results")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func getResultAPIHandler(store *data.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		res, err := store.GetResult(r.Context(), id)
		if err != nil {
			if errors.Is(err, data.ErrNotFound) {
				writeError(w, http.StatusNotFound, "result not found")
				return
			}
			slog.Error("failed to get result", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "error getting result")
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func versionsAPIHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, &Catalog{
		Versions: hierarchy.SupportedVersions(),
		Latest:   hierarchy.LatestVersion,
	})
}

func strategiesAPIHandler(c *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		opts, err := engineOptions(c)
		if err != nil {
			slog.Error("invalid evaluation config", "error", err)
			writeError(w, http.StatusInternalServerError, "invalid evaluation config")
			return
		}
		writeJSON(w, http.StatusOK, &Catalog{
			Strategies: strategy.NewRegistry().IDs(),
			Transforms: opts.Transforms.Types(),
		})
	}
}

func queryParamInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}

	i, err := strconv.Atoi(v)
	if err != nil {
		slog.Debug("error converting query string to int", "value", v, "error", err)
		return def
	}

	if i < 1 || i > resultLimitMax {
		return def
	}

	return i
}
