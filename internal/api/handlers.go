package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gobayes/domain/core"
	"gobayes/domain/evidence"
	"gobayes/internal/aggregator"
	"gobayes/internal/errors"
	"gobayes/internal/pipeline"
	"gobayes/internal/studies"
	"gobayes/ports"
)

type studySummary struct {
	Name        string       `json:"name"`
	Kind        studies.Kind `json:"kind"`
	Description string       `json:"description,omitempty"`
	Standalone  bool         `json:"standalone,omitempty"`
	AssertedLR  *float64     `json:"asserted_lr,omitempty"`
}

// runRequest is the body of POST /api/v1/runs; every field is optional
type runRequest struct {
	Studies []string `json:"studies"`
	Seed    *int64   `json:"seed"`
	Prior   string   `json:"prior"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "studies": len(s.catalog.Studies)})
}

func (s *Server) handleListStudies(c *gin.Context) {
	out := make([]studySummary, 0, len(s.catalog.Studies))
	for _, st := range s.catalog.Studies {
		sum := studySummary{Name: st.Name, Kind: st.Kind, Description: st.Description, Standalone: st.Standalone}
		if st.Asserted != nil {
			lr := st.Asserted.LR
			sum.AssertedLR = &lr
		}
		out = append(out, sum)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetStudy(c *gin.Context) {
	st, err := s.catalog.Lookup(c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) handleRunStudy(c *gin.Context) {
	st, err := s.catalog.Lookup(c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}

	var seed *int64
	if raw := c.Query("seed"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(c, errors.InvalidInput(fmt.Sprintf("invalid seed %q", raw)))
			return
		}
		seed = &v
	}
	opts, err := s.options(seed, c.Query("prior"))
	if err != nil {
		writeError(c, err)
		return
	}

	result := pipeline.New(opts).Run(c.Request.Context(), st)
	status := http.StatusOK
	if !result.OK() {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

func (s *Server) handleStudyHistory(c *gin.Context) {
	name := c.Param("name")
	if _, err := s.catalog.Lookup(name); err != nil {
		writeError(c, err)
		return
	}
	limit, err := intQuery(c, "limit", 20)
	if err != nil {
		writeError(c, err)
		return
	}

	history, err := s.ledger.StudyHistory(c.Request.Context(), name, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if history == nil {
		history = []evidence.Record{}
	}
	c.JSON(http.StatusOK, history)
}

func (s *Server) handleCreateRun(c *gin.Context) {
	var req runRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, errors.InvalidInput("invalid run request: "+err.Error()))
			return
		}
	}

	list, err := s.catalog.Select(req.Studies)
	if err != nil {
		writeError(c, err)
		return
	}
	opts, err := s.options(req.Seed, req.Prior)
	if err != nil {
		writeError(c, err)
		return
	}
	opts.Observer = NewSSEEventBroadcaster(s.hub)

	report, err := pipeline.New(opts).RunAll(c.Request.Context(), list)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.ledger.StoreReport(c.Request.Context(), report); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit, err := intQuery(c, "limit", 20)
	if err != nil {
		writeError(c, err)
		return
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		writeError(c, err)
		return
	}

	runs, err := s.ledger.ListRuns(c.Request.Context(), ports.RunFilters{Limit: limit, Offset: offset})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) handleGetRun(c *gin.Context) {
	report, err := s.ledger.GetReport(c.Request.Context(), core.RunID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleLatestReport serves the newest report with an ETag so pollers can
// use If-None-Match
func (s *Server) handleLatestReport(c *gin.Context) {
	report, err := s.ledger.LatestReport(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	body, err := json.Marshal(report)
	if err != nil {
		writeError(c, errors.Wrap(err, "failed to encode report"))
		return
	}
	etag := `"` + core.NewHash(body).String()[:32] + `"`
	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// handlePosterior converts one likelihood ratio into posteriors, for the
// named prior or for every configured prior
func (s *Server) handlePosterior(c *gin.Context) {
	raw := c.Query("lr")
	lr, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		writeError(c, errors.InvalidInput(fmt.Sprintf("invalid likelihood ratio %q", raw)))
		return
	}
	combined, err := aggregator.Combine([]evidence.LikelihoodRatio{evidence.LikelihoodRatio(lr)})
	if err != nil {
		writeError(c, err)
		return
	}

	priors := s.priors()
	if name := c.Query("prior"); name != "" {
		p, err := aggregator.ParsePrior(name)
		if err != nil {
			writeError(c, err)
			return
		}
		priors = []evidence.Prior{p}
	}
	c.JSON(http.StatusOK, gin.H{"lr": lr, "posteriors": aggregator.Evaluate(combined, priors)})
}

// options derives per-request pipeline options from the server defaults
func (s *Server) options(seed *int64, prior string) (pipeline.Options, error) {
	opts := s.defaults
	opts.Priors = s.priors()
	if seed != nil {
		opts.Seed = *seed
		opts.Seeds = nil
	}
	if prior != "" {
		p, err := aggregator.ParsePrior(prior)
		if err != nil {
			return opts, err
		}
		opts.Priors = []evidence.Prior{p}
	}
	return opts, nil
}

func (s *Server) priors() []evidence.Prior {
	if len(s.defaults.Priors) > 0 {
		return s.defaults.Priors
	}
	return s.catalog.PriorSet(aggregator.DefaultPriors())
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.InvalidInput(fmt.Sprintf("invalid %s %q", key, raw))
	}
	return v, nil
}
