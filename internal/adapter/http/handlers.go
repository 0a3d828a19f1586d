package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gorilla/mux"

	"github.com/couchcryptid/siting-explorer/internal/domain"
	"github.com/couchcryptid/siting-explorer/internal/pipeline"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("malformed request body")

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type categoryInfo struct {
	Key         domain.Category     `json:"key"`
	Title       string              `json:"title,omitempty"`
	ScoreColumn string              `json:"score_column"`
	ColorScale  string              `json:"color_scale"`
	Metrics     []domain.MetricSpec `json:"metrics,omitempty"`
	Regulatory  *regulatoryInfo     `json:"regulatory,omitempty"`
}

type regulatoryInfo struct {
	TaxIncentives    []string                 `json:"tax_incentives"`
	SecurityMeasures []string                 `json:"security_measures"`
	LocalSupport     []string                 `json:"local_support"`
	DefaultWeights   domain.RegulatoryWeights `json:"default_weights"`
}

// scoreRequest carries native inputs. Mean-scored categories use Inputs; the
// regulatory category uses Regulatory and optional Weights.
type scoreRequest struct {
	Inputs     map[string]domain.Value   `json:"inputs,omitempty"`
	Regulatory *domain.RegulatoryInputs  `json:"regulatory,omitempty"`
	Weights    *domain.RegulatoryWeights `json:"weights,omitempty"`
}

func (r scoreRequest) weights() domain.RegulatoryWeights {
	if r.Weights == nil {
		return domain.DefaultRegulatoryWeights()
	}
	return *r.Weights
}

type thresholdRequest struct {
	MinScore *float64 `json:"min_score,omitempty"`
	scoreRequest
}

type thresholdResponse struct {
	Category domain.Category        `json:"category"`
	MinScore float64                `json:"min_score"`
	Result   *domain.CategoryResult `json:"result,omitempty"`
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	catalog := s.explorer.Catalog()
	out := make([]categoryInfo, 0, len(domain.Categories()))
	for _, cat := range domain.Categories() {
		col, _ := cat.ScoreColumn()
		info := categoryInfo{Key: cat, ScoreColumn: col, ColorScale: domain.ColorScale(col)}
		if cat == domain.CategoryRegulatory {
			info.Title = "Regulatory Environment"
			info.Regulatory = &regulatoryInfo{
				TaxIncentives:    domain.TaxIncentives,
				SecurityMeasures: domain.SecurityMeasures,
				LocalSupport:     domain.LocalSupport.Labels(),
				DefaultWeights:   domain.DefaultRegulatoryWeights(),
			}
		} else if spec, err := catalog.Spec(cat); err == nil {
			info.Title = spec.Title
			info.Metrics = spec.Metrics
		}
		out = append(out, info)
	}
	sharedobs.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleMarkets(w http.ResponseWriter, _ *http.Request) {
	markets := s.explorer.Markets()
	out := make([]domain.Market, 0, len(markets))
	for _, name := range markets.Names() {
		out = append(out, markets[name])
	}
	sharedobs.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	cat, err := domain.ParseCategory(mux.Vars(r)["category"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req scoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	var res domain.CategoryResult
	if cat == domain.CategoryRegulatory {
		in := domain.RegulatoryInputs{}
		if req.Regulatory != nil {
			in = *req.Regulatory
		}
		res, err = domain.ScoreRegulatory(in, req.weights())
	} else {
		res, err = s.explorer.ScoreCategory(cat, req.Inputs)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetThresholds(w http.ResponseWriter, r *http.Request) {
	th, err := s.explorer.Thresholds(r.Context(), mux.Vars(r)["session"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, th)
}

func (s *Server) handlePutThreshold(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	session := vars["session"]
	cat, err := domain.ParseCategory(vars["category"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req thresholdRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	ctx := r.Context()
	resp := thresholdResponse{Category: cat}
	switch {
	case req.MinScore != nil:
		err = s.explorer.SetThreshold(ctx, session, cat, *req.MinScore)
		resp.MinScore = *req.MinScore
	case cat == domain.CategoryRegulatory && req.Regulatory != nil:
		var res domain.CategoryResult
		res, err = s.explorer.SetRegulatoryThreshold(ctx, session, *req.Regulatory, req.weights())
		resp.MinScore, resp.Result = res.Overall, &res
	case req.Inputs != nil:
		var res domain.CategoryResult
		res, err = s.explorer.SetThresholdFromInputs(ctx, session, cat, req.Inputs)
		resp.MinScore, resp.Result = res.Overall, &res
	default:
		err = fmt.Errorf("%w: set min_score or inputs", errBadRequest)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	req.Session = mux.Vars(r)["session"]

	layer, err := s.explorer.Evaluate(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, layer)
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.explorer.Refresh()
	sharedobs.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "refresh scheduled"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// statusFor maps an error to its HTTP status and short code.
func statusFor(err error) (int, string) {
	is := func(targets ...error) bool {
		for _, t := range targets {
			if errors.Is(err, t) {
				return true
			}
		}
		return false
	}
	switch {
	case is(errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case is(domain.ErrUnknownCategory, domain.ErrUnknownRegion):
		return http.StatusNotFound, "not_found"
	case is(pipeline.ErrNoCategories, pipeline.ErrPriorityNotSelected, pipeline.ErrInvalidThreshold,
		domain.ErrUnknownLabel, domain.ErrUnknownMetric, domain.ErrValueKind, domain.ErrMissingInput,
		domain.ErrZeroWeights, domain.ErrNegativeWeight, domain.ErrWeightOverflow, domain.ErrMalformedMetric, domain.ErrUnknownColumn):
		return http.StatusUnprocessableEntity, "invalid_input"
	case is(pipeline.ErrNotReady, domain.ErrMissingColumn, domain.ErrInvalidFIPS):
		return http.StatusServiceUnavailable, "data_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("api request failed", "error", err, "status", status)
	}
	sharedobs.WriteJSON(w, status, ErrorResponse{Error: code, Message: err.Error(), Code: status})
}
