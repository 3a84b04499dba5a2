package service

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/1sec-project/forensec/internal/core"
	"github.com/1sec-project/forensec/internal/forensics"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/valyala/fastjson"
)

// Request is a decoded analysis query. Fields irrelevant to the analysis are
// ignored.
type Request struct {
	ID        string
	SessionID string
	N         int
	HasN      bool
	Start     string
	Target    string
}

// Response is the JSON reply to every query.
type Response struct {
	RequestID  string `json:"request_id"`
	Analysis   string `json:"analysis"`
	SnapshotID string `json:"snapshot_id,omitempty"`
	Records    int    `json:"records"`
	Result     any    `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
}

// TraceResult is the result payload of a trace query.
type TraceResult struct {
	Found bool     `json:"found"`
	Path  []string `json:"path"`
}

// ResponderConfig controls query handling.
type ResponderConfig struct {
	QueueGroup      string
	AlertLimit      int
	PublishFindings bool
	DedupWindow     time.Duration
}

// Responder answers analysis queries on <prefix>.query.<analysis>. Every
// request reads the current snapshot once and builds its own working state.
type Responder struct {
	bus      *core.FindingBus
	store    *Store
	analyzer *forensics.Analyzer
	cfg      ResponderConfig
	logger   zerolog.Logger
	parsers  fastjson.ParserPool
	dedup    *core.FindingDedup

	mu          sync.Mutex
	subs        []*nats.Subscription
	stopCleanup func()
}

// NewResponder creates a responder. bus may be nil when only Handle is used.
func NewResponder(bus *core.FindingBus, store *Store, analyzer *forensics.Analyzer, cfg ResponderConfig, logger zerolog.Logger) *Responder {
	r := &Responder{
		bus:      bus,
		store:    store,
		analyzer: analyzer,
		cfg:      cfg,
		logger:   logger.With().Str("component", "responder").Logger(),
	}
	if cfg.PublishFindings && cfg.DedupWindow > 0 {
		r.dedup = core.NewFindingDedup(cfg.DedupWindow, 0)
	}
	return r
}

// Start subscribes to every query subject.
func (r *Responder) Start() error {
	nc := r.bus.Conn()
	for _, analysis := range forensics.Analyses {
		analysis := analysis
		subject := r.bus.Subject("query", analysis)
		sub, err := nc.QueueSubscribe(subject, r.cfg.QueueGroup, func(msg *nats.Msg) {
			r.serve(analysis, msg)
		})
		if err != nil {
			r.Stop()
			return fmt.Errorf("subscribing to %s: %w", subject, err)
		}
		r.mu.Lock()
		r.subs = append(r.subs, sub)
		r.mu.Unlock()
		r.logger.Debug().Str("subject", subject).Msg("subscribed")
	}
	if err := nc.Flush(); err != nil {
		return fmt.Errorf("flushing subscriptions: %w", err)
	}
	if r.dedup != nil {
		r.mu.Lock()
		r.stopCleanup = r.dedup.StartCleanup(r.cfg.DedupWindow)
		r.mu.Unlock()
	}
	r.logger.Info().Int("subjects", len(forensics.Analyses)).Msg("query responder started")
	return nil
}

// Stop removes all subscriptions.
func (r *Responder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		_ = sub.Unsubscribe()
	}
	r.subs = nil
	if r.stopCleanup != nil {
		r.stopCleanup()
		r.stopCleanup = nil
	}
}

func (r *Responder) serve(analysis string, msg *nats.Msg) {
	resp := r.Handle(analysis, msg.Data)
	data, err := json.Marshal(resp)
	if err != nil {
		r.logger.Error().Err(err).Str("analysis", analysis).Msg("failed to marshal response")
		return
	}
	if msg.Reply == "" {
		return
	}
	if err := msg.Respond(data); err != nil {
		r.logger.Error().Err(err).Str("analysis", analysis).Msg("failed to send response")
	}
}

// Handle runs one query against the current snapshot.
func (r *Responder) Handle(analysis string, payload []byte) Response {
	req, err := r.parseRequest(payload)
	if err != nil {
		return Response{RequestID: uuid.New().String(), Analysis: analysis, Error: err.Error()}
	}
	resp := Response{RequestID: req.ID, Analysis: analysis}

	snap := r.store.Current()
	if snap == nil {
		resp.Error = "no snapshot loaded"
		return resp
	}
	resp.SnapshotID = snap.ID
	resp.Records = snap.Len()
	records := snap.Records()

	var finding *core.Finding
	switch analysis {
	case forensics.AnalysisSessions:
		invalid := r.analyzer.FindInvalidSessions(records)
		resp.Result = invalid.Sorted()
		finding = SessionsFinding(invalid)
	case forensics.AnalysisTimeline:
		if req.SessionID == "" {
			resp.Error = "session_id is required"
			return resp
		}
		timeline := r.analyzer.ReconstructTimeline(records, req.SessionID)
		resp.Result = timeline
		finding = TimelineFinding(req.SessionID, timeline)
	case forensics.AnalysisAlerts:
		n := r.cfg.AlertLimit
		if req.HasN {
			n = req.N
		}
		alerts := r.analyzer.PrioritizeAlerts(records, n)
		resp.Result = alerts
		finding = AlertsFinding(alerts)
	case forensics.AnalysisSpikes:
		spikes := r.analyzer.FindTransferSpikes(records)
		resp.Result = spikes
		finding = SpikesFinding(spikes)
	case forensics.AnalysisTrace:
		if req.Start == "" || req.Target == "" {
			resp.Error = "start and target are required"
			return resp
		}
		path, found := r.analyzer.TraceContamination(records, req.Start, req.Target)
		if path == nil {
			path = []string{}
		}
		resp.Result = TraceResult{Found: found, Path: path}
		finding = TraceFinding(req.Start, req.Target, path, found)
	default:
		resp.Error = fmt.Sprintf("unknown analysis %q", analysis)
		return resp
	}

	if r.cfg.PublishFindings && r.bus != nil {
		r.publish(finding, snap, req.ID)
	}
	return resp
}

// publish sends the finding for one answered query unless an identical one
// went out for the same snapshot within the dedup window.
func (r *Responder) publish(finding *core.Finding, snap *Snapshot, requestID string) {
	finding.Source = snap.Source
	if r.dedup != nil && r.dedup.IsDuplicate(finding, snap.ID) {
		r.logger.Debug().Str("analysis", finding.Analysis).Str("request_id", requestID).Msg("duplicate finding suppressed")
		return
	}
	finding.Details["request_id"] = requestID
	if err := r.bus.Publish(finding); err != nil {
		r.logger.Warn().Err(err).Str("analysis", finding.Analysis).Msg("failed to publish finding")
	}
}

// parseRequest decodes a query payload. An empty payload is an empty
// request.
func (r *Responder) parseRequest(payload []byte) (Request, error) {
	req := Request{}
	if len(payload) > 0 {
		p := r.parsers.Get()
		defer r.parsers.Put(p)

		v, err := p.ParseBytes(payload)
		if err != nil {
			return req, fmt.Errorf("invalid request: %w", err)
		}
		if v.Type() != fastjson.TypeObject {
			return req, fmt.Errorf("invalid request: expected object, got %s", v.Type())
		}
		req.ID = string(v.GetStringBytes("request_id"))
		req.SessionID = string(v.GetStringBytes("session_id"))
		req.Start = string(v.GetStringBytes("start"))
		req.Target = string(v.GetStringBytes("target"))
		if nv := v.Get("n"); nv != nil {
			n, err := nv.Int()
			if err != nil {
				return req, fmt.Errorf("invalid request: n: %w", err)
			}
			req.N, req.HasN = n, true
		}
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	return req, nil
}
