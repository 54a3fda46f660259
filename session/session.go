// Package session holds the state of one calibration session: the model being
// calibrated, the sub-model currently selected, the calibration list and the
// values derived from them.
//
// Derived values, the trace tree and the aligned sensor series, are cached
// per session and keyed by the fingerprint of the model they were derived
// from and the number of timesteps. Replacing the model or changing the number
// of timesteps invalidates them; nothing else does.
//
// A Session is not safe for concurrent use. Long-running work, solving in
// particular, is handed to a solver.Runner, which is.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/danielorbach/go-component"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/go-digitaltwin/hydrotwin"
	"github.com/go-digitaltwin/hydrotwin/compilation"
	"github.com/go-digitaltwin/hydrotwin/solver"
)

// ErrUnknownCalibration is returned when a calibration action is referenced
// by an id the session does not hold.
var ErrUnknownCalibration = errors.New("unknown calibration action")

// Session is the working state of a calibration session.
type Session struct {
	base   snapshot
	active snapshot
	// subModel is the id the active model is rooted at, empty when the
	// active model is the base model.
	subModel     string
	steps        int
	calibrations []hydrotwin.CalibrationAction
}

// snapshot is a model together with its fingerprint and derived caches.
type snapshot struct {
	model *hydrotwin.Model
	hash  hydrotwin.ModelHash
	cache *derived
}

type cacheKey struct {
	model hydrotwin.ModelHash
	steps int
}

type derived struct {
	treeKey   cacheKey
	tree      hydrotwin.Branch
	hasTree   bool
	alignKey  cacheKey
	alignment hydrotwin.Alignment
	hasAlign  bool
	network   *hydrotwin.Network
}

// New starts a session on m with the canonical number of timesteps. The
// calibration list saved with m, if any, becomes the session's calibration
// list.
func New(m *hydrotwin.Model) (*Session, error) {
	s := &Session{steps: hydrotwin.DefaultSteps}
	if err := s.SetModel(m); err != nil {
		return nil, err
	}
	return s, nil
}

func newSnapshot(m *hydrotwin.Model) (snapshot, error) {
	h, err := hydrotwin.Fingerprint(m)
	if err != nil {
		return snapshot{}, fmt.Errorf("fingerprint: %w", err)
	}
	return snapshot{model: m, hash: h, cache: new(derived)}, nil
}

// SetModel replaces the session's model, drops any selected sub-model and
// adopts the calibration list saved with m.
func (s *Session) SetModel(m *hydrotwin.Model) error {
	snap, err := newSnapshot(m)
	if err != nil {
		return err
	}
	for _, a := range m.Calibrations {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	s.base, s.active, s.subModel = snap, snap, ""
	s.calibrations = slices.Clone(m.Calibrations)
	return nil
}

// SetSteps changes the number of canonical timesteps to align onto.
func (s *Session) SetSteps(n int) error {
	if n < 1 {
		return fmt.Errorf("steps must be positive, got %d", n)
	}
	s.steps = n
	return nil
}

// Steps returns the number of canonical timesteps.
func (s *Session) Steps() int { return s.steps }

// Model returns the active model: the selected sub-model, or the base model.
func (s *Session) Model() *hydrotwin.Model { return s.active.model }

// Fingerprint returns the fingerprint of the active model.
func (s *Session) Fingerprint() hydrotwin.ModelHash { return s.active.hash }

// Base returns the model the session was started on.
func (s *Session) Base() *hydrotwin.Model { return s.base.model }

// SubModel returns the id the active model is rooted at, if a sub-model is
// selected.
func (s *Session) SubModel() (string, bool) { return s.subModel, s.subModel != "" }

func (snap *snapshot) network() *hydrotwin.Network {
	if snap.cache.network == nil {
		snap.cache.network = hydrotwin.NewNetwork(snap.model)
	}
	return snap.cache.network
}

func (s *Session) tree(ctx context.Context, snap *snapshot) (hydrotwin.Branch, error) {
	key := cacheKey{model: snap.hash, steps: s.steps}
	if snap.cache.hasTree && snap.cache.treeKey == key {
		return snap.cache.tree, nil
	}
	_, span := tracer.Start(ctx, "Session.Trace", trace.WithAttributes(
		attribute.Stringer(modelAttr, snap.hash),
	))
	defer span.End()

	tree, err := snap.network().TraceAll()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	snap.cache.tree, snap.cache.treeKey, snap.cache.hasTree = tree, key, true
	return tree, nil
}

func (s *Session) align(ctx context.Context, snap *snapshot) (hydrotwin.Alignment, error) {
	key := cacheKey{model: snap.hash, steps: s.steps}
	if snap.cache.hasAlign && snap.cache.alignKey == key {
		return snap.cache.alignment, nil
	}
	ctx, span := tracer.Start(ctx, "Session.Align", trace.WithAttributes(
		attribute.Stringer(modelAttr, snap.hash),
		attribute.Int("steps", s.steps),
	))
	defer span.End()

	a, err := hydrotwin.Align(snap.model, s.steps)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return hydrotwin.Alignment{}, err
	}
	logger := component.Logger(ctx)
	for _, f := range a.Failures {
		logger.Warn("Sensor not aligned", "sensor", f.SensorID, "error", f.Err)
	}
	measureAlignment(ctx, len(a.Failures))
	snap.cache.alignment, snap.cache.alignKey, snap.cache.hasAlign = a, key, true
	return a, nil
}

// Tree returns the trace tree of the active model.
func (s *Session) Tree(ctx context.Context) (hydrotwin.Branch, error) {
	return s.tree(ctx, &s.active)
}

// Alignment returns the aligned sensor series of the active model.
func (s *Session) Alignment(ctx context.Context) (hydrotwin.Alignment, error) {
	return s.align(ctx, &s.active)
}

// SubModels lists the points the base model can be re-rooted at, the fixed
// head first.
func (s *Session) SubModels(ctx context.Context) ([]string, error) {
	tree, err := s.tree(ctx, &s.base)
	if err != nil {
		return nil, err
	}
	return hydrotwin.SubModels(tree), nil
}

// Warm computes the trace trees and alignments of the base and active models
// concurrently, so that later calls are served from cache.
func (s *Session) Warm(ctx context.Context) error {
	snaps := []*snapshot{&s.base}
	if s.active.cache != s.base.cache {
		snaps = append(snaps, &s.active)
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, snap := range snaps {
		// Tracing and aligning write disjoint fields of the cache; only the
		// network index is shared, so build it up front.
		snap.network()
		g.Go(func() error { _, err := s.tree(ctx, snap); return err })
		g.Go(func() error { _, err := s.align(ctx, snap); return err })
	}
	return g.Wait()
}

// SelectSubModel re-roots the session at the live-data point id. The
// sub-model is extracted from the base model using the base model's aligned
// series, and becomes the active model.
func (s *Session) SelectSubModel(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Session.SelectSubModel", trace.WithAttributes(
		attribute.String("root", id),
	))
	defer span.End()

	a, err := s.align(ctx, &s.base)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("select %q: %w", id, err)
	}
	sub, err := s.base.network().ExtractSubModel(id, a.Series)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("select %q: %w", id, err)
	}
	for _, w := range sub.Warnings {
		component.Logger(ctx).Warn("Sub-model extracted with warnings", "root", id, "warning", w)
	}
	snap, err := newSnapshot(sub.Model)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("select %q: %w", id, err)
	}
	s.active, s.subModel = snap, id
	return nil
}

// ResetSubModel makes the base model active again.
func (s *Session) ResetSubModel() {
	s.active, s.subModel = s.base, ""
}

// Calibrations returns a copy of the calibration list.
func (s *Session) Calibrations() []hydrotwin.CalibrationAction {
	return slices.Clone(s.calibrations)
}

// AddCalibration validates a and appends it to the calibration list. An
// action without an id is given one greater than any in the list. The stored
// action is returned.
func (s *Session) AddCalibration(a hydrotwin.CalibrationAction) (hydrotwin.CalibrationAction, error) {
	if a.ID == 0 {
		for _, c := range s.calibrations {
			a.ID = max(a.ID, c.ID)
		}
		a.ID++
	}
	if err := a.Validate(); err != nil {
		return hydrotwin.CalibrationAction{}, err
	}
	if s.indexOf(a.ID) >= 0 {
		return hydrotwin.CalibrationAction{}, fmt.Errorf("calibration action %d already exists", a.ID)
	}
	s.calibrations = append(s.calibrations, a)
	return a, nil
}

// UpdateCalibration replaces the calibration action with the same id as a.
func (s *Session) UpdateCalibration(a hydrotwin.CalibrationAction) error {
	i := s.indexOf(a.ID)
	if i < 0 {
		return fmt.Errorf("update %d: %w", a.ID, ErrUnknownCalibration)
	}
	if err := a.Validate(); err != nil {
		return err
	}
	s.calibrations[i] = a
	return nil
}

// DeleteCalibration removes the calibration action with the given id.
func (s *Session) DeleteCalibration(id int) error {
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("delete %d: %w", id, ErrUnknownCalibration)
	}
	s.calibrations = slices.Delete(s.calibrations, i, i+1)
	return nil
}

// SetCalibrations replaces the whole calibration list.
func (s *Session) SetCalibrations(actions []hydrotwin.CalibrationAction) error {
	for _, a := range actions {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	s.calibrations = slices.Clone(actions)
	return nil
}

func (s *Session) indexOf(id int) int {
	return slices.IndexFunc(s.calibrations, func(c hydrotwin.CalibrationAction) bool { return c.ID == id })
}

// Compile serialises the active model, calibrated, into solver input.
func (s *Session) Compile(ctx context.Context) string {
	ctx, span := tracer.Start(ctx, "Session.Compile", trace.WithAttributes(
		attribute.Stringer(modelAttr, s.active.hash),
		attribute.Int("calibrations", len(s.calibrations)),
	))
	defer span.End()

	start := time.Now()
	input := compilation.Compile(s.active.model, hydrotwin.Overrides(s.calibrations))
	measureCompilation(ctx, time.Since(start))
	return input
}

// Request compiles the active model into a solver request reading back every
// live-data point of the active model.
func (s *Session) Request(ctx context.Context) solver.Request {
	req := solver.NewRequest(s.Compile(ctx), hydrotwin.LiveDataPoints(s.active.model))
	req.Model = s.active.hash
	return req
}

// Recalibrate replaces the calibration list and builds a solver request from
// the result. It has the signature of a solver.RequestBuilder.
func (s *Session) Recalibrate(ctx context.Context, actions []hydrotwin.CalibrationAction) (solver.Request, error) {
	if err := s.SetCalibrations(actions); err != nil {
		return solver.Request{}, err
	}
	return s.Request(ctx), nil
}

// Export returns the active model with the session's calibration list
// attached, ready to be written out and loaded again later.
func (s *Session) Export() *hydrotwin.Model {
	m := *s.active.model
	m.Calibrations = slices.Clone(s.calibrations)
	return &m
}
