package service

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/mo"
	"go.uber.org/zap"

	"github.com/noah-isme/planner-sync-api/internal/dto"
	"github.com/noah-isme/planner-sync-api/internal/merge"
	"github.com/noah-isme/planner-sync-api/internal/models"
	appErrors "github.com/noah-isme/planner-sync-api/pkg/errors"
	"github.com/noah-isme/planner-sync-api/pkg/keylock"
)

// Display names used when the caller does not provide one.
const (
	DefaultCalendarName = "Untitled calendar"
	LegacyCalendarName  = "My Calendar"
)

// Largest integer a JSON number carries without loss.
const maxSafeInteger = 1<<53 - 1

type calendarRepository interface {
	LoadAll(ctx context.Context) ([]models.CalendarRecord, error)
	Put(ctx context.Context, record models.CalendarRecord) error
	Delete(ctx context.Context, id string) error
}

// SaveCalendarInput is a save request after transport decoding. BaseState
// and BaseRevision are absent for clients that do not track a base.
type SaveCalendarInput struct {
	State        json.RawMessage
	BaseState    mo.Option[json.RawMessage]
	BaseRevision mo.Option[int64]
}

// ParseSaveRequest converts the wire payload into a SaveCalendarInput. A
// null or missing base state and a non-integer base revision are absent.
func ParseSaveRequest(req dto.SaveCalendarRequest) SaveCalendarInput {
	in := SaveCalendarInput{
		State:        req.State,
		BaseState:    mo.None[json.RawMessage](),
		BaseRevision: mo.None[int64](),
	}
	if base := bytes.TrimSpace(req.BaseState); len(base) > 0 && !bytes.Equal(base, []byte("null")) {
		in.BaseState = mo.Some(json.RawMessage(base))
	}
	if len(req.BaseRevision) > 0 {
		var f float64
		if err := json.Unmarshal(req.BaseRevision, &f); err == nil && f == math.Trunc(f) && math.Abs(f) <= maxSafeInteger {
			in.BaseRevision = mo.Some(int64(f))
		}
	}
	return in
}

// CalendarService is the authoritative registry of calendars. All
// mutations of one calendar are serialized by a per-id lock; reads see
// whole Calendar values that are replaced, never modified.
type CalendarService struct {
	repo      calendarRepository
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string

	mu        sync.RWMutex
	calendars map[string]*models.Calendar
	locks     *keylock.Locker
}

// CalendarServiceOption configures the service.
type CalendarServiceOption func(*CalendarService)

// WithCalendarClock overrides the time source.
func WithCalendarClock(now func() time.Time) CalendarServiceOption {
	return func(s *CalendarService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCalendarIDGenerator overrides how calendar ids are allocated.
func WithCalendarIDGenerator(fn func() string) CalendarServiceOption {
	return func(s *CalendarService) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithCalendarMetrics attaches Prometheus instrumentation.
func WithCalendarMetrics(metrics *MetricsService) CalendarServiceOption {
	return func(s *CalendarService) {
		s.metrics = metrics
	}
}

// NewCalendarService constructs the service with an empty registry. Call
// Load to populate it from the repository.
func NewCalendarService(repo calendarRepository, validate *validator.Validate, logger *zap.Logger, opts ...CalendarServiceOption) *CalendarService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &CalendarService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
		calendars: make(map[string]*models.Calendar),
		locks:     keylock.New(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Load replaces the registry with every persisted calendar. Revisions
// restart at zero; clients re-fetch after a restart.
func (s *CalendarService) Load(ctx context.Context) error {
	start := time.Now()
	records, err := s.repo.LoadAll(ctx)
	s.metrics.ObserveStorage("load", time.Since(start), err)
	if err != nil {
		return appErrors.WrapAs(appErrors.ErrStorage, err, "failed to load calendars")
	}

	loaded := make(map[string]*models.Calendar, len(records))
	for _, rec := range records {
		state := rec.State
		if err := state.Validate(); err != nil {
			s.logger.Warn("renormalizing stored calendar", zap.String("calendar_id", rec.ID), zap.Error(err))
			state = renormalize(state, s.now())
		}
		loaded[rec.ID] = &models.Calendar{
			ID:        rec.ID,
			Name:      rec.Name,
			State:     state.Clone(),
			UpdatedAt: rec.UpdatedAt,
		}
	}

	s.mu.Lock()
	s.calendars = loaded
	s.mu.Unlock()
	s.metrics.SetCalendarCount(len(loaded))
	s.logger.Info("calendars loaded", zap.Int("count", len(loaded)))
	return nil
}

// ImportLegacy creates a calendar from a single-calendar state document,
// but only while the registry is empty so the import happens once. It
// reports whether a calendar was created.
func (s *CalendarService) ImportLegacy(ctx context.Context, raw []byte) (*dto.CreateCalendarResponse, bool, error) {
	stateRaw, name, updatedAt := decodeLegacy(raw)
	now := s.now()
	if updatedAt.IsZero() {
		updatedAt = now
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calendars) > 0 {
		return nil, false, nil
	}

	cal := &models.Calendar{
		ID:        s.newID(),
		Name:      name,
		State:     NormalizeState(stateRaw, now),
		UpdatedAt: updatedAt,
	}
	if err := s.persist(ctx, "import", cal); err != nil {
		return nil, false, err
	}
	s.calendars[cal.ID] = cal
	s.metrics.SetCalendarCount(len(s.calendars))
	s.logger.Info("legacy calendar imported",
		zap.String("calendar_id", cal.ID),
		zap.Int("events", cal.State.EventCount()),
	)
	return &dto.CreateCalendarResponse{ID: cal.ID, Name: cal.Name}, true, nil
}

// List returns calendar summaries, most recently updated first.
func (s *CalendarService) List(ctx context.Context) []dto.CalendarSummary {
	s.mu.RLock()
	items := make([]dto.CalendarSummary, 0, len(s.calendars))
	for _, cal := range s.calendars {
		items = append(items, dto.CalendarSummary{ID: cal.ID, Name: cal.Name, UpdatedAt: cal.UpdatedAt})
	}
	s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if !items[i].UpdatedAt.Equal(items[j].UpdatedAt) {
			return items[i].UpdatedAt.After(items[j].UpdatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items
}

// Create registers a new calendar with the default schedule.
func (s *CalendarService) Create(ctx context.Context, req dto.CreateCalendarRequest) (*dto.CreateCalendarResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInvalidArgument, err, "invalid calendar name")
	}
	if req.Name == "" {
		req.Name = DefaultCalendarName
	}

	now := s.now()
	cal := &models.Calendar{
		ID:        s.newID(),
		Name:      req.Name,
		State:     models.NewScheduleState(now.Format(models.DateLayout)),
		UpdatedAt: now,
	}

	unlock := s.locks.Lock(cal.ID)
	defer unlock()

	if err := s.persist(ctx, "create", cal); err != nil {
		return nil, err
	}
	s.publish(cal)
	s.logger.Info("calendar created", zap.String("calendar_id", cal.ID), zap.String("name", cal.Name))
	return &dto.CreateCalendarResponse{ID: cal.ID, Name: cal.Name}, nil
}

// Rename changes the display name. Renames do not take part in the
// revision protocol.
func (s *CalendarService) Rename(ctx context.Context, id string, req dto.RenameCalendarRequest) (*dto.RenameCalendarResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInvalidArgument, err, "calendar name must be a non-empty string of at most 200 characters")
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	current, ok := s.lookup(id)
	if !ok {
		return nil, calendarNotFound()
	}

	renamed := *current
	renamed.Name = req.Name
	renamed.UpdatedAt = s.now()
	if err := s.persist(ctx, "rename", &renamed); err != nil {
		return nil, err
	}
	s.publish(&renamed)
	return &dto.RenameCalendarResponse{Success: true, ID: id, Name: renamed.Name}, nil
}

// Delete removes a calendar from durable storage and from memory.
func (s *CalendarService) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if _, ok := s.lookup(id); !ok {
		return calendarNotFound()
	}

	start := time.Now()
	err := s.repo.Delete(ctx, id)
	s.metrics.ObserveStorage("delete", time.Since(start), err)
	if err != nil {
		s.logger.Error("calendar delete failed", zap.String("calendar_id", id), zap.Error(err))
		return appErrors.WrapAs(appErrors.ErrStorage, err, "failed to delete calendar")
	}

	s.mu.Lock()
	delete(s.calendars, id)
	count := len(s.calendars)
	s.mu.Unlock()
	s.metrics.SetCalendarCount(count)
	s.logger.Info("calendar deleted", zap.String("calendar_id", id))
	return nil
}

// Get returns a deep copy of the calendar suitable as a save base.
func (s *CalendarService) Get(ctx context.Context, id string) (*dto.CalendarSnapshot, error) {
	cal, ok := s.lookup(id)
	if !ok {
		return nil, calendarNotFound()
	}
	return &dto.CalendarSnapshot{
		State:     cal.State.Clone(),
		Revision:  cal.Revision,
		Name:      cal.Name,
		UpdatedAt: cal.UpdatedAt,
	}, nil
}

// Save stores a client's desired state. A save whose base revision is the
// current one, or that carries no base, is taken as is; otherwise it is
// three-way merged against the current state. Saves that change nothing
// keep the revision and skip the write.
func (s *CalendarService) Save(ctx context.Context, id string, in SaveCalendarInput) (*dto.SaveCalendarResponse, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	current, ok := s.lookup(id)
	if !ok {
		return nil, calendarNotFound()
	}

	now := s.now()
	next := NormalizeState(in.State, now)
	if err := next.Validate(); err != nil {
		return nil, s.invariantViolation(id, "incoming", err)
	}

	outcome := SaveOutcomeFastForward
	baseRaw, hasBase := in.BaseState.Get()
	baseRevision, hasRevision := in.BaseRevision.Get()
	if hasBase && hasRevision && baseRevision != current.Revision {
		base := NormalizeState(baseRaw, now)
		if err := base.Validate(); err != nil {
			return nil, s.invariantViolation(id, "base", err)
		}
		if err := current.State.Validate(); err != nil {
			return nil, s.invariantViolation(id, "current", err)
		}

		res := merge.States(current.State, base, next)
		next = res.State
		outcome = SaveOutcomeMerged
		s.metrics.RecordMerge(len(res.Adopted), len(res.Removed))
		s.logger.Info("calendar save merged",
			zap.String("calendar_id", id),
			zap.Int64("base_revision", baseRevision),
			zap.Int64("current_revision", current.Revision),
			zap.Strings("adopted", res.Adopted),
			zap.Strings("removed", res.Removed),
			zap.Strings("settings", res.Settings),
		)
	}

	if merge.Equal(next, current.State) {
		s.metrics.RecordSave(SaveOutcomeNoop)
		return &dto.SaveCalendarResponse{
			Success:  true,
			State:    current.State.Clone(),
			Revision: current.Revision,
			Merged:   outcome == SaveOutcomeMerged,
		}, nil
	}

	updated := &models.Calendar{
		ID:        current.ID,
		Name:      current.Name,
		State:     next,
		Revision:  current.Revision + 1,
		UpdatedAt: now,
	}
	if err := s.persist(ctx, "save", updated); err != nil {
		s.metrics.RecordSave(SaveOutcomeFailed)
		return nil, err
	}
	s.publish(updated)
	s.metrics.RecordSave(outcome)

	return &dto.SaveCalendarResponse{
		Success:  true,
		State:    updated.State.Clone(),
		Revision: updated.Revision,
		Merged:   outcome == SaveOutcomeMerged,
	}, nil
}

// Calendar returns the stored calendar value for read-only use by other
// services (exports).
func (s *CalendarService) Calendar(ctx context.Context, id string) (*models.Calendar, error) {
	cal, ok := s.lookup(id)
	if !ok {
		return nil, calendarNotFound()
	}
	return cal, nil
}

func (s *CalendarService) lookup(id string) (*models.Calendar, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cal, ok := s.calendars[id]
	return cal, ok
}

func (s *CalendarService) publish(cal *models.Calendar) {
	s.mu.Lock()
	s.calendars[cal.ID] = cal
	count := len(s.calendars)
	s.mu.Unlock()
	s.metrics.SetCalendarCount(count)
}

// persist writes the durable record. It must succeed before the registry
// is touched.
func (s *CalendarService) persist(ctx context.Context, operation string, cal *models.Calendar) error {
	start := time.Now()
	err := s.repo.Put(ctx, cal.Record())
	s.metrics.ObserveStorage(operation, time.Since(start), err)
	if err != nil {
		s.logger.Error("calendar persist failed",
			zap.String("calendar_id", cal.ID),
			zap.String("operation", operation),
			zap.Error(err),
		)
		return appErrors.WrapAs(appErrors.ErrStorage, err, "failed to persist calendar")
	}
	return nil
}

func (s *CalendarService) invariantViolation(id, which string, err error) error {
	s.logger.Error("schedule state violates merge invariants",
		zap.String("calendar_id", id),
		zap.String("state", which),
		zap.Error(err),
	)
	return appErrors.WrapAs(appErrors.ErrMergeInvariant, err, "")
}

func calendarNotFound() error {
	return appErrors.Clone(appErrors.ErrNotFound, "calendar not found")
}

// renormalize pushes a stored state through the client normalizer, which
// repairs bucket placement and duplicate ids.
func renormalize(state models.ScheduleState, now time.Time) models.ScheduleState {
	raw, err := json.Marshal(state)
	if err != nil {
		return models.NewScheduleState(now.Format(models.DateLayout))
	}
	return NormalizeState(raw, now)
}

// decodeLegacy accepts either a bare state document or a wrapper of the
// form {"state": ..., "name": ..., "updatedAt": ...}.
func decodeLegacy(raw []byte) (json.RawMessage, string, time.Time) {
	var wrapper struct {
		State     json.RawMessage `json:"state"`
		Name      string          `json:"name"`
		UpdatedAt time.Time       `json:"updatedAt"`
	}
	name := LegacyCalendarName
	if err := json.Unmarshal(raw, &wrapper); err != nil || len(bytes.TrimSpace(wrapper.State)) == 0 || bytes.HasPrefix(bytes.TrimSpace(wrapper.State), []byte("null")) {
		return raw, name, time.Time{}
	}
	if trimmed := strings.TrimSpace(wrapper.Name); trimmed != "" {
		name = trimmed
	}
	return wrapper.State, name, wrapper.UpdatedAt
}
