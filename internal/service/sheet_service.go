package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/gradesheet/internal/dto"
	"github.com/noah-isme/gradesheet/internal/models"
	appErrors "github.com/noah-isme/gradesheet/pkg/errors"
	"github.com/noah-isme/gradesheet/pkg/logger"
)

// SheetRepository persists sheet snapshots between actions.
type SheetRepository interface {
	Get(ctx context.Context, id string) (*models.SheetSnapshot, error)
	Save(ctx context.Context, snap *models.SheetSnapshot) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// sheetPurger is implemented by stores that do not expire entries on their own.
type sheetPurger interface {
	Purge(ctx context.Context) (int, error)
}

// SheetServiceConfig tunes sheet behaviour.
type SheetServiceConfig struct {
	Catalog     *models.SubjectCatalog
	Transition  time.Duration
	SettleDelay time.Duration
}

// SheetService runs discipline actions against stored sheets. Actions on one
// sheet are serialized, mirroring a page that handles one click at a time.
type SheetService struct {
	repo      SheetRepository
	engine    *StatisticsEngine
	cfg       SheetServiceConfig
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string

	mu    sync.Mutex
	locks map[string]*sheetLock
}

type sheetLock struct {
	mu   sync.Mutex
	refs int
}

// NewSheetService constructs SheetService.
func NewSheetService(repo SheetRepository, cfg SheetServiceConfig, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *SheetService {
	if cfg.Catalog == nil {
		cfg.Catalog = models.NewSubjectCatalog(nil, models.DefaultSubject)
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SheetService{
		repo:      repo,
		engine:    NewStatisticsEngine(),
		cfg:       cfg,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
		locks:     make(map[string]*sheetLock),
	}
}

// Subjects returns the selectable subjects.
func (s *SheetService) Subjects() dto.SubjectList {
	return dto.SubjectList{Subjects: s.cfg.Catalog.Subjects, Default: s.cfg.Catalog.Default}
}

// Create starts a sheet with a single blank row and zeroed results.
func (s *SheetService) Create(ctx context.Context) (*dto.SheetView, error) {
	now := s.now().UTC()
	snap := &models.SheetSnapshot{ID: s.newID(), CreatedAt: now, UpdatedAt: now}

	recorder := NewEventRecorder(nil)
	ws := s.workspace(snap, recorder)
	ws.Init()

	if err := s.save(ctx, snap, ws, recorder); err != nil {
		return nil, err
	}
	s.metrics.RecordSheetAction("create")
	s.refreshActiveSheets(ctx)
	logger.FromContext(ctx, s.logger).Info("sheet created", zap.String("sheet_id", snap.ID))
	return s.view(snap.ID, ws, recorder, nil), nil
}

// Get returns the sheet as last stored.
func (s *SheetService) Get(ctx context.Context, id string) (*dto.SheetView, error) {
	snap, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	recorder := NewEventRecorder(snap.Slots)
	ws := s.workspace(snap, recorder)
	return s.view(snap.ID, ws, recorder, nil), nil
}

// Delete drops a sheet.
func (s *SheetService) Delete(ctx context.Context, id string) error {
	release := s.lock(id)
	defer release()
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.repoError(err, "failed to delete sheet")
	}
	s.metrics.RecordSheetAction("delete")
	s.refreshActiveSheets(ctx)
	return nil
}

// AddRow appends a blank discipline row.
func (s *SheetService) AddRow(ctx context.Context, id string) (*dto.SheetView, error) {
	return s.mutate(ctx, id, "add_row", func(ws *Workspace) (*models.StatisticsResult, error) {
		ws.AddDiscipline()
		return nil, nil
	})
}

// UpdateRow edits a row's subject and/or grade text.
func (s *SheetService) UpdateRow(ctx context.Context, id, rowID string, req dto.UpdateRowRequest) (*dto.SheetView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid discipline payload")
	}
	return s.mutate(ctx, id, "update_row", func(ws *Workspace) (*models.StatisticsResult, error) {
		_, err := ws.UpdateDiscipline(rowID, req.Subject, req.GradeText)
		return nil, err
	})
}

// RemoveRow deletes a discipline row. Removing the last row fails with
// ErrLastRow and still returns the unchanged view carrying the alert event.
func (s *SheetService) RemoveRow(ctx context.Context, id, rowID string) (*dto.SheetView, error) {
	view, err := s.mutate(ctx, id, "remove_row", func(ws *Workspace) (*models.StatisticsResult, error) {
		return nil, ws.RemoveDiscipline(rowID)
	})
	if appErrors.Is(err, appErrors.ErrLastRow) {
		s.metrics.RecordLastRowBlocked()
		logger.FromContext(ctx, s.logger).Info("last discipline removal blocked", zap.String("sheet_id", id), zap.String("row_id", rowID))
	}
	return view, err
}

// Calculate computes statistics and returns them with the projection events.
func (s *SheetService) Calculate(ctx context.Context, id string) (*dto.SheetView, error) {
	return s.mutate(ctx, id, "calculate", func(ws *Workspace) (*models.StatisticsResult, error) {
		res := ws.Calculate()
		s.metrics.RecordCalculation(res.Count, len(res.InvalidSequenceNumbers))
		return &res, nil
	})
}

// Statistics evaluates a sheet without projecting or storing anything.
func (s *SheetService) Statistics(ctx context.Context, id string) ([]models.Row, *models.StatisticsResult, error) {
	snap, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	ws := s.workspace(snap, NopSurface{})
	eval := ws.Evaluate()
	rows := ws.Rows()
	for i := range rows {
		rows[i].State = eval.States[rows[i].ID]
	}
	return rows, &eval.Result, nil
}

// Sweep purges expired sheets where the store needs it and refreshes the
// active sheet gauge.
func (s *SheetService) Sweep(ctx context.Context) error {
	if purger, ok := s.repo.(sheetPurger); ok {
		removed, err := purger.Purge(ctx)
		if err != nil {
			return s.repoError(err, "failed to purge sheets")
		}
		if removed > 0 {
			s.logger.Info("expired sheets purged", zap.Int("removed", removed))
		}
	}
	s.refreshActiveSheets(ctx)
	return nil
}

func (s *SheetService) mutate(ctx context.Context, id, action string, fn func(*Workspace) (*models.StatisticsResult, error)) (*dto.SheetView, error) {
	release := s.lock(id)
	defer release()

	snap, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	recorder := NewEventRecorder(snap.Slots)
	ws := s.workspace(snap, recorder)

	stats, err := fn(ws)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrLastRow) {
			// Nothing is saved, but the alert still has to reach the page.
			return s.view(id, ws, recorder, nil), err
		}
		return nil, err
	}
	if err := s.save(ctx, snap, ws, recorder); err != nil {
		return nil, err
	}
	s.metrics.RecordSheetAction(action)
	logger.FromContext(ctx, s.logger).Debug("sheet action applied", zap.String("sheet_id", id), zap.String("action", action), zap.Int("rows", len(snap.Rows)))
	return s.view(id, ws, recorder, stats), nil
}

func (s *SheetService) workspace(snap *models.SheetSnapshot, surface Surface) *Workspace {
	rows := RestoreRowManager(surface, RowManagerOptions{
		Catalog:     s.cfg.Catalog,
		Transition:  s.cfg.Transition,
		SettleDelay: s.cfg.SettleDelay,
	}, snap.Rows)
	return NewWorkspace(rows, s.engine, surface)
}

func (s *SheetService) load(ctx context.Context, id string) (*models.SheetSnapshot, error) {
	snap, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.repoError(err, "failed to load sheet")
	}
	return snap, nil
}

func (s *SheetService) save(ctx context.Context, snap *models.SheetSnapshot, ws *Workspace, recorder *EventRecorder) error {
	snap.Rows = ws.Snapshot()
	snap.Slots = recorder.Slots()
	snap.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, snap); err != nil {
		return s.repoError(err, "failed to save sheet")
	}
	return nil
}

func (s *SheetService) view(id string, ws *Workspace, recorder *EventRecorder, stats *models.StatisticsResult) *dto.SheetView {
	return &dto.SheetView{
		ID:         id,
		Rows:       ws.Rows(),
		Slots:      recorder.Slots(),
		Statistics: stats,
		Events:     recorder.Events(),
	}
}

func (s *SheetService) repoError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	s.logger.Error(message, zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *SheetService) refreshActiveSheets(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	n, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.Warn("count sheets failed", zap.Error(err))
		return
	}
	s.metrics.SetActiveSheets(n)
}

// lock serializes actions per sheet and returns the matching unlock.
func (s *SheetService) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sheetLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}
