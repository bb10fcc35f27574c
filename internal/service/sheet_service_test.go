package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/gradesheet/internal/dto"
	"github.com/noah-isme/gradesheet/internal/models"
	appErrors "github.com/noah-isme/gradesheet/pkg/errors"
)

type sheetRepoStub struct {
	mu      sync.Mutex
	sheets  map[string]models.SheetSnapshot
	saveErr error
	saves   int
}

func newSheetRepoStub() *sheetRepoStub {
	return &sheetRepoStub{sheets: map[string]models.SheetSnapshot{}}
}

func (s *sheetRepoStub) Get(ctx context.Context, id string) (*models.SheetSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.sheets[id]
	if !ok {
		return nil, appErrors.ErrSheetNotFound
	}
	snap.Rows = append([]models.SheetRow(nil), snap.Rows...)
	return &snap, nil
}

func (s *sheetRepoStub) Save(ctx context.Context, snap *models.SheetSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.sheets[snap.ID] = *snap
	return nil
}

func (s *sheetRepoStub) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sheets[id]; !ok {
		return appErrors.ErrSheetNotFound
	}
	delete(s.sheets, id)
	return nil
}

func (s *sheetRepoStub) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sheets), nil
}

func newSheetServiceForTest(t *testing.T) (*SheetService, *sheetRepoStub, *MetricsService) {
	t.Helper()
	repo := newSheetRepoStub()
	metrics := NewMetricsService()
	svc := NewSheetService(repo, SheetServiceConfig{}, nil, metrics, zap.NewNop())
	svc.newID = sequentialIDs()
	svc.now = func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }
	return svc, repo, metrics
}

func setGrade(t *testing.T, svc *SheetService, sheetID, rowID, grade string) {
	t.Helper()
	_, err := svc.UpdateRow(context.Background(), sheetID, rowID, dto.UpdateRowRequest{GradeText: &grade})
	require.NoError(t, err)
}

func TestSheetServiceCreate(t *testing.T) {
	svc, repo, metrics := newSheetServiceForTest(t)
	view, err := svc.Create(context.Background())
	require.NoError(t, err)

	require.Len(t, view.Rows, 1)
	assert.Equal(t, models.DefaultSubject, view.Rows[0].Subject)
	assert.Equal(t, "0", view.Slots[string(models.SlotAverage)])
	assert.Len(t, eventsOfType(view.Events, dto.EventWriteSlot), len(models.OutputSlots))

	stored, err := repo.Get(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Rows, 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.activeSheets))
}

func TestSheetServiceFlow(t *testing.T) {
	svc, _, metrics := newSheetServiceForTest(t)
	ctx := context.Background()

	view, err := svc.Create(ctx)
	require.NoError(t, err)
	sheetID := view.ID
	firstRow := view.Rows[0].ID

	view, err = svc.AddRow(ctx, sheetID)
	require.NoError(t, err)
	require.Len(t, view.Rows, 2)
	secondRow := view.Rows[1].ID
	assert.Len(t, eventsOfType(view.Events, dto.EventInsertRow), 1)

	view, err = svc.AddRow(ctx, sheetID)
	require.NoError(t, err)
	thirdRow := view.Rows[2].ID

	setGrade(t, svc, sheetID, firstRow, "8")
	setGrade(t, svc, sheetID, secondRow, "oops")
	setGrade(t, svc, sheetID, thirdRow, "9,5")

	view, err = svc.Calculate(ctx, sheetID)
	require.NoError(t, err)
	require.NotNil(t, view.Statistics)
	assert.Equal(t, []int{2}, view.Statistics.InvalidSequenceNumbers)
	assert.Equal(t, 8.8, view.Statistics.Average)
	assert.Equal(t, "8.8", view.Slots[string(models.SlotAverage)])
	assert.Equal(t, models.ValidationInvalid, view.Rows[1].State)

	view, err = svc.RemoveRow(ctx, sheetID, secondRow)
	require.NoError(t, err)
	require.Len(t, view.Rows, 2)
	assert.Equal(t, 2, view.Rows[1].SequenceNumber)
	assert.Equal(t, thirdRow, view.Rows[1].ID)
	assert.Equal(t, "8.8", view.Slots[string(models.SlotAverage)], "slots persist until the next calculation")

	view, err = svc.Calculate(ctx, sheetID)
	require.NoError(t, err)
	assert.Empty(t, view.Statistics.InvalidSequenceNumbers)
	assert.Empty(t, eventsOfType(view.Events, dto.EventAlert))

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.calculations))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.invalidEntries))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.sheetActions.WithLabelValues("add_row")))
}

func TestSheetServiceRemoveLastRow(t *testing.T) {
	svc, repo, metrics := newSheetServiceForTest(t)
	ctx := context.Background()
	view, err := svc.Create(ctx)
	require.NoError(t, err)
	saves := repo.saves

	blocked, err := svc.RemoveRow(ctx, view.ID, view.Rows[0].ID)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrLastRow))
	require.NotNil(t, blocked)
	require.Len(t, blocked.Rows, 1)
	alerts := eventsOfType(blocked.Events, dto.EventAlert)
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Message, "The last one cannot be removed.")
	assert.Equal(t, saves, repo.saves)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.lastRowBlocked))

	current, err := svc.Get(ctx, view.ID)
	require.NoError(t, err)
	assert.Len(t, current.Rows, 1)
}

func TestSheetServiceUnknownSheet(t *testing.T) {
	svc, _, _ := newSheetServiceForTest(t)
	_, err := svc.Calculate(context.Background(), "nope")
	assert.True(t, appErrors.Is(err, appErrors.ErrSheetNotFound))

	err = svc.Delete(context.Background(), "nope")
	assert.True(t, appErrors.Is(err, appErrors.ErrSheetNotFound))
}

func TestSheetServiceUpdateValidation(t *testing.T) {
	svc, _, _ := newSheetServiceForTest(t)
	ctx := context.Background()
	view, err := svc.Create(ctx)
	require.NoError(t, err)

	long := fmt.Sprintf("%065d", 1)
	_, err = svc.UpdateRow(ctx, view.ID, view.Rows[0].ID, dto.UpdateRowRequest{GradeText: &long})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	subject := "Alquimia"
	_, err = svc.UpdateRow(ctx, view.ID, view.Rows[0].ID, dto.UpdateRowRequest{Subject: &subject})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.UpdateRow(ctx, view.ID, "missing", dto.UpdateRowRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrRowNotFound))
}

func TestSheetServiceSaveFailure(t *testing.T) {
	svc, repo, _ := newSheetServiceForTest(t)
	repo.saveErr = errors.New("disk full")

	_, err := svc.Create(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
}

func TestSheetServiceSerializesActionsPerSheet(t *testing.T) {
	svc, _, _ := newSheetServiceForTest(t)
	ctx := context.Background()
	view, err := svc.Create(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddRow(ctx, view.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	current, err := svc.Get(ctx, view.ID)
	require.NoError(t, err)
	assert.Len(t, current.Rows, 21)
	assertContiguous(t, current.Rows)
	assert.Empty(t, svc.locks)
}

func TestSheetServiceStatistics(t *testing.T) {
	svc, repo, _ := newSheetServiceForTest(t)
	ctx := context.Background()
	view, err := svc.Create(ctx)
	require.NoError(t, err)
	setGrade(t, svc, view.ID, view.Rows[0].ID, "11")
	saves := repo.saves

	rows, res, err := svc.Statistics(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, res.InvalidSequenceNumbers)
	assert.Equal(t, models.ValidationInvalid, rows[0].State)
	assert.Equal(t, saves, repo.saves)
}

type purgingRepoStub struct {
	*sheetRepoStub
	purged int
}

func (p *purgingRepoStub) Purge(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.sheets)
	p.sheets = map[string]models.SheetSnapshot{}
	p.purged += n
	return n, nil
}

func TestSheetServiceSweep(t *testing.T) {
	repo := &purgingRepoStub{sheetRepoStub: newSheetRepoStub()}
	metrics := NewMetricsService()
	svc := NewSheetService(repo, SheetServiceConfig{}, nil, metrics, zap.NewNop())
	ctx := context.Background()
	_, err := svc.Create(ctx)
	require.NoError(t, err)
	_, err = svc.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.activeSheets))

	require.NoError(t, svc.Sweep(ctx))
	assert.Equal(t, 2, repo.purged)
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.activeSheets))
}

func TestSheetServiceSweepWithoutPurger(t *testing.T) {
	svc, repo, metrics := newSheetServiceForTest(t)
	_, err := svc.Create(context.Background())
	require.NoError(t, err)
	repo.sheets = map[string]models.SheetSnapshot{}
	require.NoError(t, svc.Sweep(context.Background()))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.activeSheets))
}
