package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/dto"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/model"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/repository"
	pkgerrors "github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/errors"
)

// ── exercise errors ──

var (
	ErrExerciseNotFound    = pkgerrors.NotFound("exercise")
	ErrTooManyAnswers      = pkgerrors.Validation("more answers than gaps")
	ErrGapAnswerMismatch   = pkgerrors.Validation("the number of answers must match the number of gaps")
	ErrExerciseWithoutGaps = pkgerrors.Validation("exercise text has no gaps")
)

// ExerciseService gap-fill exercises.
type ExerciseService interface {
	Create(ctx context.Context, req *dto.CreateExerciseRequest) (*dto.ExerciseResponse, error)
	Get(ctx context.Context, id string) (*dto.ExerciseResponse, error)
	List(ctx context.Context, req *dto.ExerciseListRequest) ([]dto.ExerciseResponse, error)
	// Submit grades the answers and records the completion.
	Submit(ctx context.Context, userID, exerciseID string, req *dto.SubmitExerciseRequest) (*dto.ExerciseResultResponse, error)
}

type exerciseService struct {
	repo     *repository.Repository
	progress ProgressService
	logger   *zap.Logger
}

// NewExerciseService creates an ExerciseService.
func NewExerciseService(repo *repository.Repository, progress ProgressService, logger *zap.Logger) ExerciseService {
	return &exerciseService{repo: repo, progress: progress, logger: logger}
}

func (s *exerciseService) Create(ctx context.Context, req *dto.CreateExerciseRequest) (*dto.ExerciseResponse, error) {
	gaps := strings.Count(req.Text, model.GapMarker)
	if gaps == 0 {
		return nil, ErrExerciseWithoutGaps
	}
	if gaps != len(req.Answers) {
		return nil, ErrGapAnswerMismatch
	}

	answers := make([]string, len(req.Answers))
	for i, a := range req.Answers {
		answers[i] = strings.TrimSpace(a)
	}
	e := &model.Exercise{
		Title:   strings.TrimSpace(req.Title),
		Unit:    strings.TrimSpace(req.Unit),
		Text:    req.Text,
		Answers: answers,
	}
	if err := s.repo.Exercise.Create(ctx, e); err != nil {
		s.logger.Error("create exercise failed", zap.Error(err))
		return nil, err
	}
	return toExerciseResponse(e), nil
}

func (s *exerciseService) Get(ctx context.Context, id string) (*dto.ExerciseResponse, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toExerciseResponse(e), nil
}

func (s *exerciseService) List(ctx context.Context, req *dto.ExerciseListRequest) ([]dto.ExerciseResponse, error) {
	rows, err := s.repo.Exercise.List(ctx, req.Unit)
	if err != nil {
		s.logger.Error("list exercises failed", zap.Error(err))
		return nil, err
	}
	out := make([]dto.ExerciseResponse, 0, len(rows))
	for i := range rows {
		out = append(out, *toExerciseResponse(&rows[i]))
	}
	return out, nil
}

// ────────────────────── Submit ──────────────────────

func (s *exerciseService) Submit(ctx context.Context, userID, exerciseID string, req *dto.SubmitExerciseRequest) (*dto.ExerciseResultResponse, error) {
	e, err := s.load(ctx, exerciseID)
	if err != nil {
		return nil, err
	}
	if len(req.Answers) > len(e.Answers) {
		return nil, ErrTooManyAnswers
	}

	gaps, correct := Grade(e.Answers, req.Answers)

	completion, err := s.progress.RecordCompletion(ctx, Completion{
		UserID:     userID,
		Correct:    correct,
		Total:      len(e.Answers),
		Reason:     model.PointsReasonExercise,
		SourceID:   e.ID,
		ExerciseID: e.ID,
	})
	if err != nil {
		return nil, err
	}

	return &dto.ExerciseResultResponse{
		ExerciseID: e.ID,
		Correct:    correct,
		Total:      len(e.Answers),
		Gaps:       gaps,
		Completion: *completion,
	}, nil
}

func (s *exerciseService) load(ctx context.Context, id string) (*model.Exercise, error) {
	e, err := s.repo.Exercise.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExerciseNotFound
		}
		s.logger.Error("load exercise failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return e, nil
}

// Grade compares given answers with the expected ones gap by gap. Missing
// answers count as wrong. Comparison ignores case and surrounding or
// repeated whitespace.
func Grade(expected, given []string) ([]dto.GapResult, int) {
	gaps := make([]dto.GapResult, len(expected))
	correct := 0
	for i, want := range expected {
		got := ""
		if i < len(given) {
			got = given[i]
		}
		ok := normalizeAnswer(got) != "" && normalizeAnswer(got) == normalizeAnswer(want)
		if ok {
			correct++
		}
		gaps[i] = dto.GapResult{Index: i, Given: got, Expected: want, Correct: ok}
	}
	return gaps, correct
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func toExerciseResponse(e *model.Exercise) *dto.ExerciseResponse {
	return &dto.ExerciseResponse{
		ID:    e.ID,
		Title: e.Title,
		Unit:  e.Unit,
		Text:  e.Text,
		Gaps:  len(e.Answers),
	}
}
