package service

import (
	"context"
	"fmt"

	"organmatch/internal/common/logger"
	"organmatch/internal/common/metrics"
	"organmatch/internal/matching/labeler"
	"organmatch/internal/repository"

	"github.com/google/uuid"
)

// LabelRun reports one persisted training batch.
type LabelRun struct {
	BatchID   string `json:"batchId"`
	Donors    int    `json:"donors"`
	Receivers int    `json:"receivers"`
	Rows      int    `json:"rows"`
	Positives int    `json:"positives"`
	Negatives int    `json:"negatives"`
}

// TrainingService labels the stored history and writes it back as a batch.
type TrainingService struct {
	dataset repository.Dataset
	sink    repository.TrainingSink
	labeler *labeler.Labeler
	logger  logger.Logger
}

func NewTrainingService(dataset repository.Dataset, sink repository.TrainingSink, l *labeler.Labeler, log logger.Logger) *TrainingService {
	return &TrainingService{
		dataset: dataset,
		sink:    sink,
		labeler: l,
		logger:  log.WithFields(map[string]interface{}{"component": "training-service"}),
	}
}

// Label loads donors and receivers and returns the labeled rows without
// persisting them.
func (s *TrainingService) Label(ctx context.Context) ([]labeler.LabeledPair, *LabelRun, error) {
	donors, err := s.dataset.AllDonors(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load donors: %w", err)
	}
	receivers, err := s.dataset.AllReceivers(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load receivers: %w", err)
	}

	rows, err := s.labeler.Label(ctx, donors, receivers)
	if err != nil {
		return nil, nil, fmt.Errorf("label pairs: %w", err)
	}

	sum := labeler.Summarize(rows)
	metrics.LabeledPairs.WithLabelValues("1").Add(float64(sum.Positives))
	metrics.LabeledPairs.WithLabelValues("0").Add(float64(sum.Negatives))

	return rows, &LabelRun{
		Donors:    len(donors),
		Receivers: len(receivers),
		Rows:      sum.Rows,
		Positives: sum.Positives,
		Negatives: sum.Negatives,
	}, nil
}

// Run labels the dataset and stores it under a fresh batch id.
func (s *TrainingService) Run(ctx context.Context) (*LabelRun, error) {
	rows, run, err := s.Label(ctx)
	if err != nil {
		return nil, err
	}

	run.BatchID = uuid.NewString()
	if _, err := s.sink.InsertTrainingPairs(ctx, run.BatchID, rows); err != nil {
		return nil, fmt.Errorf("store batch %s: %w", run.BatchID, err)
	}

	s.logger.Info("training batch stored", map[string]interface{}{
		"batchId":   run.BatchID,
		"donors":    run.Donors,
		"receivers": run.Receivers,
		"rows":      run.Rows,
		"positives": run.Positives,
	})
	return run, nil
}
