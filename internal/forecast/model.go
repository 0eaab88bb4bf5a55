package forecast

import (
	"smart-budget-planner/internal/forecasterror"
	"smart-budget-planner/internal/logging"
	"smart-budget-planner/internal/models"
	"smart-budget-planner/internal/regression"

	"github.com/shopspring/decimal"
)

const opFit = "fit forecast model"

// minProjectionPlaces keeps cents when every total is a whole amount.
const minProjectionPlaces = 2

// Projection is the model's estimate for the target month and its in-sample
// fit score.
type Projection struct {
	ProjectedTotal decimal.Decimal
	// FitScore is R² on the training series itself. It measures how well the
	// ensemble memorised the data, not how well it generalises.
	FitScore float64
}

// Model fits a training series and projects one month.
type Model interface {
	FitAndProject(series models.TrainingSeries, targetMonth int) (Projection, error)
}

// ModelFactory returns a fresh Model for every request.
type ModelFactory func() Model

// ForestModel regresses monthly totals on the month number with a tree
// ensemble. The month is a single raw numeric feature.
type ForestModel struct {
	cfg    regression.Config
	logger logging.Logger
}

// NewForestModel creates a ForestModel.
func NewForestModel(cfg regression.Config, logger logging.Logger) *ForestModel {
	if logger == nil {
		logger = logging.Nop()
	}
	return &ForestModel{cfg: cfg, logger: logger}
}

// NewForestModelFactory returns a factory producing ForestModels with cfg.
func NewForestModelFactory(cfg regression.Config, logger logging.Logger) ModelFactory {
	return func() Model {
		return NewForestModel(cfg, logger)
	}
}

// FitAndProject trains a new ensemble on series and predicts targetMonth.
// A month absent from the series is still predicted; no extrapolation or
// seasonality is applied. The projection is rounded to the series' largest
// decimal scale, with at least two places.
func (m *ForestModel) FitAndProject(series models.TrainingSeries, targetMonth int) (Projection, error) {
	if targetMonth < 1 || targetMonth > 12 {
		return Projection{}, forecasterror.Malformedf(opFit, "target month %d is outside 1..12", targetMonth)
	}
	if len(series) == 0 {
		return Projection{}, forecasterror.NoData(opFit)
	}

	x, y := series.Months(), series.Totals()
	forest := regression.NewForest(m.cfg)
	if err := forest.Fit(x, y); err != nil {
		return Projection{}, forecasterror.Wrap(forecasterror.Internal, opFit, "training failed", err)
	}

	predicted, err := forest.Predict(float64(targetMonth))
	if err != nil {
		return Projection{}, forecasterror.Wrap(forecasterror.Internal, opFit, "prediction failed", err)
	}
	score, err := forest.Score(x, y)
	if err != nil {
		return Projection{}, forecasterror.Wrap(forecasterror.Internal, opFit, "scoring failed", err)
	}

	m.logger.Debug("Fitted forecast model",
		logging.Field{Key: logging.FieldObservations, Value: len(series)},
		logging.Field{Key: logging.FieldTargetMonth, Value: targetMonth},
		logging.Field{Key: logging.FieldProjected, Value: predicted},
		logging.Field{Key: logging.FieldAccuracy, Value: score})

	// The ensemble works in float64; round its noise away at the precision
	// of the series so an exact match with the budget stays exact.
	places := series.Scale()
	if places < minProjectionPlaces {
		places = minProjectionPlaces
	}

	return Projection{
		ProjectedTotal: decimal.NewFromFloat(predicted).Round(places),
		FitScore:       score,
	}, nil
}
