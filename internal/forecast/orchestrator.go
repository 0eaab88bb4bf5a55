package forecast

import (
	"context"
	"errors"
	"time"

	"smart-budget-planner/internal/dateutils"
	"smart-budget-planner/internal/forecasterror"
	"smart-budget-planner/internal/logging"
	"smart-budget-planner/internal/models"
	"smart-budget-planner/internal/regression"
)

const opRun = "run forecast"

// HistoryProvider returns a user's transactions with timestamps in the
// inclusive range [from, to].
type HistoryProvider interface {
	FetchHistory(ctx context.Context, userID string, from, to time.Time) ([]models.Transaction, error)
}

// HistoryProviderFunc adapts a function to HistoryProvider.
type HistoryProviderFunc func(ctx context.Context, userID string, from, to time.Time) ([]models.Transaction, error)

// FetchHistory calls f.
func (f HistoryProviderFunc) FetchHistory(ctx context.Context, userID string, from, to time.Time) ([]models.Transaction, error) {
	return f(ctx, userID, from, to)
}

// Orchestrator runs the forecast pipeline for one request at a time. It keeps
// no state between calls and a new model is built for every run.
type Orchestrator struct {
	history  HistoryProvider
	newModel ModelFactory
	now      func() time.Time
	timeout  time.Duration
	logger   logging.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the clock used to compute the history window.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithModelFactory overrides the model used for fitting.
func WithModelFactory(f ModelFactory) Option {
	return func(o *Orchestrator) {
		if f != nil {
			o.newModel = f
		}
	}
}

// WithTimeout bounds every run. Zero means only the caller's deadline applies.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.timeout = d
	}
}

// NewOrchestrator creates an Orchestrator reading history from provider.
func NewOrchestrator(provider HistoryProvider, logger logging.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logging.Nop()
	}
	o := &Orchestrator{
		history: provider,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.newModel == nil {
		o.newModel = NewForestModelFactory(regression.Config{}, logger)
	}
	return o
}

// Run answers whether the current month will end over or under budget.
//
// userID must already be resolved from the caller's credential. The training
// history is the trailing 365 days ending today (UTC) and the target month is
// the month of the first current-month entry.
func (o *Orchestrator) Run(ctx context.Context, userID string, req models.ForecastRequest) (models.ForecastResult, error) {
	if userID == "" {
		return models.ForecastResult{}, forecasterror.Unauth(opRun, "no user resolved for request")
	}
	if len(req.CurrentMonthTransactions) == 0 {
		return models.ForecastResult{}, forecasterror.Malformed(opRun, "current_month_transactions must not be empty")
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	log := o.logger.WithFields(
		logging.Field{Key: logging.FieldComponent, Value: logging.ComponentForecast},
		logging.Field{Key: logging.FieldUserID, Value: userID})

	from, to := dateutils.TrailingWindow(o.now())
	history, err := o.history.FetchHistory(ctx, userID, from, to)
	if err != nil {
		log.WithError(err).Warn("Failed to fetch history")
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.ForecastResult{}, forecasterror.Deadline(opRun, err)
		}
		return models.ForecastResult{}, forecasterror.StorageFailure(opRun, err)
	}

	series := Aggregate(history, req.CurrentMonthTransactions)
	log.Debug("Aggregated training series",
		logging.Field{Key: logging.FieldCount, Value: len(history)},
		logging.Field{Key: logging.FieldObservations, Value: len(series)})

	// Fitting cannot be interrupted, so the deadline is checked once before it.
	if err := ctx.Err(); err != nil {
		return models.ForecastResult{}, forecasterror.Deadline(opRun, err)
	}

	target := req.TargetMonth()
	projection, err := o.newModel().FitAndProject(series, target)
	if err != nil {
		log.WithError(err).Warn("Forecast model failed",
			logging.Field{Key: logging.FieldErrorKind, Value: string(forecasterror.KindOf(err))})
		return models.ForecastResult{}, err
	}

	verdict := Evaluate(req.Budget, projection.ProjectedTotal)
	log.Info("Forecast complete",
		logging.Field{Key: logging.FieldTargetMonth, Value: target},
		logging.Field{Key: logging.FieldProjected, Value: projection.ProjectedTotal.String()},
		logging.Field{Key: logging.FieldBudget, Value: req.Budget.String()},
		logging.Field{Key: logging.FieldStatus, Value: string(verdict.Status)},
		logging.Field{Key: logging.FieldAccuracy, Value: projection.FitScore})

	return models.ForecastResult{
		Status:     verdict.Status,
		Difference: verdict.Difference,
		Accuracy:   projection.FitScore,
	}, nil
}
