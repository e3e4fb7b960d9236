package practice

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/dentaldesk/dentaldesk/internal/platform/apperr"
)

var (
	membershipOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dentaldesk",
			Name:      "membership_operations_total",
			Help:      "Membership operations by outcome (success or error code)",
		},
		[]string{"operation", "outcome"},
	)

	compensationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dentaldesk",
			Name:      "membership_compensations_total",
			Help:      "Compensating actions attempted after a failed membership step",
		},
		[]string{"operation", "step", "result"},
	)
)

// compensationTimeout bounds rollback work, which runs detached from the
// request's cancellation.
const compensationTimeout = 10 * time.Second

// step is one unit of a saga. kind classifies a failure of do unless do
// already returned an *apperr.Error. undo, when set, is registered once do
// succeeds and runs if a later step fails.
type step struct {
	name string
	kind apperr.Kind
	do   func(ctx context.Context) error
	undo func(ctx context.Context) error
}

// saga runs steps in order and, on the first failure, runs the registered
// undos in reverse. Each undo is tried once; undo failures are collected and
// attached to the original error without changing its kind.
type saga struct {
	op    string
	steps []step
}

func newSaga(op string, steps ...step) *saga {
	return &saga{op: op, steps: steps}
}

func (s *saga) run(ctx context.Context) error {
	logger := zerolog.Ctx(ctx).With().Str("operation", s.op).Logger()

	var completed []step
	for _, st := range s.steps {
		err := st.do(ctx)
		if err == nil {
			if st.undo != nil {
				completed = append(completed, st)
			}
			continue
		}

		classified := classify(st.kind, s.op+"."+st.name, err)
		logger.Warn().Err(err).Str("step", st.name).Str("error_code", apperr.KindOf(classified).Code()).
			Msg("membership step failed")

		if compErr := s.compensate(ctx, logger, completed); compErr != nil {
			classified = apperr.WithCompensation(classified, compErr)
		}
		membershipOpsTotal.WithLabelValues(s.op, apperr.KindOf(classified).Code()).Inc()
		return classified
	}

	membershipOpsTotal.WithLabelValues(s.op, "success").Inc()
	return nil
}

func (s *saga) compensate(ctx context.Context, logger zerolog.Logger, completed []step) error {
	if len(completed) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	var errs []error
	for i := len(completed) - 1; i >= 0; i-- {
		st := completed[i]
		if err := st.undo(ctx); err != nil {
			compensationsTotal.WithLabelValues(s.op, st.name, "failed").Inc()
			logger.Error().Err(err).Str("step", st.name).Msg("compensation failed; manual cleanup required")
			errs = append(errs, err)
			continue
		}
		compensationsTotal.WithLabelValues(s.op, st.name, "ok").Inc()
		logger.Info().Str("step", st.name).Msg("compensation applied")
	}
	return errors.Join(errs...)
}

// classify keeps kinds chosen inside a step and wraps everything else with
// the step's kind.
func classify(kind apperr.Kind, op string, err error) error {
	if apperr.KindOf(err) != apperr.Unknown {
		return err
	}
	return apperr.Wrap(kind, op, err)
}
