package session

import (
	"errors"
	"time"

	domerrors "github.com/garyellow/campus-interview-bot/internal/errors"
	"github.com/garyellow/campus-interview-bot/internal/metrics"
)

func observe(m *metrics.Metrics, backend, op string, start time.Time, err error) {
	status := "ok"
	switch {
	case errors.Is(err, domerrors.ErrNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	m.RecordSessionOp(backend, op, status, time.Since(start))
}
