package worker

import (
	"context"

	"go.uber.org/zap"
)

// LogPerformer implements capture.Performer for builds where the real
// archiving worker is not attached: it logs the URL and reports success.
// The Performer seam is where actual capture logic plugs in.
type LogPerformer struct {
	logger *zap.Logger
}

// NewLogPerformer creates a LogPerformer.
func NewLogPerformer(logger *zap.Logger) *LogPerformer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPerformer{logger: logger}
}

// Perform logs the capture target and succeeds.
func (p *LogPerformer) Perform(_ context.Context, url string) error {
	p.logger.Info("capture performed", zap.String("url", url))
	return nil
}
