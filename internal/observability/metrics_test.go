package observability

import (
	"testing"
	"time"

	"github.com/danmuck/petctl/internal/testutil/testlog"
	"github.com/rs/zerolog/log"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("GET", "/params", 200, 12*time.Millisecond)
	RecordServiceEvent("message")
	RecordRejectedMessage()
	RecordRoundReset()
	RecordRoundCompleted()
	RecordPhase(2)

	log.Info().Msg("observability/metrics: registration idempotent and recording paths executed")
}
