// ABOUTME: Tests for cron schedule parsing and scheduled sync ticks
// ABOUTME: Uses a stub runner to observe which users are synced
package sync

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	users []uuid.UUID
}

func (s *stubRunner) RunAll(_ context.Context, userID uuid.UUID) Report {
	s.users = append(s.users, userID)
	return Report{UserID: userID}
}

func TestParseSchedule(t *testing.T) {
	for _, expr := range []string{"*/15 * * * *", "0 */5 * * * *", "@hourly"} {
		_, err := ParseSchedule(expr)
		assert.NoError(t, err, expr)
	}

	_, err := ParseSchedule("")
	assert.Error(t, err)
	_, err = ParseSchedule("every tuesday")
	assert.Error(t, err)
}

func TestSchedulerRunNowSyncsEveryUser(t *testing.T) {
	runner := &stubRunner{}
	users := []uuid.UUID{uuid.New(), uuid.New()}

	s, err := NewScheduler("@every 1h", runner, users, zerolog.Nop())
	require.NoError(t, err)

	var reports []Report
	s.OnReport = func(r Report) { reports = append(reports, r) }
	s.RunNow()

	assert.Equal(t, users, runner.users)
	assert.Len(t, reports, 2)
}

func TestSchedulerStartStop(t *testing.T) {
	s, err := NewScheduler("@daily", &stubRunner{}, nil, zerolog.Nop())
	require.NoError(t, err)
	s.Start()
	s.Stop(context.Background())
}
