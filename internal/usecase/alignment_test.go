package usecase

import (
	"testing"
	"time"

	"StratTick/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dueIDs(t *testing.T, instant time.Time, specs []models.StrategySpec) []string {
	t.Helper()
	due, err := Due(instant, specs)
	require.NoError(t, err)
	ids := make([]string, 0, len(due))
	for _, s := range due {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestDue_Boundaries(t *testing.T) {
	specs := []models.StrategySpec{
		spec("m5", models.TF5m, 1),
		spec("h1", models.TF1h, 24),
		spec("h4", models.TF4h, 48),
		spec("d1", models.TF1d, 240),
	}

	cases := []struct {
		at   time.Time
		want []string
	}{
		{time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), []string{"m5", "h1", "h4", "d1"}},
		{time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC), []string{"m5", "h1", "h4"}},
		{time.Date(2024, 1, 5, 13, 0, 0, 0, time.UTC), []string{"m5", "h1"}},
		{time.Date(2024, 1, 5, 13, 5, 0, 0, time.UTC), []string{"m5"}},
		{time.Date(2024, 1, 5, 13, 17, 0, 0, time.UTC), []string{}},
		{time.Date(2024, 1, 5, 13, 0, 1, 0, time.UTC), []string{}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, dueIDs(t, tc.at, specs), tc.at.String())
	}
}

func TestDue_PreservesRegistryOrderAndSkipsDisabled(t *testing.T) {
	off := spec("off", models.TF1h, 24)
	off.Enabled = false
	specs := []models.StrategySpec{spec("z", models.TF1h, 1), off, spec("a", models.TF1h, 1)}

	assert.Equal(t, []string{"z", "a"}, dueIDs(t, time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC), specs))
}

func TestDue_InvalidInstant(t *testing.T) {
	specs := []models.StrategySpec{spec("h1", models.TF1h, 1)}

	_, err := Due(time.Time{}, specs)
	var invalid *models.InvalidInstantError
	require.ErrorAs(t, err, &invalid)

	local := time.Date(2024, 1, 5, 12, 0, 0, 0, time.FixedZone("ICT", 7*3600))
	_, err = Due(local, specs)
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Reason, "UTC")
}
