package assessment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/transaction-shield-backend/internal/domain/errors"
)

func trainingBatch() []TrainingTransaction {
	return []TrainingTransaction{
		{Amount: 3000, Hour: 9, Location: "home"},
		{Amount: 3200, Hour: 10, Location: "home"},
		{Amount: 2800, Hour: 14, Location: "work"},
		{Amount: 3100, Hour: 14, Location: "home"},
		{Amount: 2900, Hour: 15, Location: "work"},
		{Amount: 3050, Hour: 9, Location: "home"},
	}
}

func TestTrainRequiresMinimumBatch(t *testing.T) {
	svc, _ := newService(t)
	session := svc.NewTrainingSession()

	_, err := session.Train(context.Background(), trainingBatch()[:2], nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestTrainBuildsProfile(t *testing.T) {
	svc, _ := newService(t)
	session := svc.NewTrainingSession()
	ctx := context.Background()

	summary, err := session.Train(ctx, trainingBatch(), []string{"vacation"})
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, len(trainingBatch()), summary.TransactionCount)
	// The learned mean tracks the batch but excludes outliers the
	// eligibility gate filtered out along the way.
	assert.InDelta(t, 3087.5, summary.AmountMean, 0.01)
	// Batch locations and the explicit one are all trusted.
	assert.ElementsMatch(t, []string{"vacation", "home", "work"}, summary.TrustedLocations)
}

func TestTrainIsRepeatable(t *testing.T) {
	svc, _ := newService(t)
	session := svc.NewTrainingSession()
	ctx := context.Background()

	_, err := session.Train(ctx, trainingBatch(), nil)
	require.NoError(t, err)

	// Retraining starts from a fresh profile, not an accumulated one.
	summary, err := session.Train(ctx, trainingBatch(), nil)
	require.NoError(t, err)
	assert.Equal(t, len(trainingBatch()), summary.TransactionCount)
}

func TestTestBeforeTrainFails(t *testing.T) {
	svc, _ := newService(t)
	session := svc.NewTrainingSession()

	_, err := session.Test(context.Background(), 3000, 10, "home")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeBusiness))
}

func TestTestScoresAgainstLearnedPatterns(t *testing.T) {
	svc, _ := newService(t)
	session := svc.NewTrainingSession()
	ctx := context.Background()

	_, err := session.Train(ctx, trainingBatch(), nil)
	require.NoError(t, err)

	normal, err := session.Test(ctx, 3000, 9, "home")
	require.NoError(t, err)
	assert.Equal(t, "ALLOW", normal.Decision)
	assert.Len(t, normal.Features, 4)
	assert.NotNil(t, normal.Learned)

	anomalous, err := session.Test(ctx, 50000, 3, "elsewhere")
	require.NoError(t, err)
	assert.Greater(t, anomalous.RiskScore, normal.RiskScore)
	assert.NotEqual(t, "ALLOW", anomalous.Decision)
	assert.InDelta(t, anomalous.RiskScore*100, anomalous.RiskPercentage, 0.1)
}

func TestTrainingStatusAndClose(t *testing.T) {
	svc, _ := newService(t)
	session := svc.NewTrainingSession()
	ctx := context.Background()

	trained, summary, err := session.Status(ctx)
	require.NoError(t, err)
	assert.False(t, trained)
	assert.Nil(t, summary)

	_, err = session.Train(ctx, trainingBatch(), nil)
	require.NoError(t, err)

	trained, summary, err = session.Status(ctx)
	require.NoError(t, err)
	assert.True(t, trained)
	require.NotNil(t, summary)

	require.NoError(t, session.Close(ctx))
	gone, err := svc.Store().Get(ctx, session.ID())
	require.NoError(t, err)
	assert.Nil(t, gone)
}
