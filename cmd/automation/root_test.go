package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lab-api/internal/dto"
	"github.com/noah-isme/campus-lab-api/internal/models"
)

type recordingRunner struct {
	campuses []*string
	failOn   string
}

func (r *recordingRunner) Run(ctx context.Context, t models.NotificationType, campusID *string) (*dto.SweepResult, error) {
	r.campuses = append(r.campuses, campusID)
	if campusID != nil && *campusID == r.failOn {
		return nil, errors.New("boom")
	}
	return &dto.SweepResult{Type: t, CampusID: campusID, Candidates: 1}, nil
}

type staticCampuses []string

func (s staticCampuses) ListActiveIDs(context.Context) ([]string, error) { return s, nil }

func TestRunSweepsTargets(t *testing.T) {
	ctx := context.Background()
	campuses := staticCampuses{"c1", "c2"}

	runner := &recordingRunner{}
	_, err := runSweeps(ctx, runner, campuses, models.NotificationWarrantyAlert, sweepOptions{}, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, runner.campuses, 1)
	assert.Nil(t, runner.campuses[0])

	runner = &recordingRunner{}
	_, err = runSweeps(ctx, runner, campuses, models.NotificationWarrantyAlert, sweepOptions{campus: "c9"}, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, runner.campuses, 1)
	assert.Equal(t, "c9", *runner.campuses[0])

	runner = &recordingRunner{}
	results, err := runSweeps(ctx, runner, campuses, models.NotificationWarrantyAlert, sweepOptions{perCampus: true}, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c1", *runner.campuses[0])
	assert.Equal(t, "c2", *runner.campuses[1])
}

func TestRunSweepsStopsOnFailure(t *testing.T) {
	runner := &recordingRunner{failOn: "c1"}
	results, err := runSweeps(context.Background(), runner, staticCampuses{"c1", "c2"}, models.NotificationMaintenanceOverdue, sweepOptions{perCampus: true}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAINTENANCE_OVERDUE sweep")
	assert.Empty(t, results)
	assert.Len(t, runner.campuses, 1)
}

func TestRootCommandRegistersSweeps(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"warranty-check", "incident-escalation", "maintenance-overdue"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
		assert.NotNil(t, cmd.Flags().Lookup("campus"))
		assert.NotNil(t, cmd.Flags().Lookup("per-campus"))
	}
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printResults(&buf, []*dto.SweepResult{{Type: models.NotificationWarrantyAlert, Candidates: 2}}))
	assert.Contains(t, buf.String(), `"type": "WARRANTY_ALERT"`)
	assert.Contains(t, buf.String(), `"candidates": 2`)
}
