package tui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commitlens/commitlens-cli/internal/analysis"
	"github.com/commitlens/commitlens-cli/internal/entity"
)

func loadedAnalysis(t *testing.T) *analysisScreen {
	t.Helper()
	deps, c := newTestDeps(t)
	s := newAnalysisScreen(deps, c, 10*time.Millisecond)
	t.Cleanup(s.Close)
	s.SetSize(120, 40)
	pump(t, s.Update, s.Init())
	require.False(t, s.loading)
	require.NoError(t, s.optionsErr)
	return s
}

// fill picks the first project, the named agent and the first two users.
func fill(t *testing.T, s *analysisScreen, agentName string) {
	t.Helper()
	o := s.form.Options()
	require.Len(t, o.Projects, 12)
	require.Len(t, o.Agents, 6)
	require.Len(t, o.Users, 40)

	var agentID string
	for _, a := range o.Agents {
		if a.Name == agentName {
			agentID = a.ID
		}
	}
	require.NotEmpty(t, agentID, "agent %q", agentName)
	s.form.Edit(func(v *entity.AnalysisCreate) {
		v.ProjectID = o.Projects[0].ID
		v.AgentID = agentID
		v.UserIDs = []string{o.Users[0].ID, o.Users[1].ID}
	})
}

func TestAnalysisRunsToSuccess(t *testing.T) {
	s := loadedAnalysis(t)
	fill(t, s, "Code Reviewer")

	notices := pump(t, s.Update, s.form.Submit())
	require.NotEmpty(t, s.runID)
	assert.Equal(t, phaseResult, s.phase)
	assert.Equal(t, analysis.StatusSuccess, s.poller.Status())
	assert.Equal(t, []string{"Analysis started", "Analysis completed"}, texts(notices))

	for _, st := range s.poller.Steps() {
		assert.Equal(t, analysis.StepCompleted, st.State, st.Title)
	}
	view := s.View()
	assert.Contains(t, view, "Analysis completed")
	assert.Contains(t, view, "Start new analysis")

	pressAll(t, s, "enter")
	assert.Equal(t, phaseForm, s.phase)
	assert.Empty(t, s.runID)
	assert.Empty(t, s.form.Values().AgentID, "a new analysis starts from a fresh form")
}

func TestAnalysisFailurePinsStep(t *testing.T) {
	s := loadedAnalysis(t)
	fill(t, s, "Flaky Failer")

	pump(t, s.Update, s.form.Submit())
	assert.Equal(t, phaseResult, s.phase)
	assert.Equal(t, analysis.StatusFailed, s.poller.Status())

	step, failed := s.poller.FailedAt()
	require.True(t, failed)
	assert.Equal(t, analysis.StatusGetCommitDetails, step.Key)

	view := s.View()
	assert.Contains(t, view, "Analysis failed during Processing Details")
	assert.Contains(t, view, "Try again")
	assert.Contains(t, view, "✗")

	pressAll(t, s, "enter")
	assert.Equal(t, phaseForm, s.phase)
}

func TestAnalysisInvalidFormIsNotSubmitted(t *testing.T) {
	s := loadedAnalysis(t)

	assert.Nil(t, s.form.Submit())
	require.Error(t, s.form.Err())
	assert.Equal(t, phaseForm, s.phase)
}

func TestAnalysisEditingCapturesKeys(t *testing.T) {
	s := loadedAnalysis(t)
	assert.False(t, s.Capturing())
	assert.Contains(t, s.View(), "enter: fill in the form")

	s.Update(keyPress("enter"))
	assert.True(t, s.Capturing())
	s.Update(keyPress("esc"))
	assert.False(t, s.Capturing())
}

func TestAnalysisReloadOptions(t *testing.T) {
	s := loadedAnalysis(t)

	cmd := s.Update(keyPress("ctrl+r"))
	require.NotNil(t, cmd)
	assert.True(t, s.loading)
	assert.Contains(t, s.View(), "Loading projects, agents and users")

	pump(t, s.Update, cmd)
	assert.False(t, s.loading)
	assert.Len(t, s.form.Options().Agents, 6)
}
