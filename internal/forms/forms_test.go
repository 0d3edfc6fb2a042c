package forms

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commitlens/commitlens-cli/internal/entity"
)

// run executes cmd and returns the first message of the given type found in
// it, descending into batches.
func run[M any](t *testing.T, cmd tea.Cmd) M {
	t.Helper()
	var zero M
	if cmd == nil {
		t.Fatalf("expected a command")
		return zero
	}
	queue := []tea.Msg{cmd()}
	for len(queue) > 0 {
		msg := queue[0]
		queue = queue[1:]
		if m, ok := msg.(M); ok {
			return m
		}
		if batch, ok := msg.(tea.BatchMsg); ok {
			for _, c := range batch {
				if c != nil {
					queue = append(queue, c())
				}
			}
		}
	}
	t.Fatalf("no %T produced", zero)
	return zero
}

func TestProjectCreate_MinimalValidCreate(t *testing.T) {
	var checks, creates int32
	var got entity.ProjectCreate
	p := NewProjectCreate(context.Background(),
		func(_ context.Context, url string) (entity.Repository, error) {
			atomic.AddInt32(&checks, 1)
			return entity.Repository{Name: "widgets", Owner: entity.RepositoryOwner{Login: "acme"}}, nil
		},
		func(_ context.Context, in entity.ProjectCreate) (entity.MutationResult, error) {
			atomic.AddInt32(&creates, 1)
			got = in
			return entity.MutationResult{ID: "p1", Message: "Project created"}, nil
		},
	)

	p.Edit(func(v *ProjectDraft) { v.URL = "https://github.com/acme/widgets" })
	p.ApplyCheck(run[CheckedMsg](t, p.Check()))
	require.NoError(t, p.Err())
	require.True(t, p.Values().Checked())
	assert.Contains(t, p.View(), "acme/widgets")

	done := p.Apply(run[SubmittedMsg](t, p.Submit()))

	assert.True(t, done, "modal should close after a successful create")
	assert.EqualValues(t, 1, atomic.LoadInt32(&checks))
	assert.EqualValues(t, 1, atomic.LoadInt32(&creates))
	assert.Equal(t, "https://github.com/acme/widgets", got.URL)
	assert.Equal(t, "widgets", got.Name)
	assert.Equal(t, ProjectDraft{}, p.Values(), "form should reset after submit")
	assert.NoError(t, p.Err())
}

func TestProjectCreate_RequiresCheckBeforeCreate(t *testing.T) {
	var creates int32
	p := NewProjectCreate(context.Background(), nil, func(context.Context, entity.ProjectCreate) (entity.MutationResult, error) {
		atomic.AddInt32(&creates, 1)
		return entity.MutationResult{}, nil
	})
	p.Edit(func(v *ProjectDraft) { v.URL = "https://github.com/acme/widgets" })

	assert.Nil(t, p.Submit())
	assert.Zero(t, atomic.LoadInt32(&creates))
	var fe entity.FieldErrors
	require.ErrorAs(t, p.Err(), &fe)
	assert.Contains(t, fe, "url")
}

func TestProjectCreate_StaleCheckIgnored(t *testing.T) {
	p := NewProjectCreate(context.Background(),
		func(_ context.Context, url string) (entity.Repository, error) {
			return entity.Repository{Name: url[strings.LastIndex(url, "/")+1:]}, nil
		}, nil)

	p.Edit(func(v *ProjectDraft) { v.URL = "https://github.com/acme/first" })
	first := p.Check()
	p.Edit(func(v *ProjectDraft) { v.URL = "https://github.com/acme/second" })
	second := p.Check()

	p.ApplyCheck(run[CheckedMsg](t, second))
	p.ApplyCheck(run[CheckedMsg](t, first))
	assert.Equal(t, "second", p.Values().Name)
	assert.True(t, p.Values().Checked())
}

func TestController_InvalidValuesBlockSubmit(t *testing.T) {
	var calls int32
	c := NewUserCreate(context.Background(), func(context.Context, entity.UserCreate) (entity.MutationResult, error) {
		atomic.AddInt32(&calls, 1)
		return entity.MutationResult{}, nil
	})
	c.Edit(func(v *entity.UserCreate) { v.FirstName = "Al" })

	assert.Nil(t, c.Submit())
	assert.Zero(t, atomic.LoadInt32(&calls))
	assert.Contains(t, ErrorLines(c.Err()), "firstName: First name is required")
	assert.Equal(t, "Al", c.Values().FirstName, "values survive a failed validation")
}

func TestController_FailedMutationKeepsValues(t *testing.T) {
	c := NewAgentCreate(context.Background(), func(context.Context, entity.AgentCreate) (entity.MutationResult, error) {
		return entity.MutationResult{}, errors.New("boom")
	})
	c.Edit(func(v *entity.AgentCreate) { v.Name, v.Prompt = "Reviewer", "Review it" })

	cmd := c.Submit()
	require.True(t, c.Submitting())
	assert.Nil(t, c.Submit(), "no second submit while one is in flight")

	done := c.Apply(run[SubmittedMsg](t, cmd))
	assert.False(t, done)
	assert.False(t, c.Submitting())
	assert.EqualError(t, c.Err(), "boom")
	assert.Equal(t, "Reviewer", c.Values().Name)
}

func TestController_IgnoresForeignResults(t *testing.T) {
	c := NewAgentCreate(context.Background(), func(context.Context, entity.AgentCreate) (entity.MutationResult, error) {
		return entity.MutationResult{ID: "a1"}, nil
	})
	c.Edit(func(v *entity.AgentCreate) { v.Name, v.Prompt = "Reviewer", "Review it" })
	msg := run[SubmittedMsg](t, c.Submit())

	assert.False(t, c.Apply(SubmittedMsg{FormID: "user-create", Seq: msg.Seq}))
	assert.False(t, c.Apply(SubmittedMsg{FormID: msg.FormID, Seq: msg.Seq + 1}))
	assert.True(t, c.Apply(msg))
}

func TestAgentUpdate_SubmitsWithRowID(t *testing.T) {
	var gotID string
	c := NewAgentUpdate(context.Background(), func(_ context.Context, id string, _ entity.AgentUpdate) (entity.MutationResult, error) {
		gotID = id
		return entity.MutationResult{ID: id}, nil
	})
	c.SetValues(EditAgent(entity.Agent{
		ID:     "7d7c1b1e-58c4-4f8d-a3a2-2b1f5d8e9a10",
		Name:   "Reviewer",
		Prompt: strings.Repeat("review ", 6),
	}))
	require.True(t, c.Apply(run[SubmittedMsg](t, c.Submit())))
	assert.Equal(t, "7d7c1b1e-58c4-4f8d-a3a2-2b1f5d8e9a10", gotID)
}

func TestAnalysis_DefaultsAndOptions(t *testing.T) {
	var got entity.AnalysisCreate
	a := NewAnalysis(context.Background(), func(_ context.Context, in entity.AnalysisCreate) (entity.MutationResult, error) {
		got = in
		return entity.MutationResult{ID: "run-1"}, nil
	})
	v := a.Values()
	require.NotEmpty(t, v.From)
	require.NotEmpty(t, v.To)
	assert.LessOrEqual(t, v.From, v.To)

	a.SetOptions(AnalysisOptions{Projects: []entity.Project{{ID: "p1", Name: "widgets"}}})
	assert.Len(t, a.Options().Projects, 1)

	assert.Nil(t, a.Submit(), "project, agent and users are required")
	a.Edit(func(v *entity.AnalysisCreate) {
		v.ProjectID, v.AgentID, v.UserIDs = "p1", "a1", []string{"u1"}
	})
	msg := run[SubmittedMsg](t, a.Submit())
	assert.Equal(t, "run-1", msg.Result.ID)
	assert.True(t, a.Apply(msg))
	assert.Equal(t, []string{"u1"}, got.UserIDs)
}

func TestRepositorySummary(t *testing.T) {
	s := RepositorySummary(entity.Repository{
		Name:            "go",
		Owner:           entity.RepositoryOwner{Login: "golang"},
		Language:        "Go",
		StargazersCount: 123456,
		ForksCount:      17000,
	})
	assert.Equal(t, "golang/go · Go · ★ 123,456 · forks 17,000", s)
}
