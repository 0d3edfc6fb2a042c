// Package state is the on-disk model of the mock backend.
package state

import (
	"time"

	"github.com/commitlens/commitlens-cli/internal/entity"
)

const CurrentVersion = 1

type State struct {
	Version  int                        `json:"version"`
	Users    map[string]*entity.User    `json:"users"`
	Projects map[string]*entity.Project `json:"projects"`
	Agents   map[string]*entity.Agent   `json:"agents"`
	Runs     map[string]*Run            `json:"runs"`
}

// Run is an analysis run. The mock advances Status by one step per status
// poll; FailAt, when set, is the status at which the run fails instead.
type Run struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	AgentID   string    `json:"agentId"`
	UserIDs   []string  `json:"userIds"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Status    string    `json:"status"`
	FailAt    string    `json:"failAt,omitempty"`
	Polls     int       `json:"polls"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *State) ensureMaps() {
	if s.Users == nil {
		s.Users = map[string]*entity.User{}
	}
	if s.Projects == nil {
		s.Projects = map[string]*entity.Project{}
	}
	if s.Agents == nil {
		s.Agents = map[string]*entity.Agent{}
	}
	if s.Runs == nil {
		s.Runs = map[string]*Run{}
	}
}
