package nifi

import (
	"github.com/medalizaidi/nifi-jar-automation-option2/internal/flow"
)

// Wire DTOs for the subset of the REST API this tool touches. Only the
// fields we read are declared; component payloads stay as raw maps so
// replication can carry configuration verbatim.

type revisionDTO struct {
	Version int64 `json:"version"`
}

type statusDTO struct {
	RunStatus string `json:"runStatus"`
}

// entityDTO is the envelope the server wraps every component in: the
// live revision, aggregate status, and the configuration payload.
type entityDTO struct {
	ID        string         `json:"id"`
	Revision  revisionDTO    `json:"revision"`
	Status    statusDTO      `json:"status"`
	Component map[string]any `json:"component"`
}

// flowDTO is one level of a process group as reported by the flow
// endpoint: direct children only, nested groups as envelopes whose
// contents require a further call.
type flowDTO struct {
	Processors    []entityDTO `json:"processors"`
	Connections   []entityDTO `json:"connections"`
	InputPorts    []entityDTO `json:"inputPorts"`
	OutputPorts   []entityDTO `json:"outputPorts"`
	Funnels       []entityDTO `json:"funnels"`
	Labels        []entityDTO `json:"labels"`
	ProcessGroups []entityDTO `json:"processGroups"`
}

type processGroupFlowDTO struct {
	ProcessGroupFlow struct {
		ID   string  `json:"id"`
		Flow flowDTO `json:"flow"`
	} `json:"processGroupFlow"`
}

// updateRunStatusRequest stops or starts a processor. The component
// carries only id and state; everything else is left untouched.
type updateRunStatusRequest struct {
	Revision  revisionDTO `json:"revision"`
	Component struct {
		ID    string `json:"id"`
		State string `json:"state"`
	} `json:"component"`
}

// createComponentRequest creates a component under a parent group.
// Revision version zero is what the server requires for creation.
type createComponentRequest struct {
	Revision  revisionDTO    `json:"revision"`
	Component map[string]any `json:"component"`
}

func (e entityDTO) toComponent(kind flow.Kind) flow.Component {
	c := flow.Component{
		ID:         e.ID,
		Revision:   e.Revision.Version,
		Kind:       kind,
		RunStatus:  e.Status.RunStatus,
		Attributes: e.Component,
	}
	if name, ok := e.Component["name"].(string); ok {
		c.Name = name
	}
	if c.ID == "" {
		if id, ok := e.Component["id"].(string); ok {
			c.ID = id
		}
	}
	return c
}

func toComponents(entities []entityDTO, kind flow.Kind) []flow.Component {
	if len(entities) == 0 {
		return nil
	}
	out := make([]flow.Component, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.toComponent(kind))
	}
	return out
}
