package reconcile

import (
	"context"
	"fmt"

	"github.com/medalizaidi/nifi-jar-automation-option2/internal/flow"
	"github.com/medalizaidi/nifi-jar-automation-option2/pkg/logging"
)

// fakeService simulates the server with an in-memory component tree.
// It records every mutating call in order so tests can assert
// dependency ordering.
type fakeService struct {
	rootID string
	groups map[string]*fakeGroup

	authErr       error
	authenticated bool
	exportData    []byte

	// failDelete and failCreate inject per-component errors, keyed by
	// component id and component name respectively. failStop and
	// failList are keyed by processor id and group id.
	failDelete map[string]error
	failCreate map[string]error
	failStop   map[string]error
	failList   map[string]error

	deleteOrder []string
	createOrder []string
	stopCalls   []string

	// createAttrs captures the payload sent for each created
	// component, keyed by the assigned id.
	createAttrs map[string]map[string]any

	nextID int
}

type fakeGroup struct {
	component   flow.Component
	processors  []flow.Component
	connections []flow.Component
	inputPorts  []flow.Component
	outputPorts []flow.Component
	funnels     []flow.Component
	children    []string
	labelCount  int
}

var _ FlowService = (*fakeService)(nil)

func newFakeService() *fakeService {
	rootID := "root"
	return &fakeService{
		rootID: rootID,
		groups: map[string]*fakeGroup{
			rootID: {component: flow.Component{ID: rootID, Name: "NiFi Flow", Kind: flow.KindProcessGroup}},
		},
		failDelete:  map[string]error{},
		failCreate:  map[string]error{},
		failStop:    map[string]error{},
		failList:    map[string]error{},
		createAttrs: map[string]map[string]any{},
	}
}

func (s *fakeService) addGroup(parentID, id, name string) *fakeGroup {
	g := &fakeGroup{component: flow.Component{
		ID: id, Name: name, Kind: flow.KindProcessGroup, Revision: 1,
	}}
	s.groups[id] = g
	parent := s.groups[parentID]
	parent.children = append(parent.children, id)
	return g
}

func component(id, name string, kind flow.Kind) flow.Component {
	return flow.Component{
		ID: id, Name: name, Kind: kind, Revision: 1,
		Attributes: map[string]any{"id": id, "name": name},
	}
}

func (s *fakeService) Authenticate(ctx context.Context) error {
	if s.authErr != nil {
		return s.authErr
	}
	s.authenticated = true
	return nil
}

func (s *fakeService) RootGroupID(ctx context.Context) (string, error) {
	return s.rootID, nil
}

func (s *fakeService) ListGroup(ctx context.Context, groupID string) (*flow.Group, error) {
	if err, ok := s.failList[groupID]; ok {
		return nil, err
	}
	g, ok := s.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("no such group %q", groupID)
	}
	out := &flow.Group{
		Component:   g.component,
		Processors:  append([]flow.Component(nil), g.processors...),
		Connections: append([]flow.Component(nil), g.connections...),
		InputPorts:  append([]flow.Component(nil), g.inputPorts...),
		OutputPorts: append([]flow.Component(nil), g.outputPorts...),
		Funnels:     append([]flow.Component(nil), g.funnels...),
		LabelCount:  g.labelCount,
	}
	for _, childID := range g.children {
		child, ok := s.groups[childID]
		if !ok {
			return nil, fmt.Errorf("group %q references unknown child %q", groupID, childID)
		}
		out.Groups = append(out.Groups, &flow.Group{Component: child.component})
	}
	return out, nil
}

func (s *fakeService) ExportGroup(ctx context.Context, groupID string) ([]byte, error) {
	return s.exportData, nil
}

func (s *fakeService) StopProcessor(ctx context.Context, c flow.Component) (flow.Component, error) {
	s.stopCalls = append(s.stopCalls, c.ID)
	if err, ok := s.failStop[c.ID]; ok {
		return c, err
	}
	for _, g := range s.groups {
		for i := range g.processors {
			if g.processors[i].ID == c.ID {
				g.processors[i].RunStatus = "Stopped"
				g.processors[i].Revision++
			}
		}
	}
	updated := c
	updated.Revision++
	updated.RunStatus = "Stopped"
	return updated, nil
}

func (s *fakeService) DeleteComponent(ctx context.Context, c flow.Component) error {
	if err, ok := s.failDelete[c.ID]; ok {
		return err
	}
	s.deleteOrder = append(s.deleteOrder, c.ID)

	if c.Kind == flow.KindProcessGroup {
		delete(s.groups, c.ID)
		for _, g := range s.groups {
			g.children = removeString(g.children, c.ID)
		}
		return nil
	}
	for _, g := range s.groups {
		g.processors = removeComponent(g.processors, c.ID)
		g.connections = removeComponent(g.connections, c.ID)
		g.inputPorts = removeComponent(g.inputPorts, c.ID)
		g.outputPorts = removeComponent(g.outputPorts, c.ID)
		g.funnels = removeComponent(g.funnels, c.ID)
	}
	return nil
}

func (s *fakeService) CreateComponent(ctx context.Context, parentID string, kind flow.Kind, attrs map[string]any) (string, error) {
	name, _ := attrs["name"].(string)
	if err, ok := s.failCreate[name]; ok {
		return "", err
	}
	parent, ok := s.groups[parentID]
	if !ok {
		return "", fmt.Errorf("no such parent group %q", parentID)
	}

	s.nextID++
	id := fmt.Sprintf("new-%d", s.nextID)
	s.createOrder = append(s.createOrder, kind.Plural()+"/"+name)
	s.createAttrs[id] = attrs

	created := flow.Component{ID: id, Name: name, Kind: kind, Attributes: attrs}
	switch kind {
	case flow.KindProcessGroup:
		s.groups[id] = &fakeGroup{component: created}
		parent.children = append(parent.children, id)
	case flow.KindProcessor:
		parent.processors = append(parent.processors, created)
	case flow.KindConnection:
		parent.connections = append(parent.connections, created)
	case flow.KindInputPort:
		parent.inputPorts = append(parent.inputPorts, created)
	case flow.KindOutputPort:
		parent.outputPorts = append(parent.outputPorts, created)
	case flow.KindFunnel:
		parent.funnels = append(parent.funnels, created)
	}
	return id, nil
}

func removeComponent(list []flow.Component, id string) []flow.Component {
	out := list[:0]
	for _, c := range list {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func quietLogger() *logging.Logger {
	return logging.New(logging.Config{Quiet: true})
}

// fakeSource serves fixed snapshot bytes.
type fakeSource struct {
	data []byte
	ref  string
	err  error
}

func (s *fakeSource) Load(ctx context.Context) ([]byte, string, error) {
	return s.data, s.ref, s.err
}

// fakeSink captures pre-backup payloads.
type fakeSink struct {
	saved [][]byte
	err   error
}

func (s *fakeSink) Save(ctx context.Context, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.saved = append(s.saved, data)
	return fmt.Sprintf("pre-backup-%d", len(s.saved)), nil
}

// fakeConfirmer answers with a fixed decision and records prompts.
type fakeConfirmer struct {
	approve bool
	err     error
	prompts []string
}

func (c *fakeConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	c.prompts = append(c.prompts, prompt)
	return c.approve, c.err
}
