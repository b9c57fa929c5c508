package core

import "fmt"

// ActivityType is the kind of a node in a process definition graph.
type ActivityType string

const (
	ActivityStartEvent      ActivityType = "startEvent"
	ActivityEndEvent        ActivityType = "endEvent"
	ActivityUserTask        ActivityType = "userTask"
	ActivityParallelGateway ActivityType = "parallelGateway"
)

// Transition is a directed edge between two activities. It has no identity
// beyond its source and destination.
type Transition struct {
	Source      *Activity
	Destination *Activity
}

// Activity is a node in a deployed process definition.
type Activity struct {
	ID   string
	Type ActivityType
	Name string

	// Incoming and Outgoing are the edges of this activity. Outgoing is
	// mutated at runtime while a reject operation temporarily rewires the
	// graph; every Transition in Outgoing has this activity as its Source.
	Incoming []*Transition
	Outgoing []*Transition
}

// CreateOutgoingTransition adds a new transition from a to dest and returns it.
// It only updates a's outgoing list; callers that need the edge to be visible
// from dest's side have to track it themselves, which matches how temporary
// reject edges are used.
func (a *Activity) CreateOutgoingTransition(dest *Activity) *Transition {
	t := &Transition{Source: a, Destination: dest}
	a.Outgoing = append(a.Outgoing, t)
	return t
}

// ProcessDefinition is one deployed, versioned process graph. Definitions are
// immutable per version; the single exception is the transition rewiring a
// reject performs, which is undone before the reject returns.
type ProcessDefinition struct {
	// ID identifies this deployed version, Key the definition across versions.
	ID      string
	Key     string
	Name    string
	Version int

	Activities []*Activity

	activitiesByID map[string]*Activity
}

func NewProcessDefinition(id, key, name string, version int) *ProcessDefinition {
	return &ProcessDefinition{
		ID:             id,
		Key:            key,
		Name:           name,
		Version:        version,
		activitiesByID: map[string]*Activity{},
	}
}

// AddActivity adds a node to the definition and returns it.
func (d *ProcessDefinition) AddActivity(id string, typ ActivityType, name string) *Activity {
	a := &Activity{ID: id, Type: typ, Name: name}
	d.Activities = append(d.Activities, a)
	if d.activitiesByID == nil {
		d.activitiesByID = map[string]*Activity{}
	}
	d.activitiesByID[id] = a
	return a
}

// Connect adds a permanent transition between two activities of the
// definition, keeping both endpoint edge lists consistent.
func (d *ProcessDefinition) Connect(fromID, toID string) error {
	from := d.Activity(fromID)
	if from == nil {
		return fmt.Errorf("activity %q not found in definition %q", fromID, d.ID)
	}

	to := d.Activity(toID)
	if to == nil {
		return fmt.Errorf("activity %q not found in definition %q", toID, d.ID)
	}

	t := from.CreateOutgoingTransition(to)
	to.Incoming = append(to.Incoming, t)

	return nil
}

// Activity returns the activity with the given id, or nil.
func (d *ProcessDefinition) Activity(id string) *Activity {
	if d.activitiesByID != nil {
		return d.activitiesByID[id]
	}

	for _, a := range d.Activities {
		if a.ID == id {
			return a
		}
	}

	return nil
}
