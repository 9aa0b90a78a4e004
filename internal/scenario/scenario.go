// Package scenario loads and replays scripted room sessions: a sequence of
// room events, view model interactions and chat commands.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/roomfurni/internal/game/furni"
)

// Kind names a step action. It is the single key of a step mapping.
type Kind string

// Step kinds.
const (
	KindEnter   Kind = "enter"
	KindLeave   Kind = "leave"
	KindOwner   Kind = "owner"
	KindLoad    Kind = "load"
	KindAdd     Kind = "add"
	KindRemove  Kind = "remove"
	KindHide    Kind = "hide"
	KindShow    Kind = "show"
	KindFilter  Kind = "filter"
	KindSelect  Kind = "select"
	KindExecute Kind = "execute"
	KindCommand Kind = "command"
	KindWait    Kind = "wait"
	KindAwait   Kind = "await_operations"
	KindReport  Kind = "report"
)

// Selection command names accepted by an execute step.
const (
	ExecuteHide = "hide"
	ExecuteShow = "show"
)

// ErrEmptyScenario is returned when a scenario has no steps.
var ErrEmptyScenario = errors.New("scenario has no steps")

// Scenario is a named, ordered list of steps.
type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// ItemSpec describes a furni in a load or add step.
type ItemSpec struct {
	Type      string `yaml:"type"`
	ID        int64  `yaml:"id"`
	ClassID   int    `yaml:"class_id"`
	Variant   string `yaml:"variant"`
	OwnerID   int64  `yaml:"owner_id"`
	OwnerName string `yaml:"owner_name"`
	Placement string `yaml:"placement"`
}

// KeySpec identifies a furni in the room.
type KeySpec struct {
	Type string `yaml:"type"`
	ID   int64  `yaml:"id"`
}

// Step is one scenario action. Kind selects which fields are meaningful.
type Step struct {
	Kind Kind

	// Room is the room ID of an enter step.
	Room string
	// Owner is the ownership flag of an enter or owner step.
	Owner bool
	// ItemType is the batch type of a load step.
	ItemType furni.ItemType
	// Items holds the furni of a load step, or the single furni of an add step.
	Items []furni.Furni
	// Keys holds the target of remove, hide and show, or the keys of a select step.
	Keys []furni.Key
	// Text is the filter text, the command line or the selection command name.
	Text string
	// Duration is the pause of a wait step.
	Duration time.Duration
}

type loadStep struct {
	Type  string     `yaml:"type"`
	Items []ItemSpec `yaml:"items"`
}

type enterStep struct {
	Room  string `yaml:"room"`
	Owner bool   `yaml:"owner"`
}

// UnmarshalYAML decodes a single-key mapping such as `add: {...}` or `leave: true`.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return fmt.Errorf("line %d: a step must be a mapping with exactly one action", node.Line)
	}
	key, value := node.Content[0], node.Content[1]
	s.Kind = Kind(key.Value)
	if err := s.decode(value); err != nil {
		return fmt.Errorf("line %d: %s step: %w", key.Line, s.Kind, err)
	}
	return nil
}

func (s *Step) decode(value *yaml.Node) error {
	switch s.Kind {
	case KindEnter:
		var es enterStep
		if value.Kind == yaml.ScalarNode {
			es.Room = value.Value
		} else if err := value.Decode(&es); err != nil {
			return err
		}
		if es.Room == "" {
			return errors.New("room must not be empty")
		}
		s.Room, s.Owner = es.Room, es.Owner
	case KindLeave, KindAwait, KindReport:
		// Value is ignored: `leave: true`, `report: {}`.
	case KindOwner:
		return value.Decode(&s.Owner)
	case KindLoad:
		var ls loadStep
		if err := value.Decode(&ls); err != nil {
			return err
		}
		t, err := furni.ParseItemType(ls.Type)
		if err != nil {
			return err
		}
		s.ItemType = t
		for i, is := range ls.Items {
			if is.Type == "" {
				is.Type = ls.Type
			}
			f, err := is.toFurni()
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			if f.Type != t {
				return fmt.Errorf("item %d: type %s in a %s batch", i, f.Type, t)
			}
			s.Items = append(s.Items, f)
		}
	case KindAdd:
		var is ItemSpec
		if err := value.Decode(&is); err != nil {
			return err
		}
		f, err := is.toFurni()
		if err != nil {
			return err
		}
		s.Items = []furni.Furni{f}
	case KindRemove, KindHide, KindShow:
		var ks KeySpec
		if err := value.Decode(&ks); err != nil {
			return err
		}
		k, err := ks.toKey()
		if err != nil {
			return err
		}
		s.Keys = []furni.Key{k}
	case KindSelect:
		var specs []KeySpec
		if err := value.Decode(&specs); err != nil {
			return err
		}
		s.Keys = make([]furni.Key, 0, len(specs))
		for i, ks := range specs {
			k, err := ks.toKey()
			if err != nil {
				return fmt.Errorf("key %d: %w", i, err)
			}
			s.Keys = append(s.Keys, k)
		}
	case KindFilter:
		return value.Decode(&s.Text)
	case KindCommand:
		if err := value.Decode(&s.Text); err != nil {
			return err
		}
		if strings.TrimSpace(s.Text) == "" {
			return errors.New("command must not be empty")
		}
	case KindExecute:
		if err := value.Decode(&s.Text); err != nil {
			return err
		}
		if s.Text != ExecuteHide && s.Text != ExecuteShow {
			return fmt.Errorf("unknown selection command %q", s.Text)
		}
	case KindWait:
		var raw string
		if err := value.Decode(&raw); err != nil {
			return err
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		if d < 0 {
			return fmt.Errorf("negative duration %s", d)
		}
		s.Duration = d
	default:
		return errors.New("unknown action")
	}
	return nil
}

func (is ItemSpec) toFurni() (furni.Furni, error) {
	t, err := furni.ParseItemType(is.Type)
	if err != nil {
		return furni.Furni{}, err
	}
	if is.ID <= 0 {
		return furni.Furni{}, fmt.Errorf("id must be positive, got %d", is.ID)
	}
	return furni.Furni{
		Type:      t,
		ID:        is.ID,
		ClassID:   is.ClassID,
		Variant:   is.Variant,
		OwnerID:   is.OwnerID,
		OwnerName: is.OwnerName,
		Placement: is.Placement,
	}, nil
}

func (ks KeySpec) toKey() (furni.Key, error) {
	t, err := furni.ParseItemType(ks.Type)
	if err != nil {
		return furni.Key{}, err
	}
	return furni.Key{Type: t, ID: ks.ID}, nil
}

// LoadFromFile reads and parses a scenario YAML file.
//
// Precondition: path must point to a readable scenario file.
// Postcondition: Returns a Scenario with at least one step or a non-nil error.
func LoadFromFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", path, err)
	}
	sc, err := LoadFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return sc, nil
}

// LoadFromBytes parses a scenario from YAML bytes.
//
// Postcondition: Returns a Scenario with at least one step or a non-nil error.
func LoadFromBytes(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario YAML: %w", err)
	}
	if len(sc.Steps) == 0 {
		return nil, ErrEmptyScenario
	}
	return &sc, nil
}
