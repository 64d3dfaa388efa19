package provider

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/hupe1980/reactivegraph/core"
	"github.com/hupe1980/reactivegraph/types"
)

var (
	_ types.ComponentProvider    = (*TOMLProvider)(nil)
	_ types.EntityTypeProvider   = (*TOMLProvider)(nil)
	_ types.RelationTypeProvider = (*TOMLProvider)(nil)
	_ types.FlowTypeProvider     = (*TOMLProvider)(nil)
)

// ErrUndecodedKeys is returned when a document contains keys the provider does not know.
var ErrUndecodedKeys = errors.New("undecoded keys in type document")

// Type references in a document use the "namespace__name" form.
type propertyDoc struct {
	Name        string         `toml:"name"`
	Description string         `toml:"description"`
	DataType    string         `toml:"data_type"`
	SocketType  string         `toml:"socket_type"`
	Mutability  string         `toml:"mutability"`
	Extensions  map[string]any `toml:"extensions"`
}

type componentDoc struct {
	Namespace   string         `toml:"namespace"`
	Name        string         `toml:"name"`
	Description string         `toml:"description"`
	Properties  []propertyDoc  `toml:"properties"`
	Extensions  map[string]any `toml:"extensions"`
}

type entityTypeDoc struct {
	Namespace   string         `toml:"namespace"`
	Name        string         `toml:"name"`
	Description string         `toml:"description"`
	Components  []string       `toml:"components"`
	Properties  []propertyDoc  `toml:"properties"`
	Extensions  map[string]any `toml:"extensions"`
}

type relationTypeDoc struct {
	Namespace   string         `toml:"namespace"`
	Name        string         `toml:"name"`
	Description string         `toml:"description"`
	Outbound    string         `toml:"outbound"`
	Inbound     string         `toml:"inbound"`
	Components  []string       `toml:"components"`
	Properties  []propertyDoc  `toml:"properties"`
	Extensions  map[string]any `toml:"extensions"`
}

type entityInstanceDoc struct {
	ID         string         `toml:"id"`
	Type       string         `toml:"type"`
	Components []string       `toml:"components"`
	Properties map[string]any `toml:"properties"`
}

type relationInstanceDoc struct {
	Outbound   string         `toml:"outbound"`
	Type       string         `toml:"type"`
	Instance   string         `toml:"instance"`
	Inbound    string         `toml:"inbound"`
	Components []string       `toml:"components"`
	Properties map[string]any `toml:"properties"`
}

type flowTypeDoc struct {
	Namespace   string                `toml:"namespace"`
	Name        string                `toml:"name"`
	Description string                `toml:"description"`
	Wrapper     entityInstanceDoc     `toml:"wrapper"`
	Entities    []entityInstanceDoc   `toml:"entities"`
	Relations   []relationInstanceDoc `toml:"relations"`
	Variables   []propertyDoc         `toml:"variables"`
	Extensions  map[string]any        `toml:"extensions"`
}

type document struct {
	Components    []componentDoc    `toml:"components"`
	EntityTypes   []entityTypeDoc   `toml:"entity_types"`
	RelationTypes []relationTypeDoc `toml:"relation_types"`
	FlowTypes     []flowTypeDoc     `toml:"flow_types"`
}

// TOMLProvider provides the types of a TOML document. The document is decoded
// on first use and the result is cached.
type TOMLProvider struct {
	id     string
	decode func(v any) (toml.MetaData, error)

	once sync.Once
	doc  document
	err  error
}

// NewTOMLProvider creates a provider for an in-memory document.
func NewTOMLProvider(id, data string) *TOMLProvider {
	return &TOMLProvider{id: id, decode: func(v any) (toml.MetaData, error) { return toml.Decode(data, v) }}
}

// NewTOMLFileProvider creates a provider for the document at path.
func NewTOMLFileProvider(id, path string) *TOMLProvider {
	return &TOMLProvider{id: id, decode: func(v any) (toml.MetaData, error) {
		meta, err := toml.DecodeFile(path, v)
		if err != nil {
			return meta, fmt.Errorf("load %s: %w", path, err)
		}
		return meta, nil
	}}
}

func (p *TOMLProvider) ID() string { return p.id }

func (p *TOMLProvider) load() (document, error) {
	p.once.Do(func() {
		meta, err := p.decode(&p.doc)
		if err != nil {
			p.err = fmt.Errorf("provider %s: %w", p.id, err)
			return
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			p.err = fmt.Errorf("provider %s: %w: %s", p.id, ErrUndecodedKeys, strings.Join(keys, ", "))
		}
	})
	return p.doc, p.err
}

func (p *TOMLProvider) Components() ([]core.Component, error) {
	doc, err := p.load()
	if err != nil {
		return nil, err
	}
	out := make([]core.Component, 0, len(doc.Components))
	for _, d := range doc.Components {
		props, err := properties(d.Properties)
		if err != nil {
			return nil, fmt.Errorf("component %s%s%s: %w", d.Namespace, core.NamespaceSeparator, d.Name, err)
		}
		out = append(out, core.Component{
			ID:          core.NewComponentTypeID(d.Namespace, d.Name),
			Description: d.Description,
			Properties:  props,
			Extensions:  extensions(d.Extensions),
		})
	}
	return out, nil
}

func (p *TOMLProvider) EntityTypes() ([]core.EntityType, error) {
	doc, err := p.load()
	if err != nil {
		return nil, err
	}
	out := make([]core.EntityType, 0, len(doc.EntityTypes))
	for _, d := range doc.EntityTypes {
		id := core.NewEntityTypeID(d.Namespace, d.Name)
		components, err := componentIDs(d.Components)
		if err != nil {
			return nil, fmt.Errorf("entity type %s: %w", id, err)
		}
		props, err := properties(d.Properties)
		if err != nil {
			return nil, fmt.Errorf("entity type %s: %w", id, err)
		}
		out = append(out, core.EntityType{
			ID:          id,
			Description: d.Description,
			Components:  components,
			Properties:  props,
			Extensions:  extensions(d.Extensions),
		})
	}
	return out, nil
}

func (p *TOMLProvider) RelationTypes() ([]core.RelationType, error) {
	doc, err := p.load()
	if err != nil {
		return nil, err
	}
	out := make([]core.RelationType, 0, len(doc.RelationTypes))
	for _, d := range doc.RelationTypes {
		id := core.NewRelationTypeID(d.Namespace, d.Name)
		outbound, err := entityTypeID(d.Outbound)
		if err != nil {
			return nil, fmt.Errorf("relation type %s outbound: %w", id, err)
		}
		inbound, err := entityTypeID(d.Inbound)
		if err != nil {
			return nil, fmt.Errorf("relation type %s inbound: %w", id, err)
		}
		components, err := componentIDs(d.Components)
		if err != nil {
			return nil, fmt.Errorf("relation type %s: %w", id, err)
		}
		props, err := properties(d.Properties)
		if err != nil {
			return nil, fmt.Errorf("relation type %s: %w", id, err)
		}
		out = append(out, core.RelationType{
			ID:          id,
			Description: d.Description,
			Outbound:    outbound,
			Inbound:     inbound,
			Components:  components,
			Properties:  props,
			Extensions:  extensions(d.Extensions),
		})
	}
	return out, nil
}

func (p *TOMLProvider) FlowTypes() ([]core.FlowType, error) {
	doc, err := p.load()
	if err != nil {
		return nil, err
	}
	out := make([]core.FlowType, 0, len(doc.FlowTypes))
	for _, d := range doc.FlowTypes {
		ft, err := flowType(d)
		if err != nil {
			return nil, fmt.Errorf("flow type %s%s%s: %w", d.Namespace, core.NamespaceSeparator, d.Name, err)
		}
		out = append(out, ft)
	}
	return out, nil
}

func flowType(d flowTypeDoc) (core.FlowType, error) {
	ft := core.FlowType{
		ID:          core.NewFlowTypeID(d.Namespace, d.Name),
		Description: d.Description,
		Extensions:  extensions(d.Extensions),
	}
	var err error
	if ft.Wrapper, err = entityInstance(d.Wrapper); err != nil {
		return ft, fmt.Errorf("wrapper: %w", err)
	}
	for _, e := range d.Entities {
		inst, err := entityInstance(e)
		if err != nil {
			return ft, err
		}
		ft.Entities = append(ft.Entities, inst)
	}
	for _, r := range d.Relations {
		inst, err := relationInstance(r)
		if err != nil {
			return ft, err
		}
		ft.Relations = append(ft.Relations, inst)
	}
	if ft.Variables, err = properties(d.Variables); err != nil {
		return ft, fmt.Errorf("variables: %w", err)
	}
	return ft, nil
}

func entityInstance(d entityInstanceDoc) (core.EntityInstance, error) {
	var inst core.EntityInstance
	if d.ID != "" {
		id, err := uuid.Parse(d.ID)
		if err != nil {
			return inst, fmt.Errorf("entity id %q: %w", d.ID, err)
		}
		inst.ID = id
	}
	ty, err := entityTypeID(d.Type)
	if err != nil {
		return inst, err
	}
	inst.Type = ty
	if inst.Components, err = componentIDs(d.Components); err != nil {
		return inst, err
	}
	inst.Properties = values(d.Properties)
	return inst, nil
}

func relationInstance(d relationInstanceDoc) (core.RelationInstance, error) {
	var inst core.RelationInstance
	outbound, err := uuid.Parse(d.Outbound)
	if err != nil {
		return inst, fmt.Errorf("relation outbound %q: %w", d.Outbound, err)
	}
	inbound, err := uuid.Parse(d.Inbound)
	if err != nil {
		return inst, fmt.Errorf("relation inbound %q: %w", d.Inbound, err)
	}
	ty, err := core.ParseTypeID(d.Type)
	if err != nil {
		return inst, err
	}
	inst.ID = core.RelationInstanceID{
		Outbound: outbound,
		Type:     core.RelationTypeID{TypeID: ty},
		Instance: d.Instance,
		Inbound:  inbound,
	}
	if inst.Components, err = componentIDs(d.Components); err != nil {
		return inst, err
	}
	inst.Properties = values(d.Properties)
	return inst, nil
}

// entityTypeID parses an entity type reference. The empty string is the
// wildcard.
func entityTypeID(s string) (core.EntityTypeID, error) {
	if s == "" {
		return core.EntityTypeID{}, nil
	}
	ty, err := core.ParseTypeID(s)
	if err != nil {
		return core.EntityTypeID{}, err
	}
	return core.EntityTypeID{TypeID: ty}, nil
}

func componentIDs(refs []string) (core.ComponentList, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	out := make(core.ComponentList, 0, len(refs))
	for _, ref := range refs {
		ty, err := core.ParseTypeID(ref)
		if err != nil {
			return nil, fmt.Errorf("component: %w", err)
		}
		out = append(out, core.ComponentTypeID{TypeID: ty})
	}
	return out, nil
}

func properties(docs []propertyDoc) (core.PropertyTypes, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	out := make(core.PropertyTypes, 0, len(docs))
	for _, d := range docs {
		if d.Name == "" {
			return nil, errors.New("property without name")
		}
		dt := core.DataTypeAny
		if d.DataType != "" {
			var err error
			if dt, err = core.ParseDataType(d.DataType); err != nil {
				return nil, fmt.Errorf("property %s: %w", d.Name, err)
			}
		}
		st, err := core.ParseSocketType(d.SocketType)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", d.Name, err)
		}
		mu, err := core.ParseMutability(d.Mutability)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", d.Name, err)
		}
		out = append(out, core.PropertyType{
			Name:        d.Name,
			Description: d.Description,
			DataType:    dt,
			SocketType:  st,
			Mutability:  mu,
			Extensions:  extensions(d.Extensions),
		})
	}
	return out, nil
}

func extensions(m map[string]any) core.Extensions {
	if len(m) == 0 {
		return nil
	}
	return core.Extensions(values(m))
}

// values converts decoded TOML values to the runtime's JSON-like values.
func values(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = value(v)
	}
	return out
}

func value(v any) any {
	switch t := v.(type) {
	case int64:
		return float64(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = value(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = values(e)
		}
		return out
	case map[string]any:
		return values(t)
	default:
		return v
	}
}
