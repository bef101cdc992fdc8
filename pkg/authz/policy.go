package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Subject is a concrete Actor carrying roles, direct permissions and free-form
// attributes that condition rules can read.
type Subject struct {
	ID          string         `json:"id" yaml:"id"`
	Roles       []string       `json:"roles,omitempty" yaml:"roles,omitempty"`
	Permissions []string       `json:"permissions,omitempty" yaml:"permissions,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// ActorID implements Actor.
func (s *Subject) ActorID() string {
	if s == nil {
		return ""
	}
	return s.ID
}

// Policy is a role based Oracle. Roles map to permission patterns matched with
// path.Match, so "export-*" or "*" grant families of permissions. Patterns
// prefixed with "!" deny and take precedence over grants.
type Policy struct {
	roles    map[string][]string
	subjects map[string]*Subject
}

var _ Oracle = (*Policy)(nil)

// NewPolicy returns an empty policy that grants nothing. The zero Policy is
// equally usable.
func NewPolicy() *Policy {
	return &Policy{
		roles:    make(map[string][]string),
		subjects: make(map[string]*Subject),
	}
}

// Grant appends permission patterns to role.
func (p *Policy) Grant(role string, patterns ...string) error {
	role = strings.TrimSpace(role)
	if role == "" {
		return fmt.Errorf("authz: role name is required")
	}
	for _, pattern := range patterns {
		if err := validatePattern(pattern); err != nil {
			return fmt.Errorf("authz: role %q: %w", role, err)
		}
	}
	if p.roles == nil {
		p.roles = make(map[string][]string)
	}
	p.roles[role] = append(p.roles[role], patterns...)
	return nil
}

// AddSubject registers a subject so actors other than *Subject can be looked
// up by ActorID.
func (p *Policy) AddSubject(subject Subject) error {
	id := strings.TrimSpace(subject.ID)
	if id == "" {
		return fmt.Errorf("authz: subject id is required")
	}
	if _, exists := p.subjects[id]; exists {
		return fmt.Errorf("authz: duplicate subject %q", id)
	}
	for _, pattern := range subject.Permissions {
		if err := validatePattern(pattern); err != nil {
			return fmt.Errorf("authz: subject %q: %w", id, err)
		}
	}
	subject.ID = id
	if p.subjects == nil {
		p.subjects = make(map[string]*Subject)
	}
	p.subjects[id] = &subject
	return nil
}

// Subject returns the registered subject with id.
func (p *Policy) Subject(id string) (*Subject, bool) {
	if p == nil {
		return nil, false
	}
	subject, ok := p.subjects[strings.TrimSpace(id)]
	return subject, ok
}

// RoleNames returns the configured roles sorted by name.
func (p *Policy) RoleNames() []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.roles))
	for name := range p.roles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Can implements Oracle. Unknown actors and roles grant nothing.
func (p *Policy) Can(_ context.Context, actor Actor, permission string) (bool, error) {
	if isNilActor(actor) {
		return false, ErrNoActor
	}
	if p == nil {
		return false, nil
	}
	subject, ok := actor.(*Subject)
	if !ok {
		subject, ok = p.subjects[actor.ActorID()]
		if !ok {
			return false, nil
		}
	}

	patterns := append([]string(nil), subject.Permissions...)
	for _, role := range subject.Roles {
		patterns = append(patterns, p.roles[strings.TrimSpace(role)]...)
	}

	granted := false
	for _, pattern := range patterns {
		deny := strings.HasPrefix(pattern, "!")
		matched, err := matchPermission(strings.TrimPrefix(pattern, "!"), permission)
		if err != nil {
			return false, err
		}
		if !matched {
			continue
		}
		if deny {
			return false, nil
		}
		granted = true
	}
	return granted, nil
}

func matchPermission(pattern, permission string) (bool, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false, nil
	}
	if pattern == permission {
		return true, nil
	}
	matched, err := path.Match(pattern, permission)
	if err != nil {
		return false, fmt.Errorf("authz: permission pattern %q: %w", pattern, err)
	}
	return matched, nil
}

func validatePattern(pattern string) error {
	trimmed := strings.TrimPrefix(strings.TrimSpace(pattern), "!")
	if trimmed == "" {
		return fmt.Errorf("empty permission pattern")
	}
	if _, err := path.Match(trimmed, ""); err != nil {
		return fmt.Errorf("permission pattern %q: %w", pattern, err)
	}
	return nil
}

type policyFile struct {
	Roles    map[string][]string `json:"roles" yaml:"roles"`
	Subjects []Subject           `json:"subjects" yaml:"subjects"`
}

// ParsePolicy decodes a JSON or YAML policy document. source is only used in
// error messages.
func ParsePolicy(data []byte, source string) (*Policy, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("authz: policy %s is empty", source)
	}

	var doc policyFile
	if err := json.Unmarshal(data, &doc); err != nil {
		doc = policyFile{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("authz: parse %s: invalid JSON or YAML", source)
		}
	}

	policy := NewPolicy()
	for role, patterns := range doc.Roles {
		if err := policy.Grant(role, patterns...); err != nil {
			return nil, fmt.Errorf("%w (file %s)", err, source)
		}
	}
	for _, subject := range doc.Subjects {
		if err := policy.AddSubject(subject); err != nil {
			return nil, fmt.Errorf("%w (file %s)", err, source)
		}
	}
	return policy, nil
}

// LoadPolicyFS reads and parses the policy file name from fsys.
func LoadPolicyFS(fsys fs.FS, name string) (*Policy, error) {
	if fsys == nil {
		return nil, fmt.Errorf("authz: filesystem is required")
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("authz: read %s: %w", name, err)
	}
	return ParsePolicy(data, name)
}
