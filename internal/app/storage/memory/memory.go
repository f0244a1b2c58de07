package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/R3E-Network/constants_registry/internal/app/domain/constant"
	"github.com/R3E-Network/constants_registry/internal/app/query"
	"github.com/R3E-Network/constants_registry/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
// Referential rules match the SQL schema: constants need an existing domain and
// a referenced domain cannot be deleted.
type Store struct {
	mu        sync.RWMutex
	domains   map[string]constant.Domain
	constants map[string]map[string]constant.Constant // domain -> name -> constant
	calls     int
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		domains:   make(map[string]constant.Domain),
		constants: make(map[string]map[string]constant.Constant),
	}
}

// Calls reports how many gateway operations have been executed.
func (s *Store) Calls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls
}

// --- DomainStore ------------------------------------------------------------

func (s *Store) ListDomains(_ context.Context) ([]constant.Domain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	result := make([]constant.Domain, 0, len(s.domains))
	for _, d := range s.domains {
		result = append(result, cloneDomain(d))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Domain < result[j].Domain })
	return result, nil
}

func (s *Store) UpsertDomain(_ context.Context, d constant.Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	s.domains[d.Domain] = cloneDomain(d)
	return nil
}

func (s *Store) DeleteDomain(_ context.Context, domain string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	if _, ok := s.domains[domain]; !ok {
		return false, nil
	}
	if len(s.constants[domain]) > 0 {
		return false, storage.Wrap("delete domain", storage.KindForeignKey,
			fmt.Errorf("domain %q is referenced by %d constants", domain, len(s.constants[domain])))
	}
	delete(s.domains, domain)
	delete(s.constants, domain)
	return true, nil
}

// --- ConstantStore ----------------------------------------------------------

func (s *Store) QueryConstants(_ context.Context, stmt query.Statement) ([]constant.Constant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	match, err := matcher(stmt)
	if err != nil {
		return nil, err
	}
	domain, _ := stmt.Args[0].(string)

	result := make([]constant.Constant, 0)
	for _, c := range s.constants[domain] {
		if match(c) {
			result = append(result, cloneConstant(c))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) ListTags(_ context.Context, domain string) ([]*string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	seen := make(map[string]bool)
	sawNull := false
	var tags []string
	for _, c := range s.constants[domain] {
		if c.Tags == nil {
			sawNull = true
			continue
		}
		if !seen[*c.Tags] {
			seen[*c.Tags] = true
			tags = append(tags, *c.Tags)
		}
	}
	sort.Strings(tags)

	result := make([]*string, 0, len(tags)+1)
	if sawNull {
		result = append(result, nil)
	}
	for i := range tags {
		result = append(result, &tags[i])
	}
	return result, nil
}

func (s *Store) UpsertConstant(_ context.Context, c constant.Constant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	if _, ok := s.domains[c.Domain]; !ok {
		return storage.Wrap("upsert constant", storage.KindForeignKey,
			fmt.Errorf("domain %q does not exist", c.Domain))
	}
	byName := s.constants[c.Domain]
	if byName == nil {
		byName = make(map[string]constant.Constant)
		s.constants[c.Domain] = byName
	}
	byName[c.Name] = cloneConstant(c)
	return nil
}

func (s *Store) DeleteConstant(_ context.Context, domain, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	byName := s.constants[domain]
	if _, ok := byName[name]; !ok {
		return false, nil
	}
	delete(byName, name)
	return true, nil
}

// matcher interprets a resolved statement by its shape and bind values.
func matcher(stmt query.Statement) (func(constant.Constant) bool, error) {
	arg := func(i int) (string, error) {
		if i >= len(stmt.Args) {
			return "", fmt.Errorf("memory: statement %s missing argument %d", stmt.Shape, i)
		}
		v, ok := stmt.Args[i].(string)
		if !ok {
			return "", fmt.Errorf("memory: statement %s argument %d is %T", stmt.Shape, i, stmt.Args[i])
		}
		return v, nil
	}
	set := func(i int) (map[string]bool, error) {
		if i >= len(stmt.Args) {
			return nil, fmt.Errorf("memory: statement %s missing tag set", stmt.Shape)
		}
		tags, ok := stmt.Args[i].([]string)
		if !ok {
			return nil, fmt.Errorf("memory: statement %s tag set is %T", stmt.Shape, stmt.Args[i])
		}
		m := make(map[string]bool, len(tags))
		for _, t := range tags {
			m[t] = true
		}
		return m, nil
	}
	column := func(c constant.Constant) *string {
		if stmt.Column == "hex_value" {
			return c.HexValue
		}
		return &c.Value
	}
	inSet := func(tags map[string]bool, c constant.Constant) bool {
		return c.Tags != nil && tags[*c.Tags]
	}

	switch stmt.Shape {
	case query.ShapeDomain:
		return func(constant.Constant) bool { return true }, nil
	case query.ShapeName:
		name, err := arg(1)
		if err != nil {
			return nil, err
		}
		return func(c constant.Constant) bool { return c.Name == name }, nil
	case query.ShapeValue:
		pattern, err := arg(1)
		if err != nil {
			return nil, err
		}
		return func(c constant.Constant) bool {
			v := column(c)
			return v != nil && like(*v, pattern)
		}, nil
	case query.ShapeValueTags:
		pattern, err := arg(1)
		if err != nil {
			return nil, err
		}
		tags, err := set(2)
		if err != nil {
			return nil, err
		}
		return func(c constant.Constant) bool {
			v := column(c)
			return v != nil && like(*v, pattern) && inSet(tags, c)
		}, nil
	case query.ShapeTags:
		tags, err := set(1)
		if err != nil {
			return nil, err
		}
		return func(c constant.Constant) bool { return inSet(tags, c) }, nil
	default:
		return nil, errors.New("memory: unknown statement shape")
	}
}

type likeKind int

const (
	likeLiteral likeKind = iota
	likeOne // '_'
	likeAny // '%'
)

type likeToken struct {
	kind likeKind
	r    rune
}

// compileLike splits a LIKE pattern into tokens, honouring query.LikeEscape
// and folding runs of '%' into one.
func compileLike(pattern string) []likeToken {
	runes := []rune(pattern)
	tokens := make([]likeToken, 0, len(runes))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == query.LikeEscape && i+1 < len(runes):
			i++
			tokens = append(tokens, likeToken{kind: likeLiteral, r: runes[i]})
		case r == '%':
			if n := len(tokens); n == 0 || tokens[n-1].kind != likeAny {
				tokens = append(tokens, likeToken{kind: likeAny})
			}
		case r == '_':
			tokens = append(tokens, likeToken{kind: likeOne})
		default:
			tokens = append(tokens, likeToken{kind: likeLiteral, r: r})
		}
	}
	return tokens
}

// like implements case-sensitive SQL LIKE with an escape character. It
// backtracks only to the most recent '%', so matching stays linear in the
// number of tokens per input rune.
func like(s, pattern string) bool {
	str := []rune(s)
	pat := compileLike(pattern)

	si, pi := 0, 0
	star, mark := -1, 0
	for si < len(str) {
		switch {
		case pi < len(pat) && pat[pi].kind == likeAny:
			star, mark = pi, si
			pi++
		case pi < len(pat) && (pat[pi].kind == likeOne || pat[pi].r == str[si]):
			si++
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}
	for pi < len(pat) && pat[pi].kind == likeAny {
		pi++
	}
	return pi == len(pat)
}

func cloneDomain(d constant.Domain) constant.Domain {
	d.Link = cloneString(d.Link)
	return d
}

func cloneConstant(c constant.Constant) constant.Constant {
	c.HexValue = cloneString(c.HexValue)
	c.Tags = cloneString(c.Tags)
	c.Link = cloneString(c.Link)
	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
