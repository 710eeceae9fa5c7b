package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/komsit37/fundwl/pkg/fundwl/types"
)

// ErrInvalidFund is wrapped by every registry validation failure.
var ErrInvalidFund = errors.New("invalid fund")

var codePattern = regexp.MustCompile(`^\d{6}$`)

// YAMLSource loads portfolios from a YAML file or a directory of them.
type YAMLSource struct{}

// Load expects spec to be a string filepath.
func (YAMLSource) Load(ctx context.Context, spec any) ([]types.Portfolio, error) { //nolint:revive // ctx reserved for future use
	path, ok := spec.(string)
	if !ok {
		return nil, fmt.Errorf("yaml source expects filepath string spec")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		ps, err := parseYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		// Unnamed portfolios take the file name.
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		for i := range ps {
			if strings.TrimSpace(ps[i].Name) == "" {
				ps[i].Name = base
			}
		}
		return ps, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var all []types.Portfolio
	for _, full := range files {
		data, err := os.ReadFile(full)
		if err != nil {
			return nil, err
		}
		ps, err := parseYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", full, err)
		}
		// Prefix from the relative path without extension, using forward slashes.
		rel, err := filepath.Rel(path, full)
		if err != nil {
			rel = filepath.Base(full)
		}
		prefix := filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
		for i := range ps {
			if strings.TrimSpace(ps[i].Name) == "" {
				ps[i].Name = prefix
			} else if prefix != "" {
				ps[i].Name = prefix + "/" + ps[i].Name
			}
		}
		all = append(all, ps...)
	}
	return all, nil
}

// code keeps the scalar text exactly as written, so an unquoted 018125
// is not read as a number.
type code string

func (c *code) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: code must be a scalar", n.Line)
	}
	*c = code(strings.TrimSpace(n.Value))
	return nil
}

type fundEntry struct {
	Code   code    `yaml:"code"`
	Amount float64 `yaml:"amount"`
	Profit float64 `yaml:"profit"`
	Name   string  `yaml:"name"`
}

type portfolioEntry struct {
	Name  string      `yaml:"name"`
	Funds []fundEntry `yaml:"funds"`
}

type document struct {
	Name       string           `yaml:"name"`
	Funds      []fundEntry      `yaml:"funds"`
	Portfolios []portfolioEntry `yaml:"portfolios"`
}

// parseYAML accepts a bare list of funds, a single portfolio mapping
// (name + funds), or a mapping with a portfolios list.
func parseYAML(data []byte) ([]types.Portfolio, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, nil
	}
	node := root.Content[0]

	var entries []portfolioEntry
	switch node.Kind {
	case yaml.SequenceNode:
		var funds []fundEntry
		if err := node.Decode(&funds); err != nil {
			return nil, err
		}
		entries = []portfolioEntry{{Funds: funds}}
	case yaml.MappingNode:
		var doc document
		if err := node.Decode(&doc); err != nil {
			return nil, err
		}
		if len(doc.Funds) > 0 || len(doc.Portfolios) == 0 {
			entries = append(entries, portfolioEntry{Name: doc.Name, Funds: doc.Funds})
		}
		entries = append(entries, doc.Portfolios...)
	default:
		return nil, fmt.Errorf("invalid yaml: expected a list of funds or a mapping with 'funds'")
	}

	seen := map[string]struct{}{}
	out := make([]types.Portfolio, 0, len(entries))
	for _, e := range entries {
		p := types.Portfolio{Name: e.Name, Funds: make([]types.Fund, 0, len(e.Funds))}
		for i, fe := range e.Funds {
			f := types.Fund{
				Code:          string(fe.Code),
				HoldingAmount: fe.Amount,
				HoldingProfit: fe.Profit,
				Name:          strings.TrimSpace(fe.Name),
			}
			if err := validate(f); err != nil {
				return nil, fmt.Errorf("funds[%d]: %w", i, err)
			}
			if _, dup := seen[f.Code]; dup {
				return nil, fmt.Errorf("funds[%d]: %w: duplicate code %s", i, ErrInvalidFund, f.Code)
			}
			seen[f.Code] = struct{}{}
			p.Funds = append(p.Funds, f)
		}
		out = append(out, p)
	}
	return out, nil
}

func validate(f types.Fund) error {
	if !codePattern.MatchString(f.Code) {
		return fmt.Errorf("%w: code %q is not six digits", ErrInvalidFund, f.Code)
	}
	if f.HoldingAmount < 0 {
		return fmt.Errorf("%w: %s has negative amount %v", ErrInvalidFund, f.Code, f.HoldingAmount)
	}
	return nil
}
