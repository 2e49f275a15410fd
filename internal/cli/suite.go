// internal/cli/suite.go
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"content-testing-workers/internal/contenttest"
	"content-testing-workers/internal/problem"

	"gopkg.in/yaml.v3"
)

// Suite is a local set of problems and the content tests written for them.
type Suite struct {
	Problems []SuiteProblem `yaml:"problems"`
	Tests    []SuiteTest    `yaml:"tests"`

	dir string
}

// SuiteProblem points at the problem XML a test was authored against and,
// optionally, at the edited version it should be checked against.
type SuiteProblem struct {
	Location string `yaml:"location"`
	File     string `yaml:"file"`
	XML      string `yaml:"xml"`
	Revision string `yaml:"revision"`
}

type SuiteTest struct {
	Name     string            `yaml:"name"`
	Problem  string            `yaml:"problem"`
	ShouldBe string            `yaml:"shouldBe"`
	Answers  map[string]string `yaml:"answers"`
}

func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite: %w", err)
	}
	s, err := ParseSuite(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

func ParseSuite(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode suite: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Suite) validate() error {
	known := make(map[string]bool, len(s.Problems))
	for i, p := range s.Problems {
		if p.Location == "" {
			return fmt.Errorf("problem %d has no location", i+1)
		}
		if p.File == "" && p.XML == "" {
			return fmt.Errorf("problem %s needs file or xml", p.Location)
		}
		known[p.Location] = true
	}
	for i, t := range s.Tests {
		if !known[t.Problem] {
			return fmt.Errorf("test %d (%s) refers to unknown problem %q", i+1, t.Name, t.Problem)
		}
	}
	return nil
}

// Original returns a source serving every problem as it was authored.
func (s *Suite) Original() (*problem.StaticSource, error) {
	problems := make(map[string]string, len(s.Problems))
	for _, p := range s.Problems {
		data, err := s.read(p.File, p.XML)
		if err != nil {
			return nil, fmt.Errorf("problem %s: %w", p.Location, err)
		}
		problems[p.Location] = data
	}
	return problem.NewStaticSource(problems), nil
}

// ApplyRevisions swaps in the edited version of every problem that has one
// and reports how many were replaced.
func (s *Suite) ApplyRevisions(src *problem.StaticSource) (int, error) {
	n := 0
	for _, p := range s.Problems {
		if p.Revision == "" {
			continue
		}
		data, err := s.read(p.Revision, "")
		if err != nil {
			return n, fmt.Errorf("problem %s revision: %w", p.Location, err)
		}
		src.Put(p.Location, data)
		n++
	}
	return n, nil
}

// NewTestCases converts the suite's tests for contenttest.Service.Create.
func (s *Suite) NewTestCases() []contenttest.NewTestCase {
	out := make([]contenttest.NewTestCase, len(s.Tests))
	for i, t := range s.Tests {
		out[i] = contenttest.NewTestCase{
			ProblemLocation: t.Problem,
			ShouldBe:        t.ShouldBe,
			Answers:         contenttest.Answers(t.Answers),
		}
	}
	return out
}

func (s *Suite) read(file, inline string) (string, error) {
	if file == "" {
		return inline, nil
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(s.dir, file)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
