// Package job runs one match, format or match-and-format over a data
// document. The command line and the stream processor both drive the
// engine through a Job.
package job

import (
	"fmt"

	"github.com/Neumenon/regular/codec"
	"github.com/Neumenon/regular/config"
	"github.com/Neumenon/regular/regular"
)

// Job is a loaded job: templates parsed, bindings read.
type Job struct {
	Name string

	// Match is matched against the data. Nil for bindings jobs.
	Match *regular.Value

	// Format is the output template. Nil makes the job match-only: its
	// output is the binding sets of the match.
	Format *regular.Value

	// Bindings replaces the match for jobs that format stored binding
	// sets.
	Bindings []regular.Bindings

	// Symbols restricts the binding sets of a match-only job.
	Symbols []regular.Symbol

	// Single requires a match-only job to produce exactly one binding
	// set, written as a map instead of a list.
	Single bool

	// All writes every result of a non-list Format as a list instead of
	// requiring exactly one.
	All bool

	// Clean strips unresolved placeholders from the output.
	Clean bool
}

// Load reads the template and bindings files named by c. Named
// transforms in templates resolve through funcs (nil means
// regular.DefaultFuncs).
func Load(c config.Job, funcs regular.Funcs) (*Job, error) {
	j := &Job{
		Name:    c.Name,
		Symbols: ToSymbols(c.Symbols),
		Single:  c.Single,
		All:     c.All,
		Clean:   c.Clean,
	}
	var err error
	if c.Match != "" {
		if j.Match, err = codec.ReadTemplateFile(c.Match, funcs); err != nil {
			return nil, fmt.Errorf("job %s: match template: %w", c.Name, err)
		}
	}
	if c.Format != "" {
		if j.Format, err = codec.ReadTemplateFile(c.Format, funcs); err != nil {
			return nil, fmt.Errorf("job %s: format template: %w", c.Name, err)
		}
	}
	if c.Bindings != "" {
		if j.Bindings, err = codec.ReadBindingsFile(c.Bindings); err != nil {
			return nil, fmt.Errorf("job %s: bindings: %w", c.Name, err)
		}
	}
	if err := j.Validate(); err != nil {
		return nil, err
	}
	return j, nil
}

// ToSymbols converts names to symbols.
func ToSymbols(names []string) []regular.Symbol {
	if len(names) == 0 {
		return nil
	}
	syms := make([]regular.Symbol, len(names))
	for i, n := range names {
		syms[i] = regular.Symbol(n)
	}
	return syms
}

// Validate checks that the job's parts fit together.
func (j *Job) Validate() error {
	switch {
	case j.Bindings != nil && j.Match != nil:
		return fmt.Errorf("job %s: bindings and match template are exclusive", j.Name)
	case j.Bindings != nil && j.Format == nil:
		return fmt.Errorf("job %s: bindings need a format template", j.Name)
	case j.Bindings == nil && j.Match == nil:
		return fmt.Errorf("job %s: a match template or bindings are required", j.Name)
	case j.Format != nil && (len(j.Symbols) > 0 || j.Single):
		return fmt.Errorf("job %s: symbols and single apply to match-only jobs", j.Name)
	case j.Single && j.All:
		return fmt.Errorf("job %s: single and all are exclusive", j.Name)
	}
	return nil
}

// NeedsData reports whether Run reads its data argument.
func (j *Job) NeedsData() bool {
	return j.Match != nil
}

// MatchOnly reports whether the output is binding sets.
func (j *Job) MatchOnly() bool {
	return j.Format == nil
}

// Run applies the job to data.
func (j *Job) Run(data *regular.Value) (*regular.Value, error) {
	out, err := j.run(data)
	if err != nil {
		return nil, err
	}
	if j.Clean {
		if out, err = regular.Clean(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (j *Job) run(data *regular.Value) (*regular.Value, error) {
	if j.Bindings != nil {
		results, err := regular.FormatEach(j.Format, j.Bindings)
		if err != nil {
			return nil, err
		}
		return j.collect("Format", results)
	}

	m := regular.Match(j.Match, data)
	if j.Format != nil {
		if !j.All {
			return regular.Format(j.Format, m)
		}
		results, err := regular.FormatAll(j.Format, m)
		if err != nil {
			return nil, err
		}
		return regular.List(results...), nil
	}

	sets, err := j.BindingSets(m)
	if err != nil {
		return nil, err
	}
	items := make([]*regular.Value, len(sets))
	for i, b := range sets {
		items[i] = b.ToValue()
	}
	if j.Single {
		return j.collect("Single", items)
	}
	return regular.List(items...), nil
}

// BindingSets returns the binding sets of a match-only job, projected to
// Symbols when set.
func (j *Job) BindingSets(m *regular.Matcher) ([]regular.Bindings, error) {
	if len(j.Symbols) > 0 {
		return m.Project(j.Symbols...)
	}
	return m.All()
}

// collect returns the only result, or all of them as a list under All.
func (j *Job) collect(op string, results []*regular.Value) (*regular.Value, error) {
	if j.All {
		return regular.List(results...), nil
	}
	if len(results) != 1 {
		return nil, &regular.MisuseError{Op: op, Results: len(results)}
	}
	return results[0], nil
}
