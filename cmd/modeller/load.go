package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Jozo132/modeller-sub001/internal/config"
	"github.com/Jozo132/modeller-sub001/pkg/engine"
	"github.com/Jozo132/modeller-sub001/pkg/formula"
	"github.com/Jozo132/modeller-sub001/pkg/kernel"
	"github.com/Jozo132/modeller-sub001/pkg/part"
	"github.com/rs/zerolog"
)

// loadModel evaluates a script or restores a serialized part or assembly.
// Files ending in .json are serialized documents; anything else is a
// script.
func loadModel(path string, cfg config.Config, log *zerolog.Logger) (*engine.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	k, err := cfg.NewKernel()
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		vars := formula.NewTable()
		opts := part.Options{Kernel: k, Solve: cfg.SolveOptions(), Variables: vars, Logger: log}
		return decodeModel(data, opts)
	}

	m, evalErrs, err := newEngine(cfg, k, log).Evaluate(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(evalErrs) > 0 {
		msgs := make([]string, len(evalErrs))
		for i, e := range evalErrs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("%s: %s", path, strings.Join(msgs, "; "))
	}
	return m, nil
}

// newEngine builds an engine configured from cfg.
func newEngine(cfg config.Config, k kernel.Kernel, log *zerolog.Logger) *engine.Engine {
	return engine.NewEngine(
		engine.WithKernel(k),
		engine.WithSolveOptions(cfg.SolveOptions()),
		engine.WithLogger(log),
		engine.WithTimeout(cfg.Eval.Timeout),
	)
}

// decodeModel restores a part, or an assembly when the document has a
// components list.
func decodeModel(data []byte, opts part.Options) (*engine.Model, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	m := &engine.Model{Variables: opts.Variables}
	if _, ok := probe["components"]; ok {
		var rec part.AssemblyRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("invalid assembly: %w", err)
		}
		a, err := part.DeserializeAssembly(rec, opts)
		if err != nil {
			return nil, err
		}
		m.Assembly = a
		for _, c := range a.Components() {
			if _, seen := m.Part(c.Part.Name); !seen {
				m.Parts = append(m.Parts, c.Part)
			}
		}
		return m, nil
	}
	var rec part.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("invalid part: %w", err)
	}
	p, err := part.Deserialize(rec, opts)
	if err != nil {
		return nil, err
	}
	m.Parts = []*part.Part{p}
	return m, nil
}
