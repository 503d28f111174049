package cmd

import (
	"fmt"

	"github.com/bnema/wayskk/internal/config"
	"github.com/bnema/wayskk/internal/skk"
)

// dictionarySources lists user dictionaries before static ones so that
// learned candidates rank first.
func dictionarySources(cfg *config.Config) []skk.Source {
	sources := make([]skk.Source, 0, len(cfg.UserDictionary)+len(cfg.StaticDictionary))
	for _, d := range cfg.UserDictionary {
		sources = append(sources, skk.Source{Kind: skk.KindUser, Path: config.ExpandPath(d.Path), Encoding: d.Encoding})
	}
	for _, d := range cfg.StaticDictionary {
		sources = append(sources, skk.Source{Kind: skk.KindStatic, Path: config.ExpandPath(d.Path), Encoding: d.Encoding})
	}
	return sources
}

func newEngine(cfg *config.Config) (*skk.Engine, error) {
	mode, err := skk.ParseInputMode(cfg.Engine.InitialInputMode)
	if err != nil {
		return nil, fmt.Errorf("invalid engine.initial_input_mode: %w", err)
	}
	return skk.NewEngine(mode, skk.LoadAll(dictionarySources(cfg))), nil
}
