package main

import (
	"fmt"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/services"
	"github.com/custodia-labs/printdesk/internal/extractor"
	"github.com/custodia-labs/printdesk/internal/logger"
)

// vocabulary holds the options built from the user vocabulary files.
type vocabulary struct {
	extractor []extractor.Option
	search    []services.SearchOption
	resolver  []services.ResolverOption
}

// loadVocabulary reads the configured vocabulary files. A configured file
// that cannot be read is an error so a typo does not silently fall back
// to the built-in data.
func loadVocabulary(settings domain.VocabularySettings) (vocabulary, error) {
	var v vocabulary

	if settings.RulesFile != "" {
		rules, err := extractor.LoadRules(settings.RulesFile)
		if err != nil {
			return v, fmt.Errorf("extractor.rules_file: %w", err)
		}
		v.extractor = append(v.extractor, extractor.WithRules(rules))
		logger.Debug("Loaded extractor rules from %s", settings.RulesFile)
	}

	if settings.ExpansionFile != "" {
		expansion, err := services.LoadQueryExpansion(settings.ExpansionFile)
		if err != nil {
			return v, fmt.Errorf("search.expansion_file: %w", err)
		}
		v.search = append(v.search, services.WithQueryExpansion(expansion))
		logger.Debug("Loaded query expansion from %s", settings.ExpansionFile)
	}

	if settings.FunnelFile != "" {
		stages, err := services.LoadFunnelStages(settings.FunnelFile)
		if err != nil {
			return v, fmt.Errorf("resolver.funnel_file: %w", err)
		}
		v.resolver = append(v.resolver, services.WithFunnelStages(stages))
		logger.Debug("Loaded %d funnel stages from %s", len(stages), settings.FunnelFile)
	}

	return v, nil
}
