package search

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var tablesYAML []byte

type retrievalTables struct {
	Synonyms  map[string][]string `yaml:"synonyms"`
	Stopwords []string            `yaml:"stopwords"`
}

var (
	tablesOnce sync.Once
	tables     retrievalTables
	stopwords  map[string]bool
)

func loadTables() {
	tablesOnce.Do(func() {
		if err := yaml.Unmarshal(tablesYAML, &tables); err != nil {
			// The tables are compiled in; a parse failure is a build defect.
			panic(fmt.Sprintf("search: parse tables.yaml: %v", err))
		}
		stopwords = make(map[string]bool, len(tables.Stopwords))
		for _, w := range tables.Stopwords {
			stopwords[w] = true
		}
	})
}

func synonymsFor(term string) []string {
	loadTables()
	return tables.Synonyms[term]
}

func isStopword(w string) bool {
	loadTables()
	return stopwords[w]
}
