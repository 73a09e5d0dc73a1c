package learner

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var tablesYAML []byte

type learnerTables struct {
	Adjacency map[string][]string `yaml:"adjacency"`
}

var (
	tablesOnce sync.Once
	tables     learnerTables
)

func loadTables() *learnerTables {
	tablesOnce.Do(func() {
		if err := yaml.Unmarshal(tablesYAML, &tables); err != nil {
			// Compiled-in data; a parse failure is a build defect.
			panic(fmt.Sprintf("learner: parse tables.yaml: %v", err))
		}
	})
	return &tables
}

func adjacentTopics(topic string) []string {
	return loadTables().Adjacency[topic]
}
