package sourceschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed source_config.schema.json
var sourceConfigSchemaJSON string

// SourceConfig is the per-source fetch configuration stored on the sources
// table. All fields are optional; adapters apply their own defaults.
type SourceConfig struct {
	Keywords      []string `json:"keywords,omitempty"`
	Limit         int      `json:"limit,omitempty"`
	Subreddit     string   `json:"subreddit,omitempty"`
	Sort          string   `json:"sort,omitempty"`
	EntityType    string   `json:"entity_type,omitempty"`
	WatchlistID   string   `json:"watchlist_id,omitempty"`
	DomainAllow   []string `json:"domain_allow,omitempty"`
	LangAllow     []string `json:"lang_allow,omitempty"`
	MinEngagement *int     `json:"min_engagement,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateSourceConfig validates a config document against the schema and
// returns the decoded configuration. A nil or empty payload yields an empty
// configuration.
func ValidateSourceConfig(payload json.RawMessage) (*SourceConfig, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return &SourceConfig{}, nil
	}

	value, err := decodeStrictJSON(trimmed)
	if err != nil {
		return nil, fmt.Errorf("decode config JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize config JSON: %w", err)
	}

	var cfg SourceConfig
	if err := json.Unmarshal(normalized, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("source_config.schema.json", strings.NewReader(sourceConfigSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("source_config.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("config contains trailing content")
	}

	return value, nil
}
