package policy

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// SubjectInputs is the set of fields a NamingStrategy may consume when
// composing a subject name. Not every strategy needs every field; each
// strategy's InputSchema declares exactly which ones are required.
type SubjectInputs struct {
	Topic      string `json:"topic,omitempty"`
	Namespace  string `json:"namespace,omitempty"`
	Record     string `json:"record,omitempty"`
	Env        string `json:"env,omitempty"`
	Team       string `json:"team,omitempty"`
	KeyOrValue string `json:"key_or_value,omitempty"`
}

// NamingStrategy composes a Schema Registry subject name from a declared
// subset of SubjectInputs. Each built-in strategy exposes a jsonschema.Schema
// describing its required fields, giving the "input schema" language in
// spec.md §4.B a concrete, checkable representation (SPEC_FULL.md §4.B
// expansion).
type NamingStrategy interface {
	StrategyName() string
	InputSchema() *jsonschema.Schema
	Compose(in SubjectInputs) (string, error)
}

func mustSchema(required []string) *jsonschema.Schema {
	props := map[string]*jsonschema.Schema{
		"topic":        {Type: "string"},
		"namespace":    {Type: "string"},
		"record":       {Type: "string"},
		"env":          {Type: "string"},
		"team":         {Type: "string"},
		"key_or_value": {Type: "string", Enum: []any{"key", "value"}},
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

// TopicNameStrategy composes "{topic}-{key_or_value}", the Schema Registry
// default.
type TopicNameStrategy struct{}

func (TopicNameStrategy) StrategyName() string { return "TopicName" }

func (TopicNameStrategy) InputSchema() *jsonschema.Schema {
	return mustSchema([]string{"topic", "key_or_value"})
}

func (TopicNameStrategy) Compose(in SubjectInputs) (string, error) {
	if in.Topic == "" || in.KeyOrValue == "" {
		return "", fmt.Errorf("policy: TopicNameStrategy requires topic and key_or_value")
	}
	return in.Topic + "-" + in.KeyOrValue, nil
}

// RecordNameStrategy composes "{namespace}.{record}", with no topic or
// environment prefix — the subject this produces has no env segment, which
// is why EnvironmentOf falls through to EnvUnknown for it (DESIGN.md Open
// Question #3).
type RecordNameStrategy struct{}

func (RecordNameStrategy) StrategyName() string { return "RecordName" }

func (RecordNameStrategy) InputSchema() *jsonschema.Schema {
	return mustSchema([]string{"namespace", "record"})
}

func (RecordNameStrategy) Compose(in SubjectInputs) (string, error) {
	if in.Namespace == "" || in.Record == "" {
		return "", fmt.Errorf("policy: RecordNameStrategy requires namespace and record")
	}
	return in.Namespace + "." + in.Record, nil
}

// TopicRecordNameStrategy composes "{topic}-{namespace}.{record}".
type TopicRecordNameStrategy struct{}

func (TopicRecordNameStrategy) StrategyName() string { return "TopicRecordName" }

func (TopicRecordNameStrategy) InputSchema() *jsonschema.Schema {
	return mustSchema([]string{"topic", "namespace", "record"})
}

func (TopicRecordNameStrategy) Compose(in SubjectInputs) (string, error) {
	if in.Topic == "" || in.Namespace == "" || in.Record == "" {
		return "", fmt.Errorf("policy: TopicRecordNameStrategy requires topic, namespace, and record")
	}
	return in.Topic + "-" + in.Namespace + "." + in.Record, nil
}

// EnvTeamTopicNameStrategy is a governance extension supplementing the
// bare strategies above: "{env}.{team}.{topic}-{key_or_value}", ensuring
// every subject it produces carries both an environment and an ownership
// segment (SPEC_FULL.md §4.B expansion).
type EnvTeamTopicNameStrategy struct{}

func (EnvTeamTopicNameStrategy) StrategyName() string { return "EnvTeamTopicName" }

func (EnvTeamTopicNameStrategy) InputSchema() *jsonschema.Schema {
	return mustSchema([]string{"env", "team", "topic", "key_or_value"})
}

func (EnvTeamTopicNameStrategy) Compose(in SubjectInputs) (string, error) {
	if in.Env == "" || in.Team == "" || in.Topic == "" || in.KeyOrValue == "" {
		return "", fmt.Errorf("policy: EnvTeamTopicNameStrategy requires env, team, topic, and key_or_value")
	}
	return in.Env + "." + in.Team + "." + in.Topic + "-" + in.KeyOrValue, nil
}

// BuiltinStrategies returns the four strategies named in SPEC_FULL.md §4.B,
// keyed by name for policy-content lookup.
func BuiltinStrategies() map[string]NamingStrategy {
	return map[string]NamingStrategy{
		"TopicName":       TopicNameStrategy{},
		"RecordName":      RecordNameStrategy{},
		"TopicRecordName": TopicRecordNameStrategy{},
		"EnvTeamTopicName": EnvTeamTopicNameStrategy{},
	}
}
