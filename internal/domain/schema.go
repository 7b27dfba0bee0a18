package domain

import (
	"github.com/kafkagov/controlplane/internal/apperrors"
)

// SchemaType is the Schema Registry schema format.
type SchemaType string

const (
	SchemaTypeAvro    SchemaType = "AVRO"
	SchemaTypeJSON    SchemaType = "JSON"
	SchemaTypeProtobuf SchemaType = "PROTOBUF"
)

func (t SchemaType) Valid() bool {
	switch t {
	case SchemaTypeAvro, SchemaTypeJSON, SchemaTypeProtobuf:
		return true
	default:
		return false
	}
}

// CompatibilityMode is a Schema Registry compatibility contract.
type CompatibilityMode string

const (
	CompatBackward           CompatibilityMode = "BACKWARD"
	CompatBackwardTransitive CompatibilityMode = "BACKWARD_TRANSITIVE"
	CompatForward            CompatibilityMode = "FORWARD"
	CompatForwardTransitive  CompatibilityMode = "FORWARD_TRANSITIVE"
	CompatFull               CompatibilityMode = "FULL"
	CompatFullTransitive     CompatibilityMode = "FULL_TRANSITIVE"
	CompatNone               CompatibilityMode = "NONE"
)

// SchemaSourceKind tags which payload field of SchemaSource is populated.
type SchemaSourceKind string

const (
	SourceInline SchemaSourceKind = "INLINE"
	SourceFile   SchemaSourceKind = "FILE"
	SourceYAML   SchemaSourceKind = "YAML"
)

// SchemaSource is a tagged union: exactly one payload field is set,
// matching the tag.
type SchemaSource struct {
	Kind    SchemaSourceKind
	Content string // INLINE, YAML
	Path    string // FILE
}

// NewSchemaSource validates the tagged-union invariant.
func NewSchemaSource(s SchemaSource) (SchemaSource, error) {
	switch s.Kind {
	case SourceInline, SourceYAML:
		if s.Content == "" {
			return SchemaSource{}, apperrors.Invariant("%s schema source requires content", s.Kind)
		}
		if s.Path != "" {
			return SchemaSource{}, apperrors.Invariant("%s schema source must not set path", s.Kind)
		}
	case SourceFile:
		if s.Path == "" {
			return SchemaSource{}, apperrors.Invariant("FILE schema source requires a path")
		}
		if s.Content != "" {
			return SchemaSource{}, apperrors.Invariant("FILE schema source must not set content")
		}
	default:
		return SchemaSource{}, apperrors.Invariant("invalid schema source kind %q", s.Kind)
	}
	return s, nil
}

// SchemaReference is a named pointer to a dependency subject+version, as
// used by Avro/Protobuf schema composition.
type SchemaReference struct {
	Name    string
	Subject string
	Version int
}

// SchemaMetadata mirrors TopicMetadata's ownership envelope for schemas.
type SchemaMetadata struct {
	Owners []string
	Doc    string
	Tags   []string
}

// SchemaSpec is an immutable declarative request against one Schema
// Registry subject. Action is not part of spec.md §3's SchemaSpec shape but
// is added here so the generic planner of §4.E can treat topic and schema
// batches uniformly (DESIGN.md Open Question: schema action); it defaults to
// CREATE when omitted, matching a schema registration's natural default.
type SchemaSpec struct {
	Subject           string
	Action            Action
	SchemaType        SchemaType
	CompatibilityMode CompatibilityMode
	SchemaLiteral     string // set when the schema text is inline
	SchemaSource      *SchemaSource
	References        []SchemaReference
	Metadata          *SchemaMetadata
	DryRunOnly        bool
}

// NewSchemaSpec validates and constructs a SchemaSpec.
func NewSchemaSpec(s SchemaSpec) (SchemaSpec, error) {
	if s.Subject == "" {
		return SchemaSpec{}, apperrors.Invariant("schema subject must not be empty")
	}
	if len(s.Subject) > maxResourceNameLength {
		return SchemaSpec{}, apperrors.Invariant("schema subject %q exceeds %d characters", s.Subject, maxResourceNameLength)
	}
	if s.Action == "" {
		s.Action = ActionCreate
	}
	if !s.Action.Valid() {
		return SchemaSpec{}, apperrors.Invariant("invalid schema action %q", s.Action)
	}
	if !s.SchemaType.Valid() {
		return SchemaSpec{}, apperrors.Invariant("invalid schema type %q", s.SchemaType)
	}
	hasLiteral := s.SchemaLiteral != ""
	hasSource := s.SchemaSource != nil
	if s.Action != ActionDelete && !hasLiteral && !hasSource {
		return SchemaSpec{}, apperrors.Invariant("schema %q requires a literal or a source", s.Subject)
	}
	if hasLiteral && hasSource && s.SchemaSource.Kind != SourceInline {
		return SchemaSpec{}, apperrors.Invariant(
			"schema %q: literal may only accompany an absent or inline source", s.Subject,
		)
	}
	return s, nil
}

// ResolvedText returns the schema's textual payload: the literal when set,
// else an inline/YAML source's content. FILE sources must be resolved to
// inline content by the upload flow before a spec reaches the planner.
func (s SchemaSpec) ResolvedText() (string, error) {
	if s.SchemaLiteral != "" {
		return s.SchemaLiteral, nil
	}
	if s.SchemaSource != nil && s.SchemaSource.Kind != SourceFile {
		return s.SchemaSource.Content, nil
	}
	return "", apperrors.Invariant("schema %q has no resolvable inline text", s.Subject)
}

func (s SchemaSpec) SpecName() string { return s.Subject }

func (s SchemaSpec) SpecEnvironment() Environment { return EnvironmentOf(s.Subject) }

func (s SchemaSpec) Fingerprint() string {
	type canon struct {
		Subject    string
		Action     Action
		Type       SchemaType
		Compat     CompatibilityMode
		Literal    string
		Source     *SchemaSource
		References []SchemaReference
		Meta       *SchemaMetadata
		DryRun     bool
	}
	return fingerprint(canon{
		s.Subject, s.Action, s.SchemaType, s.CompatibilityMode, s.SchemaLiteral,
		s.SchemaSource, s.References, s.Metadata, s.DryRunOnly,
	})
}

// SchemaArtifact is the durable reference to a registered schema's source
// bytes, written by the schema applier on successful registration
// (SPEC_FULL.md §3 expansion, from original_source's schema_artifact table).
type SchemaArtifact struct {
	Subject    string
	Version    int
	Checksum   string
	StorageURL string
	ChangeID   string
}
