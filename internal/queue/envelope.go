package queue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/0xknstntn/news-checker/internal/model"
)

// envelopeSchemaJSON accepts the current envelope and the legacy producer
// form that carries chat_id (string or number) instead of conversation_id.
const envelopeSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["input"],
  "properties": {
    "id": {"type": "string"},
    "input": {"type": "string", "minLength": 1, "pattern": "\\S"},
    "conversation_id": {"type": ["string", "integer"]},
    "chat_id": {"type": ["string", "integer"]},
    "session_id": {"type": ["string", "integer", "null"]},
    "created_at": {"type": "string", "format": "date-time"}
  },
  "anyOf": [
    {"required": ["conversation_id"]},
    {"required": ["chat_id"]}
  ]
}`

var envelopeSchema = mustCompileSchema(envelopeSchemaJSON, "envelope.schema.json")

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("failed to parse %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

type envelope struct {
	ID             string          `json:"id,omitempty"`
	Input          string          `json:"input"`
	ConversationID json.RawMessage `json:"conversation_id,omitempty"`
	ChatID         json.RawMessage `json:"chat_id,omitempty"`
	CreatedAt      *time.Time      `json:"created_at,omitempty"`
}

// EncodeTask serializes task as a queue envelope
func EncodeTask(task model.Task) ([]byte, error) {
	conv, err := json.Marshal(task.ConversationID)
	if err != nil {
		return nil, err
	}
	env := envelope{
		ID:             task.ID,
		Input:          task.Input,
		ConversationID: conv,
	}
	if !task.CreatedAt.IsZero() {
		created := task.CreatedAt.UTC()
		env.CreatedAt = &created
	}
	return json.Marshal(env)
}

// DecodeTask validates and decodes an envelope. Any failure wraps ErrMalformedTask.
// Envelopes without an id get a fresh one; missing created_at defaults to now.
func DecodeTask(payload []byte) (model.Task, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		return model.Task{}, fmt.Errorf("%w: %v", ErrMalformedTask, err)
	}
	if err := envelopeSchema.Validate(inst); err != nil {
		return model.Task{}, fmt.Errorf("%w: %v", ErrMalformedTask, err)
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return model.Task{}, fmt.Errorf("%w: %v", ErrMalformedTask, err)
	}

	conv := idString(env.ConversationID)
	if conv == "" {
		conv = idString(env.ChatID)
	}
	if conv == "" {
		return model.Task{}, fmt.Errorf("%w: empty conversation id", ErrMalformedTask)
	}

	task := model.Task{
		ID:             env.ID,
		Input:          strings.TrimSpace(env.Input),
		ConversationID: conv,
		CreatedAt:      time.Now().UTC(),
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if env.CreatedAt != nil {
		task.CreatedAt = env.CreatedAt.UTC()
	}
	return task, nil
}

// idString renders a JSON string or number id as text
func idString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
