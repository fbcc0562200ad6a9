package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// ErrNoJSON is returned when a reply holds no JSON object
var ErrNoJSON = errors.New("no JSON object in reply")

// DecodeJSON pulls the outermost JSON object out of a model reply (which may
// be wrapped in prose or a code fence) and decodes it into out. Decoding is
// weakly typed: models routinely quote numbers or return single strings
// where lists are expected.
func DecodeJSON(text string, out any) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ErrNoJSON
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return fmt.Errorf("parse reply: %w", err)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	return nil
}
