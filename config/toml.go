package config

import (
	"bytes"

	"github.com/BurntSushi/toml"
)

// TOMLParser implements koanf.Parser on top of BurntSushi/toml.
type TOMLParser struct{}

// TOML returns a TOML parser for koanf.
func TOML() *TOMLParser { return &TOMLParser{} }

func (p *TOMLParser) Unmarshal(b []byte) (map[string]any, error) {
	out := map[string]any{}
	if _, err := toml.Decode(string(b), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *TOMLParser) Marshal(m map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
