// Package openapi embeds the OpenAPI description of the mineral catalog HTTP API.
package openapi

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

// MineralsSpec is the OpenAPI document in YAML form.
//
//go:embed minerals.yaml
var MineralsSpec []byte

var (
	loadOnce sync.Once
	loaded   *openapi3.T
	loadErr  error

	jsonOnce sync.Once
	jsonDoc  []byte
	jsonErr  error
)

// Load parses and validates the embedded document. The result is cached.
func Load(ctx context.Context) (*openapi3.T, error) {
	loadOnce.Do(func() {
		doc, err := openapi3.NewLoader().LoadFromData(MineralsSpec)
		if err != nil {
			loadErr = fmt.Errorf("load openapi document: %w", err)
			return
		}
		if err := doc.Validate(ctx); err != nil {
			loadErr = fmt.Errorf("invalid openapi document: %w", err)
			return
		}
		loaded = doc
	})
	return loaded, loadErr
}

// JSON returns the validated document rendered as JSON.
func JSON() ([]byte, error) {
	jsonOnce.Do(func() {
		doc, err := Load(context.Background())
		if err != nil {
			jsonErr = err
			return
		}
		jsonDoc, jsonErr = json.Marshal(doc)
	})
	if jsonErr != nil {
		return nil, jsonErr
	}
	return append([]byte(nil), jsonDoc...), nil
}

// Version returns info.version of the embedded document.
func Version() (string, error) {
	doc, err := Load(context.Background())
	if err != nil {
		return "", err
	}
	return doc.Info.Version, nil
}
