package orange

import (
	"fmt"

	"github.com/mateuszdrab/orangepl-exporter/internal/config"
)

// Pipeline pairs the auth strategy and fetcher of one API generation.
type Pipeline struct {
	Auth    AuthStrategy
	Fetcher *Fetcher
}

// Provider selects a Pipeline per credential.
type Provider struct {
	pipelines map[config.Flow]Pipeline
}

// NewProvider wires both API generations onto client. The API key doubles
// as the OAuth client id.
func NewProvider(client *Client, apiKey string, gens config.Generations) (*Provider, error) {
	password, err := NewPasswordAuth(client, gens.Password, apiKey)
	if err != nil {
		return nil, fmt.Errorf("password generation: %w", err)
	}
	return &Provider{
		pipelines: map[config.Flow]Pipeline{
			config.FlowPassword: {Auth: password, Fetcher: NewFetcher(client, gens.Password)},
			config.FlowDevice:   {Auth: NewDeviceAuth(client, gens.Device, apiKey), Fetcher: NewFetcher(client, gens.Device)},
		},
	}, nil
}

// PipelineFor returns the pipeline matching the fields present in cred.
func (p *Provider) PipelineFor(cred config.Credential) Pipeline {
	return p.pipelines[cred.Flow()]
}
