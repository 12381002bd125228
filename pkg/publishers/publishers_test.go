package publishers

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryEnabledFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: http2
    type: http
    enabled: true
    http:
      url: https://example.com/2
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "http2" {
		t.Fatalf("expected only http2 enabled, got %#v", enabled)
	}
}

func TestValidatePublisherConfigRejectsMissingHTTP(t *testing.T) {
	err := validatePublisherConfig(PublisherConfig{
		ID:   "h1",
		Type: TypeHTTP,
	})
	if err == nil {
		t.Fatalf("expected validation error for missing http block")
	}
}

func TestValidatePublisherConfigByType(t *testing.T) {
	cases := []struct {
		name string
		cfg  PublisherConfig
		ok   bool
	}{
		{"sns ok", PublisherConfig{ID: "s", Type: TypeSNS, SNS: &SNSPublisherConfig{AWSConfig: AWSConfig{Region: "eu-west-1"}, TopicARN: "arn"}}, true},
		{"sns missing arn", PublisherConfig{ID: "s", Type: TypeSNS, SNS: &SNSPublisherConfig{AWSConfig: AWSConfig{Region: "eu-west-1"}}}, false},
		{"sqs missing region", PublisherConfig{ID: "q", Type: TypeSQS, SQS: &SQSPublisherConfig{QueueURL: "u"}}, false},
		{"pubsub ok", PublisherConfig{ID: "p", Type: TypePubSub, PubSub: &PubSubPublisherConfig{ProjectID: "proj", Topic: "t"}}, true},
		{"pubsub missing topic", PublisherConfig{ID: "p", Type: TypePubSub, PubSub: &PubSubPublisherConfig{ProjectID: "proj"}}, false},
		{"unknown", PublisherConfig{ID: "k", Type: "kafka"}, false},
	}
	for _, tc := range cases {
		err := validatePublisherConfig(tc.cfg)
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestLoadRegistryInlinesAWSSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publishers.yaml")
	raw := `
publishers:
  - id: topic
    type: SNS
    sns:
      region: " us-east-1 "
      endpoint: http://localhost:4566
      topic_arn: arn:aws:sns:us-east-1:000000000000:activity
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	cfg, ok := reg.ByID("topic")
	if !ok {
		t.Fatalf("expected topic publisher")
	}
	if cfg.Type != TypeSNS || cfg.SNS.Region != "us-east-1" || cfg.SNS.Endpoint != "http://localhost:4566" {
		t.Fatalf("unexpected config %#v", cfg.SNS)
	}
}

func TestFromFileEmptyPathYieldsEmptyFanout(t *testing.T) {
	f, err := FromFile(context.Background(), "  ", nil)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if f.Size() != 0 {
		t.Fatalf("expected empty fanout, got %d", f.Size())
	}
}

func TestLoadRegistryJSONAndDuplicates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.json")
	raw := `{"publishers":[{"id":"hook","type":"http","http":{"url":" https://hooks.example/city "}}]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	cfg, ok := reg.ByID(" hook ")
	if !ok || cfg.HTTP.URL != "https://hooks.example/city" || cfg.HTTP.Method != httpDefaultMethod {
		t.Fatalf("unexpected config %#v", cfg.HTTP)
	}

	dup := filepath.Join(dir, "dup.yaml")
	raw = `
publishers:
  - {id: hook, type: http, http: {url: "https://a.example"}}
  - {id: hook, type: http, http: {url: "https://b.example"}}
`
	if err := os.WriteFile(dup, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadRegistry(dup); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestShippedPublishersExampleLoads(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join("..", "..", "configs", "publishers.example.yaml"))
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(reg.Enabled()) != 0 {
		t.Fatalf("example publishers should ship disabled")
	}
	for _, id := range []string{"local-webhook", "events-queue", "events-topic", "events-pubsub"} {
		if _, ok := reg.ByID(id); !ok {
			t.Errorf("missing example publisher %s", id)
		}
	}
}
